// Package itinerary builds trip-planning prompts, sends them to a text
// generator and splits the answer into itinerary items.
package itinerary

import "time"

// Pace is how densely each day is planned.
type Pace string

const (
	PaceRelaxed Pace = "relaxed"
	PaceNormal  Pace = "normal"
	PacePacked  Pace = "packed"
)

// TripRequest describes the trip to plan. Optional fields are pointers or
// empty values; BuildPrompt fills in defaults for them.
type TripRequest struct {
	Origin        string     `json:"origin"`
	Destination   string     `json:"destination"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	DayCount      *int       `json:"day_count,omitempty"`
	Budget        string     `json:"budget,omitempty"`
	TravelerCount *int       `json:"traveler_count,omitempty"`
	VehicleType   string     `json:"vehicle_type,omitempty"`
	Interests     []string   `json:"interests,omitempty"`
	Pace          Pace       `json:"pace,omitempty"`
	Style         string     `json:"style,omitempty"`
}

// Item is one line of a generated itinerary.
type Item struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	ETA    string `json:"eta"`
}
