package itinerary

import (
	"fmt"
	"strings"
)

const (
	defaultDestination = "Unknown place"
	notSpecified       = "Not specified"
	defaultVehicle     = "car"
	defaultInterests   = "general sightseeing"
	defaultStyle       = "balanced"
	dateLayout         = "2006-01-02"
)

const promptTemplate = `You are an experienced road trip planner. Plan a road trip itinerary.

Trip details:
- Origin: %s
- Destination: %s
- Start date: %s
- End date: %s
- Number of days: %s
- Travelers: %d
- Vehicle: %s
- Budget: %s
- Pace: %s
- Travel style: %s
- Interests: %s

Format the answer as plain text with one line per day, exactly like:
- Day 1 - morning, afternoon and evening plan
- Day 2 - ...

For every day include suggested departure and arrival times, driving distance and travel time between stops, and where to eat.
After the day-wise plan, add a short summary of the whole trip.
Finish with 3 to 5 safety tips for driving this route.
Do not use markdown headings or tables.`

// BuildPrompt renders req into a generator prompt. It is pure and never
// fails; every optional field gets a default.
func BuildPrompt(req TripRequest) string {
	return fmt.Sprintf(promptTemplate,
		orDefault(req.Origin, notSpecified),
		orDefault(req.Destination, defaultDestination),
		formatDate(req),
		formatEndDate(req),
		formatDays(req.DayCount),
		travelers(req.TravelerCount),
		orDefault(req.VehicleType, defaultVehicle),
		orDefault(req.Budget, notSpecified),
		orDefault(string(req.Pace), string(PaceNormal)),
		orDefault(req.Style, defaultStyle),
		interests(req.Interests),
	)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func formatDate(req TripRequest) string {
	if req.StartDate == nil {
		return notSpecified
	}
	return req.StartDate.Format(dateLayout)
}

func formatEndDate(req TripRequest) string {
	if req.EndDate == nil {
		return notSpecified
	}
	return req.EndDate.Format(dateLayout)
}

func formatDays(days *int) string {
	if days == nil || *days <= 0 {
		return notSpecified
	}
	return fmt.Sprintf("%d", *days)
}

func travelers(n *int) int {
	if n == nil || *n <= 0 {
		return 1
	}
	return *n
}

func interests(list []string) string {
	var kept []string
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return defaultInterests
	}
	return strings.Join(kept, ", ")
}
