// Package trip generates AI itineraries for signed-in users and keeps a
// record of every generation.
package trip

import "time"

// Trip is a persisted itinerary generation. It is written once and never
// updated.
type Trip struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id" gorm:"index"`
	FromPlace string    `json:"from_place"`
	ToPlace   string    `json:"to_place"`
	Days      int       `json:"days"`
	Style     string    `json:"style"`
	AIRawText string    `json:"ai_raw_text" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the gorm table name.
func (Trip) TableName() string {
	return "trips"
}
