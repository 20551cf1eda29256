package model

import "time"

// Event has no author; any signed-in member may announce one.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	StartTime   time.Time `db:"start_time" json:"startTime"`
	EndTime     time.Time `db:"end_time" json:"endTime"`
	Category    *string   `db:"category" json:"category"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type NewEvent struct {
	Title       string    `json:"title" jsonschema:"minLength=1,maxLength=200"`
	Description string    `json:"description" jsonschema:"minLength=1"`
	Location    string    `json:"location" jsonschema:"minLength=1,maxLength=200"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Category    *string   `json:"category,omitempty" jsonschema:"maxLength=50"`
}
