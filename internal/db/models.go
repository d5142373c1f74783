package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event represents one sessionized customer event as stored in Postgres.
// The raw columns (customer_id, timestamp, type, attributes) are exactly
// what ingestion delivered; the derived columns are filled by the segmenter
// and never mutated afterwards.
type Event struct {
	ID uint `gorm:"primaryKey"`

	CustomerID int64     `gorm:"index;not null"`
	Timestamp  time.Time `gorm:"index;not null"`

	// TimeDiff is the gap to the customer's previous event in minutes.
	TimeDiff float64 `gorm:"not null"`

	// NewSession is 1 where this event started a new session.
	NewSession int `gorm:"not null"`

	// SessionNumber is the 0-based per-customer session index.
	SessionNumber int `gorm:"not null"`

	// Type is the event category; "placed_order" marks a conversion.
	Type string `gorm:"size:64;index"`

	// Attributes holds arbitrary extra payload fields from the source, so
	// the pipeline can carry new fields without schema changes.
	Attributes datatypes.JSONMap `gorm:"type:json"`
}

// APIKey is a bearer token granting access to mutating endpoints such as
// re-sessionize. Keys are opaque values compared as-is.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Name is a friendly identifier for this key (e.g. "ops").
	Name string `gorm:"size:128;not null"`

	// Key is the actual bearer token value.
	Key string `gorm:"uniqueIndex;size:255;not null"`

	// Active indicates whether this key is currently enabled.
	Active bool `gorm:"default:true"`
}
