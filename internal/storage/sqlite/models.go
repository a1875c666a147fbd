package sqlite

import "time"

// Alert is one saved search with a target price. DateTo is nil for
// one-way trips; the nil-vs-value distinction is part of the
// duplicate-suppression key.
type Alert struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DateFrom    string    `json:"date_from"`
	DateTo      *string   `json:"date_to,omitempty"`
	TripType    string    `json:"trip_type"` // "Round-Trip" or "One-Way"
	MaxLayovers int       `json:"max_layovers"`
	TargetPrice float64   `json:"target_price"`
	Currency    string    `json:"currency"`
	Airlines    []string  `json:"airlines,omitempty"` // preferred airlines, empty = any
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InsertResult reports the outcome of an alert insert without raising
// storage failures into the interactive flow.
type InsertResult struct {
	ID        string `json:"id,omitempty"`
	Saved     bool   `json:"saved"`
	Duplicate bool   `json:"duplicate"`
}

// PriceRow is one appended price-history sample, written for every
// normalized itinerary from every search.
type PriceRow struct {
	ID            int64     `json:"id"`
	Airline       string    `json:"airline"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	DurationMin   int       `json:"duration_min"`
	Layovers      int       `json:"layovers"`
	LayoverInfo   string    `json:"layover_info"`
	Route         string    `json:"route"`
	DepartureTime string    `json:"departure_time"`
	ArrivalTime   string    `json:"arrival_time"`
	CapturedAt    time.Time `json:"captured_at"`
}
