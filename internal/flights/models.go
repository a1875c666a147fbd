package flights

import "time"

// Query describes one route/date search against the provider
type Query struct {
	Origin      string
	Destination string
	DateFrom    string // YYYY-MM-DD
	DateTo      string // empty for one-way
	RoundTrip   bool
	MaxLayovers int
	Currency    string
}

// Itinerary is one priced flight option, possibly multi-leg,
// produced fresh on every search and never mutated.
type Itinerary struct {
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

// PriceInsight is the provider-supplied pricing summary for a route.
// Read-only and never persisted.
type PriceInsight struct {
	LowestPrice       float64      `json:"lowest_price"`
	PriceLevel        string       `json:"price_level"` // low, typical, high
	TypicalPriceRange [2]float64   `json:"typical_price_range"`
	PriceHistory      [][2]float64 `json:"price_history"` // (unix seconds, price) samples
}

// SearchResult bundles everything one provider query yields.
type SearchResult struct {
	Itineraries RawItineraries
	Insight     *PriceInsight
	BookingLink string
	SearchLink  string
}
