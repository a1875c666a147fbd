package flights

import "encoding/json"

// RawAirport is one endpoint of a raw leg as the provider reports it.
type RawAirport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Time string `json:"time"` // "2006-01-02 15:04"
}

// RawLeg is one direct flight segment within a raw itinerary.
type RawLeg struct {
	Airline     string     `json:"airline"`
	Departure   RawAirport `json:"departure_airport"`
	Arrival     RawAirport `json:"arrival_airport"`
	DurationMin int        `json:"duration"`
}

// RawItinerary is one itinerary record straight off the provider.
// Prices are optional because the upstream data is untrusted: a record
// may carry total_price, price, or neither.
type RawItinerary struct {
	TotalPrice    *float64 `json:"total_price"`
	Price         *float64 `json:"price"`
	Legs          []RawLeg `json:"flights"`
	TotalDuration int      `json:"total_duration"`
	BookingToken  string   `json:"booking_token"`
}

// RawItineraries decodes tolerantly: records that are not well-formed
// objects are dropped instead of failing the whole response.
type RawItineraries []RawItinerary

// UnmarshalJSON implements json.Unmarshaler
func (r *RawItineraries) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}
	out := make([]RawItinerary, 0, len(elems))
	for _, elem := range elems {
		var raw RawItinerary
		if err := json.Unmarshal(elem, &raw); err != nil {
			continue
		}
		out = append(out, raw)
	}
	*r = out
	return nil
}

// PriceValue resolves the record's price, preferring total_price.
func (r RawItinerary) PriceValue() (float64, bool) {
	if r.TotalPrice != nil {
		return *r.TotalPrice, true
	}
	if r.Price != nil {
		return *r.Price, true
	}
	return 0, false
}
