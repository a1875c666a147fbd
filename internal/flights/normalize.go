package flights

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Provider leg timestamps come as wall-clock strings, occasionally
// with seconds attached.
var legTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// Normalize converts raw provider records into a uniform tabular form:
// one Itinerary per valid record, sorted ascending by price. Records
// without a resolvable price or without any leg are dropped. The result
// is a pure function of the input apart from the capture timestamp.
func Normalize(raw RawItineraries, currency string, now time.Time) []Itinerary {
	out := make([]Itinerary, 0, len(raw))
	captured := now.Truncate(time.Second)

	for _, rec := range raw {
		price, ok := rec.PriceValue()
		if !ok || len(rec.Legs) == 0 {
			continue
		}

		first := rec.Legs[0]
		last := rec.Legs[len(rec.Legs)-1]

		out = append(out, Itinerary{
			Airline:       first.Airline,
			Price:         price,
			Currency:      currency,
			DurationMin:   rec.TotalDuration,
			Layovers:      len(rec.Legs) - 1,
			LayoverInfo:   layoverInfo(rec.Legs),
			Route:         fmt.Sprintf("%s - %s", first.Departure.ID, last.Arrival.ID),
			DepartureTime: first.Departure.Time,
			ArrivalTime:   last.Arrival.Time,
			CapturedAt:    captured,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price < out[j].Price
	})
	return out
}

// layoverInfo renders one "XXX (2h 15m)" entry per adjacent leg pair,
// joined with "; ". A direct flight yields the literal "None".
func layoverInfo(legs []RawLeg) string {
	if len(legs) < 2 {
		return "None"
	}
	details := make([]string, 0, len(legs)-1)
	for i := 0; i < len(legs)-1; i++ {
		airport := legs[i].Arrival.ID
		gap, ok := legGap(legs[i].Arrival.Time, legs[i+1].Departure.Time)
		if !ok {
			// Keep the stop airport even when the leg timestamps
			// are unparseable.
			details = append(details, airport)
			continue
		}
		hours := int(gap.Hours())
		minutes := int(gap.Minutes()) % 60
		details = append(details, fmt.Sprintf("%s (%dh %dm)", airport, hours, minutes))
	}
	return strings.Join(details, "; ")
}

func legGap(arrival, departure string) (time.Duration, bool) {
	arr, ok := parseLegTime(arrival)
	if !ok {
		return 0, false
	}
	dep, ok := parseLegTime(departure)
	if !ok {
		return 0, false
	}
	gap := dep.Sub(arr)
	if gap < 0 {
		return 0, false
	}
	return gap, true
}

func parseLegTime(s string) (time.Time, bool) {
	for _, layout := range legTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterAirlines keeps only itineraries operated by one of the
// preferred airlines. An empty preference set keeps everything.
func FilterAirlines(itins []Itinerary, airlines []string) []Itinerary {
	if len(airlines) == 0 {
		return itins
	}
	out := make([]Itinerary, 0, len(itins))
	for _, it := range itins {
		for _, a := range airlines {
			if strings.EqualFold(strings.TrimSpace(a), it.Airline) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
