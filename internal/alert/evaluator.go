// Package alert decides whether a set of normalized itineraries
// satisfies a stored price alert.
package alert

import "github.com/jtomic/farewatch/internal/flights"

// Match carries the single cheapest qualifying itinerary for an alert.
type Match struct {
	Itinerary   flights.Itinerary
	TargetPrice float64
}

// Evaluate reports whether any itinerary satisfies the alert's target
// price in its currency. Itineraries in a different currency are
// excluded rather than compared numerically. The returned match holds
// the cheapest qualifying itinerary; ties keep normalized order. An
// empty input is a normal no-data outcome, not an error.
//
// Evaluate never mutates anything: retiring a matched alert is the
// caller's job.
func Evaluate(itins []flights.Itinerary, targetPrice float64, currency string) (Match, bool) {
	var cheapest *flights.Itinerary
	for i := range itins {
		if itins[i].Currency != currency {
			continue
		}
		if cheapest == nil || itins[i].Price < cheapest.Price {
			cheapest = &itins[i]
		}
	}
	if cheapest == nil || cheapest.Price > targetPrice {
		return Match{}, false
	}
	return Match{Itinerary: *cheapest, TargetPrice: targetPrice}, true
}
