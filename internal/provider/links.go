package provider

import (
	"fmt"

	"github.com/jtomic/farewatch/internal/flights"
)

// buildSearchLink builds the generic Google Flights search URL that
// accompanies every notification, independent of any booking token.
func buildSearchLink(q flights.Query) string {
	link := fmt.Sprintf("https://www.google.com/travel/flights?q=flights+from+%s+to+%s+on+%s",
		q.Origin, q.Destination, q.DateFrom)
	if q.RoundTrip && q.DateTo != "" {
		link += "+returning+" + q.DateTo
	}
	return link
}
