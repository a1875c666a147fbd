package notify

import (
	"fmt"
	"strings"
)

// EmailSubject is the subject line for every fare alert email.
const EmailSubject = "Flight Price Alert"

// ComposeSMSBody renders the plain-text SMS alert.
func ComposeSMSBody(deal Deal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Flight deal alert! %s: %.0f %s (target %.0f)\n",
		deal.Route, deal.Price, deal.Currency, deal.TargetPrice)
	if deal.BookingLink != "" {
		b.WriteString(deal.BookingLink)
		b.WriteString("\n")
	}
	if deal.SearchLink != "" {
		b.WriteString(deal.SearchLink)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ComposeEmailBody renders the HTML email alert with the cheapest
// matching itinerary's details.
func ComposeEmailBody(deal Deal) string {
	var b strings.Builder
	b.WriteString("<p><strong>Flight deal alert!</strong></p>\n<ul>\n")
	fmt.Fprintf(&b, "<li><strong>Route:</strong> %s</li>\n", deal.Route)
	fmt.Fprintf(&b, "<li><strong>Price:</strong> %.2f %s (at or below your target of %.2f %s)</li>\n",
		deal.Price, deal.Currency, deal.TargetPrice, deal.Currency)
	fmt.Fprintf(&b, "<li><strong>Airline:</strong> %s</li>\n", deal.Airline)
	fmt.Fprintf(&b, "<li><strong>Duration:</strong> %d minutes</li>\n", deal.DurationMin)
	fmt.Fprintf(&b, "<li><strong>Layovers:</strong> %d (%s)</li>\n", deal.Layovers, deal.LayoverInfo)
	fmt.Fprintf(&b, "<li><strong>Departure:</strong> %s</li>\n", deal.DepartureTime)
	fmt.Fprintf(&b, "<li><strong>Arrival:</strong> %s</li>\n", deal.ArrivalTime)
	b.WriteString("</ul>\n")
	if deal.BookingLink != "" {
		fmt.Fprintf(&b, "<p><a href=%q>Book now</a></p>\n", deal.BookingLink)
	}
	if deal.SearchLink != "" {
		fmt.Fprintf(&b, "<p><a href=%q>Explore more flights</a></p>\n", deal.SearchLink)
	}
	return b.String()
}
