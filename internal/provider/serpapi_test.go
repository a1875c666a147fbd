package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtomic/farewatch/internal/flights"
	"github.com/jtomic/farewatch/pkg/logger"
)

func testClient(t *testing.T, handler http.HandlerFunc) *SerpAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSerpAPIClient(SerpAPIConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		MaxRetries:        1,
		RequestsPerSecond: 1000,
		RequestBurst:      1000,
	}, logger.Nop())
}

func testQuery() flights.Query {
	return flights.Query{
		Origin:      "SEA",
		Destination: "SJC",
		DateFrom:    "2025-06-19",
		MaxLayovers: 1,
		Currency:    "USD",
	}
}

func TestSerpAPIClient_Search(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google_flights", q.Get("engine"))
		assert.Equal(t, "SEA", q.Get("departure_id"))
		assert.Equal(t, "SJC", q.Get("arrival_id"))
		assert.Equal(t, "2025-06-19", q.Get("outbound_date"))
		assert.Equal(t, "2", q.Get("type")) // one-way
		assert.Equal(t, "1", q.Get("max_stops"))
		assert.Equal(t, "USD", q.Get("currency"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"best_flights": [
				{"price": 250, "total_duration": 130, "flights": [
					{"airline": "Alaska",
					 "departure_airport": {"id": "SEA", "time": "2025-06-19 06:00"},
					 "arrival_airport": {"id": "SJC", "time": "2025-06-19 08:10"}}
				]}
			],
			"other_flights": [
				{"price": 300, "total_duration": 140, "flights": [
					{"airline": "Delta",
					 "departure_airport": {"id": "SEA", "time": "2025-06-19 09:00"},
					 "arrival_airport": {"id": "SJC", "time": "2025-06-19 11:20"}}
				]}
			],
			"price_insights": {
				"lowest_price": 240,
				"price_level": "low",
				"typical_price_range": [230, 320],
				"price_history": [[1718700000, 260], [1718786400, 240]]
			}
		}`))
	})

	result, err := client.Search(context.Background(), testQuery())
	require.NoError(t, err)
	require.Len(t, result.Itineraries, 2)
	assert.Equal(t, "Alaska", result.Itineraries[0].Legs[0].Airline)

	require.NotNil(t, result.Insight)
	assert.Equal(t, 240.0, result.Insight.LowestPrice)
	assert.Equal(t, "low", result.Insight.PriceLevel)
	assert.Equal(t, [2]float64{230, 320}, result.Insight.TypicalPriceRange)
	require.Len(t, result.Insight.PriceHistory, 2)

	assert.Contains(t, result.SearchLink, "SEA+to+SJC")
}

func TestSerpAPIClient_RoundTripReturnDate(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("type"))
		assert.Equal(t, "2025-06-26", q.Get("return_date"))
		w.Write([]byte(`{"best_flights": []}`))
	})

	q := testQuery()
	q.RoundTrip = true
	q.DateTo = "2025-06-26"
	result, err := client.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, result.Itineraries)
	assert.Contains(t, result.SearchLink, "returning+2025-06-26")
}

func TestSerpAPIClient_ErrorPayload(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Google Flights hasn't returned any results for this query."}`))
	})

	_, err := client.Search(context.Background(), testQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestSerpAPIClient_MissingAPIKey(t *testing.T) {
	client := NewSerpAPIClient(SerpAPIConfig{BaseURL: "http://localhost:0"}, logger.Nop())
	_, err := client.Search(context.Background(), testQuery())
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestSerpAPIClient_AuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Search(context.Background(), testQuery())
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSerpAPIClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"best_flights": []}`))
	})

	_, err := client.Search(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSerpAPIClient_BookingLink(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("booking_token") != "" {
			w.Write([]byte(`{"search_metadata": {"google_flights_url": "https://www.google.com/travel/flights/booking"}}`))
			return
		}
		w.Write([]byte(`{
			"best_flights": [{"price": 250, "booking_token": "tok123", "flights": [
				{"airline": "Alaska",
				 "departure_airport": {"id": "SEA", "time": "2025-06-19 06:00"},
				 "arrival_airport": {"id": "SJC", "time": "2025-06-19 08:10"}}
			]}]
		}`))
	})

	result, err := client.Search(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/travel/flights/booking", result.BookingLink)
}
