package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtomic/farewatch/internal/config"
	"github.com/jtomic/farewatch/internal/flights"
	"github.com/jtomic/farewatch/internal/storage/sqlite"
	"github.com/jtomic/farewatch/pkg/logger"
)

type stubProvider struct {
	result *flights.SearchResult
	err    error
}

func (s *stubProvider) Search(ctx context.Context, q flights.Query) (*flights.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func fptr(v float64) *float64 { return &v }

func rawItin(airline string, price float64) flights.RawItinerary {
	return flights.RawItinerary{
		Price: fptr(price),
		Legs: []flights.RawLeg{{
			Airline:   airline,
			Departure: flights.RawAirport{ID: "SEA", Time: "2025-06-19 06:00"},
			Arrival:   flights.RawAirport{ID: "SJC", Time: "2025-06-19 08:10"},
		}},
	}
}

func testServer(t *testing.T, p *stubProvider) (*httptest.Server, *sqlite.AlertStorage, *sqlite.PriceStorage) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	alerts, err := sqlite.NewAlertStorage(db, logger.Nop())
	require.NoError(t, err)
	prices, err := sqlite.NewPriceStorage(db, logger.Nop())
	require.NoError(t, err)

	router := NewRouter(p, alerts, prices, config.DefaultConfig(), logger.Nop())
	srv := httptest.NewServer(router.Routes())
	t.Cleanup(srv.Close)
	return srv, alerts, prices
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(dateLayout)
}

func searchBody(target float64) []byte {
	body, _ := json.Marshal(SearchRequest{
		Origin:      "SEA",
		Destination: "SJC",
		DateFrom:    futureDate(30),
		TripType:    "One-Way",
		MaxLayovers: 1,
		TargetPrice: target,
		Currency:    "USD",
		Email:       "user@example.com",
	})
	return body
}

func postSearch(t *testing.T, srv *httptest.Server, body []byte) (*http.Response, SearchResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/search", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out SearchResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestSearch_SavesAlertWhenTargetNotReached(t *testing.T) {
	p := &stubProvider{result: &flights.SearchResult{
		Itineraries: flights.RawItineraries{rawItin("Alaska", 300), rawItin("Delta", 250)},
		SearchLink:  "https://www.google.com/travel/flights",
	}}
	srv, alerts, _ := testServer(t, p)

	resp, out := postSearch(t, srv, searchBody(200))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.False(t, out.TargetReached)
	require.NotNil(t, out.Alert)
	assert.True(t, out.Alert.Saved)

	require.Len(t, out.Itineraries, 2)
	assert.Equal(t, 250.0, out.Itineraries[0].Price) // sorted ascending

	stored, err := alerts.List()
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSearch_NoAlertWhenTargetReached(t *testing.T) {
	p := &stubProvider{result: &flights.SearchResult{
		Itineraries: flights.RawItineraries{rawItin("Delta", 250)},
	}}
	srv, alerts, _ := testServer(t, p)

	resp, out := postSearch(t, srv, searchBody(275))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, out.TargetReached)
	assert.Nil(t, out.Alert)

	stored, err := alerts.List()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSearch_DuplicateAlertReported(t *testing.T) {
	p := &stubProvider{result: &flights.SearchResult{
		Itineraries: flights.RawItineraries{rawItin("Delta", 250)},
	}}
	srv, _, _ := testServer(t, p)

	_, first := postSearch(t, srv, searchBody(200))
	require.NotNil(t, first.Alert)
	assert.True(t, first.Alert.Saved)

	_, second := postSearch(t, srv, searchBody(200))
	require.NotNil(t, second.Alert)
	assert.False(t, second.Alert.Saved)
	assert.True(t, second.Alert.Duplicate)
}

func TestSearch_AppendsPriceHistory(t *testing.T) {
	p := &stubProvider{result: &flights.SearchResult{
		Itineraries: flights.RawItineraries{rawItin("Delta", 250)},
	}}
	srv, _, prices := testServer(t, p)

	resp, _ := postSearch(t, srv, searchBody(275))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rows, err := prices.RecentByRoute("SEA - SJC", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSearch_ValidationErrors(t *testing.T) {
	srv, _, _ := testServer(t, &stubProvider{})

	body, _ := json.Marshal(SearchRequest{
		Origin:      "",
		Destination: "SJC",
		DateFrom:    "2020-01-01", // in the past
		TargetPrice: 200,
	})
	resp, _ := postSearch(t, srv, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch_ReturnBeforeDepartureRejected(t *testing.T) {
	srv, _, _ := testServer(t, &stubProvider{})

	body, _ := json.Marshal(SearchRequest{
		Origin:      "SEA",
		Destination: "SJC",
		DateFrom:    futureDate(30),
		DateTo:      futureDate(20),
		TripType:    "Round-Trip",
		TargetPrice: 200,
	})
	resp, _ := postSearch(t, srv, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch_ProviderErrorSurfaced(t *testing.T) {
	srv, _, _ := testServer(t, &stubProvider{err: fmt.Errorf("no results for this query")})

	resp, _ := postSearch(t, srv, searchBody(200))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAlertCRUD(t *testing.T) {
	srv, alerts, _ := testServer(t, &stubProvider{})

	res, err := alerts.Insert(&sqlite.Alert{
		Origin: "SEA", Destination: "SJC", DateFrom: futureDate(30),
		TripType: "One-Way", TargetPrice: 250, Currency: "USD",
	})
	require.NoError(t, err)

	// List
	resp, err := http.Get(srv.URL + "/api/v1/alerts")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []*sqlite.Alert
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)

	// Update price
	body, _ := json.Marshal(map[string]float64{"target_price": 199})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/alerts/"+res.ID+"/price", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := alerts.List()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 199.0, stored[0].TargetPrice)

	// Delete
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/alerts/"+res.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err = alerts.List()
	require.NoError(t, err)
	assert.Empty(t, stored)

	// Delete again is a 404
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/alerts/"+res.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetHealth(t *testing.T) {
	srv, _, _ := testServer(t, &stubProvider{})
	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
