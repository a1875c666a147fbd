package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jtomic/farewatch/internal/alert"
	"github.com/jtomic/farewatch/internal/flights"
	"github.com/jtomic/farewatch/internal/provider"
	"github.com/jtomic/farewatch/internal/storage/sqlite"
	"github.com/jtomic/farewatch/pkg/logger"
)

// Top of the price-sorted table returned to the caller.
const topResults = 5

const dateLayout = "2006-01-02"

// Handler handles API requests
type Handler struct {
	provider provider.Provider
	alerts   *sqlite.AlertStorage
	prices   *sqlite.PriceStorage
	logger   *logger.Logger
	now      func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(p provider.Provider, alerts *sqlite.AlertStorage, prices *sqlite.PriceStorage, logger *logger.Logger) *Handler {
	return &Handler{
		provider: p,
		alerts:   alerts,
		prices:   prices,
		logger:   logger.Named("api-handler"),
		now:      time.Now,
	}
}

// SearchRequest is the interactive search-and-set-alert form.
type SearchRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	DateFrom    string   `json:"date_from"`
	DateTo      string   `json:"date_to,omitempty"`
	TripType    string   `json:"trip_type"`
	MaxLayovers int      `json:"max_layovers"`
	TargetPrice float64  `json:"target_price"`
	Currency    string   `json:"currency"`
	Airlines    []string `json:"airlines,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
}

// SearchResponse is the interactive search result.
type SearchResponse struct {
	Itineraries   []flights.Itinerary   `json:"itineraries"`
	Insight       *flights.PriceInsight `json:"insight,omitempty"`
	BookingLink   string                `json:"booking_link,omitempty"`
	SearchLink    string                `json:"search_link,omitempty"`
	TargetReached bool                  `json:"target_reached"`
	Alert         *sqlite.InsertResult  `json:"alert,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// Search runs one provider query, records price history, and saves an
// alert when the cheapest fare does not yet reach the target. Storage
// problems surface as warnings in the response, never as a failed
// search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Origin = strings.ToUpper(strings.TrimSpace(req.Origin))
	req.Destination = strings.ToUpper(strings.TrimSpace(req.Destination))
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if req.TripType == "" {
		req.TripType = "One-Way"
	}

	if problems := h.validateSearch(req); len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": problems})
		return
	}

	roundTrip := req.TripType == "Round-Trip"
	query := flights.Query{
		Origin:      req.Origin,
		Destination: req.Destination,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		RoundTrip:   roundTrip,
		MaxLayovers: req.MaxLayovers,
		Currency:    req.Currency,
	}

	result, err := h.provider.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("Provider query failed", logger.Error(err))
		writeError(w, http.StatusBadGateway, fmt.Sprintf("flight search failed: %v", err))
		return
	}

	itins := flights.Normalize(result.Itineraries, req.Currency, h.now())
	filtered := flights.FilterAirlines(itins, req.Airlines)

	resp := SearchResponse{
		Itineraries: filtered,
		Insight:     result.Insight,
		BookingLink: result.BookingLink,
		SearchLink:  result.SearchLink,
	}
	if len(resp.Itineraries) > topResults {
		resp.Itineraries = resp.Itineraries[:topResults]
	}

	// History records every normalized row, unfiltered, so the chart
	// reflects the whole market.
	if err := h.prices.Append(itins); err != nil {
		h.logger.Error("Failed to append price history", logger.Error(err))
		resp.Warnings = append(resp.Warnings, "price history could not be recorded")
	}

	if req.TargetPrice > 0 && len(filtered) > 0 {
		if _, ok := alert.Evaluate(filtered, req.TargetPrice, req.Currency); ok {
			resp.TargetReached = true
		} else {
			insert, err := h.alerts.Insert(alertFromSearch(req))
			if err != nil {
				h.logger.Error("Failed to save alert", logger.Error(err))
				resp.Warnings = append(resp.Warnings, "alert could not be saved")
			} else {
				resp.Alert = &insert
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) validateSearch(req SearchRequest) []string {
	var problems []string
	if req.Origin == "" {
		problems = append(problems, "origin airport is required")
	}
	if req.Destination == "" {
		problems = append(problems, "destination airport is required")
	}

	today := h.now().Truncate(24 * time.Hour)
	dateFrom, err := time.Parse(dateLayout, req.DateFrom)
	if err != nil {
		problems = append(problems, "departure date must be YYYY-MM-DD")
	} else if dateFrom.Before(today) {
		problems = append(problems, "departure date cannot be in the past")
	}

	if req.DateTo != "" {
		dateTo, err := time.Parse(dateLayout, req.DateTo)
		if err != nil {
			problems = append(problems, "return date must be YYYY-MM-DD")
		} else if dateFrom.After(dateTo) {
			problems = append(problems, "return date cannot be before departure date")
		}
	}
	if req.MaxLayovers < 0 {
		problems = append(problems, "max layovers cannot be negative")
	}
	return problems
}

func alertFromSearch(req SearchRequest) *sqlite.Alert {
	a := &sqlite.Alert{
		Origin:      req.Origin,
		Destination: req.Destination,
		DateFrom:    req.DateFrom,
		TripType:    req.TripType,
		MaxLayovers: req.MaxLayovers,
		TargetPrice: req.TargetPrice,
		Currency:    req.Currency,
		Airlines:    req.Airlines,
		Email:       req.Email,
		Phone:       req.Phone,
	}
	if req.DateTo != "" {
		v := req.DateTo
		a.DateTo = &v
	}
	return a
}

// ListAlerts returns all stored alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.List()
	if err != nil {
		h.logger.Error("Failed to list alerts", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*sqlite.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// UpdateAlertPrice changes the target price of one alert.
func (h *Handler) UpdateAlertPrice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		TargetPrice float64 `json:"target_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.TargetPrice <= 0 {
		writeError(w, http.StatusBadRequest, "target price must be positive")
		return
	}
	if err := h.alerts.UpdatePrice(id, body.TargetPrice); err != nil {
		h.logger.Warn("Failed to update alert price", logger.String("id", id), logger.Error(err))
		writeError(w, http.StatusNotFound, fmt.Sprintf("failed to update alert: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "target_price": body.TargetPrice})
}

// DeleteAlert removes one alert.
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.alerts.Delete(id); err != nil {
		h.logger.Warn("Failed to delete alert", logger.String("id", id), logger.Error(err))
		writeError(w, http.StatusNotFound, fmt.Sprintf("failed to delete alert: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// GetPriceHistory returns recent recorded prices for one route, newest
// first, for the insights chart.
func (h *Handler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	origin := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("origin")))
	destination := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("destination")))
	if origin == "" || destination == "" {
		writeError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	route := fmt.Sprintf("%s - %s", origin, destination)
	rows, err := h.prices.RecentByRoute(route, limit)
	if err != nil {
		h.logger.Error("Failed to query price history", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query price history")
		return
	}
	if rows == nil {
		rows = []*sqlite.PriceRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"route": route, "prices": rows})
}

// GetHealth returns service health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
