// Package scheduler re-checks every stored alert against fresh
// provider data and retires the ones that matched.
package scheduler

import (
	"context"
	"time"

	"github.com/jtomic/farewatch/internal/alert"
	"github.com/jtomic/farewatch/internal/flights"
	"github.com/jtomic/farewatch/internal/notify"
	"github.com/jtomic/farewatch/internal/provider"
	"github.com/jtomic/farewatch/internal/storage/sqlite"
	"github.com/jtomic/farewatch/pkg/logger"
)

// Notifier delivers a matched deal; satisfied by notify.Notifier.
type Notifier interface {
	Send(ctx context.Context, deal notify.Deal, emailTo, phoneTo string) notify.Outcome
}

// Report summarizes one pass over all stored alerts. Failures are
// per-alert; a pass itself never fails.
type Report struct {
	Evaluated        int `json:"evaluated"`
	Matched          int `json:"matched"`
	Retired          int `json:"retired"`
	ProviderFailures int `json:"provider_failures"`
	NotifyFailures   int `json:"notify_failures"`
}

// Scheduler runs re-evaluation passes over the alert store.
type Scheduler struct {
	alerts         *sqlite.AlertStorage
	prices         *sqlite.PriceStorage
	provider       provider.Provider
	notifier       Notifier
	requestTimeout time.Duration
	logger         *logger.Logger
}

// New creates a new scheduler
func New(alerts *sqlite.AlertStorage, prices *sqlite.PriceStorage, p provider.Provider, n Notifier, requestTimeout time.Duration, logger *logger.Logger) *Scheduler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Scheduler{
		alerts:         alerts,
		prices:         prices,
		provider:       p,
		notifier:       n,
		requestTimeout: requestTimeout,
		logger:         logger.Named("scheduler"),
	}
}

// RunOnce evaluates every stored alert in store order. One alert's
// provider error or bad data never aborts the rest of the pass. A
// matched alert is retired after notification regardless of delivery
// outcome; re-running a pass that was cut short only costs a fresh
// provider query per leftover alert.
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	var report Report

	alerts, err := s.alerts.List()
	if err != nil {
		s.logger.Error("Failed to list alerts", logger.Error(err))
		return report
	}
	s.logger.Info("Starting alert pass", logger.Int("alerts", len(alerts)))

	for _, a := range alerts {
		select {
		case <-ctx.Done():
			s.logger.Warn("Alert pass interrupted", logger.Error(ctx.Err()))
			return report
		default:
		}
		report.Evaluated++
		s.checkAlert(ctx, a, &report)
	}

	s.logger.Info("Alert pass complete",
		logger.Int("evaluated", report.Evaluated),
		logger.Int("matched", report.Matched),
		logger.Int("retired", report.Retired),
		logger.Int("provider_failures", report.ProviderFailures),
		logger.Int("notify_failures", report.NotifyFailures),
	)
	return report
}

func (s *Scheduler) checkAlert(ctx context.Context, a *sqlite.Alert, report *Report) {
	log := s.logger.With(
		logger.String("alert_id", a.ID),
		logger.String("origin", a.Origin),
		logger.String("destination", a.Destination),
		logger.String("date_from", a.DateFrom),
	)

	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	result, err := s.provider.Search(reqCtx, queryFromAlert(a))
	cancel()
	if err != nil {
		log.Warn("Provider query failed, skipping alert this cycle", logger.Error(err))
		report.ProviderFailures++
		return
	}

	itins := flights.Normalize(result.Itineraries, a.Currency, time.Now())
	if err := s.prices.Append(itins); err != nil {
		log.Warn("Failed to append price history", logger.Error(err))
	}

	itins = flights.FilterAirlines(itins, a.Airlines)
	if len(itins) == 0 {
		log.Debug("No usable itineraries this cycle")
		return
	}

	match, ok := alert.Evaluate(itins, a.TargetPrice, a.Currency)
	if !ok {
		log.Debug("No match",
			logger.Float64("cheapest", itins[0].Price),
			logger.Float64("target", a.TargetPrice),
		)
		return
	}
	report.Matched++
	log.Info("Alert matched",
		logger.Float64("price", match.Itinerary.Price),
		logger.Float64("target", a.TargetPrice),
		logger.String("airline", match.Itinerary.Airline),
	)

	outcome := s.notifier.Send(ctx, dealForMatch(match, result), a.Email, a.Phone)
	if outcome.Failed() {
		report.NotifyFailures++
	}

	if err := s.alerts.Delete(a.ID); err != nil {
		log.Error("Failed to retire matched alert", logger.Error(err))
		return
	}
	report.Retired++
}

func queryFromAlert(a *sqlite.Alert) flights.Query {
	q := flights.Query{
		Origin:      a.Origin,
		Destination: a.Destination,
		DateFrom:    a.DateFrom,
		RoundTrip:   a.TripType == "Round-Trip",
		MaxLayovers: a.MaxLayovers,
		Currency:    a.Currency,
	}
	if a.DateTo != nil {
		q.DateTo = *a.DateTo
	}
	return q
}

func dealForMatch(m alert.Match, result *flights.SearchResult) notify.Deal {
	return notify.Deal{
		Route:         m.Itinerary.Route,
		Airline:       m.Itinerary.Airline,
		Price:         m.Itinerary.Price,
		TargetPrice:   m.TargetPrice,
		Currency:      m.Itinerary.Currency,
		DurationMin:   m.Itinerary.DurationMin,
		Layovers:      m.Itinerary.Layovers,
		LayoverInfo:   m.Itinerary.LayoverInfo,
		DepartureTime: m.Itinerary.DepartureTime,
		ArrivalTime:   m.Itinerary.ArrivalTime,
		BookingLink:   result.BookingLink,
		SearchLink:    result.SearchLink,
	}
}

// Start runs passes on the given interval until the context is
// cancelled. The first pass runs immediately.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("Scheduler started", logger.Duration("interval", interval))
	s.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
