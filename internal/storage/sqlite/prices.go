package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jtomic/farewatch/internal/flights"
	"github.com/jtomic/farewatch/pkg/logger"
)

// PriceStorage is the append-only log of normalized itinerary rows,
// one per itinerary per search, used for price-history charting.
type PriceStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPriceStorage creates a new SQLite price history storage
func NewPriceStorage(db *sql.DB, logger *logger.Logger) (*PriceStorage, error) {
	storage := &PriceStorage{
		db:     db,
		logger: logger.Named("sqlite-prices"),
	}
	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

func (s *PriceStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_prices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			airline TEXT NOT NULL,
			price REAL NOT NULL,
			currency TEXT NOT NULL,
			duration_min INTEGER NOT NULL,
			layovers INTEGER NOT NULL,
			layover_info TEXT NOT NULL,
			route TEXT NOT NULL,
			departure_time TEXT,
			arrival_time TEXT,
			captured_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight_prices table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_flight_prices_route ON flight_prices(route)`,
		`CREATE INDEX IF NOT EXISTS idx_flight_prices_captured_at ON flight_prices(captured_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create price index: %w", err)
		}
	}

	return nil
}

// Append writes every normalized itinerary as one history row, in a
// single transaction.
func (s *PriceStorage) Append(itins []flights.Itinerary) error {
	if len(itins) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO flight_prices
		(airline, price, currency, duration_min, layovers, layover_info, route, departure_time, arrival_time, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare price insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range itins {
		if _, err := stmt.Exec(
			it.Airline,
			it.Price,
			it.Currency,
			it.DurationMin,
			it.Layovers,
			it.LayoverInfo,
			it.Route,
			it.DepartureTime,
			it.ArrivalTime,
			it.CapturedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("failed to insert price row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price rows: %w", err)
	}

	s.logger.Debug("Appended price history rows", logger.Int("count", len(itins)))
	return nil
}

// RecentByRoute returns the most recent history rows for a route.
func (s *PriceStorage) RecentByRoute(route string, limit int) ([]*PriceRow, error) {
	rows, err := s.db.Query(
		`SELECT id, airline, price, currency, duration_min, layovers, layover_info, route, departure_time, arrival_time, captured_at
		FROM flight_prices
		WHERE route = ?
		ORDER BY captured_at DESC
		LIMIT ?`,
		route, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var out []*PriceRow
	for rows.Next() {
		var r PriceRow
		var departure, arrival sql.NullString
		var capturedAt string

		if err := rows.Scan(
			&r.ID,
			&r.Airline,
			&r.Price,
			&r.Currency,
			&r.DurationMin,
			&r.Layovers,
			&r.LayoverInfo,
			&r.Route,
			&departure,
			&arrival,
			&capturedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}

		r.DepartureTime = departure.String
		r.ArrivalTime = arrival.String

		r.CapturedAt, err = time.Parse(time.RFC3339, capturedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse captured_at: %w", err)
		}

		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price rows: %w", err)
	}

	return out, nil
}
