package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jtomic/farewatch/pkg/logger"
)

// AlertStorage handles storage of alert preferences
type AlertStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewAlertStorage creates a new SQLite alert storage
func NewAlertStorage(db *sql.DB, logger *logger.Logger) (*AlertStorage, error) {
	storage := &AlertStorage{
		db:     db,
		logger: logger.Named("sqlite-alerts"),
	}
	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

// initDB initializes the database tables
func (s *AlertStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			origin TEXT NOT NULL,
			destination TEXT NOT NULL,
			date_from TEXT NOT NULL,
			date_to TEXT,
			trip_type TEXT NOT NULL,
			max_layovers INTEGER NOT NULL,
			target_price REAL NOT NULL,
			currency TEXT NOT NULL,
			airlines TEXT,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create alerts table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_alerts_route ON alerts(origin, destination)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create alert index: %w", err)
		}
	}

	return nil
}

// Insert stores an alert unless an identical one already exists. The
// duplicate check matches the full tuple exactly, treating an absent
// return date as NULL rather than as a literal string.
func (s *AlertStorage) Insert(a *Alert) (InsertResult, error) {
	a.Origin = strings.ToUpper(strings.TrimSpace(a.Origin))
	a.Destination = strings.ToUpper(strings.TrimSpace(a.Destination))
	a.Email = strings.TrimSpace(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)

	dup, err := s.exists(a)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to check for duplicate alert: %w", err)
	}
	if dup {
		s.logger.Info("Alert already exists with the same parameters",
			logger.String("origin", a.Origin),
			logger.String("destination", a.Destination),
			logger.String("date_from", a.DateFrom),
		)
		return InsertResult{Duplicate: true}, nil
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.Exec(
		`INSERT INTO alerts
		(id, origin, destination, date_from, date_to, trip_type, max_layovers, target_price, currency, airlines, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Origin,
		a.Destination,
		a.DateFrom,
		nullableString(a.DateTo),
		a.TripType,
		a.MaxLayovers,
		a.TargetPrice,
		a.Currency,
		nullableAirlines(a.Airlines),
		a.Email,
		a.Phone,
		a.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to insert alert: %w", err)
	}

	return InsertResult{ID: a.ID, Saved: true}, nil
}

// exists checks the uniqueness tuple. Preferred airlines are
// deliberately not part of the key: two alerts differing only in
// airline preference are the same request.
func (s *AlertStorage) exists(a *Alert) (bool, error) {
	query := `SELECT COUNT(1) FROM alerts
		WHERE origin = ? AND destination = ? AND date_from = ?
		AND trip_type = ? AND max_layovers = ? AND target_price = ?
		AND currency = ? AND email = ? AND phone = ?`
	args := []any{
		a.Origin, a.Destination, a.DateFrom,
		a.TripType, a.MaxLayovers, a.TargetPrice,
		a.Currency, a.Email, a.Phone,
	}
	if a.DateTo == nil {
		query += ` AND date_to IS NULL`
	} else {
		query += ` AND date_to = ?`
		args = append(args, *a.DateTo)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns all stored alerts in a stable but unspecified order.
func (s *AlertStorage) List() ([]*Alert, error) {
	rows, err := s.db.Query(
		`SELECT id, origin, destination, date_from, date_to, trip_type, max_layovers, target_price, currency, airlines, email, phone, created_at
		FROM alerts
		ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	return s.scanAlertRows(rows)
}

// UpdatePrice changes the target price of a stored alert.
func (s *AlertStorage) UpdatePrice(id string, newPrice float64) error {
	result, err := s.db.Exec(
		`UPDATE alerts SET target_price = ? WHERE id = ?`,
		newPrice, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert price: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

// Delete removes a stored alert.
func (s *AlertStorage) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert not found: %s", id)
	}
	return nil
}

// scanAlertRows scans database rows into Alert structs
func (s *AlertStorage) scanAlertRows(rows *sql.Rows) ([]*Alert, error) {
	var alerts []*Alert
	for rows.Next() {
		var a Alert
		var dateTo, airlines sql.NullString
		var createdAt string

		if err := rows.Scan(
			&a.ID,
			&a.Origin,
			&a.Destination,
			&a.DateFrom,
			&dateTo,
			&a.TripType,
			&a.MaxLayovers,
			&a.TargetPrice,
			&a.Currency,
			&airlines,
			&a.Email,
			&a.Phone,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		if dateTo.Valid {
			v := dateTo.String
			a.DateTo = &v
		}
		if airlines.Valid && airlines.String != "" {
			a.Airlines = strings.Split(airlines.String, ",")
		}

		var err error
		a.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableAirlines(airlines []string) any {
	if len(airlines) == 0 {
		return nil
	}
	return strings.Join(airlines, ",")
}
