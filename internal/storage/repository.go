package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertSQL = `INSERT INTO funding_alerts (
        exchange,
        symbol,
        rate_pct,
        minutes_to,
        next_funding_ts,
        kind
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id, exchange, symbol, rate_pct, minutes_to, next_funding_ts, kind, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        exchange,
        symbol,
        rate_pct,
        minutes_to,
        next_funding_ts,
        kind,
        created_at
    FROM funding_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM funding_alerts WHERE created_at < $1;`

	countAlertsSQL = `SELECT COUNT(*) FROM funding_alerts;`

	upsertFundingSampleSQL = `INSERT INTO funding_samples (
        cycle_ts,
        exchange,
        symbol,
        rate_pct,
        next_funding_ts
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (cycle_ts, exchange) DO UPDATE
    SET symbol          = EXCLUDED.symbol,
        rate_pct        = EXCLUDED.rate_pct,
        next_funding_ts = EXCLUDED.next_funding_ts;`

	listSamplesBetweenSQL = `SELECT
        cycle_ts,
        exchange,
        symbol,
        rate_pct,
        next_funding_ts,
        created_at
    FROM funding_samples
    WHERE cycle_ts >= $1
      AND cycle_ts < $2
    ORDER BY cycle_ts;`
)

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
	CountAlerts(ctx context.Context) (int64, error)
}

// FundingSampleStore defines operations for per-cycle funding samples.
type FundingSampleStore interface {
	UpsertFundingSample(ctx context.Context, sample FundingSample) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]FundingSample, error)
}

// Store aggregates access to alerts and funding samples.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Exchange,
		alert.Symbol,
		alert.RatePct.String(),
		alert.MinutesTo,
		alert.NextFundingTS,
		alert.Kind,
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

// CountAlerts counts stored alerts.
func (s *Store) CountAlerts(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAlertsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count alerts: %w", scanErr)
	}
	return count, nil
}

// UpsertFundingSample persists or updates a per-cycle sample.
func (s *Store) UpsertFundingSample(ctx context.Context, sample FundingSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertFundingSampleSQL,
		sample.CycleTS,
		sample.Exchange,
		sample.Symbol,
		sample.RatePct.String(),
		sample.NextFundingTS,
	)
	if execErr != nil {
		return fmt.Errorf("upsert funding sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]FundingSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]FundingSample, 0)
	for rows.Next() {
		var sample FundingSample
		var rateStr string
		if err := rows.Scan(
			&sample.CycleTS,
			&sample.Exchange,
			&sample.Symbol,
			&rateStr,
			&sample.NextFundingTS,
			&sample.CreatedAt,
		); err != nil {
			return nil, err
		}
		rate, convErr := decimal.NewFromString(rateStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse rate pct: %w", convErr)
		}
		sample.RatePct = rate
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var rec AlertRecord
	var rateStr string
	if err := row.Scan(
		&rec.ID,
		&rec.Exchange,
		&rec.Symbol,
		&rateStr,
		&rec.MinutesTo,
		&rec.NextFundingTS,
		&rec.Kind,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	rate, convErr := decimal.NewFromString(rateStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse rate pct: %w", convErr)
	}
	rec.RatePct = rate
	return rec, nil
}

var _ AlertStore = (*Store)(nil)
var _ FundingSampleStore = (*Store)(nil)
