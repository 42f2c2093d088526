package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/classroom/signup-engine/internal/config"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

// Schema creates the draft table. Drafts are keyed by device so each device has one slot.
const Schema = `
CREATE TABLE IF NOT EXISTS signup_drafts (
	device_key TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// SQLSubstrate stores drafts in PostgreSQL (lib/pq driver).
type SQLSubstrate struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.DraftSubstrate = (*SQLSubstrate)(nil)

func NewSQLSubstrate(db *sql.DB) *SQLSubstrate {
	return &SQLSubstrate{db: db, cb: config.NewCircuitBreaker("PostgreSQL-Drafts")}
}

func (s *SQLSubstrate) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *SQLSubstrate) Read(ctx context.Context, key string) ([]byte, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		var payload []byte
		err := s.db.QueryRowContext(ctx,
			"SELECT payload FROM signup_drafts WHERE device_key = $1",
			key,
		).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return payload, err
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ports.ErrNotFound
	}
	return res.([]byte), nil
}

func (s *SQLSubstrate) Write(ctx context.Context, key string, value []byte) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO signup_drafts (device_key, payload, saved_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (device_key) DO UPDATE SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at`,
			key,
			value,
		)
		return nil, err
	})
	return err
}

func (s *SQLSubstrate) Delete(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		_, err := s.db.ExecContext(ctx, "DELETE FROM signup_drafts WHERE device_key = $1", key)
		return nil, err
	})
	return err
}

// PurgeOlderThan deletes every draft saved before cutoff and returns how many were removed.
func (s *SQLSubstrate) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM signup_drafts WHERE saved_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
