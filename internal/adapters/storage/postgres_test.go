package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestSQLSubstrate_Read(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSQLSubstrate(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM signup_drafts WHERE device_key = $1")).
		WithArgs("device-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`{"role":"TEACHER"}`)))

	got, err := s.Read(context.Background(), "device-1")
	require.NoError(t, err)
	assert.Equal(t, `{"role":"TEACHER"}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSubstrate_ReadMissing(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSQLSubstrate(db)

	mock.ExpectQuery("SELECT payload FROM signup_drafts").
		WithArgs("device-1").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Read(context.Background(), "device-1")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSubstrate_WriteUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSQLSubstrate(db)

	mock.ExpectExec("INSERT INTO signup_drafts .* ON CONFLICT \\(device_key\\) DO UPDATE").
		WithArgs("device-1", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Write(context.Background(), "device-1", []byte(`{}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSubstrate_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSQLSubstrate(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM signup_drafts WHERE device_key = $1")).
		WithArgs("device-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "device-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSubstrate_WriteFailure(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSQLSubstrate(db)

	mock.ExpectExec("INSERT INTO signup_drafts").WillReturnError(errors.New("disk full"))

	assert.EqualError(t, s.Write(context.Background(), "device-1", []byte(`{}`)), "disk full")
}

func TestSQLSubstrate_PurgeOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSQLSubstrate(db)
	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM signup_drafts WHERE saved_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.PurgeOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSubstrate_EnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSQLSubstrate(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS signup_drafts").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
