package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/platform/clock"
	"github.com/AchilleasB/classroom/signup-engine/test/mocks"
)

const testDevice = "device-1"

var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestDraftStore(t *testing.T) (*DraftStore, *mocks.MockDraftSubstrate, *clock.Fake, *mocks.MockMetrics) {
	t.Helper()
	sub := mocks.NewMockDraftSubstrate()
	clk := clock.NewFake(testEpoch)
	m := mocks.NewMockMetrics()
	store, err := NewDraftStore(sub, testDevice, clk, WithDraftMetrics(m))
	require.NoError(t, err)
	return store, sub, clk, m
}

func studentDraft() domain.Draft {
	return domain.Draft{
		Role:  domain.RoleStudent,
		Phase: domain.PhaseProfile,
		FormData: map[string]string{
			domain.FieldName:       "Ravi Kumar",
			domain.FieldEmail:      "ravi@example.com",
			domain.FieldRollNumber: "17",
			domain.FieldGrade:      "Grade 7",
		},
	}
}

func TestNewDraftStore_RequiresDependencies(t *testing.T) {
	clk := clock.NewFake(testEpoch)
	_, err := NewDraftStore(nil, testDevice, clk)
	assert.Error(t, err)
	_, err = NewDraftStore(mocks.NewMockDraftSubstrate(), "", clk)
	assert.Error(t, err)
	_, err = NewDraftStore(mocks.NewMockDraftSubstrate(), testDevice, nil)
	assert.Error(t, err)
}

func TestDraftStore_SaveThenLoad(t *testing.T) {
	store, _, _, m := newTestDraftStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, studentDraft()))
	got, ok := store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, domain.RoleStudent, got.Role)
	assert.Equal(t, domain.PhaseProfile, got.Phase)
	assert.Equal(t, "Grade 7", got.FormData[domain.FieldGrade])
	assert.True(t, got.SavedAt.Equal(testEpoch), "SavedAt is stamped from the clock")
	assert.Equal(t, 1, m.Saved)
}

func TestDraftStore_SaveIsIdempotent(t *testing.T) {
	store, sub, _, _ := newTestDraftStore(t)
	ctx := context.Background()
	d := studentDraft()
	d.SavedAt = testEpoch

	require.NoError(t, store.Save(ctx, d))
	first, _ := sub.Raw(testDevice)
	require.NoError(t, store.Save(ctx, d))
	second, _ := sub.Raw(testDevice)
	assert.JSONEq(t, string(first), string(second))
}

func TestDraftStore_NeverPersistsPasswords(t *testing.T) {
	store, sub, _, _ := newTestDraftStore(t)
	d := studentDraft()
	d.FormData[domain.FieldPassword] = "Secret123!"
	d.FormData[domain.FieldConfirmPassword] = "Secret123!"

	require.NoError(t, store.Save(context.Background(), d))

	raw, ok := sub.Raw(testDevice)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "Secret123!")
	assert.NotContains(t, string(raw), domain.FieldPassword)
	assert.Contains(t, d.FormData, domain.FieldPassword, "caller's map is not modified")
}

func TestDraftStore_ExpiredDraftIsPurged(t *testing.T) {
	store, sub, clk, m := newTestDraftStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, studentDraft()))

	clk.Advance(25 * time.Hour)

	_, ok := store.Load(ctx)
	assert.False(t, ok)
	_, stored := sub.Raw(testDevice)
	assert.False(t, stored, "expired slot is deleted")
	assert.Equal(t, 1, m.DiscardCount("expired"))
}

func TestDraftStore_LiveAtExactlyTTL(t *testing.T) {
	store, _, clk, _ := newTestDraftStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, studentDraft()))

	clk.Advance(domain.DraftTTL)
	_, ok := store.Load(ctx)
	assert.True(t, ok)
}

func TestDraftStore_MalformedDraftIsPurged(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "not_json", raw: []byte("{role:")},
		{name: "unknown_role", raw: mustJSON(t, map[string]any{"role": "PRINCIPAL", "phase": "ACCOUNT", "formData": map[string]string{}, "savedAt": testEpoch})},
		{name: "missing_saved_at", raw: mustJSON(t, map[string]any{"role": "ADMIN", "phase": "ACCOUNT", "formData": map[string]string{}})},
		{name: "wrong_shape", raw: []byte(`[1,2,3]`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, sub, _, m := newTestDraftStore(t)
			sub.Put(testDevice, tt.raw)

			_, ok := store.Load(context.Background())
			assert.False(t, ok)
			_, stored := sub.Raw(testDevice)
			assert.False(t, stored)
			assert.Equal(t, 1, m.DiscardCount("malformed"))
		})
	}
}

func TestDraftStore_StoredPasswordIsDroppedOnLoad(t *testing.T) {
	store, sub, _, _ := newTestDraftStore(t)
	sub.Put(testDevice, mustJSON(t, map[string]any{
		"role":     "TEACHER",
		"phase":    "ACCOUNT",
		"formData": map[string]string{"name": "T", "password": "leaked"},
		"savedAt":  testEpoch,
	}))

	d, ok := store.Load(context.Background())
	require.True(t, ok)
	assert.NotContains(t, d.FormData, domain.FieldPassword)
}

func TestDraftStore_SubstrateFailures(t *testing.T) {
	store, sub, _, _ := newTestDraftStore(t)
	ctx := context.Background()

	sub.ReadError = errors.New("disk gone")
	_, ok := store.Load(ctx)
	assert.False(t, ok, "read failure reads as no draft")

	sub.WriteError = errors.New("quota exceeded")
	assert.Error(t, store.Save(ctx, studentDraft()))

	sub.DeleteError = errors.New("locked")
	assert.Error(t, store.Clear(ctx))
}

func TestDraftStore_ClearEmptySlot(t *testing.T) {
	store, _, _, _ := newTestDraftStore(t)
	assert.NoError(t, store.Clear(context.Background()))
}

func TestDraftStore_TTLOption(t *testing.T) {
	sub := mocks.NewMockDraftSubstrate()
	clk := clock.NewFake(testEpoch)
	store, err := NewDraftStore(sub, testDevice, clk, WithDraftTTL(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, store.TTL())

	require.NoError(t, store.Save(context.Background(), studentDraft()))
	clk.Advance(61 * time.Minute)
	_, ok := store.Load(context.Background())
	assert.False(t, ok)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
