package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

func TestAutosaver_DebouncesToLatestDraft(t *testing.T) {
	store, sub, clk, _ := newTestDraftStore(t)
	a := NewAutosaver(store, clk, 800*time.Millisecond, nil)

	for _, name := range []string{"R", "Ra", "Rav", "Ravi"} {
		d := studentDraft()
		d.FormData[domain.FieldName] = name
		a.Schedule(d)
		clk.Advance(200 * time.Millisecond)
	}
	assert.Equal(t, 0, sub.Writes, "nothing written while typing")
	assert.True(t, a.HasPending())

	clk.Advance(800 * time.Millisecond)
	assert.Equal(t, 1, sub.Writes)
	assert.False(t, a.HasPending())

	got, ok := store.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Ravi", got.FormData[domain.FieldName])
}

func TestAutosaver_FlushWritesImmediately(t *testing.T) {
	store, sub, clk, _ := newTestDraftStore(t)
	a := NewAutosaver(store, clk, time.Second, nil)

	a.Schedule(studentDraft())
	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 1, sub.Writes)
	assert.Equal(t, 0, clk.Pending(), "flush cancels the idle timer")

	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 1, sub.Writes, "nothing pending, nothing written")
}

func TestAutosaver_StopDropsPending(t *testing.T) {
	store, sub, clk, _ := newTestDraftStore(t)
	a := NewAutosaver(store, clk, time.Second, nil)

	a.Schedule(studentDraft())
	a.Stop()
	clk.Advance(time.Minute)
	assert.Equal(t, 0, sub.Writes)

	a.Schedule(studentDraft())
	assert.False(t, a.HasPending(), "stopped autosaver ignores new drafts")
}
