package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
	"github.com/AchilleasB/classroom/signup-engine/test/mocks"
)

func TestRedisSubstrate_WriteSetsPrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewMockRedisClient()
	r := NewRedisSubstrate(client, 24*time.Hour)

	require.NoError(t, r.Write(ctx, "device-1", []byte(`{"role":"ADMIN"}`)))
	assert.True(t, client.HasKey("signup:draft:device-1"))
	assert.Equal(t, 24*time.Hour, client.LastTTL)

	got, err := r.Read(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, `{"role":"ADMIN"}`, string(got))
}

func TestRedisSubstrate_MissingKeyIsNotFound(t *testing.T) {
	r := NewRedisSubstrate(mocks.NewMockRedisClient(), time.Hour)
	_, err := r.Read(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestRedisSubstrate_Delete(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewMockRedisClient()
	client.SetKey("signup:draft:device-1", "{}", 0)
	r := NewRedisSubstrate(client, time.Hour)

	require.NoError(t, r.Delete(ctx, "device-1"))
	assert.False(t, client.HasKey("signup:draft:device-1"))
}

func TestRedisSubstrate_ErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewMockRedisClient()
	boom := errors.New("connection refused")
	client.GetError = boom
	client.SetError = boom
	r := NewRedisSubstrate(client, time.Hour)

	_, err := r.Read(ctx, "device-1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ports.ErrNotFound))
	assert.ErrorIs(t, r.Write(ctx, "device-1", []byte("{}")), boom)
}

func TestRedisSubstrate_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewMockRedisClient()
	client.GetError = errors.New("timeout")
	r := NewRedisSubstrate(client, time.Hour)

	for i := 0; i < 3; i++ {
		_, _ = r.Read(ctx, "device-1")
	}
	client.GetError = nil
	client.SetKey("signup:draft:device-1", "{}", 0)

	_, err := r.Read(ctx, "device-1")
	assert.Error(t, err, "breaker rejects calls while open")
}

func TestRedisSubstrate_NotFoundDoesNotTripBreaker(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewMockRedisClient()
	r := NewRedisSubstrate(client, time.Hour)

	for i := 0; i < 5; i++ {
		_, err := r.Read(ctx, "missing")
		require.True(t, errors.Is(err, ports.ErrNotFound))
	}
	require.NoError(t, r.Write(ctx, "device-1", []byte("{}")))
}
