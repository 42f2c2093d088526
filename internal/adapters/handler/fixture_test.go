package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/storage"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/services"
	"github.com/AchilleasB/classroom/signup-engine/internal/platform/clock"
	"github.com/AchilleasB/classroom/signup-engine/test/mocks"
)

const basePath = "/signup/sessions"

var fixtureEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t         *testing.T
	clk       *clock.Fake
	substrate *storage.MemorySubstrate
	accounts  *mocks.MockAccountCreator
	otp       *mocks.MockOtpGateway
	gauge     *countingGauge
	registry  *Registry
	router    http.Handler
}

type countingGauge struct{ open int }

func (g *countingGauge) SessionOpened() { g.open++ }
func (g *countingGauge) SessionClosed() { g.open-- }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, cfg services.SessionConfig) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		clk:       clock.NewFake(fixtureEpoch),
		substrate: storage.NewMemorySubstrate(),
		accounts:  mocks.NewMockAccountCreator(),
		otp:       mocks.NewMockOtpGateway(),
		gauge:     &countingGauge{},
	}
	linker, err := services.NewIdentityLinker(mocks.DecoderWithTestIdentity(), f.clk)
	require.NoError(t, err)

	factory := func(_ context.Context, _, deviceKey string) (Bundle, error) {
		drafts, err := services.NewDraftStore(f.substrate, deviceKey, f.clk)
		if err != nil {
			return Bundle{}, err
		}
		session, err := services.NewRegistrationSession(cfg, services.Dependencies{
			Accounts: f.accounts,
			Otp:      f.otp,
			Linker:   linker,
			Drafts:   drafts,
			Clock:    f.clk,
		}, services.WithLogger(quietLogger()))
		if err != nil {
			return Bundle{}, err
		}
		return Bundle{
			Session:    session,
			Negotiator: services.NewResumeNegotiator(drafts, f.clk, nil, quietLogger()),
		}, nil
	}
	f.registry = NewRegistry(factory,
		WithRegistryNow(f.clk.Now),
		WithGauge(f.gauge),
		WithRegistryLogger(quietLogger()),
	)

	r := chi.NewRouter()
	r.Mount(basePath, NewSignupHandler(f.registry, quietLogger()).Routes())
	f.router = r
	return f
}

func plainConfig() services.SessionConfig {
	cfg := services.DefaultSessionConfig()
	cfg.Channels = nil
	cfg.RequireVerification = false
	return cfg
}

func (f *fixture) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) open(device string) openResponse {
	f.t.Helper()
	rec := f.do(http.MethodPost, basePath+"/", nil, DeviceHeader, device)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp openResponse
	require.NoError(f.t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (f *fixture) path(id, suffix string) string {
	return basePath + "/" + id + suffix
}

func (f *fixture) mustOK(rec *httptest.ResponseRecorder) services.Snapshot {
	f.t.Helper()
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	var snap services.Snapshot
	require.NoError(f.t, json.NewDecoder(rec.Body).Decode(&snap))
	return snap
}

func (f *fixture) setFields(id, kind string, fields map[string]string) {
	f.t.Helper()
	for k, v := range fields {
		f.mustOK(f.do(http.MethodPut, f.path(id, "/"+kind), fieldRequest{Field: k, Value: v}))
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}
