// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paisa-app/identity/internal/account"
	"github.com/paisa-app/identity/internal/api"
	"github.com/paisa-app/identity/internal/mailer"
	"github.com/paisa-app/identity/internal/platform/config"
	"github.com/paisa-app/identity/internal/platform/constants"
	"github.com/paisa-app/identity/internal/platform/sec"
)

// newTestServer assembles the full server against an in-memory store.
func newTestServer(t *testing.T, checkStore func() error) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &config.Config{ServerPort: "0"}

	store := account.NewMemoryStore()
	tokens := sec.NewTokenService("unit-test-secret", constants.AuthIssuer, time.Hour, 10*time.Minute)
	service := account.NewService(store, tokens, mailer.NewLogSender(logger), "http://localhost:5173/verify-account", 5*time.Minute)
	handler := account.NewHandler(service, account.NewGuard(store, tokens))

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		StoreName:  "memory",
		CheckStore: checkStore,
	}, logger)

	server := api.NewServer(context.Background(), cfg, logger, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   handler,
	})
	return server.Handler()
}

/*
TestServer_HealthProbes verifies the liveness and readiness endpoints,
including the 503 when the store is unreachable.
*/
func TestServer_HealthProbes(t *testing.T) {
	healthy := newTestServer(t, func() error { return nil })

	// 1. Liveness
	recorder := httptest.NewRecorder()
	healthy.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)

	// 2. Readiness with a healthy store
	recorder = httptest.NewRecorder()
	healthy.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "ready")

	// 3. Readiness with an unreachable store
	degraded := newTestServer(t, func() error { return errors.New("connection refused") })
	recorder = httptest.NewRecorder()
	degraded.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "degraded")
}

/*
TestServer_AuthMount verifies the auth routes are reachable under the
versioned prefix and responses carry the correlation ID header.
*/
func TestServer_AuthMount(t *testing.T) {
	handler := newTestServer(t, nil)

	body := strings.NewReader(`{"username":"mia","email":"mia@paisa.app","password":"hunter22"}`)
	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))

	// An incoming correlation ID is echoed back unchanged
	request = httptest.NewRequest(http.MethodGet, "/health", nil)
	request.Header.Set(constants.HeaderXRequestID, "req-abc")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, "req-abc", recorder.Header().Get(constants.HeaderXRequestID))
}

/*
TestServer_UnknownRoute verifies unmatched paths fall through to a 404.
*/
func TestServer_UnknownRoute(t *testing.T) {
	handler := newTestServer(t, nil)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
