// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package account_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paisa-app/identity/internal/account"
	"github.com/paisa-app/identity/internal/platform/ctxutil"
	"github.com/paisa-app/identity/internal/platform/sec"
)

// newTestGuard wires a Guard plus the service needed to mint real tokens.
func newTestGuard(t *testing.T) (*account.Guard, *account.Service, *account.MemoryStore) {
	t.Helper()
	store := account.NewMemoryStore()
	tokens := sec.NewTokenService("unit-test-secret", "paisa.app", time.Hour, 10*time.Minute)
	service := account.NewService(store, tokens, &recordingSender{}, "http://localhost:5173/verify-account", 5*time.Minute)
	return account.NewGuard(store, tokens), service, store
}

/*
TestGuard_RequireSession covers the full session-guard matrix: missing
header, garbage token, valid token, and the stale-version rejection after
a password change.
*/
func TestGuard_RequireSession(t *testing.T) {
	guard, service, store := newTestGuard(t)
	ctx := context.Background()

	active := registerVerified(t, service, store, "mia", "mia@paisa.app", "hunter22")
	session, err := service.Login(ctx, "mia@paisa.app", "hunter22")
	require.NoError(t, err)

	var seenClaims *sec.SessionClaims
	protected := guard.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenClaims = ctxutil.GetSession(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	do := func(authorization string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		if authorization != "" {
			request.Header.Set("Authorization", authorization)
		}
		recorder := httptest.NewRecorder()
		protected.ServeHTTP(recorder, request)
		return recorder
	}

	// 1. Missing header
	recorder := do("")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Authorization token is missing")

	// 2. Garbage token
	recorder = do("Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid token")

	// 3. Valid token reaches the handler with claims in context
	recorder = do("Bearer " + session.Token)
	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, seenClaims)
	assert.Equal(t, active.ID, seenClaims.AccountID)
	assert.Equal(t, "mia@paisa.app", seenClaims.Email)

	// 4. A password change bumps tokenVersion and stales the token
	require.NoError(t, service.ChangePassword(ctx, active.ID, "hunter22", "new-password"))
	recorder = do("Bearer " + session.Token)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Token has expired. Please reauthenticate.")

	// 5. A fresh login works again
	fresh, err := service.Login(ctx, "mia@paisa.app", "new-password")
	require.NoError(t, err)
	recorder = do("Bearer " + fresh.Token)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestGuard_RequireSession_DeletedAccount verifies a syntactically valid
token for a vanished account is rejected.
*/
func TestGuard_RequireSession_DeletedAccount(t *testing.T) {
	store := account.NewMemoryStore()
	tokens := sec.NewTokenService("unit-test-secret", "paisa.app", time.Hour, 10*time.Minute)
	guard := account.NewGuard(store, tokens)

	token, err := tokens.IssueSessionToken(sec.SessionTokenInput{
		AccountID: "no-such-account", Email: "ghost@paisa.app", Username: "ghost",
	})
	require.NoError(t, err)

	protected := guard.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	request := httptest.NewRequest(http.MethodGet, "/me", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	protected.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestGuard_RequirePendingToken verifies the pending guard accepts the token
from the Authorization header and from the query parameter, and rejects
session tokens and garbage.
*/
func TestGuard_RequirePendingToken(t *testing.T) {
	guard, service, store := newTestGuard(t)
	ctx := context.Background()

	result, err := service.Register(ctx, account.RegisterInput{
		Username: "mia", Email: "mia@paisa.app", Password: "hunter22",
	})
	require.NoError(t, err)

	var seenEmail string
	protected := guard.RequirePendingToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenEmail = ctxutil.GetPendingEmail(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// 1. Via Authorization header
	request := httptest.NewRequest(http.MethodGet, "/register/verify-account", nil)
	request.Header.Set("Authorization", "Bearer "+result.PendingToken)
	recorder := httptest.NewRecorder()
	protected.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "mia@paisa.app", seenEmail)

	// 2. Via the query parameter (clicked email link)
	seenEmail = ""
	request = httptest.NewRequest(http.MethodGet, "/register/verify-account?pendingToken="+result.PendingToken, nil)
	recorder = httptest.NewRecorder()
	protected.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "mia@paisa.app", seenEmail)

	// 3. Missing token
	request = httptest.NewRequest(http.MethodGet, "/register/verify-account", nil)
	recorder = httptest.NewRecorder()
	protected.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Authorization token is missing")

	// 4. A session token is not accepted as a pending token
	session, err := service.VerifyAccount(ctx, "mia@paisa.app", storedCode(t, store, "mia@paisa.app"))
	require.NoError(t, err)
	request = httptest.NewRequest(http.MethodGet, "/register/verify-account", nil)
	request.Header.Set("Authorization", "Bearer "+session.Token)
	recorder = httptest.NewRecorder()
	protected.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid or expired token. Please try again.")
}
