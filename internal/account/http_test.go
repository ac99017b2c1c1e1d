// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package account_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paisa-app/identity/internal/account"
	"github.com/paisa-app/identity/internal/platform/sec"
)

// testAPI bundles the handler router with the pieces tests need to peek at.
type testAPI struct {
	router http.Handler
	store  *account.MemoryStore
	mail   *recordingSender
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := account.NewMemoryStore()
	tokens := sec.NewTokenService("unit-test-secret", "paisa.app", time.Hour, 10*time.Minute)
	mail := &recordingSender{}
	service := account.NewService(store, tokens, mail, "http://localhost:5173/verify-account", 5*time.Minute)
	handler := account.NewHandler(service, account.NewGuard(store, tokens))
	return &testAPI{router: handler.Routes(), store: store, mail: mail}
}

// envelope mirrors the uniform response body.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do performs a JSON request against the router and decodes the envelope.
func (api *testAPI) do(t *testing.T, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)

	var env envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &env), "body: %s", recorder.Body.String())
	return recorder.Code, env
}

// dataField extracts one string field from the envelope's data object.
func dataField(t *testing.T, env envelope, field string) string {
	t.Helper()
	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &data))
	var value string
	require.NoError(t, json.Unmarshal(data[field], &value))
	return value
}

// register posts a valid registration and returns the pending token.
func (api *testAPI) register(t *testing.T, username, email, password string) string {
	t.Helper()
	status, env := api.do(t, http.MethodPost, "/register", map[string]string{
		"username": username, "email": email, "password": password,
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)
	return dataField(t, env, "pending_token")
}

// activate verifies the account with the code currently on record.
func (api *testAPI) activate(t *testing.T, email string) string {
	t.Helper()
	status, env := api.do(t, http.MethodPost, "/register/verify-account", map[string]string{
		"email": email, "otp": storedCode(t, api.store, email),
	}, nil)
	require.Equal(t, http.StatusOK, status)
	return dataField(t, env, "token")
}

// # Registration Endpoints

/*
TestHTTP_Register covers the registration endpoint: envelope shape,
validation failures, and the verified-email conflict.
*/
func TestHTTP_Register(t *testing.T) {
	api := newTestAPI(t)

	// 1. Happy path returns 201 with pending token and verification URL
	status, env := api.do(t, http.MethodPost, "/register", map[string]string{
		"username": "mia", "email": "mia@paisa.app", "password": "hunter22",
	}, nil)
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Verify account using OTP sent to your email", env.Message)
	assert.NotEmpty(t, dataField(t, env, "pending_token"))
	assert.Contains(t, dataField(t, env, "verification_url"), "pendingToken=")

	// 2. Validation failures return 400 with success=false
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing_username", map[string]string{"email": "a@b.co", "password": "hunter22"}},
		{"short_username", map[string]string{"username": "ab", "email": "a@b.co", "password": "hunter22"}},
		{"bad_email", map[string]string{"username": "mia", "email": "nope", "password": "hunter22"}},
		{"short_password", map[string]string{"username": "mia", "email": "a@b.co", "password": "12345"}},
		{"long_password", map[string]string{"username": "mia", "email": "a@b.co", "password": "0123456789012345678"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(t, http.MethodPost, "/register", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
		})
	}

	// 3. Re-registering a verified email returns 400
	api.activate(t, "mia@paisa.app")
	status, env = api.do(t, http.MethodPost, "/register", map[string]string{
		"username": "mia2", "email": "mia@paisa.app", "password": "hunter22",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Equal(t, "User already registered, please login.", env.Message)
}

/*
TestHTTP_VerifyAccount covers OTP consumption over HTTP, including the
403 on a wrong code and 404 on an unknown email.
*/
func TestHTTP_VerifyAccount(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "mia", "mia@paisa.app", "hunter22")
	code := storedCode(t, api.store, "mia@paisa.app")

	// 1. Wrong (well-formed) code is forbidden
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	status, env := api.do(t, http.MethodPost, "/register/verify-account", map[string]string{
		"email": "mia@paisa.app", "otp": wrong,
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Invalid OTP", env.Message)

	// 2. Malformed code fails validation before the service runs
	status, _ = api.do(t, http.MethodPost, "/register/verify-account", map[string]string{
		"email": "mia@paisa.app", "otp": "12ab56",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// 3. Correct code activates and returns a session token with the user
	status, env = api.do(t, http.MethodPost, "/register/verify-account", map[string]string{
		"email": "mia@paisa.app", "otp": code,
	}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User verified and logged in successfully", env.Message)
	assert.NotEmpty(t, dataField(t, env, "token"))

	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &data))
	var user map[string]any
	require.NoError(t, json.Unmarshal(data["user"], &user))
	assert.Equal(t, "mia@paisa.app", user["email"])

	// Sensitive fields never serialize
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "pending_code")

	// 4. Unknown email is a 404
	status, env = api.do(t, http.MethodPost, "/register/verify-account", map[string]string{
		"email": "ghost@paisa.app", "otp": code,
	}, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", env.Message)

	// 5. Replaying on the now-verified account is a 400
	status, env = api.do(t, http.MethodPost, "/register/verify-account", map[string]string{
		"email": "mia@paisa.app", "otp": code,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Account already verified", env.Message)
}

/*
TestHTTP_VerifyAccountLink covers the clicked-email-link endpoint guarded
by the pending token.
*/
func TestHTTP_VerifyAccountLink(t *testing.T) {
	api := newTestAPI(t)
	pendingToken := api.register(t, "mia", "mia@paisa.app", "hunter22")

	// 1. With the token in the query string
	status, env := api.do(t, http.MethodGet, "/register/verify-account?pendingToken="+pendingToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Please enter the OTP sent to your email", env.Message)
	assert.Equal(t, "mia@paisa.app", dataField(t, env, "email"))

	// 2. Without any token
	status, env = api.do(t, http.MethodGet, "/register/verify-account", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
}

/*
TestHTTP_ResendVerificationOTP covers the activation-code resend endpoint.
*/
func TestHTTP_ResendVerificationOTP(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "mia", "mia@paisa.app", "hunter22")

	status, env := api.do(t, http.MethodPost, "/register/resend-otp", map[string]string{
		"email": "mia@paisa.app",
	}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OTP resent successfully", env.Message)
	assert.NotEmpty(t, dataField(t, env, "pending_token"))

	status, env = api.do(t, http.MethodPost, "/register/resend-otp", map[string]string{
		"email": "ghost@paisa.app",
	}, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

// # Session Endpoints

/*
TestHTTP_Login covers authentication: success, the enumeration-safe 401,
and the 403 for unverified accounts.
*/
func TestHTTP_Login(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "mia", "mia@paisa.app", "hunter22")

	// 1. Unverified accounts cannot log in
	status, env := api.do(t, http.MethodPost, "/login", map[string]string{
		"email": "mia@paisa.app", "password": "hunter22",
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.Success)

	api.activate(t, "mia@paisa.app")

	// 2. Success returns token and user
	status, env = api.do(t, http.MethodPost, "/login", map[string]string{
		"email": "mia@paisa.app", "password": "hunter22",
	}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged in successfully", env.Message)
	assert.NotEmpty(t, dataField(t, env, "token"))

	// 3. Wrong password and unknown email share one message and status
	_, wrongPw := api.do(t, http.MethodPost, "/login", map[string]string{
		"email": "mia@paisa.app", "password": "wrong-pwd",
	}, nil)
	status, unknown := api.do(t, http.MethodPost, "/login", map[string]string{
		"email": "ghost@paisa.app", "password": "hunter22",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", unknown.Message)
	assert.Equal(t, wrongPw.Message, unknown.Message)
}

/*
TestHTTP_ProtectedRoutes covers /me, /verify-token, and /change-password
behind the session guard, including token staleness after the change.
*/
func TestHTTP_ProtectedRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "mia", "mia@paisa.app", "hunter22")
	token := api.activate(t, "mia@paisa.app")
	auth := map[string]string{"Authorization": "Bearer " + token}

	// 1. Without a token everything is 401
	status, _ := api.do(t, http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// 2. /me returns the profile
	status, env := api.do(t, http.MethodGet, "/me", nil, auth)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User data retrieved successfully", env.Message)

	// 3. /verify-token echoes the identity
	status, env = api.do(t, http.MethodPost, "/verify-token", nil, auth)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Token is valid", env.Message)
	assert.Equal(t, "mia", dataField(t, env, "username"))

	// 4. Changing the password with a wrong current password is rejected
	status, env = api.do(t, http.MethodPut, "/change-password", map[string]string{
		"current_password": "wrong-pwd", "new_password": "fresh-pw1",
	}, auth)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Current password is incorrect", env.Message)

	// 5. Changing with the correct password succeeds
	status, env = api.do(t, http.MethodPut, "/change-password", map[string]string{
		"current_password": "hunter22", "new_password": "fresh-pw1",
	}, auth)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Password changed successfully", env.Message)

	// 6. The old session token is now stale
	status, env = api.do(t, http.MethodGet, "/me", nil, auth)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has expired. Please reauthenticate.", env.Message)
}

// # Password Recovery Endpoints

/*
TestHTTP_PasswordResetFlow walks the forgot-password endpoints end to end.
*/
func TestHTTP_PasswordResetFlow(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "mia", "mia@paisa.app", "hunter22")
	api.activate(t, "mia@paisa.app")

	// 1. Request the reset code
	status, env := api.do(t, http.MethodPost, "/forgot-password", map[string]string{
		"email": "mia@paisa.app",
	}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OTP sent successfully!", env.Message)
	assert.NotEmpty(t, dataField(t, env, "pending_token"))

	// 2. Resend replaces the code
	status, env = api.do(t, http.MethodPost, "/forgot-password/resend-otp", map[string]string{
		"email": "mia@paisa.app",
	}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OTP resent successfully!", env.Message)

	code := storedCode(t, api.store, "mia@paisa.app")

	// 3. Verify the code without consuming it
	status, env = api.do(t, http.MethodPost, "/forgot-password/verify-otp", map[string]string{
		"email": "mia@paisa.app", "otp": code,
	}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OTP verified successfully.", env.Message)

	// 4. Reset with the code
	status, env = api.do(t, http.MethodPost, "/forgot-password/reset", map[string]string{
		"email": "mia@paisa.app", "otp": code, "new_password": "fresh-pw1",
	}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Password changed successfully", env.Message)
	assert.NotEmpty(t, dataField(t, env, "token"))

	// 5. The consumed code is rejected on replay
	status, env = api.do(t, http.MethodPost, "/forgot-password/reset", map[string]string{
		"email": "mia@paisa.app", "otp": code, "new_password": "another-pw",
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.Success)

	// 6. New password logs in
	status, _ = api.do(t, http.MethodPost, "/login", map[string]string{
		"email": "mia@paisa.app", "password": "fresh-pw1",
	}, nil)
	assert.Equal(t, http.StatusOK, status)
}

/*
TestHTTP_InvalidJSON verifies malformed request bodies yield a 400 with
the uniform failure envelope.
*/
func TestHTTP_InvalidJSON(t *testing.T) {
	api := newTestAPI(t)

	request := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader([]byte("{not json")))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}
