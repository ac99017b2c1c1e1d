// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away common body decoding patterns and context lookups,
ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/paisa-app/identity/internal/platform/apperr"
	"github.com/paisa-app/identity/internal/platform/constants"
	"github.com/paisa-app/identity/internal/platform/ctxutil"
	"github.com/paisa-app/identity/internal/platform/sec"
	"github.com/paisa-app/identity/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Session extracts the authenticated session claims from the request context.

Returns nil if the request is not authenticated.
*/
func Session(request *http.Request) *sec.SessionClaims {
	return ctxutil.GetSession(request.Context())
}

/*
RequiredSession ensures the request is authenticated and returns the session claims.

Returns:
  - *sec.SessionClaims: The authenticated session claims
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredSession(request *http.Request) (*sec.SessionClaims, error) {

	// Get session claims
	claims := ctxutil.GetSession(request.Context())

	// If the request is not authenticated, return an error
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return claims, nil
}

/*
RequiredPendingEmail returns the email carried by the pending-action token
attached to the request.

Returns:
  - string: Email address
  - error: apperr.Unauthorized if no pending token was presented
*/
func RequiredPendingEmail(request *http.Request) (string, error) {

	// Get the pending email set by the guard middleware
	email := ctxutil.GetPendingEmail(request.Context())

	// If no pending token was verified, return an error
	if email == "" {
		return "", apperr.Unauthorized("Pending token required")
	}

	return email, nil
}

/*
BearerToken extracts a bearer token from the Authorization header.

Returns an empty string when the header is absent or malformed.
*/
func BearerToken(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
