// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package account

import (
	"net/http"

	"github.com/paisa-app/identity/internal/platform/apperr"
	"github.com/paisa-app/identity/internal/platform/constants"
	"github.com/paisa-app/identity/internal/platform/ctxutil"
	requestutil "github.com/paisa-app/identity/internal/platform/request"
	"github.com/paisa-app/identity/internal/platform/respond"
	"github.com/paisa-app/identity/internal/platform/sec"
)

// # Request Guard

// Guard protects routes with session or pending-token checks.
//
// It owns the only place where a session token's embedded tokenVersion is
// compared against the account's current value, which is what makes the
// version bump an effective bulk-revocation mechanism.
type Guard struct {
	store  Store
	tokens *sec.TokenService
}

// NewGuard constructs a [Guard] from its dependencies.
func NewGuard(store Store, tokens *sec.TokenService) *Guard {
	return &Guard{store: store, tokens: tokens}
}

/*
RequireSession is a middleware enforcing an authenticated session.

Description: Extracts the bearer token, verifies signature and expiry,
loads the account by the embedded ID, and rejects the request if the
account is missing or its current tokenVersion differs from the token's
(stale token after a password change or reset). Verified claims travel to
handlers as typed context values.

Response:
  - 401: Unauthorized: Missing, invalid, or stale token
*/
func (guard *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

		token := requestutil.BearerToken(request)
		if token == "" {
			respond.Error(writer, request, apperr.Unauthorized("Authorization token is missing"))
			return
		}

		claims, err := guard.tokens.VerifySessionToken(token)
		if err != nil {
			respond.Error(writer, request, apperr.Unauthorized("Invalid token"))
			return
		}

		account, err := guard.store.FindByID(request.Context(), claims.AccountID)
		if err != nil {
			respond.Error(writer, request, apperr.Unauthorized("Invalid token"))
			return
		}

		// Stale tokens carry the version observed at issuance.
		if account.TokenVersion != claims.TokenVersion {
			respond.Error(writer, request, apperr.Unauthorized("Token has expired. Please reauthenticate."))
			return
		}

		ctx := ctxutil.WithSession(request.Context(), claims)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

/*
RequirePendingToken is a middleware enforcing a valid pending-action token.

Description: Accepts the token from the Authorization header or from the
"pendingToken" query parameter, so both API calls and clicked email links
work. Only signature and expiry are checked; the proven email travels to
handlers via the context.

Response:
  - 401: Unauthorized: Missing, invalid, or expired token
*/
func (guard *Guard) RequirePendingToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

		token := requestutil.BearerToken(request)
		if token == "" {
			token = request.URL.Query().Get(constants.PendingTokenQueryParam)
		}
		if token == "" {
			respond.Error(writer, request, apperr.Unauthorized("Authorization token is missing"))
			return
		}

		claims, err := guard.tokens.VerifyPendingToken(token)
		if err != nil {
			respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token. Please try again."))
			return
		}

		ctx := ctxutil.WithPendingEmail(request.Context(), claims.Email)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}
