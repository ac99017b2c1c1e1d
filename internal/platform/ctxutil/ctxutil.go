// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
//
// It is the explicit replacement for side-channel request mutation: identity
// proven by the request guard travels to handlers as typed context values,
// never by rewriting the request body.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/paisa-app/identity/internal/platform/ctxkey"
	"github.com/paisa-app/identity/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Authenticated Identity

// WithSession returns a new context with the verified session claims attached.
func WithSession(ctx context.Context, claims *sec.SessionClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, claims)
}

// GetSession retrieves the [*sec.SessionClaims] from the [context.Context].
// Returns nil for anonymous requests.
func GetSession(ctx context.Context) *sec.SessionClaims {
	claims, ok := ctx.Value(ctxkey.KeySession).(*sec.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// # Pending OTP Flows

// WithPendingEmail returns a new context carrying the email address proven
// by a pending token.
func WithPendingEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyPendingEmail, email)
}

// GetPendingEmail retrieves the pending-flow email from the context.
// Returns an empty string if the request carried no pending token.
func GetPendingEmail(ctx context.Context) string {
	email, _ := ctx.Value(ctxkey.KeyPendingEmail).(string)
	return email
}
