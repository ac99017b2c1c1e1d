// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes embedded in the "scp" claim. They keep the two token kinds
// from being interchangeable even though both are signed with the same
// process-wide secret.
const (
	scopeSession = "session"
	scopePending = "pending"
)

// SessionClaims is the payload embedded inside a session JWT.
//
// # Why custom claims?
//
// By embedding the account ID, email, username, and a profile snapshot
// directly inside the JWT, protected handlers can reconstruct the active
// user context without an extra profile query. TokenVersion is the
// revocation anchor: the guard compares it against the account's current
// value, so bumping the account's tokenVersion invalidates every session
// token issued before the bump.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	AccountID      string `json:"uid"`
	Email          string `json:"eml"`
	Username       string `json:"unm"`
	ProfilePicture string `json:"pic,omitempty"`
	DarkMode       bool   `json:"drk,omitempty"`
	TokenVersion   int    `json:"tkv"`
	Scope          string `json:"scp"`
}

// PendingClaims is the payload embedded inside a short-lived pending-action
// JWT. It proves only that the caller recently initiated an OTP flow for
// the embedded email address.
type PendingClaims struct {
	jwt.RegisteredClaims

	Email string `json:"eml"`
	Scope string `json:"scp"`
}

// SessionTokenInput carries the account snapshot captured into a session token.
type SessionTokenInput struct {
	AccountID      string
	Email          string
	Username       string
	ProfilePicture string
	DarkMode       bool
	TokenVersion   int
}

// TokenService mints and verifies both token kinds using HS256 and a single
// process-wide secret.
//
// It is constructed once at startup from configuration and injected into the
// lifecycle service and the request guard. No global state.
type TokenService struct {
	secret     []byte
	issuer     string
	sessionTTL time.Duration
	pendingTTL time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(secret, issuer string, sessionTTL, pendingTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		sessionTTL: sessionTTL,
		pendingTTL: pendingTTL,
	}
}

// IssueSessionToken creates a long-lived signed session token carrying the
// account snapshot and its current tokenVersion.
func (service *TokenService) IssueSessionToken(input SessionTokenInput) (string, error) {
	currentTime := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.AccountID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.sessionTTL)),
		},
		AccountID:      input.AccountID,
		Email:          input.Email,
		Username:       input.Username,
		ProfilePicture: input.ProfilePicture,
		DarkMode:       input.DarkMode,
		TokenVersion:   input.TokenVersion,
		Scope:          scopeSession,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// IssuePendingToken creates a short-lived signed token scoped to one email
// address, used across the verify/resend/reset steps of an OTP flow.
func (service *TokenService) IssuePendingToken(email string) (string, error) {
	currentTime := time.Now()
	claims := PendingClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.pendingTTL)),
		},
		Email: email,
		Scope: scopePending,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign pending token: %w", err)
	}

	return signedToken, nil
}

// VerifySessionToken checks the signature, scope, and expiry of a session
// token string.
//
// It does NOT compare the embedded tokenVersion against the account's current
// value; that is the request guard's job, since it requires a store lookup.
func (service *TokenService) VerifySessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := service.parse(tokenString, claims); err != nil {
		return nil, err
	}

	if claims.Scope != scopeSession || claims.AccountID == "" {
		return nil, fmt.Errorf("sec: token is not a session token")
	}

	return claims, nil
}

// VerifyPendingToken checks the signature, scope, and expiry of a pending
// token string and returns its claims.
func (service *TokenService) VerifyPendingToken(tokenString string) (*PendingClaims, error) {
	claims := &PendingClaims{}
	if err := service.parse(tokenString, claims); err != nil {
		return nil, err
	}

	if claims.Scope != scopePending || claims.Email == "" {
		return nil, fmt.Errorf("sec: token is not a pending token")
	}

	return claims, nil
}

// parse verifies signature, algorithm, and time-based claims into target.
func (service *TokenService) parse(tokenString string, target jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, target, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		return fmt.Errorf("sec: invalid token: %w", err)
	}

	if !token.Valid {
		return fmt.Errorf("sec: invalid token claims")
	}

	return nil
}
