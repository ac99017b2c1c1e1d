// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

/*
Package account implements the user identity lifecycle for Paisa.

It defines the core domain entity (Account) and the state machine that moves
it through registration, OTP verification, login, and the password
change/reset flows.

# Architecture

This layer is the "Truth" of the system. The account state machine is:

	Unregistered -> PendingVerification -> Verified

with a password-reset sub-state overlaid on Verified via the pending code
fields. Entities defined here have no transport or storage dependencies.
*/
package account

import "time"

// # Domain Entities

// Account represents a registered (or registering) Paisa user.
//
// # Invariants
//
//   - Email is stored lowercase and is unique across accounts.
//   - IsVerified is monotonic: once true it never reverts.
//   - TokenVersion only increases, by exactly 1 per credential change.
//     It is the sole session revocation mechanism: bumping it invalidates
//     every session token issued before the bump.
type Account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.
	IsVerified   bool   `json:"is_verified"`

	// PendingCode holds the active one-time code, or "" when no OTP flow is
	// in progress. Cleared on successful consumption.
	PendingCode string `json:"-"`

	// PendingCodeExpiry bounds the validity of PendingCode. A nil expiry
	// means the code does not time out on its own.
	PendingCodeExpiry *time.Time `json:"-"`

	// OTPVerified is a scratch flag set when a password-reset code has been
	// checked ahead of the actual reset step.
	OTPVerified bool `json:"-"`

	// TokenVersion is the per-account revocation counter embedded into every
	// session token at issuance.
	TokenVersion int `json:"token_version"`

	// Profile fields, not security-relevant.
	ProfilePicture string `json:"profile_picture"`
	DarkMode       bool   `json:"dark_mode"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingCodeExpired reports whether the stored one-time code has passed its
// expiry at the given instant. A nil expiry never expires.
func (account *Account) PendingCodeExpired(now time.Time) bool {
	return account.PendingCodeExpiry != nil && now.After(*account.PendingCodeExpiry)
}

// # Field Identifiers

// Global field names for validation and identity mapping in the account domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldOTP             = "otp"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
)
