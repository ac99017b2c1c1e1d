// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package account

import (
	"context"
	"time"
)

// # Account Data Access

// Store defines the persistence contract for accounts.
//
// Uniqueness of username and email is enforced at the storage layer; a
// violating Create or Save returns a conflict-classified [apperr.AppError].
type Store interface {

	/*
		FindByEmail returns the account with the given (lowercase) email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		Create persists a brand-new account record.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: Uniqueness conflicts or persistence failures
	*/
	Create(context context.Context, account *Account) error

	/*
		Save writes back every mutable field of an existing account.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: Persistence failures
	*/
	Save(context context.Context, account *Account) error

	/*
		UpdateFields applies a partial update to the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string
		  - patch: Patch (only non-nil fields are written)

		Returns:
		  - error: apperr.NotFound or persistence failures
	*/
	UpdateFields(context context.Context, id string, patch Patch) error

	/*
		Ping verifies that the backing storage is reachable.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Connectivity failures
	*/
	Ping(context context.Context) error
}

// Patch describes a partial account update. Nil pointer fields are left
// untouched by [Store.UpdateFields].
type Patch struct {
	Username     *string
	PasswordHash *string
	IsVerified   *bool

	// PendingCode set to the empty string clears the stored code.
	PendingCode *string

	// PendingCodeExpiry sets a new expiry; ClearPendingCodeExpiry nulls the
	// stored one. Setting both is invalid.
	PendingCodeExpiry      *time.Time
	ClearPendingCodeExpiry bool

	OTPVerified  *bool
	TokenVersion *int
}
