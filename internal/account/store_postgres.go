// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

// PostgreSQL implementation of the account [Store].
//
// # Error Mapping
//
// Storage-specific errors (pgx.ErrNoRows, SQLSTATE 23505) are mapped to
// domain-friendly [apperr.AppError] types to avoid leaking storage
// implementation details.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paisa-app/identity/internal/platform/apperr"
	"github.com/paisa-app/identity/internal/platform/database/schema"
	"github.com/paisa-app/identity/internal/platform/dberr"
	"github.com/paisa-app/identity/internal/platform/postgres"
)

// PostgresStore implements the [Store] interface using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL implementation of the account [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// accountColumns is the canonical SELECT column list.
var accountColumns = strings.Join(schema.Accounts.Columns(), ", ")

/*
FindByEmail retrieves an account record by its unique lowercase email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (store *PostgresStore) FindByEmail(context context.Context, email string) (*Account, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		accountColumns, schema.Accounts.Table, schema.Accounts.Email,
	)

	account, err := store.scanOne(context, query, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_account_store_find_by_email_failed: %w", err)
	}

	return account, nil
}

/*
FindByID retrieves an account record by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (store *PostgresStore) FindByID(context context.Context, id string) (*Account, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		accountColumns, schema.Accounts.Table, schema.Accounts.ID,
	)

	account, err := store.scanOne(context, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_account_store_find_by_id_failed: %w", err)
	}

	return account, nil
}

/*
Create persists a new account record into the accounts table.

Description: Initializes timestamps and maps unique-constraint violations
to client-safe conflict errors.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: Uniqueness conflicts or connectivity errors
*/
func (store *PostgresStore) Create(context context.Context, account *Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		schema.Accounts.Table, accountColumns,
	)

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := store.pool.Exec(context, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.IsVerified,
		account.PendingCode,
		account.PendingCodeExpiry,
		account.OTPVerified,
		account.TokenVersion,
		account.ProfilePicture,
		account.DarkMode,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres_account_store_create_failed: %w", err)
	}

	return nil
}

/*
Save writes back every mutable field of an existing account.

Description: Synchronizes the in-memory account state with the database,
refreshing the updated_at timestamp. Identity fields (id, email, created_at)
are never rewritten.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: Uniqueness conflicts or update failures
*/
func (store *PostgresStore) Save(context context.Context, account *Account) error {
	columns := schema.Accounts
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9, %s = $10, %s = $11
		WHERE %s = $1`,
		columns.Table,
		columns.Username, columns.PasswordHash, columns.IsVerified,
		columns.PendingCode, columns.PendingCodeExpiry, columns.OTPVerified,
		columns.TokenVersion, columns.ProfilePicture, columns.DarkMode,
		columns.UpdatedAt,
		columns.ID,
	)

	account.UpdatedAt = time.Now()
	commandTag, err := store.pool.Exec(context, query,
		account.ID,
		account.Username,
		account.PasswordHash,
		account.IsVerified,
		account.PendingCode,
		account.PendingCodeExpiry,
		account.OTPVerified,
		account.TokenVersion,
		account.ProfilePicture,
		account.DarkMode,
		account.UpdatedAt,
	)

	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres_account_store_save_failed: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

/*
UpdateFields applies a partial update built from the non-nil [Patch] fields.

Parameters:
  - context: context.Context
  - id: string
  - patch: Patch

Returns:
  - error: apperr.NotFound or execution errors
*/
func (store *PostgresStore) UpdateFields(context context.Context, id string, patch Patch) error {
	columns := schema.Accounts
	setClauses := []string{}
	arguments := []any{id}

	appendSet := func(column string, value any) {
		arguments = append(arguments, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(arguments)))
	}

	if patch.Username != nil {
		appendSet(columns.Username, *patch.Username)
	}
	if patch.PasswordHash != nil {
		appendSet(columns.PasswordHash, *patch.PasswordHash)
	}
	if patch.IsVerified != nil {
		appendSet(columns.IsVerified, *patch.IsVerified)
	}
	if patch.PendingCode != nil {
		appendSet(columns.PendingCode, *patch.PendingCode)
	}
	if patch.PendingCodeExpiry != nil {
		appendSet(columns.PendingCodeExpiry, *patch.PendingCodeExpiry)
	}
	if patch.ClearPendingCodeExpiry {
		setClauses = append(setClauses, fmt.Sprintf("%s = NULL", columns.PendingCodeExpiry))
	}
	if patch.OTPVerified != nil {
		appendSet(columns.OTPVerified, *patch.OTPVerified)
	}
	if patch.TokenVersion != nil {
		appendSet(columns.TokenVersion, *patch.TokenVersion)
	}

	if len(setClauses) == 0 {
		return nil
	}
	appendSet(columns.UpdatedAt, time.Now())

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $1",
		columns.Table, strings.Join(setClauses, ", "), columns.ID,
	)

	commandTag, err := store.pool.Exec(context, query, arguments...)
	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres_account_store_update_fields_failed: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// Ping verifies the backing connection pool is healthy.
func (store *PostgresStore) Ping(context context.Context) error {
	return postgres.Ping(context, store.pool)
}

// scanOne executes a single-row query and hydrates an [Account].
func (store *PostgresStore) scanOne(context context.Context, query string, argument any) (*Account, error) {
	account := &Account{}
	err := store.pool.QueryRow(context, query, argument).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.IsVerified,
		&account.PendingCode,
		&account.PendingCodeExpiry,
		&account.OTPVerified,
		&account.TokenVersion,
		&account.ProfilePicture,
		&account.DarkMode,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// mapUniqueViolation classifies SQLSTATE 23505 into the taxonomy, or returns
// nil if err is not a unique violation.
func mapUniqueViolation(err error) error {
	switch {
	case dberr.IsUniqueViolation(err, "accounts_email_key"):
		return apperr.AlreadyRegistered()
	case dberr.IsUniqueViolation(err, "accounts_username_key"):
		return apperr.ValidationError("Username is already taken")
	case dberr.IsUniqueViolation(err, ""):
		return apperr.ValidationError("Account already exists")
	default:
		return nil
	}
}
