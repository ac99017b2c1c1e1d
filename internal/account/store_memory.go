// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package account

import (
	"context"
	"sync"
	"time"

	"github.com/paisa-app/identity/internal/platform/apperr"
)

// MemoryStore is a mutex-guarded in-memory [Store] used by tests and by
// local development without a database.
//
// It mirrors the uniqueness guarantees of the real backends: Create and Save
// reject duplicate emails and usernames.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*Account
	emailIdx map[string]string // lowercase email -> id
}

// NewMemoryStore creates an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*Account),
		emailIdx: make(map[string]string),
	}
}

// FindByEmail returns a copy of the account with the given email.
func (store *MemoryStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	id, found := store.emailIdx[email]
	if !found {
		return nil, apperr.NotFound("User")
	}
	return clone(store.byID[id]), nil
}

// FindByID returns a copy of the account with the given ID.
func (store *MemoryStore) FindByID(_ context.Context, id string) (*Account, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	record, found := store.byID[id]
	if !found {
		return nil, apperr.NotFound("User")
	}
	return clone(record), nil
}

// Create persists a new account, enforcing email and username uniqueness.
func (store *MemoryStore) Create(_ context.Context, account *Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, exists := store.emailIdx[account.Email]; exists {
		return apperr.AlreadyRegistered()
	}
	for _, existing := range store.byID {
		if existing.Username == account.Username {
			return apperr.ValidationError("Username is already taken")
		}
	}

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	store.byID[account.ID] = clone(account)
	store.emailIdx[account.Email] = account.ID
	return nil
}

// Save writes back every mutable field of an existing account.
func (store *MemoryStore) Save(_ context.Context, account *Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, found := store.byID[account.ID]
	if !found {
		return apperr.NotFound("User")
	}
	for id, other := range store.byID {
		if id != account.ID && other.Username == account.Username {
			return apperr.ValidationError("Username is already taken")
		}
	}

	account.CreatedAt = existing.CreatedAt
	account.UpdatedAt = time.Now()
	store.byID[account.ID] = clone(account)
	return nil
}

// UpdateFields applies a partial update to the stored account.
func (store *MemoryStore) UpdateFields(_ context.Context, id string, patch Patch) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, found := store.byID[id]
	if !found {
		return apperr.NotFound("User")
	}

	if patch.Username != nil {
		record.Username = *patch.Username
	}
	if patch.PasswordHash != nil {
		record.PasswordHash = *patch.PasswordHash
	}
	if patch.IsVerified != nil {
		record.IsVerified = *patch.IsVerified
	}
	if patch.PendingCode != nil {
		record.PendingCode = *patch.PendingCode
	}
	if patch.PendingCodeExpiry != nil {
		expiry := *patch.PendingCodeExpiry
		record.PendingCodeExpiry = &expiry
	}
	if patch.ClearPendingCodeExpiry {
		record.PendingCodeExpiry = nil
	}
	if patch.OTPVerified != nil {
		record.OTPVerified = *patch.OTPVerified
	}
	if patch.TokenVersion != nil {
		record.TokenVersion = *patch.TokenVersion
	}
	record.UpdatedAt = time.Now()
	return nil
}

// Ping always succeeds for the in-memory store.
func (store *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// clone returns a deep copy so callers never share pointers with the store.
func clone(account *Account) *Account {
	copied := *account
	if account.PendingCodeExpiry != nil {
		expiry := *account.PendingCodeExpiry
		copied.PendingCodeExpiry = &expiry
	}
	return &copied
}
