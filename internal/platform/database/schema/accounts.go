// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

// Package schema centralizes table and column names for the relational
// backend so that queries never embed raw identifier strings.
package schema

// AccountsTable represents the 'accounts' table
type AccountsTable struct {
	Table             string
	ID                string
	Username          string
	Email             string
	PasswordHash      string
	IsVerified        string
	PendingCode       string
	PendingCodeExpiry string
	OTPVerified       string
	TokenVersion      string
	ProfilePicture    string
	DarkMode          string
	CreatedAt         string
	UpdatedAt         string
}

// Accounts is the schema definition for the accounts table
var Accounts = AccountsTable{
	Table:             "accounts",
	ID:                "id",
	Username:          "username",
	Email:             "email",
	PasswordHash:      "password_hash",
	IsVerified:        "is_verified",
	PendingCode:       "pending_code",
	PendingCodeExpiry: "pending_code_expiry",
	OTPVerified:       "otp_verified",
	TokenVersion:      "token_version",
	ProfilePicture:    "profile_picture",
	DarkMode:          "dark_mode",
	CreatedAt:         "created_at",
	UpdatedAt:         "updated_at",
}

// Columns returns all standard column names
func (t AccountsTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.PasswordHash, t.IsVerified,
		t.PendingCode, t.PendingCodeExpiry, t.OTPVerified, t.TokenVersion,
		t.ProfilePicture, t.DarkMode, t.CreatedAt, t.UpdatedAt,
	}
}
