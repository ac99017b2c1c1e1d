// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paisa-app/identity/internal/platform/sec"
)

/*
TestHashPassword tests the bcrypt round trip: a freshly hashed password
must verify against the plain text that produced it and nothing else.
*/
func TestHashPassword(t *testing.T) {
	hash, err := sec.HashPassword("s3cret-pw")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	// The hash must never equal the plain text
	assert.NotEqual(t, "s3cret-pw", hash)

	assert.True(t, sec.CheckPasswordHash("s3cret-pw", hash))
	assert.False(t, sec.CheckPasswordHash("wrong-pw", hash))
}

/*
TestHashPassword_UniqueSalts verifies that hashing the same password twice
yields different hashes (fresh salt per call), while both still verify.
*/
func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := sec.HashPassword("same-password")
	require.NoError(t, err)
	second, err := sec.HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, sec.CheckPasswordHash("same-password", first))
	assert.True(t, sec.CheckPasswordHash("same-password", second))
}

/*
TestCheckPasswordHash_Malformed verifies that a corrupt stored hash is
reported as a mismatch rather than an error or panic.
*/
func TestCheckPasswordHash_Malformed(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty_hash", ""},
		{"plain_text_hash", "not-a-bcrypt-hash"},
		{"truncated_hash", "$2a$10$abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, sec.CheckPasswordHash("anything", tt.hash))
		})
	}
}
