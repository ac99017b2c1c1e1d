// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, OTP generation,
// JWT signing) from the domain logic. It acts as an Infrastructure service
// injected into the Application layer via constructor dependencies.
package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// Each call generates a fresh random salt; the resulting hash is
// self-describing (it embeds salt and cost), so no separate salt storage
// is needed. Default cost is used for balance between security and CPU
// utilization during registration spikes.
func HashPassword(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
//
// It returns false (never an error or panic) when the stored hash is
// malformed, which keeps credential checks total.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
