// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package sec

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTPLength is the fixed digit count of every one-time code.
const OTPLength = 6

// otpSpace is the size of the code space: 10^OTPLength.
var otpSpace = big.NewInt(1_000_000)

// GenerateOTP produces a uniformly random, zero-padded 6-digit numeric code
// ("000000"–"999999").
//
// Every call draws fresh randomness; there is no dedup guarantee across
// calls. Codes are short-lived proofs of email control, not cryptographic
// secrets, but crypto/rand is used anyway so code quality never depends on
// seeding discipline.
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		// crypto/rand failure means the OS entropy source is broken.
		panic("sec: failed to generate OTP: " + err.Error())
	}
	return fmt.Sprintf("%0*d", OTPLength, n)
}
