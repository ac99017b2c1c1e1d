// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

/*
Package mailer implements outbound transactional email for OTP delivery.

# Architecture

The account lifecycle depends only on the [Sender] contract. Two
implementations exist:

  - BrevoSender: HTTP client for a Brevo-compatible transactional API.
  - LogSender: structured-log fallback used whenever mail credentials are
    absent, so local development and CI never need a provider account.

Delivery failure is always catchable by the caller and never fatal; the
lifecycle service logs and swallows it so that an email outage cannot block
registration or OTP issuance.
*/
package mailer

import (
	"context"
	"log/slog"

	"github.com/paisa-app/identity/internal/platform/config"
)

// Sender is the outbound-email contract consumed by the account lifecycle.
type Sender interface {

	/*
		Send delivers a one-time code to the recipient.

		Parameters:
		  - context: context.Context
		  - toEmail: string
		  - code: string (6-digit OTP)
		  - displayName: string (may be empty for reset flows)

		Returns:
		  - error: Delivery failures (catchable, never fatal to callers)
	*/
	Send(context context.Context, toEmail, code, displayName string) error
}

// New selects a [Sender] implementation from configuration: the HTTP client
// when an API key is present, the log-only fallback otherwise.
func New(cfg *config.Config, logger *slog.Logger) Sender {
	brevoSender := NewBrevoSender(cfg)
	if brevoSender.IsConfigured() {
		return brevoSender
	}

	logger.Warn("mail credentials absent, using log-only sender")
	return NewLogSender(logger)
}

// # Log-Only Fallback

// LogSender writes the OTP to the structured log instead of delivering it.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-only [Sender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the code instead of emailing it. It never fails.
func (sender *LogSender) Send(context context.Context, toEmail, code, displayName string) error {
	sender.logger.InfoContext(context, "otp_email_logged",
		slog.String("to", toEmail),
		slog.String("code", code),
		slog.String("display_name", displayName),
	)
	return nil
}
