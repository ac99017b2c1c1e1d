// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/paisa-app/identity/internal/platform/config"
)

// otpSubject is the subject line for every OTP email.
const otpSubject = "Your Paisa verification code"

// otpTemplate renders the OTP email body. Kept deliberately plain so it
// survives aggressive HTML sanitizers in mail clients.
var otpTemplate = template.Must(template.New("otp").Parse(`
<div style="font-family: sans-serif; max-width: 480px;">
  <h2>Paisa</h2>
  {{if .DisplayName}}<p>Hi {{.DisplayName}},</p>{{end}}
  <p>Your one-time verification code is:</p>
  <p style="font-size: 28px; letter-spacing: 6px;"><strong>{{.Code}}</strong></p>
  <p>This code expires shortly. If you did not request it, you can ignore this email.</p>
</div>`))

// BrevoSender delivers OTP emails through a Brevo-compatible transactional
// HTTP API.
//
// # Pacing
//
// Outbound requests are paced by a token-bucket limiter so that bursts of
// registrations stay below the provider's send quota instead of tripping
// its 429 responses.
type BrevoSender struct {
	apiURL     string
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
	limiter    *rate.Limiter
	configured bool
}

// NewBrevoSender creates a Brevo API [Sender] from configuration.
func NewBrevoSender(cfg *config.Config) *BrevoSender {
	sender := &BrevoSender{
		apiURL:     cfg.MailAPIURL,
		fromEmail:  cfg.MailFromEmail,
		fromName:   cfg.MailFromName,
		httpClient: &http.Client{Timeout: cfg.MailTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.MailSendsPerSecond), 1),
	}

	if cfg.MailAPIKey != "" && cfg.MailFromEmail != "" {
		sender.apiKey = cfg.MailAPIKey
		sender.configured = true
	}

	return sender
}

// IsConfigured reports whether the sender holds usable mail credentials.
func (sender *BrevoSender) IsConfigured() bool {
	return sender.configured
}

// sendEmailRequest is the Brevo transactional-email request payload.
type sendEmailRequest struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

/*
Send delivers the one-time code to the recipient through the HTTP API.

Description: Renders the OTP template, waits for limiter clearance, and
posts the payload. Any non-2xx response becomes an error for the caller to
log and swallow.

Parameters:
  - context: context.Context
  - toEmail: string
  - code: string
  - displayName: string

Returns:
  - error: Rendering, pacing, transport, or API-status failures
*/
func (sender *BrevoSender) Send(context context.Context, toEmail, code, displayName string) error {
	if !sender.configured {
		return fmt.Errorf("mailer: brevo sender not configured, email to %s skipped", toEmail)
	}

	body := &bytes.Buffer{}
	if err := otpTemplate.Execute(body, struct {
		DisplayName string
		Code        string
	}{DisplayName: displayName, Code: code}); err != nil {
		return fmt.Errorf("mailer: failed to render OTP template: %w", err)
	}

	// Respect the provider quota before touching the network.
	if err := sender.limiter.Wait(context); err != nil {
		return fmt.Errorf("mailer: rate limiter wait failed: %w", err)
	}

	payload := sendEmailRequest{
		Sender:      map[string]string{"email": sender.fromEmail, "name": sender.fromName},
		To:          []map[string]string{{"email": toEmail}},
		Subject:     otpSubject,
		HTMLContent: body.String(),
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mailer: failed to marshal email payload: %w", err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, sender.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("mailer: failed to create request: %w", err)
	}
	request.Header.Set("api-key", sender.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := sender.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("mailer: send request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 400 {
		return fmt.Errorf("mailer: provider rejected send with status %d", response.StatusCode)
	}

	return nil
}
