// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/paisa-app/identity/internal/mailer"
	"github.com/paisa-app/identity/internal/platform/apperr"
	"github.com/paisa-app/identity/internal/platform/constants"
	"github.com/paisa-app/identity/internal/platform/ctxutil"
	"github.com/paisa-app/identity/internal/platform/sec"
	"github.com/paisa-app/identity/pkg/pointer"
	"github.com/paisa-app/identity/pkg/uuidv7"
)

// # Definitions & Constructors

// Service implements the account lifecycle state machine.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance, or the tokenVersion bump rules must be reviewed carefully.
type Service struct {
	store  Store
	tokens *sec.TokenService
	mail   mailer.Sender

	// verificationBaseURL is the frontend page a clicked email link opens;
	// the pending token is appended as a query parameter.
	verificationBaseURL string

	// resetCodeTTL bounds the validity of password-reset one-time codes.
	resetCodeTTL time.Duration
}

// NewService constructs a new account [Service] with its dependencies.
func NewService(store Store, tokens *sec.TokenService, mail mailer.Sender, verificationBaseURL string, resetCodeTTL time.Duration) *Service {
	return &Service{
		store:               store,
		tokens:              tokens,
		mail:                mail,
		verificationBaseURL: verificationBaseURL,
		resetCodeTTL:        resetCodeTTL,
	}
}

// AuthSession pairs a freshly minted session token with its account.
type AuthSession struct {
	Token   string
	Account *Account
}

// issueSession mints a session token from the account's current state.
func (service *Service) issueSession(account *Account) (*AuthSession, error) {
	token, err := service.tokens.IssueSessionToken(sec.SessionTokenInput{
		AccountID:      account.ID,
		Email:          account.Email,
		Username:       account.Username,
		ProfilePicture: account.ProfilePicture,
		DarkMode:       account.DarkMode,
		TokenVersion:   account.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("account_service_issue_session_failed: %w", err)
	}
	return &AuthSession{Token: token, Account: account}, nil
}

// deliverCode sends a one-time code and swallows delivery failures.
//
// Email outages must never block registration or OTP issuance; the failure
// is logged so operators still see it.
func (service *Service) deliverCode(ctx context.Context, toEmail, code, displayName string) {
	if err := service.mail.Send(ctx, toEmail, code, displayName); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "otp_delivery_failed",
			slog.String("to", toEmail),
			slog.String("error", err.Error()),
		)
	}
}

// normalizeEmail lowercases and trims the lookup key.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegisterResult carries the pending token back to the caller, both raw and
// embedded in a clickable verification URL. The raw code never leaves the
// service.
type RegisterResult struct {
	PendingToken    string `json:"pending_token"`
	VerificationURL string `json:"verification_url"`
}

/*
Register enrolls a new account or overwrites an unverified one.

Description: If the email already belongs to a verified account the call
fails AlreadyRegistered. Otherwise the password is hashed, a fresh OTP is
generated and emailed (delivery failure swallowed), and the single
unverified record for this email is created or overwritten. At most one
unverified account exists per email.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *RegisterResult: Pending token and verification URL
  - error: AlreadyRegistered or storage failures
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*RegisterResult, error) {
	email := normalizeEmail(input.Email)

	existing, err := service.store.FindByEmail(context, email)
	if err != nil && !apperr.IsCode(err, "NOT_FOUND") {
		return nil, fmt.Errorf("account_service_register_lookup_failed: %w", err)
	}
	if existing != nil && existing.IsVerified {
		return nil, apperr.AlreadyRegistered()
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	code := sec.GenerateOTP()
	service.deliverCode(context, email, code, input.Username)

	if existing != nil {
		// Overwrite the single unverified record. Email stays the lookup key
		// and is never changed by re-registration.
		existing.Username = input.Username
		existing.PasswordHash = hashedPassword
		existing.PendingCode = code
		existing.PendingCodeExpiry = nil
		existing.OTPVerified = false
		if err := service.store.Save(context, existing); err != nil {
			return nil, fmt.Errorf("account_service_register_overwrite_failed: %w", err)
		}
	} else {
		// Time-sortable ID to prevent PG index fragmentation.
		account := &Account{
			ID:           uuidv7.New(),
			Username:     input.Username,
			Email:        email,
			PasswordHash: hashedPassword,
			IsVerified:   false,
			PendingCode:  code,
		}
		if err := service.store.Create(context, account); err != nil {
			return nil, fmt.Errorf("account_service_register_create_failed: %w", err)
		}
	}

	pendingToken, err := service.tokens.IssuePendingToken(email)
	if err != nil {
		return nil, fmt.Errorf("account_service_pending_token_failed: %w", err)
	}

	return &RegisterResult{
		PendingToken: pendingToken,
		VerificationURL: fmt.Sprintf("%s?%s=%s",
			service.verificationBaseURL,
			constants.PendingTokenQueryParam,
			url.QueryEscape(pendingToken),
		),
	}, nil
}

/*
VerifyAccount consumes a one-time code and activates the account.

Description: An empty stored code accepts any submitted code; this is the
preserved fallback for email-delivery outages, not an oversight. A stored
code past its expiry fails InvalidCode. On success isVerified flips true
(monotonic), the code is cleared, and a session token is issued so the user
is logged in immediately.

Parameters:
  - context: context.Context
  - email: string
  - code: string

Returns:
  - *AuthSession: Session token and activated account
  - error: NotFound, AlreadyVerified, InvalidCode, or storage failures
*/
func (service *Service) VerifyAccount(context context.Context, email, code string) (*AuthSession, error) {
	account, err := service.store.FindByEmail(context, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if account.IsVerified {
		return nil, apperr.AlreadyVerified()
	}

	if account.PendingCode != "" {
		if account.PendingCodeExpired(time.Now()) {
			return nil, apperr.InvalidCode()
		}
		if account.PendingCode != code {
			return nil, apperr.InvalidCode()
		}
	}

	account.IsVerified = true
	account.PendingCode = ""
	account.PendingCodeExpiry = nil
	account.OTPVerified = false
	if err := service.store.Save(context, account); err != nil {
		return nil, fmt.Errorf("account_service_verify_save_failed: %w", err)
	}

	return service.issueSession(account)
}

/*
ResendVerificationCode regenerates and re-sends the account activation OTP.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: Fresh pending token
  - error: NotFound, AlreadyVerified, or storage failures
*/
func (service *Service) ResendVerificationCode(context context.Context, email string) (string, error) {
	normalized := normalizeEmail(email)
	account, err := service.store.FindByEmail(context, normalized)
	if err != nil {
		return "", err
	}
	if account.IsVerified {
		return "", apperr.AlreadyVerified()
	}

	code := sec.GenerateOTP()
	service.deliverCode(context, normalized, code, account.Username)

	if err := service.store.UpdateFields(context, account.ID, Patch{PendingCode: &code}); err != nil {
		return "", fmt.Errorf("account_service_resend_verification_failed: %w", err)
	}

	pendingToken, err := service.tokens.IssuePendingToken(normalized)
	if err != nil {
		return "", fmt.Errorf("account_service_pending_token_failed: %w", err)
	}

	return pendingToken, nil
}

// # Authentication Flow

/*
Login validates credentials and issues a session token.

Description: Unknown email and wrong password fail with an identical
InvalidCredentials message to prevent account enumeration. Unverified
accounts fail NotVerified. Login mutates no account state.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *AuthSession: Session token and account
  - error: InvalidCredentials, NotVerified, or token failures
*/
func (service *Service) Login(context context.Context, email, password string) (*AuthSession, error) {
	account, err := service.store.FindByEmail(context, normalizeEmail(email))
	if err != nil {
		return nil, apperr.InvalidCredentials()
	}

	if !sec.CheckPasswordHash(password, account.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	if !account.IsVerified {
		return nil, apperr.NotVerified()
	}

	return service.issueSession(account)
}

/*
Profile returns the account behind an authenticated session.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *Account: Hydrated entity
  - error: NotFound or retrieval failures
*/
func (service *Service) Profile(context context.Context, accountID string) (*Account, error) {
	return service.store.FindByID(context, accountID)
}

// # Credential Rotation

/*
ChangePassword rotates the password of an authenticated account.

Description: Verifies the current password, stores the new hash, and bumps
tokenVersion by exactly 1 so every previously issued session token becomes
stale.

Parameters:
  - context: context.Context
  - accountID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - error: NotFound, InvalidCredentials, or storage failures
*/
func (service *Service) ChangePassword(context context.Context, accountID, currentPassword, newPassword string) error {
	account, err := service.store.FindByID(context, accountID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(currentPassword, account.PasswordHash) {
		wrongCurrent := apperr.InvalidCredentials()
		wrongCurrent.Message = "Current password is incorrect"
		return wrongCurrent
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account_service_change_password_hash_failed: %w", err)
	}

	err = service.store.UpdateFields(context, account.ID, Patch{
		PasswordHash: &hashedPassword,
		TokenVersion: pointer.To(account.TokenVersion + 1),
	})
	if err != nil {
		return fmt.Errorf("account_service_change_password_update_failed: %w", err)
	}

	return nil
}

// # Password Recovery

/*
RequestPasswordReset starts the forgot-password flow.

Description: Generates a reset OTP with a short expiry, emails it (failure
swallowed), and returns a pending token scoped to the email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: Pending token
  - error: NotFound or storage failures
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) (string, error) {
	return service.issueResetCode(context, email)
}

/*
ResendPasswordResetCode regenerates and re-sends the reset OTP.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: Fresh pending token
  - error: NotFound or storage failures
*/
func (service *Service) ResendPasswordResetCode(context context.Context, email string) (string, error) {
	return service.issueResetCode(context, email)
}

// issueResetCode is the shared body of the reset request/resend operations.
func (service *Service) issueResetCode(context context.Context, email string) (string, error) {
	normalized := normalizeEmail(email)
	account, err := service.store.FindByEmail(context, normalized)
	if err != nil {
		return "", err
	}

	code := sec.GenerateOTP()
	service.deliverCode(context, normalized, code, "")

	err = service.store.UpdateFields(context, account.ID, Patch{
		PendingCode:       &code,
		PendingCodeExpiry: pointer.To(time.Now().Add(service.resetCodeTTL)),
		OTPVerified:       pointer.To(false),
	})
	if err != nil {
		return "", fmt.Errorf("account_service_reset_code_update_failed: %w", err)
	}

	pendingToken, err := service.tokens.IssuePendingToken(normalized)
	if err != nil {
		return "", fmt.Errorf("account_service_pending_token_failed: %w", err)
	}

	return pendingToken, nil
}

/*
VerifyResetCode checks a reset OTP without consuming it.

Description: Pure check ahead of the reset step; the only mutation is the
otpVerified scratch flag.

Parameters:
  - context: context.Context
  - email: string
  - code: string

Returns:
  - error: NotFound, InvalidCode, or storage failures
*/
func (service *Service) VerifyResetCode(context context.Context, email, code string) error {
	account, err := service.store.FindByEmail(context, normalizeEmail(email))
	if err != nil {
		return err
	}

	if account.PendingCode == "" || account.PendingCode != code || account.PendingCodeExpired(time.Now()) {
		return apperr.InvalidCode()
	}

	if err := service.store.UpdateFields(context, account.ID, Patch{OTPVerified: pointer.To(true)}); err != nil {
		return fmt.Errorf("account_service_verify_reset_code_failed: %w", err)
	}

	return nil
}

/*
SetNewPassword completes the forgot-password flow.

Description: Requires strict equality between the stored and supplied code
(no empty-code fallback here). On success the new hash is stored, the code
is cleared so it cannot be replayed, tokenVersion bumps by exactly 1, and a
fresh session token is issued.

Parameters:
  - context: context.Context
  - email: string
  - code: string
  - newPassword: string

Returns:
  - *AuthSession: Fresh session token and account
  - error: NotFound, InvalidCode, or storage failures
*/
func (service *Service) SetNewPassword(context context.Context, email, code, newPassword string) (*AuthSession, error) {
	account, err := service.store.FindByEmail(context, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if account.PendingCode == "" || account.PendingCode != code || account.PendingCodeExpired(time.Now()) {
		return nil, apperr.InvalidCode()
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("account_service_set_password_hash_failed: %w", err)
	}

	account.PasswordHash = hashedPassword
	account.PendingCode = ""
	account.PendingCodeExpiry = nil
	account.OTPVerified = false
	account.TokenVersion++
	if err := service.store.Save(context, account); err != nil {
		return nil, fmt.Errorf("account_service_set_password_save_failed: %w", err)
	}

	return service.issueSession(account)
}
