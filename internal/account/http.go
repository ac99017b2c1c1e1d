// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

// HTTP delivery layer for the account lifecycle.
//
// # Architecture
//
// The handler acts as a thin mediation layer between the web and the domain
// service:
//   - Protocol: RESTful JSON with the uniform success/failure envelope.
//   - Security: Session and pending-token checks delegated to [Guard].
//   - Verification: Each operation declares its own required-field contract.
//
// This layer is strictly responsible for transport concerns (status codes,
// headers, JSON).
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/paisa-app/identity/internal/platform/request"
	"github.com/paisa-app/identity/internal/platform/respond"
	"github.com/paisa-app/identity/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
type Handler struct {
	service *Service
	guard   *Guard
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, guard *Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

// Routes returns a [chi.Router] configured with the account lifecycle routes.
//
// # Endpoints
//
// Registration:
//   - POST /register                    : Creates or overwrites an unverified account.
//   - POST /register/resend-otp         : Re-sends the activation OTP.
//   - POST /register/verify-account     : Consumes the OTP and activates the account.
//   - GET  /register/verify-account     : Clicked email link (pending token via query).
//
// Session:
//   - POST /login            : Authenticates and returns a session token.
//   - GET  /me               : Returns the authenticated profile.
//   - PUT  /change-password  : Rotates the password (bumps tokenVersion).
//   - POST /verify-token     : Confirms a session token is still valid.
//
// Password recovery:
//   - POST /forgot-password             : Sends a reset OTP.
//   - POST /forgot-password/resend-otp  : Re-sends the reset OTP.
//   - POST /forgot-password/verify-otp  : Checks the OTP without consuming it.
//   - POST /forgot-password/reset       : Sets the new password.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/register/resend-otp", handler.resendVerificationOTP)
	router.Post("/register/verify-account", handler.verifyAccount)
	router.Post("/login", handler.login)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/forgot-password/resend-otp", handler.resendResetOTP)
	router.Post("/forgot-password/verify-otp", handler.verifyResetOTP)
	router.Post("/forgot-password/reset", handler.resetPassword)

	// Clicked email links carry the pending token as a query parameter.
	router.Group(func(r chi.Router) {
		r.Use(handler.guard.RequirePendingToken)
		r.Get("/register/verify-account", handler.verifyAccountLink)
	})

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.guard.RequireSession)
		r.Get("/me", handler.profile)
		r.Put("/change-password", handler.changePassword)
		r.Post("/verify-token", handler.verifyToken)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// validateEmail applies the shared email contract.
func validateEmail(validator *validate.Validator, email string) *validate.Validator {
	return validator.Required(FieldEmail, email).Email(FieldEmail, email)
}

// validatePassword applies the shared password strength contract.
func validatePassword(validator *validate.Validator, field, password string) *validate.Validator {
	return validator.Required(field, password).
		MinLen(field, password, 6).
		MaxLen(field, password, 18)
}

// # Registration Flow

/*
Register handles the creation of a new account.

POST /api/v1/auth/register

Description: Validates input, hashes the password, emails an OTP, and
creates or overwrites the single unverified record for the email.

Request:
  - Body: registerRequest (Username, Email, Password)

Response:
  - 201: RegisterResult: Pending token and verification URL
  - 400: AlreadyRegistered or validation failure
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		MaxLen(FieldUsername, input.Username, 30)
	validateEmail(validator, input.Email)
	validatePassword(validator, FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, "Verify account using OTP sent to your email", result)
}

/*
ResendVerificationOTP re-sends the account activation code.

POST /api/v1/auth/register/resend-otp

Request:
  - Body: emailRequest (Email)

Response:
  - 200: Fresh pending token
  - 404: NotFound
  - 400: AlreadyVerified
*/
func (handler *Handler) resendVerificationOTP(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := validateEmail(&validate.Validator{}, input.Email).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pendingToken, err := handler.service.ResendVerificationCode(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "OTP resent successfully", map[string]string{
		"pending_token": pendingToken,
	})
}

/*
VerifyAccount consumes the OTP and activates the account.

POST /api/v1/auth/register/verify-account

Request:
  - Body: otpRequest (Email, OTP)

Response:
  - 200: Session token and activated account
  - 404: NotFound
  - 400: AlreadyVerified
  - 403: InvalidCode
*/
func (handler *Handler) verifyAccount(writer http.ResponseWriter, request *http.Request) {
	var input otpRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validateEmail(validator, input.Email)
	validator.Required(FieldOTP, input.OTP).OTP(FieldOTP, input.OTP)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.VerifyAccount(request.Context(), input.Email, input.OTP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "User verified and logged in successfully", map[string]any{
		"token": session.Token,
		"user":  session.Account,
	})
}

/*
VerifyAccountLink answers a clicked verification link from the email.

GET /api/v1/auth/register/verify-account?pendingToken=...

Description: The pending-token guard has already proven the email; the
frontend uses this endpoint to know which address to show on the OTP entry
page.

Response:
  - 200: The email the pending token is scoped to
  - 401: Unauthorized: Missing or expired pending token
*/
func (handler *Handler) verifyAccountLink(writer http.ResponseWriter, request *http.Request) {
	email, err := requestutil.RequiredPendingEmail(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Please enter the OTP sent to your email", map[string]string{
		FieldEmail: email,
	})
}

// # Authentication Flow

/*
Login authenticates a user and returns a session token.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: Session token and account
  - 401: InvalidCredentials (identical for unknown email and wrong password)
  - 403: NotVerified
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validateEmail(validator, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Logged in successfully", map[string]any{
		"token": session.Token,
		"user":  session.Account,
	})
}

/*
Profile returns the authenticated user's account.

GET /api/v1/auth/me

Response:
  - 200: Account profile
  - 401: Unauthorized
*/
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.service.Profile(request.Context(), claims.AccountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "User data retrieved successfully", map[string]any{
		"user": account,
	})
}

/*
ChangePassword rotates the authenticated user's password.

PUT /api/v1/auth/change-password

Description: Verifies the current password, stores the new hash, and bumps
tokenVersion so all previously issued session tokens (including the one
used for this request) become stale.

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: Password changed
  - 401: InvalidCredentials (wrong current password) or Unauthorized
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword)
	validatePassword(validator, FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.ChangePassword(request.Context(), claims.AccountID, input.CurrentPassword, input.NewPassword)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Password changed successfully", nil)
}

/*
VerifyToken confirms that the presented session token is still valid.

POST /api/v1/auth/verify-token

Description: The session guard has already checked signature, expiry, and
tokenVersion; this endpoint just echoes the identity so clients can probe
token freshness.

Response:
  - 200: Identity snapshot from the token
  - 401: Unauthorized
*/
func (handler *Handler) verifyToken(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Token is valid", map[string]any{
		"id":              claims.AccountID,
		"username":        claims.Username,
		"email":           claims.Email,
		"profile_picture": claims.ProfilePicture,
		"dark_mode":       claims.DarkMode,
	})
}

// # Password Recovery

/*
ForgotPassword starts the password reset flow.

POST /api/v1/auth/forgot-password

Request:
  - Body: emailRequest (Email)

Response:
  - 200: Pending token
  - 404: NotFound
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	handler.issueResetOTP(writer, request, "OTP sent successfully!")
}

/*
ResendResetOTP re-sends the password reset code.

POST /api/v1/auth/forgot-password/resend-otp

Request:
  - Body: emailRequest (Email)

Response:
  - 200: Fresh pending token
  - 404: NotFound
*/
func (handler *Handler) resendResetOTP(writer http.ResponseWriter, request *http.Request) {
	handler.issueResetOTP(writer, request, "OTP resent successfully!")
}

// issueResetOTP is the shared body of the two reset-OTP endpoints.
func (handler *Handler) issueResetOTP(writer http.ResponseWriter, request *http.Request, message string) {
	var input emailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := validateEmail(&validate.Validator{}, input.Email).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pendingToken, err := handler.service.RequestPasswordReset(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, message, map[string]string{
		"pending_token": pendingToken,
	})
}

/*
VerifyResetOTP checks the reset code without consuming it.

POST /api/v1/auth/forgot-password/verify-otp

Request:
  - Body: otpRequest (Email, OTP)

Response:
  - 200: OTP verified
  - 404: NotFound
  - 403: InvalidCode
*/
func (handler *Handler) verifyResetOTP(writer http.ResponseWriter, request *http.Request) {
	var input otpRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validateEmail(validator, input.Email)
	validator.Required(FieldOTP, input.OTP).OTP(FieldOTP, input.OTP)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.VerifyResetCode(request.Context(), input.Email, input.OTP); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "OTP verified successfully.", nil)
}

/*
ResetPassword completes the password reset flow.

POST /api/v1/auth/forgot-password/reset

Request:
  - Body: resetPasswordRequest (Email, OTP, NewPassword)

Response:
  - 200: Fresh session token and account
  - 404: NotFound
  - 403: InvalidCode
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validateEmail(validator, input.Email)
	validator.Required(FieldOTP, input.OTP).OTP(FieldOTP, input.OTP)
	validatePassword(validator, FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.SetNewPassword(request.Context(), input.Email, input.OTP, input.NewPassword)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Password changed successfully", map[string]any{
		"token": session.Token,
		"user":  session.Account,
	})
}
