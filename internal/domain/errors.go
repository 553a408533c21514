package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation       ErrKind = "validation"         // 400
	KindWeakCredential   ErrKind = "weak_credential"    // 400
	KindAuth             ErrKind = "auth"               // 401
	KindNotFound         ErrKind = "not_found"          // 404
	KindConflict         ErrKind = "conflict"           // 409
	KindInvalidOrExpired ErrKind = "invalid_or_expired" // 400
	KindRateLimited      ErrKind = "rate_limited"       // 429
	KindInfrastructure   ErrKind = "infrastructure"     // 503
	KindInternal         ErrKind = "internal"           // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

// Is reports whether err is a domain error carrying the given code.
func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// ----------------------
// Weak credential (400)
// ----------------------

// StrengthFeedback is the remediation attached to a weak password rejection.
type StrengthFeedback struct {
	Score       int
	Warning     string
	Suggestions []string
	CrackTime   string
}

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindWeakCredential, "weak_password", "password does not meet requirements"), map[string]string{
		"reason": reason,
	})
}

func ErrPasswordTooWeak(fb StrengthFeedback) *Error {
	meta := map[string]string{
		"reason": "too weak",
		"score":  strconv.Itoa(fb.Score),
	}
	if fb.Warning != "" {
		meta["warning"] = fb.Warning
	}
	if len(fb.Suggestions) > 0 {
		meta["suggestions"] = strings.Join(fb.Suggestions, " ")
	}
	if fb.CrackTime != "" {
		meta["crack_time"] = fb.CrackTime
	}
	return WithMeta(New(KindWeakCredential, "weak_password", "password is too weak"), meta)
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: use this for login failures to avoid user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "invalid email or password")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid access token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "access token expired")
}

func ErrRefreshTokenMissing() *Error {
	return New(KindAuth, "refresh_token_missing", "no refresh token")
}

func ErrRefreshTokenInvalid() *Error {
	return New(KindAuth, "refresh_token_invalid", "invalid token")
}

func ErrRefreshTokenExpired() *Error {
	return New(KindAuth, "refresh_token_expired", "expired token")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

// Logout with a token that no longer maps to a session.
func ErrSessionNotFound() *Error {
	return New(KindNotFound, "session_not_found", "invalid token")
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_already_exists", "email already registered")
}

// The snapshot being saved is older than the stored record.
func ErrStaleWrite() *Error {
	return New(KindConflict, "stale_write", "record was modified concurrently")
}

// ----------------------
// Verification (400)
// ----------------------

// Unknown and expired verification tokens are deliberately indistinguishable.
func ErrVerificationTokenInvalid() *Error {
	return New(KindInvalidOrExpired, "verification_token_invalid", "invalid or expired verification token")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrNotifierUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "notifier_unavailable", "verification email could not be queued", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
