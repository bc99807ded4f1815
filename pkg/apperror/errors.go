package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError so callers can branch on expected outcomes
// without matching codes or messages.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindInUse        Kind = "IN_USE"
	KindEncryption   Kind = "ENCRYPTION"
	KindDecryption   Kind = "DECRYPTION"
	KindValidation   Kind = "VALIDATION"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Kind       Kind   `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code string, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the Kind of the first AppError in err's chain.
// Errors that are not AppErrors are reported as KindInternal; nil yields "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ---- Security & Authentication (SEC) ----

func ErrMissingToken() *AppError {
	return New(KindUnauthorized, "SEC_001", "Missing authorization token", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New(KindUnauthorized, "SEC_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New(KindForbidden, "SEC_003", "Access to this resource is forbidden", http.StatusForbidden)
}

func ErrInvalidSignature() *AppError {
	return New(KindUnauthorized, "SEC_004", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New(KindForbidden, "SEC_005", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New(KindForbidden, "SEC_006", "Nonce has already been used", http.StatusForbidden)
}

// ---- Catalog & Bindings (RES, CAT, BND) ----

func ErrNotFound(entity string) *AppError {
	return New(KindNotFound, "RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrDuplicateCode(code string) *AppError {
	return New(KindConflict, "CAT_001", fmt.Sprintf("Provider with code %q already exists", code), http.StatusConflict)
}

func ErrProviderInUse() *AppError {
	return New(KindInUse, "CAT_002", "Provider is referenced by one or more cooperative bindings", http.StatusConflict)
}

func ErrBindingExists() *AppError {
	return New(KindConflict, "BND_001", "Cooperative already has a payment provider configured", http.StatusConflict)
}

// ---- Vault (VLT) ----
// Messages are fixed strings; wrapped causes come from the cipher primitives
// and never include plaintext or key material.

func ErrEncryption(err error) *AppError {
	return Wrap(KindEncryption, "VLT_001", "Credential encryption failed", http.StatusInternalServerError, err)
}

func ErrDecryption(err error) *AppError {
	return Wrap(KindDecryption, "VLT_002", "Credential decryption failed", http.StatusInternalServerError, err)
}

// ---- Validation (VAL) ----

func Validation(message string) *AppError {
	return New(KindValidation, "VAL_001", message, http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(KindRateLimited, "RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
