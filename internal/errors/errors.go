package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors used across the application. Handlers mark domain
// errors with one of these so the HTTP layer can derive a status code.
var (
	ErrNotFound         = errors.New(ErrCodeNotFound)
	ErrAlreadyExists    = errors.New(ErrCodeAlreadyExists)
	ErrVersionConflict  = errors.New(ErrCodeVersionConflict)
	ErrValidation       = errors.New(ErrCodeValidation)
	ErrInvalidOperation = errors.New(ErrCodeInvalidOperation)
	ErrPermissionDenied = errors.New(ErrCodePermissionDenied)
	ErrRateLimited      = errors.New(ErrCodeRateLimited)
	ErrDatabase         = errors.New(ErrCodeDatabase)
	ErrIntegration      = errors.New(ErrCodeIntegration)
	ErrInternal         = errors.New(ErrCodeInternal)
	ErrSystem           = errors.New(ErrCodeSystemError)

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:         http.StatusNotFound,
		ErrAlreadyExists:    http.StatusConflict,
		ErrVersionConflict:  http.StatusConflict,
		ErrValidation:       http.StatusBadRequest,
		ErrInvalidOperation: http.StatusBadRequest,
		ErrPermissionDenied: http.StatusForbidden,
		ErrRateLimited:      http.StatusTooManyRequests,
		ErrDatabase:         http.StatusInternalServerError,
		ErrIntegration:      http.StatusInternalServerError,
		ErrInternal:         http.StatusInternalServerError,
		ErrSystem:           http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeVersionConflict  = "version_conflict"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeDatabase         = "database_error"
	ErrCodeIntegration      = "integration_error"
	ErrCodeInternal         = "internal_error"
	ErrCodeSystemError      = "system_error"
)

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsIntegration checks if an error is an external integration error
func IsIntegration(err error) bool {
	return errors.Is(err, ErrIntegration)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
