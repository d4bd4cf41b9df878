package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind groups lending errors by how a caller should react to them.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindPolicyViolation
)

// LendingError is returned when a workflow refuses a request. Two lending
// errors match under errors.Is when their reasons are equal, so a limit
// error carrying the actual limit in its message still matches
// ErrLoanLimitExceeded.
type LendingError struct {
	Kind    ErrorKind
	Reason  string
	Message string
}

func (e *LendingError) Error() string {
	return e.Message
}

func (e *LendingError) Is(target error) bool {
	t, ok := target.(*LendingError)
	return ok && t.Reason == e.Reason
}

func notFound(reason, message string) *LendingError {
	return &LendingError{Kind: KindNotFound, Reason: reason, Message: message}
}

func policyViolation(reason, message string) *LendingError {
	return &LendingError{Kind: KindPolicyViolation, Reason: reason, Message: message}
}

var (
	ErrUserNotFound        = notFound("user_not_found", "user not found")
	ErrBookNotFound        = notFound("book_not_found", "book not found")
	ErrLoanNotFound        = notFound("loan_not_found", "loan not found")
	ErrReservationNotFound = notFound("reservation_not_found", "reservation not found")

	ErrUserIneligible       = policyViolation("user_ineligible", "user cannot borrow books")
	ErrBookUnavailable      = policyViolation("book_unavailable", "book is not available")
	ErrPremiumRequired      = policyViolation("premium_required", "this book requires a premium membership")
	ErrLoanLimitExceeded    = policyViolation("loan_limit_exceeded", "loan limit reached")
	ErrBookAlreadyAvailable = policyViolation("book_already_available", "book is available and can be borrowed directly")
	ErrBookNotReservable    = policyViolation("book_not_reservable", "book cannot be reserved")
	ErrDuplicateReservation = policyViolation("duplicate_reservation", "user already holds an active reservation for this book")
	ErrLoanNotActive        = policyViolation("loan_not_active", "loan is not active")
	ErrLoanNotRenewable     = policyViolation("loan_not_renewable", "loan cannot be renewed")
	ErrReservationNotActive = policyViolation("reservation_not_active", "reservation is no longer active")
	ErrNotDigital           = policyViolation("not_digital", "book has no digital edition")
	ErrContentMissing       = policyViolation("content_missing", "digital content has not been uploaded yet")
)

func loanLimitExceeded(limit int) error {
	return policyViolation(ErrLoanLimitExceeded.Reason, fmt.Sprintf("loan limit reached (%d active loans)", limit))
}

var (
	ErrFailedValidation     = errors.New("failed validation")
	ErrEditConflict         = errors.New("edit conflict")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrContentUnavailable   = errors.New("content store not configured")
)

// ValidationError carries the field errors collected by a validator.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%q %s", k, e.Errors[k]))
	}
	return strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrFailedValidation
}

// failedValidation wraps a validation error map.
func failedValidation(errorMap map[string]string) error {
	return &ValidationError{Errors: errorMap}
}
