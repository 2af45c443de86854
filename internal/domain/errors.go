package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores and
// services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Validation errors
var (
	ErrValidation      = errors.New("validation error")
	ErrInvalidScale    = errors.New("raw value outside declared scale domain")
	ErrInvalidProgress = errors.New("invalid progress update")
)

// Access errors
var (
	ErrAccessDenied = errors.New("access denied")
)

// Lookup errors
var (
	ErrProfileNotFound    = errors.New("wellbeing profile not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAlertNotFound      = errors.New("alert not found")
	ErrPlanNotFound       = errors.New("intervention plan not found")
	ErrActionNotFound     = errors.New("intervention action not found")
)

// Concurrency errors
var (
	// ErrConcurrencyConflict signals that two assessments for the same
	// profile raced; the loser must retry against the current history.
	ErrConcurrencyConflict = errors.New("concurrent profile modification")
)

// Catalog errors
var (
	ErrIndicatorNotFound = errors.New("indicator not found")
	ErrInvalidCatalog    = errors.New("invalid indicator catalog")
)

// General errors
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
