package domain

import "errors"

// Error taxonomy shared by the store adapters, the accounting engine and the API.
// Callers wrap these with fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrStorage              = errors.New("storage error")
	ErrValidation           = errors.New("validation error")
	ErrConflict             = errors.New("conflict")
	ErrHasDependents        = errors.New("record has dependents")
)
