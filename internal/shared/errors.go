package shared

import "errors"

var (
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnbalanced indicates journal lines of a currency do not net to zero.
	ErrUnbalanced = errors.New("journal lines must balance")
	// ErrMappingNotFound indicates a required account mapping is absent.
	ErrMappingNotFound = errors.New("account mapping not found")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a lost status transition or concurrent update.
	ErrConflict = errors.New("state transition conflict")
)
