package store

import "errors"

// Common, reusable store errors. Using sentinel variables allows callers to
// reliably detect conditions via errors.Is instead of brittle string
// comparisons.

var (
	// ErrNotFound is returned when the document does not exist in the
	// expected stage.
	ErrNotFound = errors.New("store: document not found")

	// ErrDuplicateDocument is returned by Deposit when the id already
	// exists in any stage.
	ErrDuplicateDocument = errors.New("store: duplicate document")

	// ErrInvalidTransition is returned by Move when the target stage is not
	// a legal successor of the source stage.
	ErrInvalidTransition = errors.New("store: invalid stage transition")

	// ErrInvalidID indicates an empty or otherwise invalid identifier.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrNilDocument is returned when the caller attempts to persist nil.
	ErrNilDocument = errors.New("store: nil document")
)
