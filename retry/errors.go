package retry

import (
	"errors"
	"fmt"
)

// Class is the failure classification consumed by the policy.
type Class string

const (
	// ClassTransient covers network timeouts, rate limits and lock
	// contention: retry with backoff.
	ClassTransient Class = "transient"

	// ClassPermanent covers validation errors and malformed payloads:
	// never retry, surface immediately.
	ClassPermanent Class = "permanent"
)

type classifiedError struct {
	class Class
	err   error
}

func (e *classifiedError) Error() string { return fmt.Sprintf("%s: %v", e.class, e.err) }
func (e *classifiedError) Unwrap() error { return e.err }

// Transient wraps err marking it retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: ClassTransient, err: err}
}

// Permanent wraps err marking it non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: ClassPermanent, err: err}
}

// Classify returns the class recorded on err. Unclassified errors default
// to transient so that unanticipated collaborator failures get the benefit
// of backoff instead of failing a plan outright.
func Classify(err error) Class {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.class
	}
	return ClassTransient
}

// IsPermanent reports whether err was marked permanent.
func IsPermanent(err error) bool {
	return err != nil && Classify(err) == ClassPermanent
}
