package action

import (
	"context"
	"fmt"
	"reflect"
)

// Signatures is a list of method signatures.
type Signatures []Signature

// Lookup returns the signature with the given name, or nil.
func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		sig := &s[i]
		if sig.Name == name {
			return sig
		}
	}
	return nil
}

// Signature describes an action method.
type Signature struct {
	Name        string
	Description string
	Input       reflect.Type
	Output      reflect.Type

	// Idempotent marks methods that can be safely re-attempted after a
	// crash mid-execution. Non-idempotent methods with unknown outcome
	// are never re-run.
	Idempotent bool
}

// Executable is a function that can be executed
type Executable func(ctx context.Context, input, output interface{}) error

// Service is an action service interface
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}

func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v not found", name)
}

func NewInvalidInputError(in interface{}) error {
	return fmt.Errorf("invalid input %T", in)
}

func NewInvalidOutputError(out interface{}) error {
	return fmt.Errorf("invalid output %T", out)
}
