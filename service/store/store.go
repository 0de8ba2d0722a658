package store

import (
	"context"

	"github.com/viant/conveyor/model/document"
)

// Service is the durable document store. Stages are named partitions; every
// operation is atomic at single-document granularity so no partial move is
// ever observable. Move doubles as the claim primitive: a failed move means
// another actor already owns the document.
type Service interface {
	// Deposit stores a new document in its current stage. It fails with
	// ErrDuplicateDocument when the id already exists in any stage, making
	// producer redelivery idempotent.
	Deposit(ctx context.Context, doc *document.Document) error

	// List returns the ids currently occupying a stage, ordered by creation
	// time with the id as tie-break.
	List(ctx context.Context, stage document.Stage) ([]string, error)

	// Move relocates a document between stages. It fails with ErrNotFound
	// when the document is not in from, and with ErrInvalidTransition when
	// to is not a legal successor of from.
	Move(ctx context.Context, id string, from, to document.Stage) error

	// Read returns a copy of the document.
	Read(ctx context.Context, id string) (*document.Document, error)

	// Write overwrites the document in place within its current stage; used
	// to persist plan and step progress.
	Write(ctx context.Context, doc *document.Document) error
}
