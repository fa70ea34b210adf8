package database

import "context"

// ReferenceReader loads the current reference set.
type ReferenceReader interface {
	// LoadReferences returns the latest reference set, or ErrNoReferences
	LoadReferences(ctx context.Context) (*ReferenceSet, error)
}

// ReferenceWriter stores a reference set, replacing the current one.
type ReferenceWriter interface {
	SaveReferences(ctx context.Context, set *ReferenceSet) error
}

// ReferenceStore is a readable and writable reference store.
type ReferenceStore interface {
	ReferenceReader
	ReferenceWriter
}
