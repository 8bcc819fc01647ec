// Package store defines the document store contract the write path runs
// against.  Backends live in subpackages: memory for tests and local runs,
// mysqlstore for production.
package store

import (
	"context"
	"errors"

	"github.com/iliyamo/cocktail-hub/internal/model"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when inserting a document whose id is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotArray is returned by ArrayPush/ArrayPull on a non-array field.
	ErrNotArray = errors.New("field is not an array")
	// ErrNotNumber is returned by Increment on a non-numeric field.
	ErrNotNumber = errors.New("field is not a number")
)

// Store is the per-entity-type primitive set consumed by the fan-out
// writer and the services.  Every method touches exactly one document.
type Store interface {
	// Find returns the document with the given id or ErrNotFound.
	Find(ctx context.Context, et model.EntityType, id string) (Document, error)
	// Query returns every document whose top-level fields equal all matches.
	Query(ctx context.Context, et model.EntityType, matches ...Match) ([]Document, error)
	// Insert stores doc and returns its id, generating one when doc has none.
	Insert(ctx context.Context, et model.EntityType, doc Document) (string, error)
	// Remove deletes the document or returns ErrNotFound.
	Remove(ctx context.Context, et model.EntityType, id string) error
	// UpdateField sets one top-level field.
	UpdateField(ctx context.Context, et model.EntityType, id, field string, value any) error
	// ArrayPush appends elem to an array field and returns the modified count.
	ArrayPush(ctx context.Context, et model.EntityType, id, field string, elem any) (int, error)
	// ArrayPull removes every element matching m and returns how many were removed.
	ArrayPull(ctx context.Context, et model.EntityType, id, field string, m Match) (int, error)
	// Increment atomically adds delta to a numeric field.
	Increment(ctx context.Context, et model.EntityType, id, field string, delta int64) error
}

// Transactor is implemented by stores that can run several operations as
// one all-or-nothing unit.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error
}

// Match selects array elements or documents.  An empty Field compares the
// whole element with Value; otherwise the element must be an object whose
// Field equals Value.
type Match struct {
	Field string `json:"field,omitempty"`
	Value any    `json:"value"`
	// Last limits an array pull to the final matching element.
	Last bool `json:"last,omitempty"`
}

// Where is shorthand for a field match.
func Where(field string, value any) Match {
	return Match{Field: field, Value: value}
}

// Equal matches array elements equal to value.
func Equal(value any) Match {
	return Match{Value: value}
}

// LastEqual matches only the last array element equal to value.
func LastEqual(value any) Match {
	return Match{Value: value, Last: true}
}
