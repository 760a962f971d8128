// Package store is the boundary to the managed document database and object
// store. Orchestrators only see the interfaces declared here.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Update when the target document does not exist.
var ErrNotFound = errors.New("store: document not found")

// MaxInValues is the largest value list a WhereIn predicate may carry.
const MaxInValues = 30

// Client is a handle on the document database.
type Client interface {
	Collection(name string) Collection
	Batch() Batch
}

// Query is an immutable query builder. Each method returns a new Query.
type Query interface {
	WhereEqualTo(field string, value any) Query
	WhereIn(field string, values []any) Query
	OrderBy(field string) Query
	Limit(n int) Query
	Get(ctx context.Context) (*QuerySnapshot, error)
}

// Collection is a named group of documents. The collection itself is the
// unfiltered query over its documents.
type Collection interface {
	Query
	Document(id string) Document
	Add(ctx context.Context, data map[string]any) (Document, error)
}

// Document references a single document, existing or not.
type Document interface {
	ID() string
	Path() string
	// Get returns a snapshot with Exists false when the document is missing.
	Get(ctx context.Context) (*DocumentSnapshot, error)
	Set(ctx context.Context, data map[string]any) error
	Update(ctx context.Context, fields ...Update) error
	Delete(ctx context.Context) error
	Collection(name string) Collection
}

// Batch stages writes and applies them together on Commit.
type Batch interface {
	Set(doc Document, data map[string]any) Batch
	Update(doc Document, fields ...Update) Batch
	Delete(doc Document) Batch
	Commit(ctx context.Context) error
}

// Update is a single top-level field write. Value may be a field transform.
type Update struct {
	Field string
	Value any
}

// DocumentSnapshot is the state of a document at read time.
type DocumentSnapshot struct {
	Ref    Document
	ID     string
	Exists bool
	Data   map[string]any
}

// QuerySnapshot holds the documents matched by a query.
type QuerySnapshot struct {
	Documents []*DocumentSnapshot
}

// Empty reports whether the query matched nothing.
func (s *QuerySnapshot) Empty() bool {
	return s == nil || len(s.Documents) == 0
}

// Size is the number of matched documents.
func (s *QuerySnapshot) Size() int {
	if s == nil {
		return 0
	}
	return len(s.Documents)
}

type arrayUnion struct{ values []any }

type arrayRemove struct{ values []any }

type serverTimestamp struct{}

// ArrayUnion adds each value to an array field unless an equal element is
// already present.
func ArrayUnion(values ...any) any {
	return arrayUnion{values: values}
}

// ArrayRemove removes every element equal to one of values from an array field.
func ArrayRemove(values ...any) any {
	return arrayRemove{values: values}
}

// ServerTimestamp is replaced with the commit time by the store.
var ServerTimestamp any = serverTimestamp{}
