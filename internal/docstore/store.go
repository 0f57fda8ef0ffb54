// Package docstore defines the document store contract the order core is built on:
// collections of schemaless documents, CRUD by id and a change subscription that
// delivers the whole collection on every change.
package docstore

import (
	"context"
	"errors"
)

// Collections used by the POS
const (
	CollectionOrders = "orders"
	CollectionPizzas = "pizzas"
	CollectionDrinks = "drinks"
)

var ErrNotFound = errors.New("document not found")

// Document is a stored record. Data holds JSON-compatible values.
type Document struct {
	ID   string
	Data map[string]any
}

// ChangeFunc receives the full contents of a collection after every change.
type ChangeFunc func(docs []Document)

// Store is the remote document store. Implementations must deliver an initial
// snapshot from Subscribe and then the content after committed changes, never
// older than a snapshot already delivered. Changes close together may arrive
// as one snapshot. A ChangeFunc may write to the store.
type Store interface {
	Subscribe(ctx context.Context, collection string, onChange ChangeFunc) (unsubscribe func(), err error)
	AddDocument(ctx context.Context, collection string, data map[string]any) (string, error)
	// UpdateDocument merges patch into the top-level fields of the document.
	UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error
	DeleteDocument(ctx context.Context, collection, id string) error
	ListDocuments(ctx context.Context, collection string) ([]Document, error)
}
