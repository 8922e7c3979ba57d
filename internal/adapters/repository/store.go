// Package repository stores catalog documents and keeps ranked listings.
package repository

import (
	"context"

	"github.com/okian/endurank/internal/domain/model"
)

// Store provides document access to the catalog, keyed by kind and id.
type Store interface {
	// Get returns one item. Returns ErrNotFound if absent.
	Get(ctx context.Context, kind model.Kind, id string) (model.Item, error)
	// Put creates or replaces an item.
	Put(ctx context.Context, item model.Item) error
	// Update reads one item, applies fn and writes it back atomically. An
	// error from fn aborts the write and is returned as is.
	Update(ctx context.Context, kind model.Kind, id string, fn func(model.Item) error) (model.Item, error)

	// FindByField returns items whose field equals value. Dotted names
	// address nested fields, e.g. "location.city".
	FindByField(ctx context.Context, kind model.Kind, field string, value any) ([]model.Item, error)
	// FindByFields returns items matching every field/value pair.
	FindByFields(ctx context.Context, kind model.Kind, fields map[string]any) ([]model.Item, error)
	// ListAll returns every item of kind ordered by id.
	ListAll(ctx context.Context, kind model.Kind) ([]model.Item, error)
	// Count returns the number of items of kind.
	Count(ctx context.Context, kind model.Kind) (int, error)

	Close() error
}
