package ports

import (
	"context"

	"storefront-sync-layer/internal/domain"
)

// ContentStore is the document-store boundary of the sync engine. Lookups
// return (nil, nil) when no document exists. All mutations go through
// transactions so one sync pass commits atomically.
type ContentStore interface {
	GetProduct(ctx context.Context, docID string) (*domain.ProductDocument, error)
	GetCollection(ctx context.Context, docID string) (*domain.CollectionDocument, error)
	GetBrand(ctx context.Context, docID string) (*domain.BrandDocument, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.CategoryDocument, error)

	// ListBrands returns every brand document; the brand resolver matches
	// against the full set in memory.
	ListBrands(ctx context.Context) ([]*domain.BrandDocument, error)

	// FindMembershipCandidates returns every product document that either has
	// an upstream ID in upstreamIDs, or references the collection via its
	// document ID or raw upstream ID. The union finds both products that
	// should gain membership and products that should lose it.
	FindMembershipCandidates(ctx context.Context, upstreamIDs []int64, collectionDocID string, collectionID int64) ([]*domain.ProductDocument, error)

	// CountCollectionProducts counts the products currently referencing a
	// collection document.
	CountCollectionProducts(ctx context.Context, collectionDocID string) (int64, error)

	// NewTransaction opens a queue of mutations committed atomically.
	NewTransaction() ContentTransaction
}

// ContentTransaction queues document mutations. Nothing is written until
// Commit, and a commit applies everything or nothing.
type ContentTransaction interface {
	// CreateIfAbsent queues a create that is a no-op when a document with the
	// same ID already exists.
	CreateIfAbsent(docID string, doc any)

	// Patch queues a partial update. Keys may use dotted paths to address
	// nested fields.
	Patch(docID string, set map[string]any)

	// Len reports the number of queued mutations.
	Len() int

	Commit(ctx context.Context) error
}
