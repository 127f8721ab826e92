package ports

import (
	"context"

	"storefront-sync-layer/internal/domain"
)

// CommerceClient queries the upstream commerce platform for current state.
// Membership lookups must tolerate the upstream API exposing collection
// membership either via a direct endpoint or via the secondary collects join;
// implementations try the direct form first and fall back transparently.
type CommerceClient interface {
	// GetCollectionProducts returns the products currently in a collection.
	GetCollectionProducts(ctx context.Context, collectionID int64) ([]domain.ProductRef, error)

	// GetProductCollections returns the collections a product currently
	// belongs to.
	GetProductCollections(ctx context.Context, productID int64) ([]domain.CollectionRef, error)
}
