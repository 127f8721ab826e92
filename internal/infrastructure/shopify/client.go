package shopify

import (
	"context"
	"fmt"

	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// membershipListOptions narrows list calls to one product or collection.
type membershipListOptions struct {
	ProductID    int64 `url:"product_id,omitempty"`
	CollectionID int64 `url:"collection_id,omitempty"`
	Limit        int   `url:"limit,omitempty"`
}

type client struct {
	gs     *goshopify.Client
	logger zerolog.Logger
}

// NewClient creates a commerce-platform adapter for one shop.
func NewClient(shopDomain, apiKey, apiSecret, accessToken string, logger zerolog.Logger) (ports.CommerceClient, error) {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	gs, err := goshopify.NewClient(app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &client{gs: gs, logger: logger}, nil
}

// GetCollectionProducts fetches the current product set of a collection. The
// direct collection-products endpoint is tried first; on failure the collects
// join is used, which yields IDs without titles.
func (c *client) GetCollectionProducts(ctx context.Context, collectionID int64) ([]domain.ProductRef, error) {
	products, err := c.gs.Collection.ListProducts(ctx, uint64(collectionID), membershipListOptions{Limit: 250})
	if err == nil {
		refs := make([]domain.ProductRef, 0, len(products))
		for _, p := range products {
			refs = append(refs, domain.ProductRef{
				ID:     int64(p.Id),
				Title:  p.Title,
				Handle: p.Handle,
			})
		}
		return refs, nil
	}

	c.logger.Debug().
		Err(err).
		Int64("collectionId", collectionID).
		Msg("Direct collection products endpoint failed, falling back to collects")

	collects, cerr := c.gs.Collect.List(ctx, membershipListOptions{CollectionID: collectionID, Limit: 250})
	if cerr != nil {
		return nil, fmt.Errorf("failed to list collection products: %w (collects fallback: %w)", err, cerr)
	}

	refs := make([]domain.ProductRef, 0, len(collects))
	for _, col := range collects {
		refs = append(refs, domain.ProductRef{ID: int64(col.ProductId)})
	}
	return refs, nil
}

// GetProductCollections fetches the collections a product currently belongs
// to, merging custom and smart collections. When the direct listings fail the
// collects join is used, which covers custom collections only.
func (c *client) GetProductCollections(ctx context.Context, productID int64) ([]domain.CollectionRef, error) {
	opts := membershipListOptions{ProductID: productID, Limit: 250}

	custom, customErr := c.gs.CustomCollection.List(ctx, opts)
	smart, smartErr := c.gs.SmartCollection.List(ctx, opts)

	if customErr != nil && smartErr != nil {
		c.logger.Debug().
			AnErr("customErr", customErr).
			AnErr("smartErr", smartErr).
			Int64("productId", productID).
			Msg("Direct collection listings failed, falling back to collects")

		collects, cerr := c.gs.Collect.List(ctx, opts)
		if cerr != nil {
			return nil, fmt.Errorf("failed to list product collections: %w (collects fallback: %w)", customErr, cerr)
		}
		refs := make([]domain.CollectionRef, 0, len(collects))
		for _, col := range collects {
			refs = append(refs, domain.CollectionRef{ID: int64(col.CollectionId)})
		}
		return refs, nil
	}

	var refs []domain.CollectionRef
	if customErr == nil {
		for _, cc := range custom {
			refs = append(refs, domain.CollectionRef{
				ID:     int64(cc.Id),
				Title:  cc.Title,
				Handle: cc.Handle,
			})
		}
	} else {
		c.logger.Warn().Err(customErr).Int64("productId", productID).Msg("Failed to list custom collections")
	}
	if smartErr == nil {
		for _, sc := range smart {
			refs = append(refs, domain.CollectionRef{
				ID:     int64(sc.Id),
				Title:  sc.Title,
				Handle: sc.Handle,
			})
		}
	} else {
		c.logger.Warn().Err(smartErr).Int64("productId", productID).Msg("Failed to list smart collections")
	}

	return refs, nil
}
