package webhook_handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront-sync-layer/internal/application"
	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/infrastructure/dedup"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductHandler(store *fakeStore, commerce *fakeCommerce) *ProductHandler {
	logger := zerolog.Nop()
	return NewProductHandler(
		store,
		commerce,
		&fakeImages{},
		application.NewBrandResolver(store, logger),
		dedup.NewCache(100),
		5*time.Minute,
		logger,
	)
}

func productDelivery(event domain.EventType, payload string) *domain.WebhookDelivery {
	return &domain.WebhookDelivery{
		ResourceType: domain.ResourceProduct,
		EventType:    event,
		DeliveryID:   "dlv-1",
		EventID:      "evt-1",
		Payload:      json.RawMessage(payload),
		ReceivedAt:   time.Now(),
	}
}

func TestProductCreateDerivesGenderAndBrand(t *testing.T) {
	store := newFakeStore()
	store.categories["jackets"] = &domain.CategoryDocument{
		ID: "category-jackets", Type: domain.TypeCategory, Title: "Jackets", Slug: "jackets",
	}
	h := newProductHandler(store, &fakeCommerce{})

	result := h.Handle(context.Background(), productDelivery(domain.EventCreate, `{
		"id": 555,
		"title": "Women's Trail Jacket",
		"handle": "womens-trail-jacket",
		"vendor": "Arc'teryx",
		"product_type": "Jackets",
		"tags": "outerwear",
		"images": [{"src": "https://cdn/jacket.jpg", "position": 1}],
		"variants": [{"price": "299.00"}, {"price": "349.00"}]
	}`))

	require.True(t, result.Success, result.Message)
	assert.Equal(t, domain.ActionCreated, result.Action)
	assert.Equal(t, int64(555), result.EntityID)

	doc := store.products["upstreamProduct-555"]
	require.NotNil(t, doc)
	assert.Equal(t, "womens", doc.Gender)
	assert.Equal(t, "category-jackets", doc.Category)
	assert.Equal(t, "asset-https://cdn/jacket.jpg", doc.MainImage)
	assert.Equal(t, 299.00, doc.Store.PriceRange.MinPrice)
	assert.Equal(t, 349.00, doc.Store.PriceRange.MaxPrice)

	// No Arc'teryx brand existed, so one was created and referenced.
	require.Len(t, store.brands, 1)
	assert.Equal(t, "Arc'teryx", store.brands[0].Name)
	assert.Equal(t, store.brands[0].ID, doc.Brand)
	assert.Equal(t, true, result.Summary["brandCreated"])
}

func TestProductUpdateMissingVendorIsPermanentFailure(t *testing.T) {
	store := newFakeStore()
	h := newProductHandler(store, &fakeCommerce{})

	result := h.Handle(context.Background(), productDelivery(domain.EventUpdate,
		`{"id": 556, "title": "Mystery Shirt", "product_type": "Shirts"}`))

	require.False(t, result.Success)
	assert.Equal(t, domain.ErrValidation, result.ErrorKind)
	assert.False(t, result.Retryable)
	assert.Contains(t, result.Message, "vendor")

	// The business context travels with the failure for reprocessing.
	assert.Equal(t, "556", result.Summary["productId"])
	assert.Equal(t, "Mystery Shirt", result.Summary["title"])

	// Nothing was created or patched.
	assert.Empty(t, store.products)
	assert.Zero(t, store.commits)
}

func TestProductUnresolvableCategoryIsPermanentFailure(t *testing.T) {
	store := newFakeStore()
	h := newProductHandler(store, &fakeCommerce{})

	result := h.Handle(context.Background(), productDelivery(domain.EventCreate,
		`{"id": 557, "title": "Hat", "vendor": "Acme", "product_type": "Bucket Hats"}`))

	require.False(t, result.Success)
	assert.Equal(t, domain.ErrValidation, result.ErrorKind)
	assert.False(t, result.Retryable)
	assert.Empty(t, store.products)
}

func TestProductUpdatePreservesMatchingBrand(t *testing.T) {
	store := newFakeStore()
	store.categories["jackets"] = &domain.CategoryDocument{ID: "category-jackets", Slug: "jackets"}
	store.brands = append(store.brands, &domain.BrandDocument{
		ID: "brand-arcteryx", Type: domain.TypeBrand, Name: "Arc'teryx", Slug: "arcteryx",
	})
	store.products["upstreamProduct-555"] = &domain.ProductDocument{
		ID:    "upstreamProduct-555",
		Type:  domain.TypeProduct,
		Store: domain.ProductStore{ID: 555, Title: "Trail Jacket"},
		Brand: "brand-arcteryx",
	}
	h := newProductHandler(store, &fakeCommerce{})

	result := h.Handle(context.Background(), productDelivery(domain.EventUpdate, `{
		"id": 555,
		"title": "Trail Jacket v2",
		"vendor": "ARC'TERYX",
		"product_type": "Jackets"
	}`))

	require.True(t, result.Success, result.Message)
	assert.Equal(t, domain.ActionUpdated, result.Action)
	assert.Equal(t, "brand-arcteryx", store.products["upstreamProduct-555"].Brand)
	assert.Len(t, store.brands, 1)
	assert.Equal(t, false, result.Summary["brandCreated"])
}

func TestProductDeleteSoftDeletes(t *testing.T) {
	store := newFakeStore()
	store.products["upstreamProduct-555"] = &domain.ProductDocument{
		ID:    "upstreamProduct-555",
		Store: domain.ProductStore{ID: 555},
	}
	h := newProductHandler(store, &fakeCommerce{})

	result := h.Handle(context.Background(), productDelivery(domain.EventDelete, `{"id": 555}`))

	require.True(t, result.Success)
	assert.Equal(t, domain.ActionDeleted, result.Action)
	assert.True(t, store.products["upstreamProduct-555"].Store.IsDeleted)
}

func TestProductDeleteForUnknownProductIsBenign(t *testing.T) {
	store := newFakeStore()
	h := newProductHandler(store, &fakeCommerce{})

	result := h.Handle(context.Background(), productDelivery(domain.EventDelete, `{"id": 999}`))

	require.True(t, result.Success)
	assert.Equal(t, domain.ActionDeleted, result.Action)
	assert.Empty(t, store.products)
}

func TestProductSyncRateLimitedWithinWindow(t *testing.T) {
	store := newFakeStore()
	store.categories["jackets"] = &domain.CategoryDocument{ID: "category-jackets", Slug: "jackets"}
	h := newProductHandler(store, &fakeCommerce{})

	payload := `{
		"id": 555, "title": "Trail Jacket", "vendor": "Acme", "product_type": "Jackets",
		"images": [{"src": "https://cdn/a.jpg"}]
	}`
	first := h.Handle(context.Background(), productDelivery(domain.EventCreate, payload))
	require.True(t, first.Success, first.Message)
	commits := store.commits

	second := h.Handle(context.Background(), productDelivery(domain.EventUpdate, payload))
	require.True(t, second.Success)
	assert.Equal(t, domain.ActionSkipped, second.Action)
	assert.Equal(t, commits, store.commits)
}

func TestProductFailedAttemptStillRateLimited(t *testing.T) {
	store := newFakeStore()
	h := newProductHandler(store, &fakeCommerce{})

	// Missing vendor fails validation; the entity is marked anyway so the
	// broken payload cannot storm within the window.
	broken := `{"id": 558, "title": "Broken", "product_type": "Jackets"}`
	first := h.Handle(context.Background(), productDelivery(domain.EventUpdate, broken))
	require.False(t, first.Success)

	second := h.Handle(context.Background(), productDelivery(domain.EventUpdate, broken))
	require.True(t, second.Success)
	assert.Equal(t, domain.ActionSkipped, second.Action)
}

func TestProductCollectionsResolvedFromUpstream(t *testing.T) {
	store := newFakeStore()
	store.categories["jackets"] = &domain.CategoryDocument{ID: "category-jackets", Slug: "jackets"}
	store.collections["upstreamCollection-900"] = &domain.CollectionDocument{
		ID: "upstreamCollection-900", Store: domain.CollectionStore{ID: 900},
	}
	commerce := &fakeCommerce{productCollections: map[int64][]domain.CollectionRef{
		// 901 has no content-store document yet; only its raw ID is kept.
		555: {{ID: 900, Title: "Sale"}, {ID: 901, Title: "New"}},
	}}
	h := newProductHandler(store, commerce)

	result := h.Handle(context.Background(), productDelivery(domain.EventCreate, `{
		"id": 555, "title": "Trail Jacket", "vendor": "Acme", "product_type": "Jackets",
		"images": [{"src": "https://cdn/a.jpg"}]
	}`))

	require.True(t, result.Success, result.Message)
	doc := store.products["upstreamProduct-555"]
	require.NotNil(t, doc)
	assert.Equal(t, []string{"upstreamCollection-900"}, doc.Collections)
	assert.Equal(t, []int64{900, 901}, doc.Store.ShopifyCollectionIDs)
}

func TestProductCreateWithoutImageIsPermanentFailure(t *testing.T) {
	store := newFakeStore()
	store.categories["jackets"] = &domain.CategoryDocument{ID: "category-jackets", Slug: "jackets"}
	h := newProductHandler(store, &fakeCommerce{})

	result := h.Handle(context.Background(), productDelivery(domain.EventCreate,
		`{"id": 559, "title": "Trail Jacket", "vendor": "Acme", "product_type": "Jackets"}`))

	require.False(t, result.Success)
	assert.Equal(t, domain.ErrValidation, result.ErrorKind)
	assert.Empty(t, store.products)
}

func TestDeriveGender(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		tags        []string
		productType string
		want        string
	}{
		{"womens in title", "Women's Trail Jacket", nil, "Jackets", "womens"},
		{"mens in title", "Men's Oxford Shirt", nil, "Shirts", "mens"},
		{"men does not match inside women", "Women Runner", nil, "", "womens"},
		{"title wins over tags", "Ladies Parka", []string{"mens"}, "", "womens"},
		{"tags win over product type", "Parka", []string{"male"}, "Women's Outerwear", "mens"},
		{"product type fallback", "Parka", []string{"outerwear"}, "Womens Outerwear", "womens"},
		{"no keywords defaults to unisex", "Trail Jacket", []string{"outerwear"}, "Jackets", "unisex"},
		{"keyword must be a whole token", "Mental Health Tee", nil, "", "unisex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveGender(tt.title, tt.tags, tt.productType))
		})
	}
}
