package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"storefront-sync-layer/internal/application"
	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Gendered keyword sets scanned over title, tags and product type, in that
// priority order. Matching is token-based so "men" never matches inside
// "women".
var (
	womensKeywords = map[string]bool{"women": true, "womens": true, "woman": true, "female": true, "ladies": true}
	mensKeywords   = map[string]bool{"men": true, "mens": true, "man": true, "male": true, "gents": true}
)

// ProductHandler syncs product webhook events into the content store:
// create/update builds or patches the product document, delete flips the
// soft-delete flag.
type ProductHandler struct {
	store    ports.ContentStore
	commerce ports.CommerceClient
	images   ports.ImageStore
	brands   *application.BrandResolver
	dedup    ports.DedupCache
	window   time.Duration
	logger   zerolog.Logger
}

// NewProductHandler creates a product sync handler. window is the entity-level
// rate-limit window applied between syncs of the same product.
func NewProductHandler(
	store ports.ContentStore,
	commerce ports.CommerceClient,
	images ports.ImageStore,
	brands *application.BrandResolver,
	dedup ports.DedupCache,
	window time.Duration,
	logger zerolog.Logger,
) *ProductHandler {
	return &ProductHandler{
		store:    store,
		commerce: commerce,
		images:   images,
		brands:   brands,
		dedup:    dedup,
		window:   window,
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given resource type.
func (h *ProductHandler) CanHandle(resource domain.ResourceType) bool {
	return resource == domain.ResourceProduct
}

// Handle processes one product webhook delivery.
func (h *ProductHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) *domain.ProcessingResult {
	var payload domain.ProductPayload
	if err := json.Unmarshal(delivery.Payload, &payload); err != nil {
		return domain.FailedResult(domain.ResourceProduct, 0, domain.NewValidationError(
			domain.ResourceProduct, 0, "malformed product payload", map[string]string{
				"deliveryId": delivery.DeliveryID,
				"eventId":    delivery.EventID,
			}))
	}
	if payload.ID == 0 {
		return domain.FailedResult(domain.ResourceProduct, 0, domain.NewValidationError(
			domain.ResourceProduct, 0, "product payload is missing its upstream ID", map[string]string{
				"title":      payload.Title,
				"deliveryId": delivery.DeliveryID,
				"eventId":    delivery.EventID,
			}))
	}

	if delivery.EventType == domain.EventDelete {
		return h.softDelete(ctx, payload.ID)
	}

	entityKey := fmt.Sprintf("product-%d", payload.ID)
	if h.dedup.WasRecentlyProcessed(entityKey, h.window) {
		h.logger.Debug().Int64("productId", payload.ID).Msg("Product synced recently, skipping")
		return domain.SkippedResult(domain.ResourceProduct, payload.ID, "product synced recently, skipped")
	}
	// Marked after the attempt regardless of outcome, so a permanently broken
	// payload cannot cause a retry storm within the window.
	defer h.dedup.MarkProcessed(entityKey)

	return h.sync(ctx, delivery, &payload)
}

func (h *ProductHandler) sync(ctx context.Context, delivery *domain.WebhookDelivery, payload *domain.ProductPayload) *domain.ProcessingResult {
	failCtx := map[string]string{
		"productId":   strconv.FormatInt(payload.ID, 10),
		"title":       payload.Title,
		"vendor":      payload.Vendor,
		"productType": payload.ProductType,
		"tags":        payload.Tags,
		"deliveryId":  delivery.DeliveryID,
		"eventId":     delivery.EventID,
	}

	if strings.TrimSpace(payload.Vendor) == "" {
		return domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewValidationError(
			domain.ResourceProduct, payload.ID, "product has no vendor", failCtx))
	}

	category, result := h.resolveCategory(ctx, payload, failCtx)
	if result != nil {
		return result
	}

	gender := deriveGender(payload.Title, payload.TagList(), payload.ProductType)

	collectionRefs, collectionIDs, err := h.resolveCollections(ctx, payload.ID)
	if err != nil {
		return domain.FailedResult(domain.ResourceProduct, payload.ID, err)
	}

	processed, err := h.images.ProcessImages(ctx, payload.Images)
	if err != nil {
		return domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewTransientError(
			domain.ResourceProduct, payload.ID, "failed to process product images", err))
	}

	docID := domain.ProductDocID(payload.ID)
	existing, err := h.store.GetProduct(ctx, docID)
	if err != nil {
		return domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewTransientError(
			domain.ResourceProduct, payload.ID, "failed to look up product document", err))
	}

	brandID, brandCreated, err := h.resolveBrand(ctx, existing, payload.Vendor)
	if err != nil {
		return domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewTransientError(
			domain.ResourceProduct, payload.ID, "failed to resolve brand", err))
	}

	if existing == nil && processed.MainImage == "" {
		return domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewValidationError(
			domain.ResourceProduct, payload.ID, "product has no usable main image", failCtx))
	}

	store := domain.ProductStore{
		ID:                   payload.ID,
		Title:                payload.Title,
		Handle:               payload.Handle,
		Vendor:               payload.Vendor,
		ProductType:          payload.ProductType,
		Tags:                 payload.TagList(),
		BodyHTML:             payload.BodyHTML,
		PriceRange:           priceRangeFromVariants(payload.Variants),
		ShopifyCollectionIDs: collectionIDs,
		IsDeleted:            false,
		CreatedAt:            payload.CreatedAt,
		UpdatedAt:            payload.UpdatedAt,
	}

	now := time.Now()
	tx := h.store.NewTransaction()
	action := domain.ActionUpdated
	if existing == nil {
		action = domain.ActionCreated
		tx.CreateIfAbsent(docID, &domain.ProductDocument{
			ID:          docID,
			Type:        domain.TypeProduct,
			Store:       store,
			Gender:      gender,
			Category:    category.ID,
			Brand:       brandID,
			MainImage:   processed.MainImage,
			Gallery:     processed.Gallery,
			Collections: collectionRefs,
			SyncedAt:    now,
		})
	} else {
		set := map[string]any{
			"store":       store,
			"gender":      gender,
			"category":    category.ID,
			"brand":       brandID,
			"collections": collectionRefs,
			"syncedAt":    now,
		}
		if processed.MainImage != "" {
			set["mainImage"] = processed.MainImage
			set["gallery"] = processed.Gallery
		}
		tx.Patch(docID, set)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewTransientError(
			domain.ResourceProduct, payload.ID, "failed to commit product sync", err))
	}

	result = domain.SucceededResult(domain.ResourceProduct, payload.ID, action,
		fmt.Sprintf("product %q synced", payload.Title))
	result.Summary = map[string]any{
		"gender":       gender,
		"category":     category.Slug,
		"brand":        brandID,
		"brandCreated": brandCreated,
		"collections":  len(collectionIDs),
		"images":       len(payload.Images),
	}
	return result
}

// resolveCategory slugifies the upstream product type and resolves it to an
// existing category document. Categories are curated taxonomy and are never
// auto-created; an unresolvable category is a hard validation failure.
func (h *ProductHandler) resolveCategory(ctx context.Context, payload *domain.ProductPayload, failCtx map[string]string) (*domain.CategoryDocument, *domain.ProcessingResult) {
	if strings.TrimSpace(payload.ProductType) == "" {
		return nil, domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewValidationError(
			domain.ResourceProduct, payload.ID, "product has no product type to derive a category from", failCtx))
	}

	slug := domain.Slugify(payload.ProductType)
	category, err := h.store.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewTransientError(
			domain.ResourceProduct, payload.ID, "failed to look up category", err))
	}
	if category == nil {
		return nil, domain.FailedResult(domain.ResourceProduct, payload.ID, domain.NewValidationError(
			domain.ResourceProduct, payload.ID,
			fmt.Sprintf("no category exists for product type %q (slug %q)", payload.ProductType, slug), failCtx))
	}
	return category, nil
}

// resolveCollections fetches the product's current collections from upstream
// and maps them to content-store references. Raw upstream IDs are always kept;
// document references only for collections that already exist in the store.
func (h *ProductHandler) resolveCollections(ctx context.Context, productID int64) ([]string, []int64, error) {
	upstream, err := h.commerce.GetProductCollections(ctx, productID)
	if err != nil {
		return nil, nil, domain.NewTransientError(
			domain.ResourceProduct, productID, "failed to fetch product collections from upstream", err)
	}

	refs := make([]string, 0, len(upstream))
	ids := make([]int64, 0, len(upstream))
	for _, c := range upstream {
		ids = append(ids, c.ID)
		docID := domain.CollectionDocID(c.ID)
		existing, err := h.store.GetCollection(ctx, docID)
		if err != nil {
			return nil, nil, domain.NewTransientError(
				domain.ResourceProduct, productID, "failed to look up collection document", err)
		}
		if existing != nil {
			refs = append(refs, docID)
		}
	}
	return refs, ids, nil
}

// resolveBrand returns the brand document ID for the product. On update an
// existing brand reference is preserved when its name still matches the
// vendor, so manual curation is not overwritten by upstream's messier string.
func (h *ProductHandler) resolveBrand(ctx context.Context, existing *domain.ProductDocument, vendor string) (string, bool, error) {
	if existing != nil && existing.Brand != "" {
		current, err := h.store.GetBrand(ctx, existing.Brand)
		if err != nil {
			return "", false, err
		}
		if current != nil && h.brands.NamesMatch(current.Name, vendor) {
			return existing.Brand, false, nil
		}
	}

	brand, created, err := h.brands.FindOrCreate(ctx, vendor)
	if err != nil {
		return "", false, err
	}
	return brand.ID, created, nil
}

// softDelete flips the deletion flag. Patching a document that never synced is
// a benign upstream-side race and reported as success.
func (h *ProductHandler) softDelete(ctx context.Context, productID int64) *domain.ProcessingResult {
	tx := h.store.NewTransaction()
	tx.Patch(domain.ProductDocID(productID), map[string]any{
		"store.isDeleted": true,
		"syncedAt":        time.Now(),
	})
	if err := tx.Commit(ctx); err != nil {
		return domain.FailedResult(domain.ResourceProduct, productID, domain.NewTransientError(
			domain.ResourceProduct, productID, "failed to soft-delete product", err))
	}
	return domain.SucceededResult(domain.ResourceProduct, productID, domain.ActionDeleted, "product soft-deleted")
}

// deriveGender scans title, then tags, then product type for gendered
// keywords; the first source with a hit wins. Defaults to unisex.
func deriveGender(title string, tags []string, productType string) string {
	sources := make([]string, 0, len(tags)+2)
	sources = append(sources, title)
	sources = append(sources, tags...)
	sources = append(sources, productType)

	for _, source := range sources {
		for _, token := range tokenize(source) {
			if womensKeywords[token] {
				return "womens"
			}
			if mensKeywords[token] {
				return "mens"
			}
		}
	}
	return "unisex"
}

// tokenize lowercases and splits on every non-alphanumeric rune.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func priceRangeFromVariants(variants []domain.VariantPayload) domain.PriceRange {
	var pr domain.PriceRange
	first := true
	for _, v := range variants {
		price, err := strconv.ParseFloat(strings.TrimSpace(v.Price), 64)
		if err != nil {
			continue
		}
		if first {
			pr.MinPrice, pr.MaxPrice = price, price
			first = false
			continue
		}
		if price < pr.MinPrice {
			pr.MinPrice = price
		}
		if price > pr.MaxPrice {
			pr.MaxPrice = price
		}
	}
	return pr
}
