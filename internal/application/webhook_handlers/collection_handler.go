package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/ports"

	"github.com/rs/zerolog"
)

// CollectionHandler syncs collection webhook events into the content store
// and drives membership reconciliation across the affected product documents.
type CollectionHandler struct {
	store    ports.ContentStore
	commerce ports.CommerceClient
	dedup    ports.DedupCache
	window   time.Duration
	logger   zerolog.Logger
}

// NewCollectionHandler creates a collection sync handler.
func NewCollectionHandler(
	store ports.ContentStore,
	commerce ports.CommerceClient,
	dedup ports.DedupCache,
	window time.Duration,
	logger zerolog.Logger,
) *CollectionHandler {
	return &CollectionHandler{
		store:    store,
		commerce: commerce,
		dedup:    dedup,
		window:   window,
		logger:   logger,
	}
}

// CanHandle returns true if this handler can process the given resource type.
func (h *CollectionHandler) CanHandle(resource domain.ResourceType) bool {
	return resource == domain.ResourceCollection
}

// Handle processes one collection webhook delivery.
func (h *CollectionHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) *domain.ProcessingResult {
	var payload domain.CollectionPayload
	if err := json.Unmarshal(delivery.Payload, &payload); err != nil {
		return domain.FailedResult(domain.ResourceCollection, 0, domain.NewValidationError(
			domain.ResourceCollection, 0, "malformed collection payload", map[string]string{
				"deliveryId": delivery.DeliveryID,
				"eventId":    delivery.EventID,
			}))
	}
	if payload.ID == 0 {
		return domain.FailedResult(domain.ResourceCollection, 0, domain.NewValidationError(
			domain.ResourceCollection, 0, "collection payload is missing its upstream ID", map[string]string{
				"title":      payload.Title,
				"deliveryId": delivery.DeliveryID,
				"eventId":    delivery.EventID,
			}))
	}

	if delivery.EventType == domain.EventDelete {
		return h.delete(ctx, payload.ID)
	}

	entityKey := fmt.Sprintf("collection-%d", payload.ID)
	if h.dedup.WasRecentlyProcessed(entityKey, h.window) {
		h.logger.Debug().Int64("collectionId", payload.ID).Msg("Collection synced recently, skipping")
		return domain.SkippedResult(domain.ResourceCollection, payload.ID, "collection synced recently, skipped")
	}
	defer h.dedup.MarkProcessed(entityKey)

	return h.sync(ctx, &payload)
}

// sync handles create and update as one path: an update for a collection the
// store has never seen falls back to create.
func (h *CollectionHandler) sync(ctx context.Context, payload *domain.CollectionPayload) *domain.ProcessingResult {
	docID := domain.CollectionDocID(payload.ID)
	existing, err := h.store.GetCollection(ctx, docID)
	if err != nil {
		return domain.FailedResult(domain.ResourceCollection, payload.ID, domain.NewTransientError(
			domain.ResourceCollection, payload.ID, "failed to look up collection document", err))
	}

	rules := normalizeRules(payload.Rules)
	store := domain.CollectionStore{
		ID:          payload.ID,
		Title:       payload.Title,
		Handle:      payload.Handle,
		Slug:        domain.Slugify(payload.Handle),
		BodyHTML:    payload.BodyHTML,
		Rules:       rules,
		SortOrder:   payload.SortOrder,
		Disjunctive: payload.Disjunctive,
		IsDeleted:   false,
		UpdatedAt:   payload.UpdatedAt,
	}

	now := time.Now()
	tx := h.store.NewTransaction()
	action := domain.ActionUpdated
	if existing == nil {
		action = domain.ActionCreated
		tx.CreateIfAbsent(docID, &domain.CollectionDocument{
			ID:       docID,
			Type:     domain.TypeCollection,
			Store:    store,
			SyncedAt: now,
		})
	} else {
		tx.Patch(docID, map[string]any{
			"store":    store,
			"syncedAt": now,
		})
	}

	reconcile := true
	rulesChanged := existing == nil || !ruleSetsEqual(existing.Store.Rules, rules)
	if existing != nil {
		// Re-linking every member on each metadata edit would be wasteful;
		// reconcile only when the rule set changed or the collection has no
		// linked products yet (self-healing for collections created before
		// any product synced).
		linked, err := h.store.CountCollectionProducts(ctx, docID)
		if err != nil {
			return domain.FailedResult(domain.ResourceCollection, payload.ID, domain.NewTransientError(
				domain.ResourceCollection, payload.ID, "failed to count collection products", err))
		}
		reconcile = rulesChanged || linked == 0
	}

	patched := 0
	if reconcile {
		upstream, err := h.commerce.GetCollectionProducts(ctx, payload.ID)
		if err != nil {
			return domain.FailedResult(domain.ResourceCollection, payload.ID, domain.NewTransientError(
				domain.ResourceCollection, payload.ID, "failed to fetch collection products from upstream", err))
		}
		targetIDs := make([]int64, 0, len(upstream))
		for _, p := range upstream {
			targetIDs = append(targetIDs, p.ID)
		}
		if patched, err = h.reconcileMembership(ctx, tx, payload.ID, targetIDs); err != nil {
			return domain.FailedResult(domain.ResourceCollection, payload.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.FailedResult(domain.ResourceCollection, payload.ID, domain.NewTransientError(
			domain.ResourceCollection, payload.ID, "failed to commit collection sync", err))
	}

	result := domain.SucceededResult(domain.ResourceCollection, payload.ID, action,
		fmt.Sprintf("collection %q synced", payload.Title))
	result.Summary = map[string]any{
		"smart":             len(rules) > 0,
		"rulesChanged":      rulesChanged,
		"reconciled":        reconcile,
		"membershipPatches": patched,
	}
	return result
}

// delete removes the collection from every product still referencing it, then
// soft-deletes the collection document, all in one transaction. A collection
// that never synced is a benign no-op.
func (h *CollectionHandler) delete(ctx context.Context, collectionID int64) *domain.ProcessingResult {
	tx := h.store.NewTransaction()
	patched, err := h.reconcileMembership(ctx, tx, collectionID, nil)
	if err != nil {
		return domain.FailedResult(domain.ResourceCollection, collectionID, err)
	}
	tx.Patch(domain.CollectionDocID(collectionID), map[string]any{
		"store.isDeleted": true,
		"syncedAt":        time.Now(),
	})
	if err := tx.Commit(ctx); err != nil {
		return domain.FailedResult(domain.ResourceCollection, collectionID, domain.NewTransientError(
			domain.ResourceCollection, collectionID, "failed to commit collection delete", err))
	}

	result := domain.SucceededResult(domain.ResourceCollection, collectionID, domain.ActionDeleted,
		"collection soft-deleted and membership cleared")
	result.Summary = map[string]any{"membershipPatches": patched}
	return result
}

// reconcileMembership queues membership patches onto tx so a collection's
// product set matches targetIDs in both representations: the collection
// document reference in collections and the raw upstream ID in
// store.shopifyCollectionIds. Candidates are the union of products that should
// be members and products that currently claim membership in either form, so
// the pass finds both additions and removals. An empty targetIDs strips the
// collection from every product referencing it. Returns the number of patches
// queued; products already consistent are left untouched.
func (h *CollectionHandler) reconcileMembership(ctx context.Context, tx ports.ContentTransaction, collectionID int64, targetIDs []int64) (int, error) {
	docID := domain.CollectionDocID(collectionID)
	candidates, err := h.store.FindMembershipCandidates(ctx, targetIDs, docID, collectionID)
	if err != nil {
		return 0, domain.NewTransientError(
			domain.ResourceCollection, collectionID, "failed to query membership candidates", err)
	}

	target := make(map[int64]bool, len(targetIDs))
	for _, id := range targetIDs {
		target[id] = true
	}

	patched := 0
	for _, product := range candidates {
		shouldHave := target[product.Store.ID]
		hasRef := product.HasCollectionRef(docID)
		hasShopID := product.HasShopifyCollectionID(collectionID)

		switch {
		case shouldHave && hasRef && hasShopID:
			continue
		case !shouldHave && !hasRef && !hasShopID:
			continue
		}

		refs := make([]string, 0, len(product.Collections)+1)
		for _, ref := range product.Collections {
			if ref != docID {
				refs = append(refs, ref)
			}
		}
		ids := make([]int64, 0, len(product.Store.ShopifyCollectionIDs)+1)
		for _, id := range product.Store.ShopifyCollectionIDs {
			if id != collectionID {
				ids = append(ids, id)
			}
		}
		if shouldHave {
			refs = append(refs, docID)
			ids = append(ids, collectionID)
		}

		tx.Patch(product.ID, map[string]any{
			"collections":                refs,
			"store.shopifyCollectionIds": ids,
		})
		patched++
	}

	h.logger.Debug().
		Int64("collectionId", collectionID).
		Int("candidates", len(candidates)).
		Int("patches", patched).
		Msg("Membership reconciliation computed")
	return patched, nil
}

// normalizeRules upper-cases the rule enum strings so stored rule sets compare
// stably regardless of upstream casing.
func normalizeRules(rules []domain.RulePayload) []domain.CollectionRule {
	if len(rules) == 0 {
		return nil
	}
	out := make([]domain.CollectionRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, domain.CollectionRule{
			Column:    strings.ToUpper(strings.TrimSpace(r.Column)),
			Relation:  strings.ToUpper(strings.TrimSpace(r.Relation)),
			Condition: r.Condition,
		})
	}
	return out
}

// ruleSetsEqual compares two rule sets ignoring order.
func ruleSetsEqual(a, b []domain.CollectionRule) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[domain.CollectionRule]int, len(a))
	for _, r := range a {
		counts[r]++
	}
	for _, r := range b {
		counts[r]--
		if counts[r] < 0 {
			return false
		}
	}
	return true
}
