package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Document ID derivation. The mapping from upstream numeric ID to document ID
// must be a bijection per resource type and computable without any lookup;
// that is what makes upsert-by-ID possible without a pre-query.

const (
	productDocPrefix    = "upstreamProduct-"
	collectionDocPrefix = "upstreamCollection-"
)

// ProductDocID derives the content-store document ID for an upstream product.
func ProductDocID(upstreamID int64) string {
	return productDocPrefix + strconv.FormatInt(upstreamID, 10)
}

// CollectionDocID derives the content-store document ID for an upstream
// collection.
func CollectionDocID(upstreamID int64) string {
	return collectionDocPrefix + strconv.FormatInt(upstreamID, 10)
}

// BrandDocID derives a brand document ID from its slug.
func BrandDocID(slug string) string {
	return "brand-" + slug
}

// GlobalID builds a round-trippable global identifier embedding the resource
// type, in the upstream platform's gid form. An unknown resource type yields
// an empty string rather than masquerading as a product gid.
func GlobalID(resource ResourceType, upstreamID int64) string {
	switch resource {
	case ResourceProduct:
		return fmt.Sprintf("gid://shopify/Product/%d", upstreamID)
	case ResourceCollection:
		return fmt.Sprintf("gid://shopify/Collection/%d", upstreamID)
	default:
		return ""
	}
}

// ExtractUpstreamID recovers the upstream numeric ID from a global ID or a
// derived document ID.
func ExtractUpstreamID(id string) (int64, error) {
	idx := strings.LastIndexAny(id, "/-")
	if idx < 0 || idx == len(id)-1 {
		return 0, fmt.Errorf("identifier %q carries no upstream ID", id)
	}
	n, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identifier %q carries no upstream ID: %w", id, err)
	}
	return n, nil
}

// Slugify lowercases a name and collapses whitespace runs into hyphens,
// producing a URL-safe slug.
func Slugify(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	return strings.Join(fields, "-")
}
