package application

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BrandResolver finds or creates the canonical brand entity for a free-text
// vendor string. Vendor strings are typed by merchandising staff upstream and
// are not stable, so matching runs five ordered steps, each strictly more
// permissive than the last: precision is preferred over recall, and the step
// order is load-bearing.
type BrandResolver struct {
	store  ports.ContentStore
	logger zerolog.Logger
}

// NewBrandResolver creates a brand resolver.
func NewBrandResolver(store ports.ContentStore, logger zerolog.Logger) *BrandResolver {
	return &BrandResolver{
		store:  store,
		logger: logger,
	}
}

// FindByVendor searches existing brands for a match against the vendor
// string. Matching steps, first hit wins:
//  1. exact byte-for-byte name match
//  2. case-insensitive exact match
//  3. normalized match (lowercase, accents/apostrophes/hyphens/punctuation
//     stripped, whitespace collapsed)
//  4. partial containment on the lowercase strings
//  5. partial containment on the normalized strings
func (r *BrandResolver) FindByVendor(ctx context.Context, vendor string) (*domain.BrandDocument, bool, error) {
	brands, err := r.store.ListBrands(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list brands: %w", err)
	}

	steps := []func(existing, vendor string) bool{
		func(existing, vendor string) bool { return existing == vendor },
		strings.EqualFold,
		func(existing, vendor string) bool {
			return NormalizeBrandName(existing) == NormalizeBrandName(vendor)
		},
		func(existing, vendor string) bool {
			return containsEither(strings.ToLower(existing), strings.ToLower(vendor))
		},
		func(existing, vendor string) bool {
			return containsEither(NormalizeBrandName(existing), NormalizeBrandName(vendor))
		},
	}

	for step, match := range steps {
		for _, brand := range brands {
			if match(brand.Name, vendor) {
				r.logger.Debug().
					Str("vendor", vendor).
					Str("brand", brand.Name).
					Int("matchStep", step+1).
					Msg("Matched vendor to existing brand")
				return brand, true, nil
			}
		}
	}

	return nil, false, nil
}

// FindOrCreate resolves the vendor to an existing brand or creates a new one
// with a slug derived from the vendor name. The second return reports whether
// a brand was created.
func (r *BrandResolver) FindOrCreate(ctx context.Context, vendor string) (*domain.BrandDocument, bool, error) {
	brand, found, err := r.FindByVendor(ctx, vendor)
	if err != nil {
		return nil, false, err
	}
	if found {
		return brand, false, nil
	}

	slug := domain.Slugify(vendor)
	brand = &domain.BrandDocument{
		ID:        domain.BrandDocID(slug),
		Type:      domain.TypeBrand,
		Name:      vendor,
		Slug:      slug,
		CreatedAt: time.Now(),
	}

	tx := r.store.NewTransaction()
	tx.CreateIfAbsent(brand.ID, brand)
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to create brand %q: %w", vendor, err)
	}

	r.logger.Info().
		Str("vendor", vendor).
		Str("brandId", brand.ID).
		Msg("Created new brand for unmatched vendor")
	return brand, true, nil
}

// NamesMatch is the reduced two-step check used on product updates to decide
// whether an existing brand reference should be left alone: exact
// case-insensitive match or lowercase containment. Anything stricter would
// overwrite manual curation in the content store with upstream's messier
// vendor strings.
func (r *BrandResolver) NamesMatch(existingName, vendor string) bool {
	if strings.EqualFold(existingName, vendor) {
		return true
	}
	return containsEither(strings.ToLower(existingName), strings.ToLower(vendor))
}

// NormalizeBrandName lowercases, strips accent marks, apostrophes, hyphens
// and every other non-alphanumeric character, and collapses whitespace runs.
func NormalizeBrandName(name string) string {
	lower := strings.ToLower(name)

	// Decompose and drop combining marks so "Arc'teryx" and "Arctéryx" meet
	// in the middle.
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripper, lower); err == nil {
		lower = folded
	}

	var b strings.Builder
	lastSpace := false
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
