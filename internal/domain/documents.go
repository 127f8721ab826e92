package domain

import "time"

// Document type discriminators stored in the content store's _type field.
const (
	TypeProduct    = "product"
	TypeCollection = "collection"
	TypeBrand      = "brand"
	TypeCategory   = "category"
	TypeImageAsset = "imageAsset"
)

// ProductStore is the denormalized upstream slice of a product document.
// Everything under this namespace is owned by the sync engine and overwritten
// on every sync; fields outside it are owned by editors.
type ProductStore struct {
	ID                   int64      `bson:"id" json:"id"`
	Title                string     `bson:"title" json:"title"`
	Handle               string     `bson:"handle" json:"handle"`
	Vendor               string     `bson:"vendor" json:"vendor"`
	ProductType          string     `bson:"productType" json:"productType"`
	Tags                 []string   `bson:"tags,omitempty" json:"tags,omitempty"`
	BodyHTML             string     `bson:"bodyHtml,omitempty" json:"bodyHtml,omitempty"`
	PriceRange           PriceRange `bson:"priceRange" json:"priceRange"`
	ShopifyCollectionIDs []int64    `bson:"shopifyCollectionIds" json:"shopifyCollectionIds"`
	IsDeleted            bool       `bson:"isDeleted" json:"isDeleted"`
	CreatedAt            *time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt            *time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// PriceRange spans the cheapest and most expensive variant.
type PriceRange struct {
	MinPrice float64 `bson:"minVariantPrice" json:"minVariantPrice"`
	MaxPrice float64 `bson:"maxVariantPrice" json:"maxVariantPrice"`
}

// ProductDocument is the content-store document for one upstream product,
// keyed by the deterministic ID from ProductDocID.
//
// Invariant: after any successful sync, Collections and
// Store.ShopifyCollectionIDs describe the same membership set in two
// representations (document references vs raw upstream IDs).
type ProductDocument struct {
	ID          string       `bson:"_id" json:"_id"`
	Type        string       `bson:"_type" json:"_type"`
	Store       ProductStore `bson:"store" json:"store"`
	Gender      string       `bson:"gender,omitempty" json:"gender,omitempty"`
	Category    string       `bson:"category,omitempty" json:"category,omitempty"`
	Brand       string       `bson:"brand,omitempty" json:"brand,omitempty"`
	MainImage   string       `bson:"mainImage,omitempty" json:"mainImage,omitempty"`
	Gallery     []string     `bson:"gallery,omitempty" json:"gallery,omitempty"`
	Collections []string     `bson:"collections" json:"collections"`
	SyncedAt    time.Time    `bson:"syncedAt" json:"syncedAt"`
}

// HasCollectionRef reports whether the product references the given
// collection document.
func (p *ProductDocument) HasCollectionRef(collectionDocID string) bool {
	for _, ref := range p.Collections {
		if ref == collectionDocID {
			return true
		}
	}
	return false
}

// HasShopifyCollectionID reports whether the product carries the raw upstream
// collection ID.
func (p *ProductDocument) HasShopifyCollectionID(collectionID int64) bool {
	for _, id := range p.Store.ShopifyCollectionIDs {
		if id == collectionID {
			return true
		}
	}
	return false
}

// CollectionStore is the denormalized upstream slice of a collection document.
type CollectionStore struct {
	ID          int64            `bson:"id" json:"id"`
	Title       string           `bson:"title" json:"title"`
	Handle      string           `bson:"handle" json:"handle"`
	Slug        string           `bson:"slug" json:"slug"`
	BodyHTML    string           `bson:"bodyHtml,omitempty" json:"bodyHtml,omitempty"`
	Rules       []CollectionRule `bson:"rules,omitempty" json:"rules,omitempty"`
	SortOrder   string           `bson:"sortOrder,omitempty" json:"sortOrder,omitempty"`
	Disjunctive bool             `bson:"disjunctive" json:"disjunctive"`
	IsDeleted   bool             `bson:"isDeleted" json:"isDeleted"`
	UpdatedAt   *time.Time       `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// CollectionRule is one smart-collection rule, normalized to upper-case
// enum strings.
type CollectionRule struct {
	Column    string `bson:"column" json:"column"`
	Relation  string `bson:"relation" json:"relation"`
	Condition string `bson:"condition" json:"condition"`
}

// CollectionDocument is the content-store document for one upstream
// collection, keyed by CollectionDocID. Featured flag and curated ordering
// are editor-owned and never touched by the sync engine.
type CollectionDocument struct {
	ID              string          `bson:"_id" json:"_id"`
	Type            string          `bson:"_type" json:"_type"`
	Store           CollectionStore `bson:"store" json:"store"`
	Featured        bool            `bson:"featured,omitempty" json:"featured,omitempty"`
	ManualOrder     int             `bson:"manualOrder,omitempty" json:"manualOrder,omitempty"`
	CuratedProducts []string        `bson:"curatedProducts,omitempty" json:"curatedProducts,omitempty"`
	SyncedAt        time.Time       `bson:"syncedAt" json:"syncedAt"`
}

// IsSmart reports whether the collection is rule-driven.
func (c *CollectionDocument) IsSmart() bool {
	return len(c.Store.Rules) > 0
}

// BrandDocument is a canonical brand entity. The sync engine creates one when
// no existing brand matches an incoming vendor string; editors own the rest
// of its lifecycle.
type BrandDocument struct {
	ID        string    `bson:"_id" json:"_id"`
	Type      string    `bson:"_type" json:"_type"`
	Name      string    `bson:"name" json:"name"`
	Slug      string    `bson:"slug" json:"slug"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// CategoryDocument is a curated taxonomy entry. Categories are never created
// by the sync engine; an unresolvable category is a validation failure.
type CategoryDocument struct {
	ID    string `bson:"_id" json:"_id"`
	Type  string `bson:"_type" json:"_type"`
	Title string `bson:"title" json:"title"`
	Slug  string `bson:"slug" json:"slug"`
}

// ProcessedImages is the output of the image-store collaborator: content-store
// asset references for the main image and the ordered gallery.
type ProcessedImages struct {
	MainImage string
	Gallery   []string
}
