package webhook_handlers

import (
	"context"
	"fmt"
	"time"

	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/ports"
)

// fakeStore is an in-memory ports.ContentStore. Transactions apply their
// queued mutations on Commit so multi-step scenarios observe earlier writes.
type fakeStore struct {
	products    map[string]*domain.ProductDocument
	collections map[string]*domain.CollectionDocument
	categories  map[string]*domain.CategoryDocument
	brands      []*domain.BrandDocument
	commits     int
	patches     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:    make(map[string]*domain.ProductDocument),
		collections: make(map[string]*domain.CollectionDocument),
		categories:  make(map[string]*domain.CategoryDocument),
	}
}

func (s *fakeStore) GetProduct(_ context.Context, docID string) (*domain.ProductDocument, error) {
	return s.products[docID], nil
}

func (s *fakeStore) GetCollection(_ context.Context, docID string) (*domain.CollectionDocument, error) {
	return s.collections[docID], nil
}

func (s *fakeStore) GetBrand(_ context.Context, docID string) (*domain.BrandDocument, error) {
	for _, b := range s.brands {
		if b.ID == docID {
			return b, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetCategoryBySlug(_ context.Context, slug string) (*domain.CategoryDocument, error) {
	return s.categories[slug], nil
}

func (s *fakeStore) ListBrands(_ context.Context) ([]*domain.BrandDocument, error) {
	return s.brands, nil
}

func (s *fakeStore) FindMembershipCandidates(_ context.Context, upstreamIDs []int64, collectionDocID string, collectionID int64) ([]*domain.ProductDocument, error) {
	wanted := make(map[int64]bool, len(upstreamIDs))
	for _, id := range upstreamIDs {
		wanted[id] = true
	}
	var out []*domain.ProductDocument
	for _, p := range s.products {
		if wanted[p.Store.ID] || p.HasCollectionRef(collectionDocID) || p.HasShopifyCollectionID(collectionID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) CountCollectionProducts(_ context.Context, collectionDocID string) (int64, error) {
	var n int64
	for _, p := range s.products {
		if p.HasCollectionRef(collectionDocID) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) NewTransaction() ports.ContentTransaction {
	return &fakeTx{store: s}
}

type fakeTxOp struct {
	docID  string
	create any
	set    map[string]any
}

type fakeTx struct {
	store *fakeStore
	ops   []fakeTxOp
}

func (t *fakeTx) CreateIfAbsent(docID string, doc any) {
	t.ops = append(t.ops, fakeTxOp{docID: docID, create: doc})
}

func (t *fakeTx) Patch(docID string, set map[string]any) {
	t.ops = append(t.ops, fakeTxOp{docID: docID, set: set})
}

func (t *fakeTx) Len() int { return len(t.ops) }

func (t *fakeTx) Commit(_ context.Context) error {
	for _, op := range t.ops {
		if op.create != nil {
			t.store.applyCreate(op.docID, op.create)
			continue
		}
		t.store.applyPatch(op.docID, op.set)
		t.store.patches++
	}
	t.store.commits++
	return nil
}

func (s *fakeStore) applyCreate(docID string, doc any) {
	switch d := doc.(type) {
	case *domain.ProductDocument:
		if _, ok := s.products[docID]; !ok {
			s.products[docID] = d
		}
	case *domain.CollectionDocument:
		if _, ok := s.collections[docID]; !ok {
			s.collections[docID] = d
		}
	case *domain.BrandDocument:
		for _, b := range s.brands {
			if b.ID == docID {
				return
			}
		}
		s.brands = append(s.brands, d)
	default:
		panic(fmt.Sprintf("fakeStore: unsupported create type %T", doc))
	}
}

// applyPatch understands the dotted paths the handlers actually write.
// Patching a missing document is a no-op, matching the real adapter.
func (s *fakeStore) applyPatch(docID string, set map[string]any) {
	if p, ok := s.products[docID]; ok {
		for key, value := range set {
			switch key {
			case "store":
				p.Store = value.(domain.ProductStore)
			case "store.isDeleted":
				p.Store.IsDeleted = value.(bool)
			case "store.shopifyCollectionIds":
				p.Store.ShopifyCollectionIDs = value.([]int64)
			case "collections":
				p.Collections = value.([]string)
			case "gender":
				p.Gender = value.(string)
			case "category":
				p.Category = value.(string)
			case "brand":
				p.Brand = value.(string)
			case "mainImage":
				p.MainImage = value.(string)
			case "gallery":
				p.Gallery = value.([]string)
			case "syncedAt":
				p.SyncedAt = value.(time.Time)
			default:
				panic(fmt.Sprintf("fakeStore: unsupported product patch key %q", key))
			}
		}
		return
	}
	if c, ok := s.collections[docID]; ok {
		for key, value := range set {
			switch key {
			case "store":
				c.Store = value.(domain.CollectionStore)
			case "store.isDeleted":
				c.Store.IsDeleted = value.(bool)
			case "syncedAt":
				c.SyncedAt = value.(time.Time)
			default:
				panic(fmt.Sprintf("fakeStore: unsupported collection patch key %q", key))
			}
		}
	}
}

// fakeCommerce is an in-memory ports.CommerceClient.
type fakeCommerce struct {
	productCollections map[int64][]domain.CollectionRef
	collectionProducts map[int64][]domain.ProductRef
	err                error
}

func (c *fakeCommerce) GetCollectionProducts(_ context.Context, collectionID int64) ([]domain.ProductRef, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.collectionProducts[collectionID], nil
}

func (c *fakeCommerce) GetProductCollections(_ context.Context, productID int64) ([]domain.CollectionRef, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.productCollections[productID], nil
}

// fakeImages derives asset references straight from image sources.
type fakeImages struct {
	err error
}

func (f *fakeImages) ProcessImages(_ context.Context, images []domain.ImagePayload) (*domain.ProcessedImages, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &domain.ProcessedImages{}
	for _, img := range images {
		if img.Src == "" {
			continue
		}
		ref := "asset-" + img.Src
		if out.MainImage == "" {
			out.MainImage = ref
			continue
		}
		out.Gallery = append(out.Gallery, ref)
	}
	return out, nil
}
