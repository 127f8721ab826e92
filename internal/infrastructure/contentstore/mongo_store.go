package contentstore

import (
	"context"
	"fmt"

	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore implements ports.ContentStore on a single documents collection.
// Every document carries a _type discriminator, mirroring how the content
// store models heterogeneous editorial documents.
type MongoStore struct {
	documents *mongo.Collection
}

// NewMongoStore creates a content store backed by MongoDB.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		documents: db.Collection("documents"),
	}
}

// GetProduct retrieves a product document by ID, (nil, nil) when absent.
func (s *MongoStore) GetProduct(ctx context.Context, docID string) (*domain.ProductDocument, error) {
	var doc domain.ProductDocument
	err := s.documents.FindOne(ctx, bson.M{"_id": docID, "_type": domain.TypeProduct}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product document: %w", err)
	}
	return &doc, nil
}

// GetCollection retrieves a collection document by ID, (nil, nil) when absent.
func (s *MongoStore) GetCollection(ctx context.Context, docID string) (*domain.CollectionDocument, error) {
	var doc domain.CollectionDocument
	err := s.documents.FindOne(ctx, bson.M{"_id": docID, "_type": domain.TypeCollection}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection document: %w", err)
	}
	return &doc, nil
}

// GetBrand retrieves a brand document by ID, (nil, nil) when absent.
func (s *MongoStore) GetBrand(ctx context.Context, docID string) (*domain.BrandDocument, error) {
	var doc domain.BrandDocument
	err := s.documents.FindOne(ctx, bson.M{"_id": docID, "_type": domain.TypeBrand}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get brand document: %w", err)
	}
	return &doc, nil
}

// GetCategoryBySlug retrieves a category by its slug, (nil, nil) when absent.
func (s *MongoStore) GetCategoryBySlug(ctx context.Context, slug string) (*domain.CategoryDocument, error) {
	var doc domain.CategoryDocument
	err := s.documents.FindOne(ctx, bson.M{"_type": domain.TypeCategory, "slug": slug}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}
	return &doc, nil
}

// ListBrands retrieves every brand document.
func (s *MongoStore) ListBrands(ctx context.Context) ([]*domain.BrandDocument, error) {
	cursor, err := s.documents.Find(ctx, bson.M{"_type": domain.TypeBrand})
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer cursor.Close(ctx)

	var brands []*domain.BrandDocument
	for cursor.Next(ctx) {
		var doc domain.BrandDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode brand: %w", err)
		}
		brands = append(brands, &doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return brands, nil
}

// FindMembershipCandidates returns every product that should gain or could
// need to lose membership of the collection: upstream members plus anything
// still referencing the collection in either representation. With an empty
// upstream set the query degrades to products currently referencing the
// collection.
func (s *MongoStore) FindMembershipCandidates(ctx context.Context, upstreamIDs []int64, collectionDocID string, collectionID int64) ([]*domain.ProductDocument, error) {
	or := []bson.M{
		{"collections": collectionDocID},
		{"store.shopifyCollectionIds": collectionID},
	}
	if len(upstreamIDs) > 0 {
		or = append(or, bson.M{"store.id": bson.M{"$in": upstreamIDs}})
	}

	cursor, err := s.documents.Find(ctx, bson.M{"_type": domain.TypeProduct, "$or": or})
	if err != nil {
		return nil, fmt.Errorf("failed to query membership candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*domain.ProductDocument
	for cursor.Next(ctx) {
		var doc domain.ProductDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		products = append(products, &doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return products, nil
}

// CountCollectionProducts counts products referencing the collection document.
func (s *MongoStore) CountCollectionProducts(ctx context.Context, collectionDocID string) (int64, error) {
	count, err := s.documents.CountDocuments(ctx, bson.M{
		"_type":       domain.TypeProduct,
		"collections": collectionDocID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count collection products: %w", err)
	}
	return count, nil
}

// NewTransaction opens a mutation queue committed in one MongoDB transaction.
func (s *MongoStore) NewTransaction() ports.ContentTransaction {
	return &mongoTransaction{store: s}
}

type txOp struct {
	docID  string
	create any            // nil for patches
	set    map[string]any // nil for creates
}

// mongoTransaction queues creates and patches and applies them inside a
// single session transaction, so a pass that fails midway leaves no partial
// membership state behind.
type mongoTransaction struct {
	store *MongoStore
	ops   []txOp
}

func (t *mongoTransaction) CreateIfAbsent(docID string, doc any) {
	t.ops = append(t.ops, txOp{docID: docID, create: doc})
}

func (t *mongoTransaction) Patch(docID string, set map[string]any) {
	t.ops = append(t.ops, txOp{docID: docID, set: set})
}

func (t *mongoTransaction) Len() int {
	return len(t.ops)
}

func (t *mongoTransaction) Commit(ctx context.Context) error {
	if len(t.ops) == 0 {
		return nil
	}

	session, err := t.store.documents.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range t.ops {
			if op.create != nil {
				count, err := t.store.documents.CountDocuments(sc, bson.M{"_id": op.docID})
				if err != nil {
					return nil, fmt.Errorf("failed existence check for %s: %w", op.docID, err)
				}
				if count > 0 {
					continue
				}
				if _, err := t.store.documents.InsertOne(sc, op.create); err != nil {
					return nil, fmt.Errorf("failed to create %s: %w", op.docID, err)
				}
				continue
			}

			set := bson.M{}
			for k, v := range op.set {
				set[k] = v
			}
			// Patching a missing document is a benign no-op; zero matches is
			// not an error.
			if _, err := t.store.documents.UpdateOne(sc, bson.M{"_id": op.docID}, bson.M{"$set": set}); err != nil {
				return nil, fmt.Errorf("failed to patch %s: %w", op.docID, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}
