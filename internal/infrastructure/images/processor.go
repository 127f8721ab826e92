package images

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// assetDoc is the stored image asset. The asset ID is a content hash of the
// source URL, so re-processing the same image is an idempotent upsert.
type assetDoc struct {
	ID        string    `bson:"_id"`
	Type      string    `bson:"_type"`
	URL       string    `bson:"url"`
	Alt       string    `bson:"alt,omitempty"`
	Width     int       `bson:"width,omitempty"`
	Height    int       `bson:"height,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Processor implements the image-store collaborator: it registers upstream
// images as content-store assets and returns main/gallery references in
// upstream position order.
type Processor struct {
	assets *mongo.Collection
	logger zerolog.Logger
}

// NewProcessor creates an image processor writing to the image_assets
// collection.
func NewProcessor(db *mongo.Database, logger zerolog.Logger) ports.ImageStore {
	return &Processor{
		assets: db.Collection("image_assets"),
		logger: logger,
	}
}

// ProcessImages upserts one asset per raw image and returns the main image
// (lowest position) plus the ordered gallery. Images without a source URL are
// dropped.
func (p *Processor) ProcessImages(ctx context.Context, raw []domain.ImagePayload) (*domain.ProcessedImages, error) {
	processed := &domain.ProcessedImages{}

	ordered := make([]domain.ImagePayload, 0, len(raw))
	for _, img := range raw {
		if img.Src == "" {
			p.logger.Warn().Int64("imageId", img.ID).Msg("Skipping image without source URL")
			continue
		}
		ordered = append(ordered, img)
	}
	sortByPosition(ordered)

	for i, img := range ordered {
		assetID := AssetID(img.Src)
		doc := assetDoc{
			ID:        assetID,
			Type:      domain.TypeImageAsset,
			URL:       img.Src,
			Alt:       img.Alt,
			Width:     img.Width,
			Height:    img.Height,
			UpdatedAt: time.Now(),
		}

		opts := options.Update().SetUpsert(true)
		update := bson.M{"$set": bson.M{
			"_type":     doc.Type,
			"url":       doc.URL,
			"alt":       doc.Alt,
			"width":     doc.Width,
			"height":    doc.Height,
			"updatedAt": doc.UpdatedAt,
		}}
		if _, err := p.assets.UpdateOne(ctx, bson.M{"_id": assetID}, update, opts); err != nil {
			return nil, fmt.Errorf("failed to store image asset: %w", err)
		}

		if i == 0 {
			processed.MainImage = assetID
		} else {
			processed.Gallery = append(processed.Gallery, assetID)
		}
	}

	return processed, nil
}

// AssetID derives a deterministic asset document ID from an image source URL.
func AssetID(src string) string {
	sum := sha1.Sum([]byte(src))
	return "imageAsset-" + hex.EncodeToString(sum[:])
}

func sortByPosition(images []domain.ImagePayload) {
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Position < images[j].Position
	})
}
