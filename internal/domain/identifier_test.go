package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocIDsAreDistinctPerUpstreamID(t *testing.T) {
	seen := map[string]int64{}
	for id := int64(0); id < 1000; id++ {
		docID := ProductDocID(id)
		prev, dup := seen[docID]
		require.False(t, dup, "ids %d and %d collide on %s", prev, id, docID)
		seen[docID] = id
	}

	assert.NotEqual(t, ProductDocID(7), CollectionDocID(7))
}

func TestGlobalIDRoundTrips(t *testing.T) {
	for _, resource := range []ResourceType{ResourceProduct, ResourceCollection} {
		for _, id := range []int64{0, 1, 555, 9223372036854775807} {
			got, err := ExtractUpstreamID(GlobalID(resource, id))
			require.NoError(t, err)
			assert.Equal(t, id, got)
		}
	}

	assert.Contains(t, GlobalID(ResourceProduct, 7), "/Product/")
	assert.Contains(t, GlobalID(ResourceCollection, 7), "/Collection/")
	assert.Empty(t, GlobalID("order", 7))
}

func TestExtractUpstreamIDFromDocID(t *testing.T) {
	got, err := ExtractUpstreamID(ProductDocID(8237))
	require.NoError(t, err)
	assert.Equal(t, int64(8237), got)

	got, err = ExtractUpstreamID(CollectionDocID(41))
	require.NoError(t, err)
	assert.Equal(t, int64(41), got)
}

func TestExtractUpstreamIDRejectsGarbage(t *testing.T) {
	for _, id := range []string{"", "upstreamProduct-", "gid://shopify/Product/abc", "no-separator-here-x"} {
		_, err := ExtractUpstreamID(id)
		assert.Error(t, err, "expected error for %q", id)
	}
}

func TestParseTopic(t *testing.T) {
	tests := []struct {
		topic    string
		resource ResourceType
		event    EventType
		wantErr  bool
	}{
		{"products/create", ResourceProduct, EventCreate, false},
		{"products/update", ResourceProduct, EventUpdate, false},
		{"products/delete", ResourceProduct, EventDelete, false},
		{"collections/update", ResourceCollection, EventUpdate, false},
		{"orders/create", "", "", true},
		{"products", "", "", true},
		{"products/publish", "", "", true},
	}
	for _, tt := range tests {
		resource, event, err := ParseTopic(tt.topic)
		if tt.wantErr {
			assert.Error(t, err, tt.topic)
			continue
		}
		require.NoError(t, err, tt.topic)
		assert.Equal(t, tt.resource, resource)
		assert.Equal(t, tt.event, event)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-outdoor-co", Slugify("  Acme   Outdoor Co "))
	assert.Equal(t, "jackets", Slugify("Jackets"))
}

func TestTagList(t *testing.T) {
	p := ProductPayload{Tags: "outerwear, sale ,  , winter"}
	assert.Equal(t, []string{"outerwear", "sale", "winter"}, p.TagList())

	empty := ProductPayload{Tags: "   "}
	assert.Nil(t, empty.TagList())
}
