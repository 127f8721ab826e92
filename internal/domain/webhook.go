package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ResourceType identifies the upstream resource a webhook refers to.
type ResourceType string

const (
	ResourceProduct    ResourceType = "product"
	ResourceCollection ResourceType = "collection"
)

// EventType identifies the kind of change a webhook announces.
type EventType string

const (
	EventCreate EventType = "create"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// WebhookDelivery is one inbound change notification from the upstream
// commerce platform. It lives only for the duration of a single dispatch.
type WebhookDelivery struct {
	ResourceType ResourceType
	EventType    EventType
	DeliveryID   string
	EventID      string // may be empty; older API versions don't send it
	Payload      json.RawMessage
	ReceivedAt   time.Time
}

// DedupKey is the uniqueness key used for exact delivery de-duplication.
func (d *WebhookDelivery) DedupKey() string {
	return d.DeliveryID + ":" + d.EventID
}

// Topic returns the Shopify-style topic string for logging.
func (d *WebhookDelivery) Topic() string {
	return fmt.Sprintf("%ss/%s", d.ResourceType, d.EventType)
}

// ParseTopic splits a Shopify webhook topic like "products/update" into the
// resource and event it describes.
func ParseTopic(topic string) (ResourceType, EventType, error) {
	parts := strings.SplitN(topic, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed webhook topic %q", topic)
	}

	var resource ResourceType
	switch parts[0] {
	case "products":
		resource = ResourceProduct
	case "collections":
		resource = ResourceCollection
	default:
		return "", "", fmt.Errorf("unsupported webhook resource %q", parts[0])
	}

	var event EventType
	switch parts[1] {
	case "create":
		event = EventCreate
	case "update":
		event = EventUpdate
	case "delete":
		event = EventDelete
	default:
		return "", "", fmt.Errorf("unsupported webhook event %q", parts[1])
	}

	return resource, event, nil
}

// ProductPayload is the upstream snapshot of one product at event time.
// Fields are never trusted blindly; the product handler validates or defaults
// every optional field before use.
type ProductPayload struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Tags        string           `json:"tags"` // comma-delimited
	BodyHTML    string           `json:"body_html"`
	Images      []ImagePayload   `json:"images"`
	Variants    []VariantPayload `json:"variants"`
	CreatedAt   *time.Time       `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at"`
}

// TagList splits the comma-delimited tag string into trimmed tags.
func (p *ProductPayload) TagList() []string {
	if strings.TrimSpace(p.Tags) == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// ImagePayload is one upstream product or collection image.
type ImagePayload struct {
	ID       int64  `json:"id"`
	Src      string `json:"src"`
	Alt      string `json:"alt"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Position int    `json:"position"`
}

// VariantPayload carries the pricing and availability slice of one variant.
type VariantPayload struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	SKU               string `json:"sku"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// CollectionPayload is the upstream snapshot of one collection. A collection
// with rules is a smart collection; one without is manual.
type CollectionPayload struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Handle      string        `json:"handle"`
	BodyHTML    string        `json:"body_html"`
	Image       *ImagePayload `json:"image"`
	Rules       []RulePayload `json:"rules"`
	SortOrder   string        `json:"sort_order"`
	Disjunctive bool          `json:"disjunctive"`
	PublishedAt *time.Time    `json:"published_at"`
	UpdatedAt   *time.Time    `json:"updated_at"`
}

// RulePayload is one smart-collection rule triple.
type RulePayload struct {
	Column    string `json:"column"`
	Relation  string `json:"relation"`
	Condition string `json:"condition"`
}

// ProductRef is a lightweight upstream product reference returned by
// collection-membership queries.
type ProductRef struct {
	ID     int64
	Title  string
	Handle string
}

// CollectionRef is a lightweight upstream collection reference.
type CollectionRef struct {
	ID     int64
	Title  string
	Handle string
}
