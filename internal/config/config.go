package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the environment-driven configuration for the sync service.
type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string

	// RedisURL switches delivery dedup to the shared Redis backend when set;
	// empty means the in-process cache.
	RedisURL string

	ShopDomain         string
	ShopifyAPIKey      string
	ShopifyAPISecret   string
	ShopifyAccessToken string
	WebhookSecret      string

	// DedupWindow is the entity-level rate-limit window between syncs of the
	// same product or collection.
	DedupWindow time.Duration
	// DedupCacheSize caps the in-process dedup cache.
	DedupCacheSize int
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "storefront"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ShopDomain:         os.Getenv("SHOPIFY_SHOP_DOMAIN"),
		ShopifyAPIKey:      os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:   os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyAccessToken: os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		WebhookSecret:      os.Getenv("SHOPIFY_WEBHOOK_SECRET"),
	}

	if cfg.ShopDomain == "" {
		return nil, fmt.Errorf("SHOPIFY_SHOP_DOMAIN environment variable is required")
	}
	if cfg.ShopifyAccessToken == "" {
		return nil, fmt.Errorf("SHOPIFY_ACCESS_TOKEN environment variable is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("SHOPIFY_WEBHOOK_SECRET environment variable is required")
	}

	var err error
	if cfg.DedupWindow, err = getDuration("DEDUP_WINDOW", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DedupCacheSize, err = getInt("DEDUP_CACHE_SIZE", 100); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
