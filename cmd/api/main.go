package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"storefront-sync-layer/internal/application"
	"storefront-sync-layer/internal/application/webhook_handlers"
	"storefront-sync-layer/internal/config"
	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/infrastructure/contentstore"
	"storefront-sync-layer/internal/infrastructure/dedup"
	"storefront-sync-layer/internal/infrastructure/images"
	"storefront-sync-layer/internal/infrastructure/metrics"
	"storefront-sync-layer/internal/infrastructure/pubsub"
	shopifyinfra "storefront-sync-layer/internal/infrastructure/shopify"
	"storefront-sync-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)

	// Initialize infrastructure (implementations)
	contentStore := contentstore.NewMongoStore(db)
	imageStore := images.NewProcessor(db, logger)

	commerceClient, err := shopifyinfra.NewClient(
		cfg.ShopDomain,
		cfg.ShopifyAPIKey,
		cfg.ShopifyAPISecret,
		cfg.ShopifyAccessToken,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Shopify client")
	}

	// Delivery dedup is shared across instances when Redis is configured,
	// in-process otherwise.
	var deliveryDedup ports.DeliveryDedup
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		deliveryDedup = dedup.NewRedisDedup(redis.NewClient(opts), 0, logger)
		logger.Info().Msg("Using Redis-backed delivery dedup")
	} else {
		deliveryDedup = dedup.LocalDeliveryDedup{Cache: dedup.NewCache(cfg.DedupCacheSize)}
	}
	entityCache := dedup.NewCache(cfg.DedupCacheSize)

	// Initialize application services
	brandResolver := application.NewBrandResolver(contentStore, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(deliveryDedup, logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(
		contentStore, commerceClient, imageStore, brandResolver, entityCache, cfg.DedupWindow, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCollectionHandler(
		contentStore, commerceClient, entityCache, cfg.DedupWindow, logger))

	// Initialize pub/sub for the SSE event stream
	eventPubSub := pubsub.NewSyncEventPubSub(logger)

	syncMetrics := metrics.New(prometheus.DefaultRegisterer)
	verifier := shopifyinfra.NewWebhookVerifier(cfg.WebhookSecret)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Webhook endpoint
	r.Post("/webhooks/shopify", webhookHandler(webhookDispatcher, verifier, eventPubSub, syncMetrics, logger))

	// SSE stream of processing results
	r.Get("/events", eventsHandler(eventPubSub, logger))

	logger.Info().Str("port", cfg.Port).Msg("Starting sync API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// webhookHandler receives Shopify webhook requests, verifies their signature
// and hands them to the dispatcher. The HTTP status encodes retryability: 500
// asks Shopify to redeliver, 200 acknowledges permanently.
func webhookHandler(
	dispatcher *application.WebhookDispatcher,
	verifier *shopifyinfra.WebhookVerifier,
	eventPubSub *pubsub.SyncEventPubSub,
	syncMetrics *metrics.Metrics,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			logger.Warn().Msg("Missing X-Shopify-Topic header")
			http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read webhook payload")
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		// Verify webhook signature
		if err := verifier.Verify(payload, r.Header.Get("X-Shopify-Hmac-SHA256")); err != nil {
			logger.Warn().Err(err).Str("topic", topic).Msg("Webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		syncMetrics.WebhooksReceived.WithLabelValues(topic).Inc()

		resource, event, err := domain.ParseTopic(topic)
		if err != nil {
			// Unsupported topics are permanent; acknowledging stops redelivery.
			logger.Warn().Err(err).Str("topic", topic).Msg("Unsupported webhook topic")
			writeResult(w, http.StatusOK, domain.FailedResult("", 0, domain.NewUnknownTopicError(topic)))
			return
		}

		delivery := &domain.WebhookDelivery{
			ResourceType: resource,
			EventType:    event,
			DeliveryID:   r.Header.Get("X-Shopify-Webhook-Id"),
			EventID:      r.Header.Get("X-Shopify-Event-Id"),
			Payload:      payload,
			ReceivedAt:   time.Now(),
		}

		result := dispatcher.Dispatch(r.Context(), delivery)

		recordResult(syncMetrics, result)
		eventPubSub.Publish(result)

		status := http.StatusOK
		if result.Retryable {
			// 500 triggers Shopify's at-least-once redelivery.
			status = http.StatusInternalServerError
		}
		writeResult(w, status, result)
	}
}

func recordResult(m *metrics.Metrics, result *domain.ProcessingResult) {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	m.SyncResults.WithLabelValues(string(result.ResourceType), string(result.Action), outcome).Inc()

	if result.SummaryBool("brandCreated") {
		m.BrandsCreated.Inc()
	}
	if patches := result.SummaryInt("membershipPatches"); patches > 0 {
		m.ReconciliationPatches.Add(float64(patches))
	}
}

func writeResult(w http.ResponseWriter, status int, result *domain.ProcessingResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(result)
}

// eventsHandler streams processing results as server-sent events. The
// subscription ends when the client disconnects.
func eventsHandler(eventPubSub *pubsub.SyncEventPubSub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		var filter *pubsub.SyncEventFilter
		if r.URL.Query().Get("failures") == "true" {
			filter = &pubsub.SyncEventFilter{FailuresOnly: true}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		channel := eventPubSub.Subscribe(r.Context(), filter)
		for result := range channel.Events {
			data, err := json.Marshal(result)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to encode sync event")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
