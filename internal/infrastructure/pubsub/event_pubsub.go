package pubsub

import (
	"context"
	"fmt"
	"sync"

	"storefront-sync-layer/internal/domain"

	"github.com/rs/zerolog"
)

// SyncEventChannel is one subscription to processing results.
type SyncEventChannel struct {
	ID     string
	Filter *SyncEventFilter
	Events chan *domain.ProcessingResult
	ctx    context.Context
	cancel context.CancelFunc
}

// SyncEventFilter narrows a subscription to certain resources or outcomes.
type SyncEventFilter struct {
	Resources    []domain.ResourceType
	FailuresOnly bool
}

// SyncEventPubSub broadcasts processing results to in-process subscribers,
// feeding the SSE event stream and any future reprocessing tooling.
type SyncEventPubSub struct {
	mu       sync.RWMutex
	channels map[string]*SyncEventChannel
	logger   zerolog.Logger
	nextID   int64
}

// NewSyncEventPubSub creates a new sync event pub/sub.
func NewSyncEventPubSub(logger zerolog.Logger) *SyncEventPubSub {
	return &SyncEventPubSub{
		channels: make(map[string]*SyncEventChannel),
		logger:   logger,
	}
}

// Subscribe creates a subscription that lives until ctx is cancelled.
func (ps *SyncEventPubSub) Subscribe(ctx context.Context, filter *SyncEventFilter) *SyncEventChannel {
	subCtx, cancel := context.WithCancel(ctx)

	ps.mu.Lock()
	ps.nextID++
	channel := &SyncEventChannel{
		ID:     fmt.Sprintf("channel-%d", ps.nextID),
		Filter: filter,
		Events: make(chan *domain.ProcessingResult, 16),
		ctx:    subCtx,
		cancel: cancel,
	}
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Debug().Str("channelId", channel.ID).Msg("Sync event subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe removes a subscription channel.
func (ps *SyncEventPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().Str("channelId", channelID).Msg("Sync event subscription removed")
}

// Publish broadcasts a processing result to all matching subscribers without
// blocking; slow subscribers drop events.
func (ps *SyncEventPubSub) Publish(result *domain.ProcessingResult) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if !matchesFilter(result, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- result:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().Str("channelId", channel.ID).Msg("Channel buffer full, dropping event")
		}
	}
}

func matchesFilter(result *domain.ProcessingResult, filter *SyncEventFilter) bool {
	if filter == nil {
		return true
	}
	if filter.FailuresOnly && result.Success {
		return false
	}
	if len(filter.Resources) > 0 {
		matched := false
		for _, r := range filter.Resources {
			if result.ResourceType == r {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
