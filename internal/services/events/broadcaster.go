package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Mihir369/legal-arena-ai/internal/services"
)

// SnapshotTTL bounds how long the last published view of a battle is kept.
const SnapshotTTL = time.Hour

// EventType is the SSE event name of a published event.
type EventType string

// Connected is sent to each SSE client when it subscribes.
const EventTypeConnected EventType = "connected"

// Event is the envelope published on a battle channel.
type Event struct {
	Type      EventType       `json:"type"`
	BattleID  string          `json:"battle_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Channel is the Pub/Sub channel for battleID.
func Channel(battleID uuid.UUID) string {
	return fmt.Sprintf("battle-events:%s", battleID.String())
}

// SnapshotKey is the key holding the latest view of battleID.
func SnapshotKey(battleID uuid.UUID) string {
	return fmt.Sprintf("battle-snapshot:%s", battleID.String())
}

// Broadcaster publishes battle events to Redis Pub/Sub for SSE distribution
// and keeps the most recent snapshot for clients that join late.
type Broadcaster struct {
	redisClient *redis.Client
	snapshots   services.Cache
	logger      *slog.Logger
	now         func() time.Time
}

// NewBroadcaster creates a new event broadcaster. Events go out over
// redisClient; snapshots are kept in snapshots.
func NewBroadcaster(redisClient *redis.Client, snapshots services.Cache, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		snapshots:   snapshots,
		logger:      logger,
		now:         time.Now,
	}
}

// Publish sends data, encoded as JSON, to the battle's channel.
func (b *Broadcaster) Publish(ctx context.Context, battleID uuid.UUID, eventType EventType, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		b.logger.Error("Failed to marshal event data", "error", err, "event_type", eventType)
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	return b.publishToBattle(ctx, battleID, Event{
		Type:      eventType,
		BattleID:  battleID.String(),
		Timestamp: b.now().UTC(),
		Data:      raw,
	})
}

// SaveSnapshot stores data as the latest snapshot of the battle.
func (b *Broadcaster) SaveSnapshot(ctx context.Context, battleID uuid.UUID, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	key := SnapshotKey(battleID)
	if err := b.snapshots.Set(ctx, key, raw, SnapshotTTL); err != nil {
		b.logger.Error("Failed to save snapshot", "error", err, "key", key)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the latest snapshot of the battle. ok is false when
// none has been saved or it expired.
func (b *Broadcaster) LoadSnapshot(ctx context.Context, battleID uuid.UUID) (json.RawMessage, bool, error) {
	raw, err := b.snapshots.Get(ctx, SnapshotKey(battleID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if raw == "" {
		return nil, false, nil
	}
	return json.RawMessage(raw), true, nil
}

// publishToBattle publishes an event to the battle-specific channel
func (b *Broadcaster) publishToBattle(ctx context.Context, battleID uuid.UUID, event Event) error {
	channel := Channel(battleID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)

	return nil
}
