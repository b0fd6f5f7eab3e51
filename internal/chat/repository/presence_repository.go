package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PresenceRepository holds per-user online markers with TTL and the per-user
// bounded queue of missed events.
type PresenceRepository interface {
	// MarkOnline upserts the presence key, refreshing the TTL. Last writer
	// wins on reconnection from a new instance.
	MarkOnline(ctx context.Context, userID, connectionID string) error
	// MarkOffline deletes the presence key. Never errors on a missing key.
	MarkOffline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
	GetPresence(ctx context.Context, userID string) (*domain.PresenceRecord, error)
	// EnqueueMissedEvent appends to the head of the user's list, trims to the
	// retention cap and refreshes the list TTL.
	EnqueueMissedEvent(ctx context.Context, userID string, event domain.MissedEvent) error
	// PeekMissedEvents returns the queued events without clearing them. The
	// caller clears only after a successful delivery attempt.
	PeekMissedEvents(ctx context.Context, userID string) ([]domain.MissedEvent, error)
	ClearMissedEvents(ctx context.Context, userID string) error
}

type redisPresenceRepository struct {
	client *redis.Client

	presenceTTL time.Duration
	missedCap   int64
	missedTTL   time.Duration
}

// NewRedisPresenceRepository create a PresenceRepository on a redis client
func NewRedisPresenceRepository(client *redis.Client, presenceTTL time.Duration, missedCap int64, missedTTL time.Duration) PresenceRepository {
	return &redisPresenceRepository{
		client:      client,
		presenceTTL: presenceTTL,
		missedCap:   missedCap,
		missedTTL:   missedTTL,
	}
}

func presenceKey(userID string) string {
	return "socket:user:" + userID
}

func missedEventsKey(userID string) string {
	return "missed:events:" + userID
}

func (r *redisPresenceRepository) MarkOnline(ctx context.Context, userID, connectionID string) error {
	record := domain.PresenceRecord{UserID: userID, ConnectionID: connectionID}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal presence record: %w", err)
	}
	return r.client.Set(ctx, presenceKey(userID), data, r.presenceTTL).Err()
}

func (r *redisPresenceRepository) MarkOffline(ctx context.Context, userID string) error {
	// DEL on a missing key is a no-op
	return r.client.Del(ctx, presenceKey(userID)).Err()
}

func (r *redisPresenceRepository) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *redisPresenceRepository) GetPresence(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	val, err := r.client.Get(ctx, presenceKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var record domain.PresenceRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		logger.Log.Error("presence decode err", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal presence record: %w", err)
	}
	return &record, nil
}

func (r *redisPresenceRepository) EnqueueMissedEvent(ctx context.Context, userID string, event domain.MissedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal missed event: %w", err)
	}

	key := missedEventsKey(userID)
	if err := r.client.LPush(ctx, key, data).Err(); err != nil {
		return err
	}
	if err := r.client.LTrim(ctx, key, 0, r.missedCap-1).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, r.missedTTL).Err()
}

func (r *redisPresenceRepository) PeekMissedEvents(ctx context.Context, userID string) ([]domain.MissedEvent, error) {
	raw, err := r.client.LRange(ctx, missedEventsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]domain.MissedEvent, 0, len(raw))
	for _, item := range raw {
		var event domain.MissedEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			logger.Log.Error("missed event decode err", zap.String("userID", userID), zap.Error(err))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *redisPresenceRepository) ClearMissedEvents(ctx context.Context, userID string) error {
	return r.client.Del(ctx, missedEventsKey(userID)).Err()
}
