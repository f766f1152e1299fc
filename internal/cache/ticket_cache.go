package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	detailKeyPrefix = "ticket:detail:"
	detailTTL       = 5 * time.Minute
)

// TicketCache keeps serialized ticket-detail payloads in Redis. It is a
// read-through cache; every mutating workflow operation invalidates the key.
type TicketCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewTicketCache builds the cache. A nil client disables caching.
func NewTicketCache(client *redis.Client, logger *zap.Logger) *TicketCache {
	return &TicketCache{client: client, logger: logger}
}

// GetDetail loads a cached detail payload into dest; ok is false on miss.
func (c *TicketCache) GetDetail(ctx context.Context, ticketID string, dest any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, detailKeyPrefix+ticketID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("ticket cache get failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("ticket cache decode failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return false
	}
	return true
}

// SetDetail stores a detail payload with TTL. Failures are logged only.
func (c *TicketCache) SetDetail(ctx context.Context, ticketID string, value any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("ticket cache encode failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, detailKeyPrefix+ticketID, raw, detailTTL).Err(); err != nil {
		c.logger.Warn("ticket cache set failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

// Invalidate drops the cached detail for a ticket.
func (c *TicketCache) Invalidate(ctx context.Context, ticketID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, detailKeyPrefix+ticketID).Err()
}
