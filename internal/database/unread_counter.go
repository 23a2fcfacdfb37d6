package database

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"pillscare/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// UnreadCounter caches the unread count per recipient in Redis in front of
// any Store. Every other method passes straight through. The store stays
// the source of truth: writes drop the cached count and bump a version key,
// and a fill only lands if no write touched the version while the store
// was being read. Redis errors are logged and answered from the store.
type UnreadCounter struct {
	Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewUnreadCounter(store Store, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *UnreadCounter {
	return &UnreadCounter{
		Store:  store,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func unreadKey(recipient uuid.UUID) string {
	return "unread:" + recipient.String()
}

func unreadVersionKey(recipient uuid.UUID) string {
	return "unread:ver:" + recipient.String()
}

// invalidate runs after the store write has committed.
func (c *UnreadCounter) invalidate(ctx context.Context, recipient uuid.UUID) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, unreadKey(recipient))
		pipe.Incr(ctx, unreadVersionKey(recipient))
		return nil
	})
	if err != nil {
		c.logger.Warn("unread counter invalidate failed", "recipient", recipient, "error", err)
	}
}

func (c *UnreadCounter) AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	stored, err := c.Store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	if !stored.Read {
		c.invalidate(ctx, stored.ReceiverID)
	}
	return stored, nil
}

func (c *UnreadCounter) SetRead(ctx context.Context, sender, receiver uuid.UUID, at time.Time) (int64, error) {
	n, err := c.Store.SetRead(ctx, sender, receiver, at)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.invalidate(ctx, receiver)
	}
	return n, nil
}

// CountUnread reads the cached count, filling it from the store on a miss.
func (c *UnreadCounter) CountUnread(ctx context.Context, recipient uuid.UUID) (int64, error) {
	key := unreadKey(recipient)
	v, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		if n, convErr := strconv.ParseInt(v, 10, 64); convErr == nil {
			return n, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("unread counter read failed", "recipient", recipient, "error", err)
	}

	var (
		n        int64
		storeErr error
		counted  bool
	)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, storeErr = c.Store.CountUnread(ctx, recipient)
		counted = true
		if storeErr != nil {
			return storeErr
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, n, c.ttl)
			return nil
		})
		return err
	}, unreadVersionKey(recipient))

	if !counted {
		c.logger.Warn("unread counter fill failed", "recipient", recipient, "error", err)
		return c.Store.CountUnread(ctx, recipient)
	}
	if storeErr != nil {
		return 0, storeErr
	}
	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		// A write raced the fill; n is still a valid read, just not cached.
		c.logger.Debug("unread counter fill skipped after concurrent write", "recipient", recipient)
	default:
		c.logger.Warn("unread counter fill failed", "recipient", recipient, "error", err)
	}
	return n, nil
}

// Close closes the Redis client and then the wrapped store.
func (c *UnreadCounter) Close(ctx context.Context) error {
	redisErr := c.rdb.Close()
	if err := c.Store.Close(ctx); err != nil {
		return err
	}
	return redisErr
}
