package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const snapshotKeyPattern = "bot:session:%s" // bot:session:accountID

// Service caches session snapshots and the capacity overview so status
// reads do not have to hit the registry owner or MongoDB.
type Service interface {
	SaveSnapshot(ctx context.Context, sess *models.BotSession) error
	GetSnapshot(ctx context.Context, accountID string) (*models.BotSession, error)
	DeleteSnapshot(ctx context.Context, accountID string) error
	SaveOverview(ctx context.Context, overview *models.Overview) error
	GetOverview(ctx context.Context) (*models.Overview, error)
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache,
	}
}

func (c *cacheService) SaveSnapshot(ctx context.Context, sess *models.BotSession) error {
	key := fmt.Sprintf(snapshotKeyPattern, sess.AccountID)

	data, err := json.Marshal(sess)
	if err != nil {
		logrus.WithError(err).WithField("account_id", sess.AccountID).Error("Failed to marshal session snapshot")
		return models.ErrRedisSet
	}

	ttl := time.Duration(c.cfg.SnapshotExpirationMinutes) * time.Minute
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logrus.WithError(err).WithField("account_id", sess.AccountID).Error("Failed to cache session snapshot")
		return models.ErrRedisSet
	}

	return nil
}

func (c *cacheService) GetSnapshot(ctx context.Context, accountID string) (*models.BotSession, error) {
	key := fmt.Sprintf(snapshotKeyPattern, accountID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).WithField("account_id", accountID).Error("Failed to get session snapshot")
		return nil, models.ErrRedisGet
	}

	var sess models.BotSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		logrus.WithError(err).WithField("account_id", accountID).Error("Failed to unmarshal session snapshot")
		return nil, models.ErrRedisGet
	}

	return &sess, nil
}

func (c *cacheService) DeleteSnapshot(ctx context.Context, accountID string) error {
	key := fmt.Sprintf(snapshotKeyPattern, accountID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("account_id", accountID).Error("Failed to delete session snapshot")
		return models.ErrRedisDelete
	}
	return nil
}

func (c *cacheService) SaveOverview(ctx context.Context, overview *models.Overview) error {
	data, err := json.Marshal(overview)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal overview stats")
		return models.ErrRedisSet
	}

	ttl := time.Duration(c.cfg.OverviewExpirationMinutes) * time.Minute
	if err := c.client.Set(ctx, c.cfg.OverviewStatKey, data, ttl).Err(); err != nil {
		logrus.WithError(err).Error("Failed to cache overview stats")
		return models.ErrRedisSet
	}
	return nil
}

func (c *cacheService) GetOverview(ctx context.Context) (*models.Overview, error) {
	data, err := c.client.Get(ctx, c.cfg.OverviewStatKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).Error("Failed to get overview stats")
		return nil, models.ErrRedisGet
	}

	var overview models.Overview
	if err := json.Unmarshal([]byte(data), &overview); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal overview stats")
		return nil, models.ErrRedisGet
	}

	return &overview, nil
}
