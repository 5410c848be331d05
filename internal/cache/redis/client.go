package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/pkg/logger"
	"github.com/gambia-creative/assessment/pkg/utils"
)

const (
	analysisPrefix = "analysis:"
	summaryPrefix  = "summary:"
)

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// AnalysisKey identifies one analyze call. The lexicon version is part of the
// key so results computed with a different theme configuration never match.
func AnalysisKey(lexiconVersion, text string, rating *int) string {
	r := "-"
	if rating != nil {
		r = strconv.Itoa(*rating)
	}
	return analysisPrefix + utils.HashString(lexiconVersion+"|"+r+"|"+text)
}

func SummaryKey(entityID string) string {
	return summaryPrefix + entityID
}

func (c *Client) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key: %w", err)
	}

	logger.Debug("Cache entry stored", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *Client) get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache key: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	logger.Debug("Cache hit", zap.String("key", key))
	return true, nil
}

func (c *Client) SetAnalysis(ctx context.Context, key string, result interface{}) error {
	return c.set(ctx, key, result)
}

func (c *Client) GetAnalysis(ctx context.Context, key string, out interface{}) (bool, error) {
	return c.get(ctx, key, out)
}

func (c *Client) SetSummary(ctx context.Context, entityID string, summary interface{}) error {
	return c.set(ctx, SummaryKey(entityID), summary)
}

func (c *Client) GetSummary(ctx context.Context, entityID string, out interface{}) (bool, error) {
	return c.get(ctx, SummaryKey(entityID), out)
}

func (c *Client) DeleteSummary(ctx context.Context, entityID string) error {
	if err := c.client.Del(ctx, SummaryKey(entityID)).Err(); err != nil {
		return fmt.Errorf("failed to delete summary cache: %w", err)
	}
	return nil
}

// InvalidateAnalyses drops every cached analysis, for use after the lexicon
// changes.
func (c *Client) InvalidateAnalyses(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, analysisPrefix+"*", 0).Iterator()
	removed := 0
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
			continue
		}
		removed++
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Analysis cache invalidated", zap.Int("removed", removed))
	return nil
}
