package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"preflight/internal/model"
)

const catalogKey = "catalog:questions"

// CatalogCache keeps the ordered question catalog in Redis so every wizard
// request does not hit Mongo.
type CatalogCache interface {
	Get(ctx context.Context) ([]model.QuestionDefinition, error)
	Set(ctx context.Context, questions []model.QuestionDefinition) error
	Invalidate(ctx context.Context) error
}

type catalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &catalogCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns nil, nil on a miss
func (c *catalogCache) Get(ctx context.Context) ([]model.QuestionDefinition, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var questions []model.QuestionDefinition
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *catalogCache) Set(ctx context.Context, questions []model.QuestionDefinition) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, data, c.ttl).Err()
}

func (c *catalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}
