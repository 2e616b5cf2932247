package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/karalisweb/leadaudit/internal/config"
	"github.com/karalisweb/leadaudit/internal/domain"
)

// Cache provides Redis caching functionality
type Cache struct {
	client *redis.Client
}

// Key prefixes for different cache types
const (
	PrefixLead      = "lead:"
	PrefixAuditLock = "auditlock:"
	PrefixEvents    = "auditevents:"
	PrefixRateLimit = "ratelimit:"
)

// Default TTLs
const (
	DefaultTTL      = 15 * time.Minute
	LeadTTL         = 30 * time.Minute
	RateLimitWindow = 1 * time.Minute
)

// New creates a new Redis cache client
func New(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health checks Redis connectivity
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client for advanced operations
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Lead caching methods

// GetLead retrieves a cached lead
func (c *Cache) GetLead(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	key := PrefixLead + id.String()
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var lead domain.Lead
	if err := json.Unmarshal(data, &lead); err != nil {
		return nil, err
	}

	return &lead, nil
}

// SetLead caches a lead
func (c *Cache) SetLead(ctx context.Context, lead *domain.Lead) error {
	key := PrefixLead + lead.ID.String()
	data, err := json.Marshal(lead)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, LeadTTL).Err()
}

// InvalidateLead removes a lead from cache
func (c *Cache) InvalidateLead(ctx context.Context, id uuid.UUID) error {
	key := PrefixLead + id.String()
	return c.client.Del(ctx, key).Err()
}

// GetAuditStatus retrieves a cached audit status
func (c *Cache) GetAuditStatus(ctx context.Context, id uuid.UUID) (domain.AuditStatus, error) {
	key := PrefixLead + id.String() + ":status"
	status, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}

	return domain.AuditStatus(status), nil
}

// SetAuditStatus caches an audit status
func (c *Cache) SetAuditStatus(ctx context.Context, id uuid.UUID, status domain.AuditStatus) error {
	key := PrefixLead + id.String() + ":status"
	return c.client.Set(ctx, key, string(status), DefaultTTL).Err()
}

// Rate limiting

// CheckRateLimit checks and increments rate limit counter
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error) {
	fullKey := PrefixRateLimit + key

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, RateLimitWindow)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}

// Generic caching methods

// Get retrieves a value from cache
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value in cache
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value from cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Pub/Sub for real-time audit progress

// PublishEvent publishes a step event on the lead's audit channel
func (c *Cache) PublishEvent(ctx context.Context, leadID uuid.UUID, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, PrefixEvents+leadID.String(), data).Err()
}

// SubscribeEvents subscribes to a lead's audit channel
func (c *Cache) SubscribeEvents(ctx context.Context, leadID uuid.UUID) *redis.PubSub {
	return c.client.Subscribe(ctx, PrefixEvents+leadID.String())
}
