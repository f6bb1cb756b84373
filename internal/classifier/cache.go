package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache stores serialized suggestions.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis server at url (redis:// or rediss://).
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("NewRedisCache: parse url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewRedisCache: ping: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("RedisCache.Get: %w", err)
	}
	return val, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("RedisCache.Set: %w", err)
	}
	return nil
}

// Close closes the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachingClassifier serves repeated requests from a Cache. Only successful
// suggestions are cached; cache failures fall through to the wrapped
// classifier.
type CachingClassifier struct {
	next  Classifier
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachingClassifier wraps next with cache.
func NewCachingClassifier(next Classifier, cache Cache, ttl time.Duration, log zerolog.Logger) *CachingClassifier {
	return &CachingClassifier{next: next, cache: cache, ttl: ttl, log: log}
}

// Categorize implements Classifier.
func (c *CachingClassifier) Categorize(ctx context.Context, req Request) (domain.AISuggestion, error) {
	key := cacheKey(req)

	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn().Err(err).Msg("Suggestion cache read failed")
	} else if ok {
		var s domain.AISuggestion
		if err := json.Unmarshal(data, &s); err == nil {
			return s, nil
		}
		c.log.Warn().Str("key", key).Msg("Discarding undecodable cached suggestion")
	}

	s, err := c.next.Categorize(ctx, req)
	if err != nil {
		return domain.AISuggestion{}, err
	}

	if data, err := json.Marshal(s); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.log.Warn().Err(err).Msg("Suggestion cache write failed")
		}
	}
	return s, nil
}

// cacheKey derives a stable key from the normalised request.
func cacheKey(req Request) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.Join(strings.Fields(req.Description), " ")))
	b.WriteString("|")
	if req.Amount != nil {
		b.WriteString(req.Amount.StringFixed(2))
	}
	b.WriteString("|")
	if req.Date != nil {
		b.WriteString(req.Date.UTC().Format("2006-01-02"))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "suggestion:v1:" + hex.EncodeToString(sum[:])
}

var _ Classifier = (*CachingClassifier)(nil)
var _ Cache = (*RedisCache)(nil)
