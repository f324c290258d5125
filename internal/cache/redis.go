package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"albumserver/internal/store"
)

const (
	artistKeyPrefix     = "albums:artist:"
	generationKeyPrefix = "albums:artist-gen:"
)

var errStaleGeneration = errors.New("artist generation changed")

// NewRedisClient builds a pooled Redis client.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// ArtistCache stores artist lookups in Redis as JSON.
type ArtistCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewArtistCache returns an ArtistCache whose entries expire after ttl.
func NewArtistCache(client *redis.Client, ttl time.Duration) *ArtistCache {
	return &ArtistCache{client: client, ttl: ttl}
}

// Ping verifies the Redis connection.
func (c *ArtistCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Artist returns the cached albums for artist. The bool is false on a miss.
func (c *ArtistCache) Artist(ctx context.Context, artist string) ([]store.Album, bool, error) {
	raw, err := c.client.Get(ctx, artistKey(artist)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get artist %q: %w", artist, err)
	}

	var albums []store.Album
	if err := json.Unmarshal(raw, &albums); err != nil {
		return nil, false, fmt.Errorf("decode artist %q: %w", artist, err)
	}
	return albums, true, nil
}

// Generation returns the invalidation counter for artist, zero if never invalidated.
func (c *ArtistCache) Generation(ctx context.Context, artist string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(artist)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("get generation %q: %w", artist, err)
	}
	return gen, nil
}

// SetArtist caches albums for artist if no invalidation happened since
// generation was read. A stale fill is dropped silently.
func (c *ArtistCache) SetArtist(ctx context.Context, artist string, generation int64, albums []store.Album) error {
	raw, err := json.Marshal(albums)
	if err != nil {
		return fmt.Errorf("encode artist %q: %w", artist, err)
	}

	genKey := generationKey(artist)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, artistKey(artist), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil, errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("set artist %q: %w", artist, err)
	}
}

// InvalidateArtist drops the cached entry for artist and bumps its generation.
func (c *ArtistCache) InvalidateArtist(ctx context.Context, artist string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(artist))
		pipe.Del(ctx, artistKey(artist))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate artist %q: %w", artist, err)
	}
	return nil
}

// Close releases the underlying client.
func (c *ArtistCache) Close() error {
	return c.client.Close()
}

func artistKey(artist string) string {
	return artistKeyPrefix + artist
}

func generationKey(artist string) string {
	return generationKeyPrefix + artist
}
