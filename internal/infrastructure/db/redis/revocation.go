package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationCache is a negative cache in front of the session ledger. A hit
// means the token hash was revoked; a miss says nothing and the caller must
// consult the ledger store.
// Key format: revoked:<token_hash>
type RevocationCache struct {
	client *redis.Client
}

// NewRevocationCache creates a RevocationCache wrapping the given Redis client.
func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{client: client}
}

// IsRevoked reports whether hash has been marked as revoked.
func (c *RevocationCache) IsRevoked(ctx context.Context, hash string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(hash)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

// MarkRevoked records hash as revoked until ttl elapses, which callers set
// to the remaining lifetime of the session.
func (c *RevocationCache) MarkRevoked(ctx context.Context, hash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.key(hash), "1", ttl).Err()
}

func (c *RevocationCache) key(hash string) string {
	return "revoked:" + hash
}
