package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/matzehuels/inksite/pkg/errors"
)

// DefaultKeyPrefix namespaces build caches in a shared redis.
const DefaultKeyPrefix = "inksite:render_cache:"

// RedisBackend stores the cache JSON in a single redis string. The key is
// derived from the absolute build directory, so several sites can share one
// redis without colliding.
type RedisBackend struct {
	client redis.UniversalClient
	key    string
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client redis.UniversalClient, prefix, buildDir string) *RedisBackend {
	return &RedisBackend{client: client, key: Key(prefix, buildDir)}
}

// DialRedis connects to addr and verifies the connection with a PING.
func DialRedis(ctx context.Context, addr, prefix, buildDir string) (*RedisBackend, error) {
	if addr == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeConfig, "redis cache backend requires an address")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeIO, err, "connect to redis at %s", addr)
	}
	return NewRedisBackend(client, prefix, buildDir), nil
}

// Key returns the redis key for the cache of buildDir.
func Key(prefix, buildDir string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if abs, err := filepath.Abs(buildDir); err == nil {
		buildDir = abs
	}
	return prefix + dirHash(filepath.Clean(buildDir))
}

// dirHash is the hex of the first 16 bytes of the SHA-256 of dir.
func dirHash(dir string) string {
	sum := sha256.Sum256([]byte(dir))
	return hex.EncodeToString(sum[:16])
}

func (b *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeIO, err, "redis get %s", b.key)
	}
	return data, nil
}

func (b *RedisBackend) Save(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeIO, err, "redis set %s", b.key)
	}
	return nil
}

func (b *RedisBackend) Clear(ctx context.Context) error {
	if err := b.client.Del(ctx, b.key).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeIO, err, "redis del %s", b.key)
	}
	return nil
}

func (b *RedisBackend) Name() string     { return KindRedis }
func (b *RedisBackend) Location() string { return describe("redis", b.key) }
func (b *RedisBackend) Close() error     { return b.client.Close() }
