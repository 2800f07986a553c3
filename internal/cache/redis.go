package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	EntriesKey   = "entries:collection"
	loginKeyPfx  = "auth:"
	loginTTL     = 15 * time.Minute
	pingTimeout  = 5 * time.Second
	checkTimeout = 2 * time.Second
)

// Options selects the Redis server. An empty Addr leaves caching disabled.
type Options struct {
	Addr     string
	Password string
	DB       int
}

var client *redis.Client

// Init connects to Redis. On failure the client stays nil and every helper
// in this package becomes a no-op.
func Init(opts Options) error {
	if opts.Addr == "" {
		client = nil
		return nil
	}

	c := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		client = nil
		return err
	}
	client = c
	return nil
}

// SetClient installs an already-connected client; nil disables caching
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client, nil when caching is disabled
func GetClient() *redis.Client {
	return client
}

// Close releases the connection
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// loginKey binds a credential pair to the configured bcrypt hash, so a
// password change drops every cached login
func loginKey(passwordHash, username, password string) string {
	h := sha256.New()
	h.Write([]byte(passwordHash))
	h.Write([]byte{0})
	h.Write([]byte(username))
	h.Write([]byte{0})
	h.Write([]byte(password))
	return loginKeyPfx + hex.EncodeToString(h.Sum(nil))
}

// GetCachedLogin reports whether this credential pair was verified recently
// against passwordHash
func GetCachedLogin(ctx context.Context, passwordHash, username, password string) bool {
	if client == nil {
		return false
	}
	v, err := client.Get(ctx, loginKey(passwordHash, username, password)).Result()
	return err == nil && v == username
}

// CacheLogin remembers a verified credential pair for 15 minutes
func CacheLogin(ctx context.Context, passwordHash, username, password string) {
	if client == nil {
		return
	}
	client.Set(ctx, loginKey(passwordHash, username, password), username, loginTTL)
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	return client.Set(ctx, key, data, ttl).Err()
}

// SetCachedIfAbsent stores data only when key holds nothing, so a slow
// reader never overwrites a value a writer stored after it
func SetCachedIfAbsent(ctx context.Context, key string, data []byte, ttl time.Duration) bool {
	if client == nil {
		return false
	}
	ok, err := client.SetNX(ctx, key, data, ttl).Result()
	return err == nil && ok
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// IsHealthy returns true if the Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

// Enabled reports whether a client is installed
func Enabled() bool {
	return client != nil
}
