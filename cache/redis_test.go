package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c, err := NewRedisCache(client, "novelforge:")
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	return c, mr
}

func TestNewRedisCache_RequiresClient(t *testing.T) {
	if _, err := NewRedisCache(nil, ""); err != ErrNilCache {
		t.Errorf("NewRedisCache(nil) error = %v, want ErrNilCache", err)
	}
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("generated text"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, ok := c.Get(ctx, "k")
	if !ok || string(value) != "generated text" {
		t.Errorf("Get() = (%q, %v), want the stored value", value, ok)
	}
}

func TestRedisCache_PrefixNamespacesKeys(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if !mr.Exists("novelforge:k") {
		t.Error("stored key is not namespaced with the prefix")
	}
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() hit after TTL elapsed")
	}
}

func TestRedisCache_ZeroTTLNotStored(t *testing.T) {
	c, mr := newTestRedisCache(t)

	if err := c.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if mr.Exists("novelforge:k") {
		t.Error("TTL=0 entry was stored")
	}
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() hit after Delete")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestRedisCache_MissOnServerDown(t *testing.T) {
	c, mr := newTestRedisCache(t)
	mr.Close()

	// A dead cache server degrades to misses, never errors.
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("Get() hit with the server down")
	}
}
