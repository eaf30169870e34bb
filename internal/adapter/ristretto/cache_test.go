package ristretto_test

import (
	"context"
	"testing"
	"time"

	ristrettocache "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/ristretto"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/cache"
)

var _ cache.Cache = (*ristrettocache.Cache)(nil)

func newCache(t *testing.T) *ristrettocache.Cache {
	t.Helper()
	c, err := ristrettocache.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestSetAndGet(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte("val"), time.Minute); err != nil {
		t.Fatal(err)
	}
	c.Wait()

	val, found, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected found after Set")
	}
	if string(val) != "val" {
		t.Fatalf("expected val, got %s", val)
	}
}

func TestGetMiss(t *testing.T) {
	c := newCache(t)

	_, found, err := c.Get(context.Background(), "nonexistent-key")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss for nonexistent key")
	}
}

func TestDelete(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "del-key", []byte("del-val"), time.Minute)
	c.Wait()

	if err := c.Delete(ctx, "del-key"); err != nil {
		t.Fatal(err)
	}
	_, found, err := c.Get(ctx, "del-key")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss after Delete")
	}
}

func TestDeleteNonexistent(t *testing.T) {
	c := newCache(t)

	if err := c.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatal("Delete of nonexistent key should not error")
	}
}

func TestOverwrite(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "ow-key", []byte("v1"), time.Minute)
	c.Wait()
	_ = c.Set(ctx, "ow-key", []byte("v2"), time.Minute)
	c.Wait()

	val, found, err := c.Get(ctx, "ow-key")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected found after overwrite")
	}
	if string(val) != "v2" {
		t.Fatalf("expected v2 after overwrite, got %s", val)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "ttl-key", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	c.Wait()

	if _, found, _ := c.Get(ctx, "ttl-key"); !found {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "ttl-key"); found {
		t.Fatal("expected miss after TTL expiry")
	}
}
