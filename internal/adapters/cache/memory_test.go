package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/taskmaster/bacheca/internal/adapters/cache"
	"github.com/taskmaster/bacheca/internal/ports"
)

type payload struct {
	IDs  []int64
	Name string
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()

	in := payload{IDs: []int64{3, 1, 2}, Name: "view"}
	if err := c.Set(ctx, "view:a:WORK", in, time.Minute); err != nil {
		t.Fatal(err)
	}

	var out payload
	if err := c.Get(ctx, "view:a:WORK", &out); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("cached value mismatch (-want +got):\n%s", diff)
	}

	if err := c.Delete(ctx, "view:a:WORK", "view:a:FREE_TIME"); err != nil {
		t.Fatal(err)
	}
	if err := c.Get(ctx, "view:a:WORK", &out); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("Get after Delete: got %v, want ErrCacheMiss", err)
	}
}

func TestNopCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c cache.NopCache

	if err := c.Set(ctx, "k", 1, 0); err != nil {
		t.Fatal(err)
	}
	var v int
	if err := c.Get(ctx, "k", &v); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("got %v, want ErrCacheMiss", err)
	}
}
