package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Pages {
	t.Helper()
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	rdb := NewRedisClient(host, 6379, "", 15)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping cache tests: redis not available (%v)", err)
	}
	prefix := "cache:comments:test:"
	t.Cleanup(func() {
		p := NewPages(rdb, prefix, DefaultTTL, nil)
		p.Clear(context.Background())
		_ = rdb.Close()
	})
	return NewPages(rdb, prefix, DefaultTTL, nil)
}

func TestPagesRoundTrip(t *testing.T) {
	p := testClient(t)
	ctx := context.Background()

	_, ok := p.Get(ctx, 1, 25)
	require.False(t, ok)

	payload := []byte(`{"data":[]}`)
	p.Set(ctx, 1, 25, payload)

	got, ok := p.Get(ctx, 1, 25)
	require.True(t, ok)
	assert.Equal(t, payload, got)

	// Distinct per_page is a distinct key.
	_, ok = p.Get(ctx, 1, 10)
	assert.False(t, ok)
}

func TestPagesClear(t *testing.T) {
	p := testClient(t)
	ctx := context.Background()

	p.Set(ctx, 1, 25, []byte("a"))
	p.Set(ctx, 2, 25, []byte("b"))
	p.Clear(ctx)

	_, ok := p.Get(ctx, 1, 25)
	assert.False(t, ok)
	_, ok = p.Get(ctx, 2, 25)
	assert.False(t, ok)
}

func TestPagesNilClientDegrades(t *testing.T) {
	p := NewPages(nil, "", 0, nil)
	ctx := context.Background()

	p.Set(ctx, 1, 25, []byte("a"))
	_, ok := p.Get(ctx, 1, 25)
	assert.False(t, ok)
	p.Clear(ctx) // must not panic
}
