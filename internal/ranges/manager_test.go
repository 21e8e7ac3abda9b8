package ranges

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/HarshVaragiya/pailfrog/internal/web/webtest"
)

func TestCacheLoadStore(t *testing.T) {
	cache := NewCache(t.TempDir())
	if _, err := cache.Load("aws", time.Hour); !errors.Is(err, ErrNotCached) {
		t.Fatalf("load empty cache err = %v, want ErrNotCached", err)
	}
	if err := cache.Store("aws", []byte(awsDocument)); err != nil {
		t.Fatalf("store: %v", err)
	}
	body, err := cache.Load("aws", time.Hour)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(body) != awsDocument {
		t.Fatalf("cached body mismatch")
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(cache.Path("aws"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	body, err = cache.Load("aws", DefaultMaxAge)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("load stale err = %v, want ErrStale", err)
	}
	if string(body) != awsDocument {
		t.Fatalf("stale load should still return the document")
	}
}

func newTestManager(t *testing.T, status *atomic.Int32, hits *atomic.Int32) *Manager {
	client := webtest.NewClient(t, func(ctx *fasthttp.RequestCtx) {
		hits.Add(1)
		ctx.SetStatusCode(int(status.Load()))
		ctx.SetBodyString(awsDocument)
	})
	return NewManager(NewCache(t.TempDir()), client)
}

func TestManagerUsesFreshCache(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(fasthttp.StatusOK)
	m := newTestManager(t, &status, &hits)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		prefixes, err := m.Ranges(ctx, AWS{}, Filter{}, false)
		if err != nil {
			t.Fatalf("ranges: %v", err)
		}
		if len(prefixes) != 5 {
			t.Fatalf("prefixes = %d, want 5", len(prefixes))
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("fetches = %d, want 1", hits.Load())
	}

	if _, err := m.Ranges(ctx, AWS{}, Filter{}, true); err != nil {
		t.Fatalf("forced update: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("fetches after forced update = %d, want 2", hits.Load())
	}
}

func TestManagerFallsBackToStaleCopy(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(fasthttp.StatusOK)
	m := newTestManager(t, &status, &hits)
	ctx := context.Background()
	if _, err := m.Update(ctx, AWS{}); err != nil {
		t.Fatalf("update: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(m.Cache.Path("aws"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	status.Store(fasthttp.StatusServiceUnavailable)
	prefixes, err := m.Ranges(ctx, AWS{}, Filter{}, false)
	if err != nil {
		t.Fatalf("ranges with failing upstream: %v", err)
	}
	if len(prefixes) != 5 {
		t.Fatalf("prefixes = %d, want 5", len(prefixes))
	}
	if hits.Load() != 2 {
		t.Fatalf("fetches = %d, want 2", hits.Load())
	}
}

func TestManagerFailsWithoutCache(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(fasthttp.StatusForbidden)
	m := newTestManager(t, &status, &hits)
	if _, err := m.Ranges(context.Background(), AWS{}, Filter{}, false); err == nil {
		t.Fatalf("expected error when upstream fails and nothing is cached")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(fasthttp.StatusOK)
	m := newTestManager(t, &status, &hits)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := m.Watch(ctx, []Source{AWS{}}, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("watch err = %v, want deadline exceeded", err)
	}
	if hits.Load() < 2 {
		t.Fatalf("fetches = %d, want a download on every tick", hits.Load())
	}
}

func TestWatchKeepsCacheWhenDownloadFails(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(fasthttp.StatusOK)
	m := newTestManager(t, &status, &hits)
	if _, err := m.Document(context.Background(), AWS{}, false); err != nil {
		t.Fatalf("document: %v", err)
	}
	status.Store(fasthttp.StatusInternalServerError)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	m.Watch(ctx, []Source{AWS{}}, 10*time.Millisecond)

	if hits.Load() < 2 {
		t.Fatalf("fetches = %d, want failed downloads on ticks", hits.Load())
	}
	body, err := m.Cache.Load("aws", time.Hour)
	if err != nil || string(body) != awsDocument {
		t.Fatalf("cached document lost after failed download: %v", err)
	}
}
