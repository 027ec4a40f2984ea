package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestInsightCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewInsightCache(newClient(mr), time.Minute)
	loader := &countingLoader{payload: []byte(`{"examName":"UPSC CSE"}`)}

	got, err := cache.Fetch(context.Background(), "exam-result:upsc cse", loader.load)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got) != `{"examName":"UPSC CSE"}` {
		t.Fatalf("unexpected payload %s", got)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("insight:exam-result:upsc cse") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("insight:exam-result:upsc cse"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("ttl out of jitter range: %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	_, _ = cache.Fetch(context.Background(), "exam-result:upsc cse", loader.load)
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestInsightCacheSkipsFailedLoads(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewInsightCache(newClient(mr), time.Minute)
	boom := errors.New("boom")
	loader := &countingLoader{err: boom}

	if _, err := cache.Fetch(context.Background(), "k", loader.load); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if mr.Exists("insight:k") {
		t.Fatalf("failed load must not be cached")
	}
}

type countingLoader struct {
	payload []byte
	err     error
	calls   int
}

func (l *countingLoader) load(context.Context) ([]byte, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.payload, nil
}

func TestInsightCacheLoadSurvivesCancelledCaller(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewInsightCache(newClient(mr), time.Minute)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) ([]byte, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []byte(`{"items":[]}`), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.Fetch(ctx, "current-affairs:2024-may", load)
		firstErr <- err
	}()
	<-started
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to return, got %v", err)
	}

	type result struct {
		data []byte
		err  error
	}
	second := make(chan result, 1)
	go func() {
		data, err := cache.Fetch(context.Background(), "current-affairs:2024-may", load)
		second <- result{data, err}
	}()
	close(release)

	got := <-second
	if got.err != nil {
		t.Fatalf("healthy caller failed: %v", got.err)
	}
	if string(got.data) != `{"items":[]}` {
		t.Fatalf("unexpected payload %s", got.data)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one shared load, got %d", n)
	}
	if !mr.Exists("insight:current-affairs:2024-may") {
		t.Fatalf("expected payload stored after cancelled caller left")
	}
}
