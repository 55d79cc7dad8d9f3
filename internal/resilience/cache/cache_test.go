package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

func testRequest() domain.TranslationRequest {
	return domain.TranslationRequest{Text: "fever", SourceLang: "en", TargetLang: "es", Context: "general"}
}

func TestCache_PutGet(t *testing.T) {
	c := New(10)
	fp := Fingerprint(testRequest())

	c.Put(fp, domain.Result{TranslatedText: "fiebre", Confidence: 0.95}, time.Hour)

	entry, ok := c.Get(fp)
	if !ok {
		t.Fatal("expected a hit for a freshly stored entry")
	}
	if entry.Value.TranslatedText != "fiebre" {
		t.Errorf("expected fiebre, got %q", entry.Value.TranslatedText)
	}
	if entry.Value.Source != domain.SourceCache {
		t.Errorf("hits must be marked as cache-sourced, got %q", entry.Value.Source)
	}
	if entry.HitCount != 1 {
		t.Errorf("expected hit count 1, got %d", entry.HitCount)
	}
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	c := New(10)
	c.Put("fp", domain.Result{TranslatedText: "stale"}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("fp"); ok {
		t.Error("expired entry must behave as a miss")
	}

	stats := c.Stats()
	if stats.Size != 0 {
		t.Errorf("expired entry should be dropped on access, size=%d", stats.Size)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(2)
	c.Put("a", domain.Result{TranslatedText: "a"}, time.Hour)
	c.Put("b", domain.Result{TranslatedText: "b"}, time.Hour)

	// Touch a so b becomes the least recently used.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}

	c.Put("c", domain.Result{TranslatedText: "c"}, time.Hour)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestCache_GetOrCompute_ComputesOnce(t *testing.T) {
	c := New(10)

	var computeCalls int32
	var freshCount int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, fresh, err := c.GetOrCompute(context.Background(), "fp", time.Hour, func(ctx context.Context) (domain.Result, error) {
				atomic.AddInt32(&computeCalls, 1)
				time.Sleep(10 * time.Millisecond)
				return domain.Result{TranslatedText: "fiebre"}, nil
			})
			if err != nil {
				t.Errorf("GetOrCompute failed: %v", err)
				return
			}
			if res.TranslatedText != "fiebre" {
				t.Errorf("expected fiebre, got %q", res.TranslatedText)
			}
			if fresh {
				atomic.AddInt32(&freshCount, 1)
			}
		}()
	}
	wg.Wait()

	if calls := atomic.LoadInt32(&computeCalls); calls != 1 {
		t.Errorf("expected exactly 1 compute call, got %d", calls)
	}
	if fresh := atomic.LoadInt32(&freshCount); fresh != 1 {
		t.Errorf("exactly one caller must see fresh=true, got %d", fresh)
	}
}

func TestCache_GetOrCompute_ErrorNotCached(t *testing.T) {
	c := New(10)
	wantErr := errors.New("inference engine unavailable")

	_, _, err := c.GetOrCompute(context.Background(), "fp", time.Hour, func(ctx context.Context) (domain.Result, error) {
		return domain.Result{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected inference error to surface, got %v", err)
	}

	// A later compute must run: the failure was not stored.
	res, fresh, err := c.GetOrCompute(context.Background(), "fp", time.Hour, func(ctx context.Context) (domain.Result, error) {
		return domain.Result{TranslatedText: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("second compute failed: %v", err)
	}
	if !fresh || res.TranslatedText != "ok" {
		t.Errorf("expected a fresh successful compute, fresh=%v text=%q", fresh, res.TranslatedText)
	}
}

func TestCache_GetOrCompute_HitSkipsCompute(t *testing.T) {
	c := New(10)
	c.Put("fp", domain.Result{TranslatedText: "cached"}, time.Hour)

	res, fresh, err := c.GetOrCompute(context.Background(), "fp", time.Hour, func(ctx context.Context) (domain.Result, error) {
		t.Error("compute must not run on a hit")
		return domain.Result{}, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if fresh {
		t.Error("hit must not report fresh")
	}
	if res.TranslatedText != "cached" {
		t.Errorf("expected cached value, got %q", res.TranslatedText)
	}
}

func TestCache_ApplyCanonical_PreservesHitCount(t *testing.T) {
	c := New(10)
	c.Put("fp", domain.Result{TranslatedText: "local"}, time.Hour)
	c.Get("fp")
	c.Get("fp")

	c.ApplyCanonical("fp", domain.Result{TranslatedText: "canonical", ModelVersion: "v2"}, time.Hour)

	entry, ok := c.Get("fp")
	if !ok {
		t.Fatal("canonical entry missing")
	}
	if entry.Value.TranslatedText != "canonical" {
		t.Errorf("canonical value must overwrite local, got %q", entry.Value.TranslatedText)
	}
	if entry.HitCount != 3 {
		t.Errorf("hit count should carry over the overwrite, got %d", entry.HitCount)
	}
}

func TestCache_EvictExpired(t *testing.T) {
	c := New(10)
	c.Put("live", domain.Result{}, time.Hour)
	c.Put("dead1", domain.Result{}, time.Millisecond)
	c.Put("dead2", domain.Result{}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if n := c.EvictExpired(); n != 2 {
		t.Errorf("expected 2 evictions, got %d", n)
	}
	if stats := c.Stats(); stats.Size != 1 {
		t.Errorf("expected 1 live entry, got %d", stats.Size)
	}
}

func TestCache_LoadEntries_DropsExpired(t *testing.T) {
	c := New(10)
	now := time.Now()
	entries := []*domain.CacheEntry{
		{Fingerprint: "live", Value: domain.Result{TranslatedText: "ok"}, ExpiresAt: now.Add(time.Hour)},
		{Fingerprint: "expired", Value: domain.Result{}, ExpiresAt: now.Add(-time.Hour)},
	}

	if restored := c.LoadEntries(entries); restored != 1 {
		t.Errorf("expected 1 restored entry, got %d", restored)
	}
	if _, ok := c.Get("live"); !ok {
		t.Error("live entry should be restored")
	}
	if _, ok := c.Get("expired"); ok {
		t.Error("expired entry must not be restored")
	}
}

func TestCache_Stats(t *testing.T) {
	c := New(10)
	c.Put("fp", domain.Result{}, time.Hour)

	c.Get("fp")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", stats.HitRate)
	}
}
