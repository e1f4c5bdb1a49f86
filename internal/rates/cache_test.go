package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeLookup struct {
	mu    sync.Mutex
	rates map[string]float64
	calls int
	err   error
}

func (f *fakeLookup) LatestRate(_ context.Context, code, _ string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, false, f.err
	}
	r, ok := f.rates[code]
	return r, ok, nil
}

func (f *fakeLookup) set(code string, rate float64) {
	f.mu.Lock()
	f.rates[code] = rate
	f.mu.Unlock()
}

func TestRateCachesLookups(t *testing.T) {
	lk := &fakeLookup{rates: map[string]float64{"KRW": 190}}
	c := New(lk, 10, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if got := c.Rate(ctx, "krw"); got != 190 {
			t.Fatalf("Rate = %v, want 190", got)
		}
	}
	if lk.calls != 1 {
		t.Errorf("expected 1 lookup, got %d", lk.calls)
	}
}

func TestRateFallsBackToDefaults(t *testing.T) {
	lk := &fakeLookup{rates: map[string]float64{}}
	c := New(lk, 10, map[string]float64{"eur": 7.8}, nil)
	ctx := context.Background()

	krw, usd := c.Display(ctx)
	if krw != 180.0 || usd != 7.0 {
		t.Errorf("Display = %v, %v; want 180, 7", krw, usd)
	}
	if got := c.Rate(ctx, "EUR"); got != 7.8 {
		t.Errorf("EUR default = %v, want 7.8", got)
	}
	if got := c.Rate(ctx, "JPY"); got != 0 {
		t.Errorf("unknown code = %v, want 0", got)
	}
}

func TestLookupErrorIsNotCached(t *testing.T) {
	lk := &fakeLookup{rates: map[string]float64{"USD": 6.9}, err: errors.New("database is locked")}
	c := New(lk, 10, nil, nil)
	ctx := context.Background()

	if got := c.Rate(ctx, "USD"); got != 7.0 {
		t.Errorf("expected default on error, got %v", got)
	}
	lk.mu.Lock()
	lk.err = nil
	lk.mu.Unlock()
	if got := c.Rate(ctx, "USD"); got != 6.9 {
		t.Errorf("expected recorded rate after recovery, got %v", got)
	}
}

func TestInvalidateReloads(t *testing.T) {
	lk := &fakeLookup{rates: map[string]float64{"KRW": 185}}
	c := New(lk, 10, nil, nil)
	ctx := context.Background()

	c.Rate(ctx, "KRW")
	lk.set("KRW", 200)
	if got := c.Rate(ctx, "KRW"); got != 185 {
		t.Errorf("expected stale cached value 185 before invalidation, got %v", got)
	}
	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	if got := c.Rate(ctx, "KRW"); got != 200 {
		t.Errorf("expected 200 after invalidation, got %v", got)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	lk := &fakeLookup{rates: map[string]float64{}}
	for i := 0; i < 5; i++ {
		lk.rates[fmt.Sprintf("C%d", i)] = float64(i + 1)
	}
	c := New(lk, 3, nil, nil)
	ctx := context.Background()

	c.Rate(ctx, "C0")
	c.Rate(ctx, "C1")
	c.Rate(ctx, "C2")
	c.Rate(ctx, "C0") // C1 is now least recent
	c.Rate(ctx, "C3")

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}
	before := lk.calls
	c.Rate(ctx, "C0")
	if lk.calls != before {
		t.Error("C0 should still be cached")
	}
	c.Rate(ctx, "C1")
	if lk.calls != before+1 {
		t.Error("C1 should have been evicted")
	}
}

func TestConcurrentReads(t *testing.T) {
	lk := &fakeLookup{rates: map[string]float64{"KRW": 181, "USD": 7.1}}
	c := New(lk, DefaultSize, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				c.Invalidate()
			}
			krw, usd := c.Display(ctx)
			if krw != 181 || usd != 7.1 {
				t.Errorf("Display = %v, %v", krw, usd)
			}
		}(i)
	}
	wg.Wait()
}
