package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"grouptrip/internal/domain"
)

// ---- fakes ----

type fakeProvider struct {
	name  string
	cat   domain.Category
	rows  []map[string]any
	err   error
	delay time.Duration
	gate  chan struct{} // when set, Search blocks until it is closed
	calls int32
}

func (f *fakeProvider) Name() string {
	if f.name != "" {
		return f.name
	}
	return "fake-" + string(f.cat)
}
func (f *fakeProvider) Category() domain.Category { return f.cat }

func (f *fakeProvider) Search(ctx context.Context, _ domain.OfferQuery) ([]map[string]any, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.rows, f.err
}

type fakePackager struct {
	out []domain.ProvidedPackage
	err error
}

func (f *fakePackager) Name() string { return "fake-ranker" }
func (f *fakePackager) Packages(context.Context, domain.OfferQuery, map[domain.Category][]domain.CategoryOption) ([]domain.ProvidedPackage, error) {
	return f.out, f.err
}

// fakeCache round-trips through JSON like the Redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrCacheCorrupt, err)
	}
	return true, nil
}

func (c *fakeCache) putRaw(key string, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.store))
	for k := range c.store {
		out = append(out, k)
	}
	return out
}

type fakePayments struct {
	mu      sync.Mutex
	charged []int64
	err     error
}

func (f *fakePayments) Charge(_ context.Context, amount int64, _ string, _ domain.PaymentInfo) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charged = append(f.charged, amount)
	return "txn_test", nil
}

func (f *fakePayments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.charged)
}

// standardProviders answers every category but meeting rooms.
func standardProviders() []*fakeProvider {
	return []*fakeProvider{
		{cat: domain.CategoryFlight, rows: []map[string]any{
			{"id": "f1", "airline": "TAP", "price": 300, "rating": 4.2},
			{"id": "f2", "airline": "Iberia", "price": 250, "stops": 1},
		}},
		{cat: domain.CategoryHotel, rows: []map[string]any{
			{"id": "h1", "name": "Alfama", "price": 200, "vendor": "A"},
			{"id": "h2", "name": "Baixa", "price": 100, "vendor": "B"},
		}},
		{cat: domain.CategoryMeetingRoom},
		{cat: domain.CategoryCatering, rows: []map[string]any{
			{"id": "c1", "name": "Tasca", "price_per_person": "45.50", "cuisine": "portuguese"},
		}},
		{cat: domain.CategoryTransport, rows: []map[string]any{
			{"id": "t1", "vehicle_type": "coach", "price": 900, "seats": 50},
		}},
	}
}

func asProviders(fs []*fakeProvider) []domain.VendorProvider {
	out := make([]domain.VendorProvider, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}
