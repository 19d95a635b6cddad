package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"crypto_backend/internal/feature/registry/domain"
	"crypto_backend/internal/feature/registry/domain/entity"
	"crypto_backend/internal/feature/registry/usecase"
)

// mockMarketData はMarketDataインターフェースのモック実装です。
type mockMarketData struct {
	SearchFunc  func(ctx context.Context, symbol string) usecase.Lookup[entity.SearchHit]
	DetailsFunc func(ctx context.Context, externalID string) usecase.Lookup[entity.CoinDetails]
	PricesFunc  func(ctx context.Context, ids []string, currency string) usecase.Lookup[entity.PriceTable]

	mu          sync.Mutex
	searchCalls int
	priceCalls  [][]string
}

func (m *mockMarketData) Search(ctx context.Context, symbol string) usecase.Lookup[entity.SearchHit] {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, symbol)
	}
	return usecase.Empty[entity.SearchHit]()
}

func (m *mockMarketData) Details(ctx context.Context, externalID string) usecase.Lookup[entity.CoinDetails] {
	if m.DetailsFunc != nil {
		return m.DetailsFunc(ctx, externalID)
	}
	return usecase.Empty[entity.CoinDetails]()
}

func (m *mockMarketData) Prices(ctx context.Context, ids []string, currency string) usecase.Lookup[entity.PriceTable] {
	m.mu.Lock()
	m.priceCalls = append(m.priceCalls, append([]string(nil), ids...))
	m.mu.Unlock()
	if m.PricesFunc != nil {
		return m.PricesFunc(ctx, ids, currency)
	}
	return usecase.Empty[entity.PriceTable]()
}

// knownCoins は検索結果を固定のテーブルから返すSearchFuncを生成します。
func knownCoins(hits map[string]entity.SearchHit) func(context.Context, string) usecase.Lookup[entity.SearchHit] {
	return func(_ context.Context, symbol string) usecase.Lookup[entity.SearchHit] {
		if h, ok := hits[symbol]; ok {
			return usecase.Found(h)
		}
		return usecase.Empty[entity.SearchHit]()
	}
}

// memRepo はCoinRepositoryのインメモリ実装です。
type memRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[string]entity.TrackedCoin

	// err が設定されている場合、全メソッドがこのエラーを返します。
	err error
}

func newMemRepo(coins ...entity.TrackedCoin) *memRepo {
	r := &memRepo{rows: map[string]entity.TrackedCoin{}}
	for _, c := range coins {
		r.nextID++
		c.ID = r.nextID
		r.rows[c.Symbol] = c
	}
	return r
}

func (r *memRepo) Create(_ context.Context, coin *entity.TrackedCoin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.rows[coin.Symbol]; ok {
		return domain.ErrDuplicateSymbol
	}
	r.nextID++
	coin.ID = r.nextID
	r.rows[coin.Symbol] = clone(*coin)
	return nil
}

func (r *memRepo) FindBySymbol(_ context.Context, symbol string) (*entity.TrackedCoin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.rows[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c = clone(c)
	return &c, nil
}

func (r *memRepo) FindByExternalID(_ context.Context, externalID string) (*entity.TrackedCoin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, c := range r.rows {
		if c.ExternalID != nil && *c.ExternalID == externalID {
			c = clone(c)
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRepo) List(_ context.Context, offset, limit int) ([]entity.TrackedCoin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	all := r.sorted()
	if offset >= len(all) {
		return []entity.TrackedCoin{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (r *memRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	return int64(len(r.rows)), nil
}

func (r *memRepo) UpdateNote(_ context.Context, symbol string, note *string, at time.Time) (*entity.TrackedCoin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.rows[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Note = note
	c.LastUpdated = at
	r.rows[symbol] = c
	c = clone(c)
	return &c, nil
}

func (r *memRepo) Delete(_ context.Context, symbol string) (*entity.TrackedCoin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.rows[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.rows, symbol)
	return &c, nil
}

func (r *memRepo) ListExternalIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var ids []string
	for _, c := range r.sorted() {
		if c.ExternalID != nil {
			ids = append(ids, *c.ExternalID)
		}
	}
	return ids, nil
}

func (r *memRepo) MergeMetadata(_ context.Context, patches map[string]entity.Metadata, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	n := 0
	for sym, c := range r.rows {
		if c.ExternalID == nil {
			continue
		}
		patch, ok := patches[*c.ExternalID]
		if !ok {
			continue
		}
		c.Metadata = c.Metadata.Merge(patch)
		c.LastUpdated = at
		r.rows[sym] = c
		n++
	}
	return n, nil
}

func (r *memRepo) get(symbol string) (entity.TrackedCoin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[symbol]
	return clone(c), ok
}

func (r *memRepo) sorted() []entity.TrackedCoin {
	out := make([]entity.TrackedCoin, 0, len(r.rows))
	for _, c := range r.rows {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(c entity.TrackedCoin) entity.TrackedCoin {
	if c.Metadata != nil {
		c.Metadata = c.Metadata.Clone()
	}
	return c
}

func strPtr(s string) *string { return &s }

var _ usecase.CoinRepository = (*memRepo)(nil)
var _ usecase.MarketData = (*mockMarketData)(nil)
