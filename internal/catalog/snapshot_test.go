package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m        sync.Mutex
	products []*Product
	err      error
	calls    atomic.Int32
	delay    time.Duration
	release  chan struct{}
}

func (m *mockRepository) GetAllProducts(ctx context.Context) ([]*Product, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockRepository) GetProduct(_ context.Context, id string) (*Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrProductNotFound
}

func (m *mockRepository) UpsertProduct(_ context.Context, p *Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.products = append(m.products, p)
	return m.err
}

func TestSnapshot_IsolatedFromLaterWrites(t *testing.T) {
	p := &Product{ID: "L1", Price: decimal.RequireFromString("350.00"), Status: StatusAvailable}
	repo := &mockRepository{products: []*Product{p}}
	c := New(repo)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	p.Price = decimal.RequireFromString("1.00")

	got, ok := snap.Get("L1")
	require.True(t, ok)
	assert.Equal(t, "350.00", got.DisplayPrice())
}

func TestSnapshot_ProductsKeepOrder(t *testing.T) {
	snap := NewSnapshot([]*Product{{ID: "B"}, {ID: "A"}, nil, {ID: "C"}})

	ids := make([]string, 0)
	for _, p := range snap.Products() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"B", "A", "C"}, ids)
	assert.Equal(t, 3, snap.Len())
}

func TestSnapshot_NilSafe(t *testing.T) {
	var snap *Snapshot
	_, ok := snap.Get("L1")
	assert.False(t, ok)
	assert.Zero(t, snap.Len())
	assert.Nil(t, snap.Products())
}

func TestSnapshot_RepositoryError(t *testing.T) {
	repo := &mockRepository{err: errors.New("disk gone")}
	c := New(repo)

	snap, err := c.Snapshot(context.Background())
	assert.Nil(t, snap)
	assert.ErrorContains(t, err, "load catalog")
}

func TestSnapshot_ConcurrentLoadsAreCoalesced(t *testing.T) {
	repo := &mockRepository{
		products: []*Product{{ID: "L1"}},
		delay:    50 * time.Millisecond,
	}
	c := New(repo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.Snapshot(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1, snap.Len())
		}()
	}
	wg.Wait()

	assert.Less(t, repo.calls.Load(), int32(10))
}

func TestSnapshot_FirstCallerCancelledOthersStillLoad(t *testing.T) {
	repo := &mockRepository{
		products: []*Product{{ID: "L1", Price: decimal.RequireFromString("350.00"), Status: StatusAvailable}},
		release:  make(chan struct{}),
	}
	c := New(repo)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Snapshot(firstCtx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		snap *Snapshot
		err  error
	}
	second := make(chan result, 1)
	go func() {
		snap, err := c.Snapshot(context.Background())
		second <- result{snap, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(repo.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.snap.Len())
}
