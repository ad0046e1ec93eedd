package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Snapshot is a read-only view of the catalog taken once per request.
type Snapshot struct {
	byID  map[string]Product
	order []string
}

// NewSnapshot copies products so later catalog writes never leak into it.
func NewSnapshot(products []*Product) *Snapshot {
	s := &Snapshot{
		byID:  make(map[string]Product, len(products)),
		order: make([]string, 0, len(products)),
	}
	for _, p := range products {
		if p == nil {
			continue
		}
		if _, dup := s.byID[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.byID[p.ID] = *p
	}
	return s
}

func (s *Snapshot) Get(id string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	p, ok := s.byID[id]
	return p, ok
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}

// Products returns the products in catalog order.
func (s *Snapshot) Products() []Product {
	if s == nil {
		return nil
	}
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

const loadTimeout = 10 * time.Second

// Catalog serves snapshots and admin writes over a repository.
type Catalog struct {
	repo RepoInterface
	sfg  singleflight.Group // Coalesces concurrent snapshot loads
}

func New(repo RepoInterface) *Catalog {
	return &Catalog{repo: repo}
}

// Snapshot loads the catalog once for all concurrent callers. The shared load is
// detached from whichever caller started it; each caller waits on its own ctx.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	ch := c.sfg.DoChan("snapshot", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		products, err := c.repo.GetAllProducts(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		return NewSnapshot(products), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Catalog) Product(ctx context.Context, id string) (*Product, error) {
	return c.repo.GetProduct(ctx, id)
}

// Save upserts p keyed by id.
func (c *Catalog) Save(ctx context.Context, p *Product) error {
	return c.repo.UpsertProduct(ctx, p)
}
