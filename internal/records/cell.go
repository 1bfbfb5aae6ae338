package records

import (
	"context"
	"sync"
	"time"
)

// Cell 与 Store 相同的拉取语义，但只保存单个值（例如订单统计、分页信息）。
type Cell[V any] struct {
	gen Generation
	now func() time.Time

	mu        sync.RWMutex
	value     V
	err       error
	fetchedAt time.Time
	loaded    bool
}

func NewCell[V any](now func() time.Time) *Cell[V] {
	if now == nil {
		now = time.Now
	}
	return &Cell[V]{now: now}
}

func (c *Cell[V]) Load(ctx context.Context, fetch func(ctx context.Context) (V, error)) error {
	gen := c.gen.Next()
	v, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gen.IsLatest(gen) {
		return ErrStale
	}
	if err != nil {
		c.err = err
		return err
	}
	c.value = v
	c.err = nil
	c.fetchedAt = c.now()
	c.loaded = true
	return nil
}

func (c *Cell[V]) Set(v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Next()
	c.value = v
	c.err = nil
	c.fetchedAt = c.now()
	c.loaded = true
}

// Get 返回当前值与是否成功加载过。
func (c *Cell[V]) Get() (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.loaded
}

func (c *Cell[V]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}
