// Package records 保存每个页面从后端拉取的临时数据副本：列表、加载状态、错误与拉取时间。
//
// 每次拉取先领取一个代号（generation）；返回时若已有更新的拉取发出，则结果被丢弃，保证“最新参数优先”。
package records

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStale 表示本次拉取已被更新的拉取取代，结果未写入。
var ErrStale = errors.New("records: stale generation")

type Generation struct {
	n atomic.Uint64
}

func (g *Generation) Next() uint64 { return g.n.Add(1) }

func (g *Generation) Current() uint64 { return g.n.Load() }

func (g *Generation) IsLatest(gen uint64) bool { return g.n.Load() == gen }

type Snapshot[T any] struct {
	Items     []T
	Loading   bool
	Err       error
	FetchedAt time.Time
	// Loaded 表示至少成功拉取过一次。
	Loaded bool
}

type Store[T any] struct {
	gen Generation
	now func() time.Time

	mu        sync.RWMutex
	items     []T
	err       error
	fetchedAt time.Time
	loaded    bool
	inflight  int
}

func NewStore[T any](now func() time.Time) *Store[T] {
	if now == nil {
		now = time.Now
	}
	return &Store[T]{now: now}
}

// Load 执行一次拉取。加载标记在请求前设置、结束后清除（无论成败）。
// 失败时保留旧数据并记录错误；过期代号的结果（无论成败）都被丢弃并返回 ErrStale。
func (s *Store[T]) Load(ctx context.Context, fetch func(ctx context.Context) ([]T, error)) error {
	gen := s.gen.Next()

	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	items, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.IsLatest(gen) {
		return ErrStale
	}
	if err != nil {
		s.err = err
		return err
	}
	s.items = items
	s.err = nil
	s.fetchedAt = s.now()
	s.loaded = true
	return nil
}

// Patch 对匹配的记录原地应用 update，返回是否命中。
func (s *Store[T]) Patch(match func(T) bool, update func(*T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hit := false
	next := make([]T, len(s.items))
	copy(next, s.items)
	for i := range next {
		if match(next[i]) {
			update(&next[i])
			hit = true
		}
	}
	if hit {
		s.items = next
	}
	return hit
}

func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]T, len(s.items))
	copy(items, s.items)
	return Snapshot[T]{
		Items:     items,
		Loading:   s.inflight > 0,
		Err:       s.err,
		FetchedAt: s.fetchedAt,
		Loaded:    s.loaded,
	}
}

// Stale 表示从未成功拉取，或距上次成功拉取已超过 maxAge（maxAge<=0 视为总是过期）。
func (s *Store[T]) Stale(maxAge time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded || maxAge <= 0 {
		return true
	}
	return s.now().Sub(s.fetchedAt) >= maxAge
}

// Generation 返回最近一次领取的代号，供调用方判断在途拉取是否已被取代。
func (s *Store[T]) Generation() uint64 { return s.gen.Current() }
