package console

import (
	"context"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistry_GetCreatesOncePerID(t *testing.T) {
	r := NewRegistry(newTestDeps(&fakeOrders{}, &fakeRecharges{}, &fakeSettings{}), time.Minute)
	id := r.NewID()
	a := r.Get(id)
	b := r.Get(id)
	if a != b {
		t.Fatalf("same id returned different workspaces")
	}
	if r.Get(r.NewID()) == a {
		t.Fatalf("different ids share a workspace")
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d", r.Len())
	}
	r.Drop(id)
	r.Drop(id)
	if r.Len() != 1 {
		t.Fatalf("Len after drop = %d", r.Len())
	}
}

func TestRegistry_SweepEvictsIdle(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	deps := newTestDeps(&fakeOrders{}, &fakeRecharges{}, &fakeSettings{})
	deps.Now = c.Now
	r := NewRegistry(deps, 10*time.Minute)

	r.Get("old")
	c.Advance(6 * time.Minute)
	r.Get("young")
	c.Advance(5 * time.Minute)

	if n := r.Sweep(c.Now()); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
	// 重新访问会创建新的空工作区。
	if w := r.Get("old"); w.Orders.store.Snapshot().Loaded {
		t.Fatalf("evicted workspace should start empty")
	}
}

func TestRegistry_JanitorStartAndClose(t *testing.T) {
	r := NewRegistry(newTestDeps(&fakeOrders{}, &fakeRecharges{}, &fakeSettings{}), time.Minute)
	if err := r.StartJanitor(); err != nil {
		t.Fatalf("StartJanitor: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Close(ctx)
}
