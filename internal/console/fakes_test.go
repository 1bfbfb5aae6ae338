package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"streammall/internal/backend"
)

type fakeOrders struct {
	mu       sync.Mutex
	pages    map[string][]backend.Order // key: status
	hasNext  *bool
	calls    []backend.OrderQuery
	stats    backend.OrderStats
	statsErr error
	listErr  error
}

func (f *fakeOrders) ListOrders(_ context.Context, _ backend.Credentials, q backend.OrderQuery) (backend.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if f.listErr != nil {
		return backend.OrderPage{}, f.listErr
	}
	status := q.Status
	if status == "" {
		status = "all"
	}
	return backend.OrderPage{
		Orders:     f.pages[status],
		Pagination: &backend.Pagination{Page: int64(q.Page), Limit: int64(q.Limit), HasNextPage: f.hasNext},
	}, nil
}

func (f *fakeOrders) OrderStats(context.Context, backend.Credentials) (backend.OrderStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.statsErr
}

func (f *fakeOrders) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRecharges struct {
	mu         sync.Mutex
	list       []backend.Recharge
	listCalls  int
	queries    []backend.RechargeQuery
	approveIDs []string
	notes      []string
	rejectIDs  []string
	newBalance *int64
	approveErr error
	// gate 非空时列表接口阻塞到 gate 关闭。
	gate chan struct{}
}

func (f *fakeRecharges) ListRecharges(_ context.Context, _ backend.Credentials, q backend.RechargeQuery) (backend.RechargePage, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.queries = append(f.queries, q)
	out := make([]backend.Recharge, len(f.list))
	copy(out, f.list)
	return backend.RechargePage{Recharges: out, Pagination: &backend.Pagination{Total: int64(len(out)) + 10}}, nil
}

func (f *fakeRecharges) ApproveRecharge(_ context.Context, _ backend.Credentials, id string, notes string) (backend.ApproveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approveIDs = append(f.approveIDs, id)
	f.notes = append(f.notes, notes)
	if f.approveErr != nil {
		return backend.ApproveResult{}, f.approveErr
	}
	return backend.ApproveResult{Message: "ok", NewBalance: f.newBalance}, nil
}

func (f *fakeRecharges) RejectRecharge(_ context.Context, _ backend.Credentials, id string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectIDs = append(f.rejectIDs, id)
	return "ok", nil
}

func (f *fakeRecharges) setList(list []backend.Recharge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = list
}

type fakeSettings struct {
	mu        sync.Mutex
	items     []backend.Setting
	failKeys  map[string]bool
	updates   []string
	listCalls int
	initCalls int
}

func (f *fakeSettings) List(context.Context, backend.Credentials) ([]backend.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]backend.Setting, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeSettings) Update(_ context.Context, _ backend.Credentials, key string, value float64, _ *string) (backend.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, key)
	if f.failKeys[key] {
		return backend.Setting{}, &backend.Error{Kind: backend.KindServer, StatusCode: 500, Message: "db down"}
	}
	for i := range f.items {
		if f.items[i].Key == key {
			f.items[i].Value = value
			return f.items[i], nil
		}
	}
	return backend.Setting{}, &backend.Error{Kind: backend.KindServer, StatusCode: 404, Message: "Setting not found"}
}

func (f *fakeSettings) Init(context.Context, backend.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	if len(f.items) == 0 {
		f.items = []backend.Setting{{Key: "daily_reward", Value: 10, Category: "rewards"}}
	}
	return nil
}

var errBoom = errors.New("boom")

func fixedNow() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func newTestDeps(o *fakeOrders, r *fakeRecharges, s *fakeSettings) Deps {
	d := Deps{
		Orders:       o,
		Recharges:    r,
		Settings:     s,
		PageSize:     20,
		RefreshAfter: time.Minute,
		Now:          fixedNow,
	}
	return d
}
