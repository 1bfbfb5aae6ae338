// Package console 实现管理控制台的页面工作流：按管理员会话隔离的工作区、订单/充值/设置的拉取编排与变更。
package console

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"streammall/internal/backend"
	"streammall/internal/obs"
)

type OrdersAPI interface {
	ListOrders(ctx context.Context, creds backend.Credentials, q backend.OrderQuery) (backend.OrderPage, error)
	OrderStats(ctx context.Context, creds backend.Credentials) (backend.OrderStats, error)
}

type RechargesAPI interface {
	ListRecharges(ctx context.Context, creds backend.Credentials, q backend.RechargeQuery) (backend.RechargePage, error)
	ApproveRecharge(ctx context.Context, creds backend.Credentials, id string, notes string) (backend.ApproveResult, error)
	RejectRecharge(ctx context.Context, creds backend.Credentials, id string, reason string) (string, error)
}

type SettingsAPI interface {
	List(ctx context.Context, creds backend.Credentials) ([]backend.Setting, error)
	Update(ctx context.Context, creds backend.Credentials, key string, value float64, description *string) (backend.Setting, error)
	Init(ctx context.Context, creds backend.Credentials) error
}

type Deps struct {
	Orders    OrdersAPI
	Recharges RechargesAPI
	Settings  SettingsAPI

	PageSize         int
	RefreshAfter     time.Duration
	ReconcileTimeout time.Duration
	Location         *time.Location

	Now    func() time.Time
	Logger *slog.Logger
}

func (d *Deps) normalize() {
	if d.PageSize <= 0 {
		d.PageSize = 20
	}
	if d.ReconcileTimeout <= 0 {
		d.ReconcileTimeout = 15 * time.Second
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
}

// Workspace 保存单个管理员会话的页面状态。
type Workspace struct {
	ID string

	Orders    *OrdersPage
	Recharges *RechargesPage
	Settings  *SettingsPage

	lastSeen atomic.Int64
	bg       sync.WaitGroup
}

func newWorkspace(id string, deps *Deps) *Workspace {
	w := &Workspace{ID: id}
	w.Orders = newOrdersPage(deps)
	w.Recharges = newRechargesPage(deps, &w.bg)
	w.Settings = newSettingsPage(deps)
	w.touch(deps.Now())
	return w
}

func (w *Workspace) touch(now time.Time) { w.lastSeen.Store(now.UnixNano()) }

func (w *Workspace) LastSeen() time.Time { return time.Unix(0, w.lastSeen.Load()) }

// Wait 等待后台对账拉取结束。
func (w *Workspace) Wait() { w.bg.Wait() }

type Registry struct {
	deps Deps
	idle time.Duration

	mu    sync.Mutex
	items map[string]*Workspace

	cron *cron.Cron
}

func NewRegistry(deps Deps, idle time.Duration) *Registry {
	deps.normalize()
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Registry{
		deps:  deps,
		idle:  idle,
		items: make(map[string]*Workspace),
	}
}

func (r *Registry) NewID() string { return uuid.NewString() }

// Get 返回 id 对应的工作区，不存在时创建；每次访问刷新闲置计时。
func (r *Registry) Get(id string) *Workspace {
	now := r.deps.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id]
	if !ok {
		w = newWorkspace(id, &r.deps)
		r.items[id] = w
		obs.AddActiveWorkspaces(1)
	}
	w.touch(now)
	return w
}

func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; ok {
		delete(r.items, id)
		obs.AddActiveWorkspaces(-1)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep 回收闲置超过 idle 的工作区，返回回收数量。
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, w := range r.items {
		if now.Sub(w.LastSeen()) >= r.idle {
			delete(r.items, id)
			n++
		}
	}
	if n > 0 {
		obs.AddActiveWorkspaces(int64(-n))
	}
	return n
}

// StartJanitor 每分钟清理一次闲置工作区。
func (r *Registry) StartJanitor() error {
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() {
		if n := r.Sweep(r.deps.Now()); n > 0 {
			r.deps.Logger.Info("回收闲置工作区", "count", n, "remaining", r.Len())
		}
	}); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	return nil
}

// Close 停止清理任务并等待所有后台拉取结束。
func (r *Registry) Close(ctx context.Context) {
	if r.cron != nil {
		select {
		case <-r.cron.Stop().Done():
		case <-ctx.Done():
		}
	}
	r.mu.Lock()
	items := make([]*Workspace, 0, len(r.items))
	for _, w := range r.items {
		items = append(items, w)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, w := range items {
			w.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
