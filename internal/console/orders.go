package console

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"streammall/internal/backend"
	"streammall/internal/export"
	"streammall/internal/records"
	"streammall/internal/viewmodel"
)

type OrdersParams struct {
	Status string
	Page   int
}

type OrdersView struct {
	Query viewmodel.Query
	Rows  []backend.Order
	// Loaded 为当前页已加载的订单数（过滤前）。
	Loaded int

	Stats    backend.OrderStats
	HasStats bool

	Page       int
	Limit      int
	CanPrev    bool
	CanNext    bool
	Pagination *backend.Pagination

	Loading   bool
	Err       error
	FetchedAt time.Time
}

type OrdersPage struct {
	deps  *Deps
	store *records.Store[backend.Order]
	stats *records.Cell[backend.OrderStats]

	mu         sync.Mutex
	status     string
	pager      viewmodel.Pager
	pagination *backend.Pagination
}

func newOrdersPage(deps *Deps) *OrdersPage {
	return &OrdersPage{
		deps:   deps,
		store:  records.NewStore[backend.Order](deps.Now),
		stats:  records.NewCell[backend.OrderStats](deps.Now),
		status: viewmodel.StatusAll,
		pager:  viewmodel.NewPager(deps.PageSize),
	}
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return viewmodel.StatusAll
	}
	return s
}

// ErrPageOutOfRange 表示请求的页码超过了后端报告的最后一页，页码保持不变。
var ErrPageOutOfRange = errors.New("console: no more pages")

// Ensure 在首次访问、服务端参数（状态/页码）变化、数据过期或 force 时拉取订单与统计。
// 翻页越界时返回 ErrPageOutOfRange，当前页数据不受影响。
func (p *OrdersPage) Ensure(ctx context.Context, creds backend.Credentials, params OrdersParams, force bool) error {
	p.mu.Lock()
	changed := false
	var pageErr error
	if st := normalizeStatus(params.Status); st != p.status {
		p.status = st
		p.pager.Reset()
		changed = true
	}
	if params.Page > 0 && params.Page != p.pager.Page {
		if p.pager.Goto(params.Page) {
			changed = true
		} else {
			pageErr = ErrPageOutOfRange
		}
	}
	q := backend.OrderQuery{Page: p.pager.Page, Limit: p.pager.Limit, Status: p.status}
	p.mu.Unlock()

	if !changed && !force && !p.store.Stale(p.deps.RefreshAfter) {
		return pageErr
	}

	var (
		pagination *backend.Pagination
		count      int
	)
	err := p.store.Load(ctx, func(ctx context.Context) ([]backend.Order, error) {
		page, err := p.deps.Orders.ListOrders(ctx, creds, q)
		pagination, count = page.Pagination, len(page.Orders)
		return page.Orders, err
	})
	switch {
	case errors.Is(err, records.ErrStale):
		err = nil
	case err == nil:
		p.observe(q, count, pagination)
	}

	if serr := p.stats.Load(ctx, func(ctx context.Context) (backend.OrderStats, error) {
		return p.deps.Orders.OrderStats(ctx, creds)
	}); serr != nil && !errors.Is(serr, records.ErrStale) {
		p.deps.Logger.Warn("拉取订单统计失败", "err", serr)
	}

	if err != nil {
		return err
	}
	return pageErr
}

func (p *OrdersPage) observe(q backend.OrderQuery, count int, pagination *backend.Pagination) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q.Page != p.pager.Page || q.Status != p.status {
		return
	}
	var hasNext *bool
	if pagination != nil {
		hasNext = pagination.HasNextPage
	}
	p.pager.Observe(count, hasNext)
	p.pagination = pagination
}

// View 对当前页应用过滤与排序。状态过滤与服务端参数保持一致。
func (p *OrdersPage) View(q viewmodel.Query) OrdersView {
	p.mu.Lock()
	q.Status = p.status
	pager := p.pager
	pagination := p.pagination
	p.mu.Unlock()

	snap := p.store.Snapshot()
	stats, hasStats := p.stats.Get()
	return OrdersView{
		Query:      q,
		Rows:       OrderFields.Apply(snap.Items, q),
		Loaded:     len(snap.Items),
		Stats:      stats,
		HasStats:   hasStats,
		Page:       pager.Page,
		Limit:      pager.Limit,
		CanPrev:    pager.CanPrev(),
		CanNext:    pager.CanNext(),
		Pagination: pagination,
		Loading:    snap.Loading,
		Err:        snap.Err,
		FetchedAt:  snap.FetchedAt,
	}
}

// EnsureStats 只拉取订单统计，不改变列表的状态过滤与页码。
func (p *OrdersPage) EnsureStats(ctx context.Context, creds backend.Credentials, force bool) (backend.OrderStats, error) {
	if st, ok := p.stats.Get(); ok && !force {
		return st, nil
	}
	err := p.stats.Load(ctx, func(ctx context.Context) (backend.OrderStats, error) {
		return p.deps.Orders.OrderStats(ctx, creds)
	})
	if err != nil && !errors.Is(err, records.ErrStale) {
		return backend.OrderStats{}, err
	}
	st, _ := p.stats.Get()
	return st, nil
}

// Find 在已加载的订单中查找。
func (p *OrdersPage) Find(orderID string) (backend.Order, bool) {
	for _, o := range p.store.Snapshot().Items {
		if o.OrderID == orderID {
			return o, true
		}
	}
	return backend.Order{}, false
}

// Export 导出当前页经过过滤排序后的订单，返回建议文件名。
func (p *OrdersPage) Export(w io.Writer, q viewmodel.Query) (string, error) {
	v := p.View(q)
	loc := p.deps.Location
	if err := export.Encode(w, OrderColumns(loc), v.Rows); err != nil {
		return "", err
	}
	return export.Filename("orders", p.deps.Now().In(loc)), nil
}
