package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"streammall/internal/backend"
	"streammall/internal/export"
	"streammall/internal/records"
	"streammall/internal/viewmodel"
)

// ApprovalNote 是审批通过时固定附带的备注。
const ApprovalNote = "Approved by admin"

const (
	LabelNeedsReview    = "Needs review"
	LabelAutoProcessing = "Auto-processing..."
)

// CanReview 仅银行转账且待处理的请求允许人工审批/驳回。
func CanReview(r backend.Recharge) bool {
	return r.Method == backend.MethodBank && r.Status == backend.RechargePending
}

func ReviewLabel(r backend.Recharge) string {
	if r.Status != backend.RechargePending {
		return ""
	}
	switch r.Method {
	case backend.MethodUSDT:
		return LabelAutoProcessing
	case backend.MethodBank:
		return LabelNeedsReview
	default:
		return ""
	}
}

type RechargesParams struct {
	Page int
}

type RechargesView struct {
	Query  viewmodel.Query
	Rows   []backend.Recharge
	Loaded int
	// Total 优先取后端分页的 total，否则为已加载数量。
	Total int64
	// PendingBank 是当前页待人工审核的银行转账数量。
	PendingBank int

	Page       int
	CanPrev    bool
	CanNext    bool
	Pagination *backend.Pagination

	Loading   bool
	Err       error
	FetchedAt time.Time
}

type ApproveOutcome struct {
	NewBalance *int64
}

func (o ApproveOutcome) Message() string {
	if o.NewBalance == nil {
		return "Recharge approved successfully"
	}
	return fmt.Sprintf("Recharge approved successfully. New balance: %s points", humanize.Comma(*o.NewBalance))
}

type RechargesPage struct {
	deps  *Deps
	store *records.Store[backend.Recharge]
	bg    *sync.WaitGroup

	mu         sync.Mutex
	pager      viewmodel.Pager
	pagination *backend.Pagination
}

func newRechargesPage(deps *Deps, bg *sync.WaitGroup) *RechargesPage {
	return &RechargesPage{
		deps:  deps,
		store: records.NewStore[backend.Recharge](deps.Now),
		bg:    bg,
		pager: viewmodel.NewPager(deps.PageSize),
	}
}

func (p *RechargesPage) Ensure(ctx context.Context, creds backend.Credentials, params RechargesParams, force bool) error {
	p.mu.Lock()
	changed := false
	var pageErr error
	if params.Page > 0 && params.Page != p.pager.Page {
		if p.pager.Goto(params.Page) {
			changed = true
		} else {
			pageErr = ErrPageOutOfRange
		}
	}
	q := p.queryLocked()
	p.mu.Unlock()

	if !changed && !force && !p.store.Stale(p.deps.RefreshAfter) {
		return pageErr
	}
	if err := p.load(ctx, creds, q); err != nil {
		return err
	}
	return pageErr
}

// queryLocked 第一页不带分页参数，与后端默认行为一致。
func (p *RechargesPage) queryLocked() backend.RechargeQuery {
	if p.pager.Page <= 1 {
		return backend.RechargeQuery{}
	}
	return backend.RechargeQuery{Page: p.pager.Page, Limit: p.pager.Limit}
}

func (p *RechargesPage) load(ctx context.Context, creds backend.Credentials, q backend.RechargeQuery) error {
	var (
		pagination *backend.Pagination
		count      int
	)
	err := p.store.Load(ctx, func(ctx context.Context) ([]backend.Recharge, error) {
		page, err := p.deps.Recharges.ListRecharges(ctx, creds, q)
		pagination, count = page.Pagination, len(page.Recharges)
		return page.Recharges, err
	})
	if errors.Is(err, records.ErrStale) {
		return nil
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if q != p.queryLocked() {
		return nil
	}
	var hasNext *bool
	if pagination != nil {
		hasNext = pagination.HasNextPage
	}
	p.pager.Observe(count, hasNext)
	p.pagination = pagination
	return nil
}

func (p *RechargesPage) View(q viewmodel.Query) RechargesView {
	p.mu.Lock()
	pager := p.pager
	pagination := p.pagination
	p.mu.Unlock()

	snap := p.store.Snapshot()
	v := RechargesView{
		Query:      q,
		Rows:       RechargeFields.Apply(snap.Items, q),
		Loaded:     len(snap.Items),
		Total:      int64(len(snap.Items)),
		Page:       pager.Page,
		CanPrev:    pager.CanPrev(),
		CanNext:    pager.CanNext(),
		Pagination: pagination,
		Loading:    snap.Loading,
		Err:        snap.Err,
		FetchedAt:  snap.FetchedAt,
	}
	if pagination != nil && pagination.Total > 0 {
		v.Total = pagination.Total
	}
	for _, r := range snap.Items {
		if CanReview(r) {
			v.PendingBank++
		}
	}
	return v
}

// Loaded 表示本工作区至少成功拉取过一次充值列表。
func (p *RechargesPage) Loaded() bool { return p.store.Snapshot().Loaded }

func (p *RechargesPage) find(id string) (backend.Recharge, bool) {
	for _, r := range p.store.Snapshot().Items {
		if r.ID == id {
			return r, true
		}
	}
	return backend.Recharge{}, false
}

// reviewable 校验记录可以人工审核。本地列表里找不到时（工作区刚创建或已被回收）先重新拉取当前页再判断。
func (p *RechargesPage) reviewable(ctx context.Context, creds backend.Credentials, op string, id string) error {
	r, ok := p.find(id)
	if !ok {
		p.mu.Lock()
		q := p.queryLocked()
		p.mu.Unlock()
		if err := p.load(ctx, creds, q); err != nil {
			return err
		}
		r, ok = p.find(id)
	}
	if !ok {
		return backend.Validation(op, "Recharge request not found")
	}
	if !CanReview(r) {
		return backend.Validation(op, "Only pending bank transfers can be reviewed")
	}
	return nil
}

// Approve 审批通过一条待处理的银行转账。confirmed 对应页面上的确认勾选。
// 成功后立即在本地列表中标记为 approved，并在后台重新拉取列表以服务端数据为准。
func (p *RechargesPage) Approve(ctx context.Context, creds backend.Credentials, id string, confirmed bool) (ApproveOutcome, error) {
	const op = "approve recharge"
	if !confirmed {
		return ApproveOutcome{}, backend.Validation(op, "Please confirm the approval")
	}
	if err := p.reviewable(ctx, creds, op, id); err != nil {
		return ApproveOutcome{}, err
	}

	res, err := p.deps.Recharges.ApproveRecharge(ctx, creds, id, ApprovalNote)
	if err != nil {
		return ApproveOutcome{}, err
	}

	now := p.deps.Now()
	p.store.Patch(func(r backend.Recharge) bool { return r.ID == id }, func(r *backend.Recharge) {
		r.Status = backend.RechargeApproved
		r.ApprovedAt = &now
		r.Notes = ApprovalNote
		if res.NewBalance != nil {
			nb := *res.NewBalance
			r.UserBalance = &nb
		}
	})
	p.scheduleReconcile(creds)
	return ApproveOutcome{NewBalance: res.NewBalance}, nil
}

// Reject 驳回一条待处理的银行转账。reason 为空白时不发请求、不改变状态。
func (p *RechargesPage) Reject(ctx context.Context, creds backend.Credentials, id string, reason string) error {
	const op = "reject recharge"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return backend.Validation(op, "A rejection reason is required")
	}
	if err := p.reviewable(ctx, creds, op, id); err != nil {
		return err
	}
	if _, err := p.deps.Recharges.RejectRecharge(ctx, creds, id, reason); err != nil {
		return err
	}

	now := p.deps.Now()
	p.store.Patch(func(r backend.Recharge) bool { return r.ID == id }, func(r *backend.Recharge) {
		r.Status = backend.RechargeRejected
		r.RejectedAt = &now
		r.Reason = reason
	})
	p.scheduleReconcile(creds)
	return nil
}

// scheduleReconcile 在后台重新拉取当前页；请求结束后调用方的凭证可能已不可用，因此只携带 token。
func (p *RechargesPage) scheduleReconcile(creds backend.Credentials) {
	tok := ""
	if creds != nil {
		tok = creds.Token()
	}
	p.mu.Lock()
	q := p.queryLocked()
	p.mu.Unlock()

	p.bg.Add(1)
	go func() {
		defer p.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.deps.ReconcileTimeout)
		defer cancel()
		if err := p.load(ctx, backend.StaticToken(tok), q); err != nil {
			p.deps.Logger.Warn("充值列表对账失败", "err", err)
		}
	}()
}

func (p *RechargesPage) Export(w io.Writer, q viewmodel.Query) (string, error) {
	v := p.View(q)
	loc := p.deps.Location
	if err := export.Encode(w, RechargeColumns(loc), v.Rows); err != nil {
		return "", err
	}
	return export.Filename("recharges", p.deps.Now().In(loc)), nil
}
