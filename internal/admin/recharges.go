package admin

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"streammall/internal/backend"
	"streammall/internal/console"
	"streammall/internal/viewmodel"
)

const rechargesPath = "/admin/recharges"

// USDT（TRC20）交易在区块浏览器中的地址前缀。
const tronscanTxURL = "https://tronscan.org/#/transaction/"

type rechargeRowView struct {
	ID          string
	User        string
	Email       string
	Method      string
	Amount      string
	USDT        string
	Points      string
	Balance     string
	Status      string
	StatusClass string
	Reference   string
	Wallet      string
	Screenshot  string
	RequestedAt string
	ResolvedAt  string
	Notes       string
	Reason      string
	ReviewLabel string
	CanReview   bool

	// AutoApproved 表示链上自动确认入账，无人工审核。
	AutoApproved bool
	TxURL        string

	Confirming bool
	Rejecting  bool
	ApproveURL string
	RejectURL  string
}

type rechargesView struct {
	Status   string
	Search   string
	Sort     string
	Statuses []option
	Sorts    []option
	Rows     []rechargeRowView

	PendingBank int
	Showing     string
	FetchedAt   string
	LoadErr     string

	Page      int
	PrevURL   string
	NextURL   string
	ExportURL string
	Refresh   string
	// Self 为当前列表 URL，表单提交后回到这里。
	Self string
}

var rechargeStatuses = []string{viewmodel.StatusAll, backend.RechargePending, backend.RechargeApproved, backend.RechargeRejected}

var rechargeSortLabels = map[string]string{
	viewmodel.SortDate:  "Newest first",
	viewmodel.SortValue: "Most points",
	console.SortUser:    "User (A-Z)",
}

func rechargesQuery(r *http.Request) (console.RechargesParams, viewmodel.Query) {
	q := r.URL.Query()
	page, err := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	if err != nil || page < 1 {
		page = 1
	}
	vq := viewmodel.Query{
		Status: strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Search: q.Get("q"),
		Sort:   strings.TrimSpace(q.Get("sort")),
	}
	if vq.Status == "" {
		vq.Status = viewmodel.StatusAll
	}
	if vq.Sort == "" {
		vq.Sort = viewmodel.SortDate
	}
	return console.RechargesParams{Page: page}, vq
}

func rechargesValues(vq viewmodel.Query, page int) url.Values {
	q := url.Values{}
	if vq.Status != "" && vq.Status != viewmodel.StatusAll {
		q.Set("status", vq.Status)
	}
	if s := strings.TrimSpace(vq.Search); s != "" {
		q.Set("q", s)
	}
	if vq.Sort != "" && vq.Sort != viewmodel.SortDate {
		q.Set("sort", vq.Sort)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

func (s *Server) toRechargeRow(rc backend.Recharge) rechargeRowView {
	row := rechargeRowView{
		ID:          rc.ID,
		User:        rc.User.Username,
		Email:       rc.User.Email,
		Method:      strings.ToUpper(rc.Method),
		Amount:      formatMoney(rc.Amount),
		Points:      formatPoints(rc.PointsToAdd),
		Balance:     formatOptionalPoints(rc.UserBalance),
		Status:      rc.Status,
		StatusClass: statusClass(rc.Status),
		Reference:   rc.Reference(),
		Wallet:      rc.Details.WalletAddress,
		Screenshot:  rc.ScreenshotURL,
		RequestedAt: formatTimeIn(rc.RequestedAt, s.loc),
		Notes:       rc.Notes,
		Reason:      rc.Reason,
		ReviewLabel: console.ReviewLabel(rc),
		CanReview:   console.CanReview(rc),
	}
	if rc.Details.USDTAmount.Valid {
		row.USDT = formatDecimalPlain(rc.Details.USDTAmount.Decimal, 6)
	}
	if rc.Method == backend.MethodUSDT && rc.Details.TransactionHash != "" {
		row.TxURL = tronscanTxURL + url.PathEscape(rc.Details.TransactionHash)
	}
	row.AutoApproved = rc.AutoApproved
	switch {
	case rc.ApprovedAt != nil:
		row.ResolvedAt = formatTimePtrIn(rc.ApprovedAt, s.loc)
	case rc.RejectedAt != nil:
		row.ResolvedAt = formatTimePtrIn(rc.RejectedAt, s.loc)
	}
	return row
}

func (s *Server) Recharges(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	params, vq := rechargesQuery(r)
	force := r.URL.Query().Get("refresh") == "1"

	loadErr := ""
	if err := ws.Recharges.Ensure(r.Context(), creds, params, force); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		if errors.Is(err, console.ErrPageOutOfRange) {
			loadErr = "There are no more recharge requests to show"
		} else {
			loadErr = backend.UserMessage(err)
		}
	}

	confirmID := strings.TrimSpace(r.URL.Query().Get("approve"))
	rejectID := strings.TrimSpace(r.URL.Query().Get("reject"))

	v := ws.Recharges.View(vq)
	self := withQuery(rechargesPath, rechargesValues(vq, v.Page))
	rows := make([]rechargeRowView, 0, len(v.Rows))
	for _, rc := range v.Rows {
		row := s.toRechargeRow(rc)
		if row.CanReview {
			row.Confirming = rc.ID == confirmID
			row.Rejecting = rc.ID == rejectID
			row.ApproveURL = dialogURL(self, "approve", rc.ID)
			row.RejectURL = dialogURL(self, "reject", rc.ID)
		}
		rows = append(rows, row)
	}

	total := v.Total
	view := &rechargesView{
		Status:      vq.Status,
		Search:      strings.TrimSpace(vq.Search),
		Sort:        vq.Sort,
		Statuses:    statusOptions(rechargeStatuses, vq.Status),
		Sorts:       sortOptions(console.RechargeFields.SortKeys(), rechargeSortLabels, vq.Sort),
		Rows:        rows,
		PendingBank: v.PendingBank,
		Showing:     "Showing " + formatPoints(int64(len(rows))) + " of " + formatPoints(total),
		FetchedAt:   formatTimeIn(v.FetchedAt, s.loc),
		LoadErr:     loadErr,
		Page:        v.Page,
		ExportURL:   withQuery(rechargesPath+"/export.csv", rechargesValues(vq, 0)),
		Self:        self,
	}
	refresh := rechargesValues(vq, v.Page)
	refresh.Set("refresh", "1")
	view.Refresh = withQuery(rechargesPath, refresh)
	if v.CanPrev {
		view.PrevURL = withQuery(rechargesPath, rechargesValues(vq, v.Page-1))
	}
	if v.CanNext {
		view.NextURL = withQuery(rechargesPath, rechargesValues(vq, v.Page+1))
	}

	s.render(w, r, "admin_recharges", templateData{
		Title:     "Recharge Requests - StreamMall Admin",
		Active:    "recharges",
		Recharges: view,
	})
}

// dialogURL 在列表 URL 上打开某条记录的确认/拒绝表单。
func dialogURL(back string, key string, id string) string {
	u, err := url.Parse(back)
	if err != nil {
		return rechargesPath
	}
	q := u.Query()
	q.Set(key, id)
	return withQuery(u.Path, q)
}

// pageOf 取列表 URL 中的页码，缺省为 1。
func pageOf(listURL string) int {
	u, err := url.Parse(listURL)
	if err != nil {
		return 1
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// loadForReview 工作区尚未拉取过列表时（新会话或已被回收），先按提交页的页码加载。
func (s *Server) loadForReview(w http.ResponseWriter, r *http.Request, ws *console.Workspace, creds backend.Credentials, back string) bool {
	if ws.Recharges.Loaded() {
		return true
	}
	err := ws.Recharges.Ensure(r.Context(), creds, console.RechargesParams{Page: pageOf(back)}, false)
	if err != nil && !errors.Is(err, console.ErrPageOutOfRange) {
		s.fail(w, r, back, err)
		return false
	}
	return true
}

func (s *Server) ApproveRecharge(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, rechargesPath, backend.Validation("approve recharge", "Invalid form"))
		return
	}
	back := returnTo(r, rechargesPath)
	confirmed := r.PostFormValue("confirm") == "yes"
	if !s.loadForReview(w, r, ws, creds, back) {
		return
	}

	out, err := ws.Recharges.Approve(r.Context(), creds, id, confirmed)
	if err != nil {
		target := back
		if backend.IsKind(err, backend.KindValidation) && !confirmed {
			target = dialogURL(back, "approve", id)
		}
		s.fail(w, r, target, err)
		return
	}
	s.logger.Info("充值审批通过", "recharge_id", id)
	s.done(w, r, back, out.Message())
}

func (s *Server) RejectRecharge(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, rechargesPath, backend.Validation("reject recharge", "Invalid form"))
		return
	}
	back := returnTo(r, rechargesPath)
	if !s.loadForReview(w, r, ws, creds, back) {
		return
	}

	if err := ws.Recharges.Reject(r.Context(), creds, id, r.PostFormValue("reason")); err != nil {
		target := back
		if backend.IsKind(err, backend.KindValidation) {
			// 原因为空时保持拒绝表单打开。
			target = dialogURL(back, "reject", id)
		}
		s.fail(w, r, target, err)
		return
	}
	s.logger.Info("充值已拒绝", "recharge_id", id)
	s.done(w, r, back, "Recharge rejected")
}

func (s *Server) ExportRecharges(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	params, vq := rechargesQuery(r)
	if err := ws.Recharges.Ensure(r.Context(), creds, params, false); err != nil && !errors.Is(err, console.ErrPageOutOfRange) {
		s.fail(w, r, rechargesPath, err)
		return
	}
	var buf strings.Builder
	name, err := ws.Recharges.Export(&buf, vq)
	if err != nil {
		s.fail(w, r, rechargesPath, err)
		return
	}
	attachment(w, name)
	_, _ = w.Write([]byte(buf.String()))
}
