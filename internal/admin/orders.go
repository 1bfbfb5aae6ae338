package admin

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"streammall/internal/backend"
	"streammall/internal/console"
	"streammall/internal/middleware"
	"streammall/internal/viewmodel"
)

const ordersPath = "/admin/orders"

type option struct {
	Value    string
	Label    string
	Selected bool
}

type statCard struct {
	Label string
	Value string
	Class string
}

type orderRowView struct {
	OrderID     string
	ProductName string
	Price       string
	Quantity    int64
	Buyer       string
	BuyerEmail  string
	Stream      string
	Streamer    string
	Coins       string
	Status      string
	StatusClass string
	OrderedAt   string
	DetailURL   string
}

type ordersView struct {
	Status   string
	Search   string
	Sort     string
	Statuses []option
	Sorts    []option
	Stats    []statCard
	Rows     []orderRowView

	Showing   string
	FetchedAt string
	LoadErr   string

	Page      int
	PrevURL   string
	NextURL   string
	ExportURL string
	Refresh   string
}

type orderDetailView struct {
	Row      orderRowView
	Delivery *backend.DeliveryInfo
	Name     string
	BackURL  string
}

var orderStatuses = []string{viewmodel.StatusAll, backend.OrderPending, backend.OrderCompleted, backend.OrderCancelled}

var orderSortLabels = map[string]string{
	viewmodel.SortDate:  "Newest first",
	viewmodel.SortValue: "Highest coin value",
	console.SortBuyer:   "Buyer (A-Z)",
}

func ordersQuery(r *http.Request) (console.OrdersParams, viewmodel.Query) {
	q := r.URL.Query()
	// URL 是页码的唯一来源：缺省即第 1 页。
	page, err := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	if err != nil || page < 1 {
		page = 1
	}
	params := console.OrdersParams{Status: q.Get("status"), Page: page}
	vq := viewmodel.Query{Search: q.Get("q"), Sort: strings.TrimSpace(q.Get("sort"))}
	if vq.Sort == "" {
		vq.Sort = viewmodel.SortDate
	}
	return params, vq
}

func statusOptions(statuses []string, current string) []option {
	out := make([]option, 0, len(statuses))
	for _, st := range statuses {
		label := "All"
		if st != viewmodel.StatusAll {
			label = strings.ToUpper(st[:1]) + st[1:]
		}
		out = append(out, option{Value: st, Label: label, Selected: st == current})
	}
	return out
}

func sortOptions(keys []string, labels map[string]string, current string) []option {
	out := make([]option, 0, len(keys))
	for _, k := range keys {
		label := labels[k]
		if label == "" {
			label = k
		}
		out = append(out, option{Value: k, Label: label, Selected: k == current})
	}
	return out
}

func (s *Server) toOrderRow(o backend.Order) orderRowView {
	return orderRowView{
		OrderID:     o.OrderID,
		ProductName: o.ProductName,
		Price:       formatMoney(o.ProductPrice),
		Quantity:    o.Quantity,
		Buyer:       o.BuyerUsername,
		BuyerEmail:  o.BuyerEmail,
		Stream:      o.StreamTitle,
		Streamer:    o.StreamerUsername,
		Coins:       formatPoints(o.CoinValue),
		Status:      o.Status,
		StatusClass: statusClass(o.Status),
		OrderedAt:   formatTimeIn(o.OrderedAt, s.loc),
		DetailURL:   ordersPath + "/" + url.PathEscape(o.OrderID),
	}
}

func ordersURL(status string, vq viewmodel.Query, page int) string {
	return withQuery(ordersPath, ordersValues(status, vq, page))
}

func ordersValues(status string, vq viewmodel.Query, page int) url.Values {
	q := url.Values{}
	if status != "" && status != viewmodel.StatusAll {
		q.Set("status", status)
	}
	if strings.TrimSpace(vq.Search) != "" {
		q.Set("q", strings.TrimSpace(vq.Search))
	}
	if vq.Sort != "" && vq.Sort != viewmodel.SortDate {
		q.Set("sort", vq.Sort)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

func (s *Server) Orders(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	params, vq := ordersQuery(r)
	force := r.URL.Query().Get("refresh") == "1"

	loadErr := ""
	if err := ws.Orders.Ensure(r.Context(), creds, params, force); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		if errors.Is(err, console.ErrPageOutOfRange) {
			loadErr = "There are no more orders to show"
		} else {
			loadErr = backend.UserMessage(err)
		}
	}

	v := ws.Orders.View(vq)
	rows := make([]orderRowView, 0, len(v.Rows))
	for _, o := range v.Rows {
		rows = append(rows, s.toOrderRow(o))
	}
	status := v.Query.Status

	view := &ordersView{
		Status:    status,
		Search:    strings.TrimSpace(vq.Search),
		Sort:      vq.Sort,
		Statuses:  statusOptions(orderStatuses, status),
		Sorts:     sortOptions(console.OrderFields.SortKeys(), orderSortLabels, vq.Sort),
		Rows:      rows,
		Showing:   showing(len(rows), v.Loaded, v.Pagination),
		FetchedAt: formatTimeIn(v.FetchedAt, s.loc),
		LoadErr:   loadErr,
		Page:      v.Page,
		ExportURL: withQuery(ordersPath+"/export.csv", ordersValues(status, vq, 0)),
	}
	refresh := ordersValues(status, vq, v.Page)
	refresh.Set("refresh", "1")
	view.Refresh = withQuery(ordersPath, refresh)
	if v.CanPrev {
		view.PrevURL = ordersURL(status, vq, v.Page-1)
	}
	if v.CanNext {
		view.NextURL = ordersURL(status, vq, v.Page+1)
	}
	if v.HasStats {
		view.Stats = []statCard{
			{Label: "Total Orders", Value: formatPoints(v.Stats.TotalOrders)},
			{Label: "Completed", Value: formatPoints(v.Stats.CompletedOrders), Class: "badge-success"},
			{Label: "Pending", Value: formatPoints(v.Stats.PendingOrders), Class: "badge-warning"},
			{Label: "Cancelled", Value: formatPoints(v.Stats.CancelledOrders), Class: "badge-danger"},
			{Label: "Revenue (coins)", Value: formatPoints(v.Stats.RevenueCoins())},
		}
	}

	s.render(w, r, "admin_orders", templateData{
		Title:  "Live Orders - StreamMall Admin",
		Active: "orders",
		Orders: view,
	})
}

// showing 生成 "Showing N of M orders" 提示；后端未给总数时用已加载数。
func showing(shown int, loaded int, p *backend.Pagination) string {
	total := int64(loaded)
	if p != nil && p.Total > 0 {
		total = p.Total
	}
	return "Showing " + formatPoints(int64(shown)) + " of " + formatPoints(total)
}

func (s *Server) OrderDetail(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.PathValue("order_id"))
	o, found := ws.Orders.Find(id)
	if !found {
		middleware.SetFlashError(w, r, "Order not found on the current page")
		http.Redirect(w, r, ordersPath, http.StatusFound)
		return
	}
	d := &orderDetailView{Row: s.toOrderRow(o), Delivery: o.DeliveryInfo, BackURL: ordersPath}
	if o.DeliveryInfo != nil {
		d.Name = o.DeliveryInfo.FullName()
	}
	s.render(w, r, "admin_order_detail", templateData{
		Title:  "Order " + o.OrderID + " - StreamMall Admin",
		Active: "orders",
		Order:  d,
	})
}

func (s *Server) ExportOrders(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	params, vq := ordersQuery(r)
	if err := ws.Orders.Ensure(r.Context(), creds, params, false); err != nil && !errors.Is(err, console.ErrPageOutOfRange) {
		s.fail(w, r, ordersPath, err)
		return
	}
	var buf strings.Builder
	name, err := ws.Orders.Export(&buf, vq)
	if err != nil {
		s.fail(w, r, ordersPath, err)
		return
	}
	attachment(w, name)
	_, _ = w.Write([]byte(buf.String()))
}
