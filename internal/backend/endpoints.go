package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type OrderQuery struct {
	Page  int
	Limit int
	// Status 为空或 "all" 时不下发过滤。
	Status string
}

type OrderPage struct {
	Orders     []Order
	Pagination *Pagination
}

func (c *Client) ListOrders(ctx context.Context, creds Credentials, q OrderQuery) (OrderPage, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.Status); s != "" && s != "all" {
		v.Set("status", s)
	}
	path := "/live/admin/all-orders"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}

	res, err := c.Do(ctx, creds, http.MethodGet, path, nil)
	if err != nil {
		return OrderPage{}, withFallback(err, "Failed to fetch orders")
	}
	var out OrderPage
	res.Get("orders").ForEach(func(_, item gjson.Result) bool {
		out.Orders = append(out.Orders, parseOrder(item))
		return true
	})
	out.Pagination = parsePagination(res.Get("pagination"))
	return out, nil
}

func (c *Client) OrderStats(ctx context.Context, creds Credentials) (OrderStats, error) {
	res, err := c.Do(ctx, creds, http.MethodGet, "/live/admin/order-stats", nil)
	if err != nil {
		return OrderStats{}, withFallback(err, "Failed to fetch order stats")
	}
	return parseOrderStats(res.Get("stats")), nil
}

type RechargeQuery struct {
	Page  int
	Limit int
}

type RechargePage struct {
	Recharges  []Recharge
	Pagination *Pagination
}

func (c *Client) ListRecharges(ctx context.Context, creds Credentials, q RechargeQuery) (RechargePage, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/recharges/history"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}

	res, err := c.Do(ctx, creds, http.MethodGet, path, nil)
	if err != nil {
		return RechargePage{}, withFallback(err, "Failed to fetch recharge requests")
	}
	var out RechargePage
	res.Get("recharges").ForEach(func(_, item gjson.Result) bool {
		out.Recharges = append(out.Recharges, parseRecharge(item))
		return true
	})
	out.Pagination = parsePagination(res.Get("pagination"))
	return out, nil
}

type ApproveResult struct {
	Message string
	// NewBalance 为 nil 表示后端未返回余额。
	NewBalance *int64
}

func (c *Client) ApproveRecharge(ctx context.Context, creds Credentials, id string, notes string) (ApproveResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ApproveResult{}, Validation("approve recharge", "Recharge id is required")
	}
	body, err := sjson.SetBytes([]byte(`{}`), "notes", notes)
	if err != nil {
		return ApproveResult{}, &Error{Kind: KindValidation, Op: "approve recharge", Message: "Invalid notes", Cause: err}
	}
	res, err := c.Do(ctx, creds, http.MethodPost, "/recharges/admin/approve/"+url.PathEscape(id), body)
	if err != nil {
		return ApproveResult{}, withFallback(err, "Failed to approve recharge")
	}
	out := ApproveResult{Message: res.Get("msg").String()}
	if nb := res.Get("newBalance"); nb.Type == gjson.Number {
		n := nb.Int()
		out.NewBalance = &n
	}
	return out, nil
}

func (c *Client) RejectRecharge(ctx context.Context, creds Credentials, id string, reason string) (string, error) {
	id = strings.TrimSpace(id)
	reason = strings.TrimSpace(reason)
	if id == "" {
		return "", Validation("reject recharge", "Recharge id is required")
	}
	if reason == "" {
		return "", Validation("reject recharge", "A rejection reason is required")
	}
	body, err := sjson.SetBytes([]byte(`{}`), "reason", reason)
	if err != nil {
		return "", &Error{Kind: KindValidation, Op: "reject recharge", Message: "Invalid reason", Cause: err}
	}
	res, err := c.Do(ctx, creds, http.MethodPost, "/recharges/admin/reject/"+url.PathEscape(id), body)
	if err != nil {
		return "", withFallback(err, "Failed to reject recharge")
	}
	return res.Get("msg").String(), nil
}

// Login 调用管理员登录接口并返回 bearer token。
func (c *Client) Login(ctx context.Context, email string, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", Validation("admin login", "Email and password are required")
	}
	body, _ := sjson.SetBytes([]byte(`{}`), "email", email)
	body, _ = sjson.SetBytes(body, "password", password)

	res, err := c.Do(ctx, nil, http.MethodPost, "/admin/admin-login", body)
	if err != nil {
		return "", withFallback(err, "Login failed")
	}
	tok := strings.TrimSpace(res.Get("token").String())
	if tok == "" {
		return "", &Error{Kind: KindDecode, Op: "POST /admin/admin-login", Fallback: "Login failed"}
	}
	return tok, nil
}

// SettingsAPI 访问设置接口；设置服务可能部署在独立的后端上，路径前缀可配置。
type SettingsAPI struct {
	c      *Client
	prefix string
}

func NewSettingsAPI(c *Client, prefix string) *SettingsAPI {
	prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "/" {
		prefix = "/admin/settings"
	}
	return &SettingsAPI{c: c, prefix: prefix}
}

func (s *SettingsAPI) List(ctx context.Context, creds Credentials) ([]Setting, error) {
	res, err := s.c.Do(ctx, creds, http.MethodGet, s.prefix, nil)
	if err != nil {
		return nil, withFallback(err, "Failed to fetch settings")
	}
	list := settingsArray(res)
	out := make([]Setting, 0, len(list))
	for _, item := range list {
		st := parseSetting(item)
		if st.Key == "" {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// settingsArray 兼容几种响应形态：裸数组、{data: [...]}、{settings: [...]}、{data: {settings: [...]}}。
func settingsArray(res gjson.Result) []gjson.Result {
	if res.IsArray() {
		return res.Array()
	}
	for _, path := range []string{"data", "settings", "data.settings"} {
		if v := res.Get(path); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

func (s *SettingsAPI) Update(ctx context.Context, creds Credentials, key string, value float64, description *string) (Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Setting{}, Validation("update setting", "Setting key is required")
	}
	if value < 0 {
		return Setting{}, Validation("update setting", "Value must be a non-negative number")
	}
	body, err := sjson.SetBytes([]byte(`{}`), "value", value)
	if err != nil {
		return Setting{}, &Error{Kind: KindValidation, Op: "update setting", Message: "Invalid value", Cause: err}
	}
	if description != nil {
		body, _ = sjson.SetBytes(body, "description", strings.TrimSpace(*description))
	}
	res, err := s.c.Do(ctx, creds, http.MethodPut, s.prefix+"/"+url.PathEscape(key), body)
	if err != nil {
		return Setting{}, withFallback(err, "Failed to update setting")
	}
	for _, path := range []string{"data", "setting"} {
		if v := res.Get(path); v.IsObject() {
			return parseSetting(v), nil
		}
	}
	if res.IsObject() && res.Get("key").Exists() {
		return parseSetting(res), nil
	}
	return Setting{Key: key, Value: value}, nil
}

func (s *SettingsAPI) Init(ctx context.Context, creds Credentials) error {
	if _, err := s.c.Do(ctx, creds, http.MethodPost, s.prefix+"/init", []byte(`{}`)); err != nil {
		return withFallback(err, "Failed to initialize settings")
	}
	return nil
}
