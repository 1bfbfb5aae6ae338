package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"streammall/internal/auth"
	"streammall/internal/backend"
	"streammall/internal/console"
	"streammall/internal/viewmodel"
)

func setAdminAPIRoutes(api *gin.RouterGroup, opts Options) {
	g := api.Group("/admin")
	g.Use(requireAPISession(), requireCSRF())

	g.GET("/orders", apiOrdersHandler(opts))
	g.GET("/orders/stats", apiOrderStatsHandler(opts))

	g.GET("/recharges", apiRechargesHandler(opts))
	g.POST("/recharges/:id/approve", apiApproveRechargeHandler(opts))
	g.POST("/recharges/:id/reject", apiRejectRechargeHandler(opts))

	g.GET("/settings", apiSettingsHandler(opts))
	g.PUT("/settings/:key", apiUpdateSettingHandler(opts))
	g.POST("/settings/save-all", apiSaveAllSettingsHandler(opts))
	g.POST("/settings/init", apiInitSettingsHandler(opts))
}

// apiWorkspace 取出当前会话对应的工作区与后端凭证。
func apiWorkspace(c *gin.Context, opts Options) (*console.Workspace, backend.Credentials, bool) {
	p, ok := auth.PrincipalFromContext(c.Request.Context())
	sess, hasSess := auth.SessionFromContext(c.Request.Context())
	if !ok || !hasSess || strings.TrimSpace(p.WorkspaceID) == "" || opts.Registry == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "not logged in"})
		return nil, nil, false
	}
	return opts.Registry.Get(p.WorkspaceID), sess, true
}

func apiOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

func apiFail(c *gin.Context, err error) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": backend.UserMessage(err)})
}

func queryPage(c *gin.Context) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func viewQuery(c *gin.Context, statusKey string, defaultSort string) viewmodel.Query {
	q := viewmodel.Query{
		Search: c.Query("q"),
		Sort:   strings.TrimSpace(c.Query("sort")),
	}
	if statusKey != "" {
		q.Status = strings.ToLower(strings.TrimSpace(c.Query(statusKey)))
	}
	if q.Status == "" {
		q.Status = viewmodel.StatusAll
	}
	if q.Sort == "" {
		q.Sort = defaultSort
	}
	return q
}

type orderStatsView struct {
	backend.OrderStats
	RevenueCoins int64 `json:"revenueCoins"`
}

func apiOrdersHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		params := console.OrdersParams{Status: c.Query("status"), Page: queryPage(c)}
		force := c.Query("refresh") == "1"
		if err := ws.Orders.Ensure(c.Request.Context(), creds, params, force); err != nil {
			if errors.Is(err, console.ErrPageOutOfRange) {
				c.JSON(http.StatusOK, gin.H{"success": false, "message": "There are no more orders to show"})
				return
			}
			apiFail(c, err)
			return
		}
		// 服务端已按状态过滤，这里只做搜索与排序。
		vq := viewQuery(c, "", viewmodel.SortDate)
		v := ws.Orders.View(vq)
		rows := v.Rows
		if rows == nil {
			rows = []backend.Order{}
		}
		data := gin.H{
			"orders":     rows,
			"loaded":     v.Loaded,
			"status":     v.Query.Status,
			"page":       v.Page,
			"limit":      v.Limit,
			"can_prev":   v.CanPrev,
			"can_next":   v.CanNext,
			"pagination": v.Pagination,
			"fetched_at": v.FetchedAt.UTC().Format(time.RFC3339),
		}
		if v.HasStats {
			data["stats"] = orderStatsView{OrderStats: v.Stats, RevenueCoins: v.Stats.RevenueCoins()}
		}
		apiOK(c, "", data)
	}
}

func apiOrderStatsHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		st, err := ws.Orders.EnsureStats(c.Request.Context(), creds, c.Query("refresh") == "1")
		if err != nil {
			apiFail(c, err)
			return
		}
		apiOK(c, "", orderStatsView{OrderStats: st, RevenueCoins: st.RevenueCoins()})
	}
}

type rechargeItem struct {
	backend.Recharge
	CanReview   bool   `json:"canReview"`
	ReviewLabel string `json:"reviewLabel,omitempty"`
}

func apiRechargesHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		params := console.RechargesParams{Page: queryPage(c)}
		if err := ws.Recharges.Ensure(c.Request.Context(), creds, params, c.Query("refresh") == "1"); err != nil {
			if errors.Is(err, console.ErrPageOutOfRange) {
				c.JSON(http.StatusOK, gin.H{"success": false, "message": "There are no more recharge requests to show"})
				return
			}
			apiFail(c, err)
			return
		}
		v := ws.Recharges.View(viewQuery(c, "status", viewmodel.SortDate))
		items := make([]rechargeItem, 0, len(v.Rows))
		for _, rc := range v.Rows {
			items = append(items, rechargeItem{Recharge: rc, CanReview: console.CanReview(rc), ReviewLabel: console.ReviewLabel(rc)})
		}
		apiOK(c, "", gin.H{
			"recharges":    items,
			"loaded":       v.Loaded,
			"total":        v.Total,
			"pending_bank": v.PendingBank,
			"page":         v.Page,
			"can_prev":     v.CanPrev,
			"can_next":     v.CanNext,
			"pagination":   v.Pagination,
			"fetched_at":   v.FetchedAt.UTC().Format(time.RFC3339),
		})
	}
}

type approveRequest struct {
	Confirm bool `json:"confirm"`
}

func apiApproveRechargeHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		var req approveRequest
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid parameters"})
			return
		}
		id := strings.TrimSpace(c.Param("id"))
		out, err := ws.Recharges.Approve(c.Request.Context(), creds, id, req.Confirm)
		if err != nil {
			apiFail(c, err)
			return
		}
		logger(opts).Info("充值审批通过", "recharge_id", id)
		apiOK(c, out.Message(), gin.H{"newBalance": out.NewBalance})
	}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func apiRejectRechargeHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		var req rejectRequest
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid parameters"})
			return
		}
		id := strings.TrimSpace(c.Param("id"))
		if err := ws.Recharges.Reject(c.Request.Context(), creds, id, req.Reason); err != nil {
			apiFail(c, err)
			return
		}
		logger(opts).Info("充值已拒绝", "recharge_id", id)
		apiOK(c, "Recharge rejected", nil)
	}
}

type settingItem struct {
	Key         string     `json:"key"`
	Label       string     `json:"label"`
	Value       float64    `json:"value"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Color       string     `json:"color"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	Editing     bool       `json:"editing"`
}

func apiSettingsHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		if err := ws.Settings.Ensure(c.Request.Context(), creds, c.Query("refresh") == "1"); err != nil {
			apiFail(c, err)
			return
		}
		v := ws.Settings.View(viewQuery(c, "category", console.SortKey))
		items := make([]settingItem, 0, len(v.Rows))
		for _, row := range v.Rows {
			items = append(items, settingItem{
				Key:         row.Key,
				Label:       row.Label,
				Value:       row.Value,
				Description: row.Description,
				Category:    row.Category,
				Color:       row.Color,
				UpdatedAt:   row.UpdatedAt,
				Editing:     row.Editing,
			})
		}
		apiOK(c, "", gin.H{
			"settings":   items,
			"loaded":     v.Loaded,
			"fetched_at": v.FetchedAt.UTC().Format(time.RFC3339),
		})
	}
}

// rawValue 接受 JSON 数字或字符串形式的设置值，统一交给 console 解析校验。
func rawValue(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return v.Raw
	case gjson.String:
		return v.Str
	default:
		return ""
	}
}

func apiUpdateSettingHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil || !gjson.ValidBytes(body) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid parameters"})
			return
		}
		res := gjson.ParseBytes(body)
		var desc *string
		if d := res.Get("description"); d.Exists() && d.Type == gjson.String {
			s := strings.TrimSpace(d.Str)
			desc = &s
		}

		key := strings.TrimSpace(c.Param("key"))
		// 设置列表尚未加载时先拉取一次，保证 key 可以被校验。
		if err := ws.Settings.Ensure(c.Request.Context(), creds, false); err != nil {
			apiFail(c, err)
			return
		}
		if err := ws.Settings.Save(c.Request.Context(), creds, key, rawValue(res.Get("value")), desc); err != nil {
			apiFail(c, err)
			return
		}
		logger(opts).Info("设置已更新", "key", key)
		apiOK(c, "Setting updated successfully", nil)
	}
}

func apiSaveAllSettingsHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil || (len(body) > 0 && !gjson.ValidBytes(body)) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid parameters"})
			return
		}
		values := map[string]string{}
		gjson.GetBytes(body, "values").ForEach(func(k, v gjson.Result) bool {
			values[k.String()] = rawValue(v)
			return true
		})

		if err := ws.Settings.Ensure(c.Request.Context(), creds, false); err != nil {
			apiFail(c, err)
			return
		}
		res := ws.Settings.SaveAll(c.Request.Context(), creds, values)
		logger(opts).Info("批量保存设置", "updated", len(res.Updated), "failed", len(res.Failed), "outcome", res.Outcome)
		if err := res.Unauthorized(); err != nil {
			apiFail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": res.Outcome != console.OutcomeFailure,
			"message": res.Message(),
			"data":    res,
		})
	}
}

func apiInitSettingsHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, creds, ok := apiWorkspace(c, opts)
		if !ok {
			return
		}
		if err := ws.Settings.InitDefaults(c.Request.Context(), creds); err != nil {
			apiFail(c, err)
			return
		}
		logger(opts).Info("已初始化默认设置")
		apiOK(c, "Default settings initialized", nil)
	}
}
