package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streammall/internal/middleware"
)

// pageChain 为控制台页面套上 net/http 中间件：请求 ID → 访问日志 → 超时 → 请求体上限 → 登录校验 → flash → CSRF。
func pageChain(opts Options, h http.HandlerFunc) gin.HandlerFunc {
	return wrapHTTP(middleware.Chain(h,
		middleware.RequestID,
		middleware.AccessLog,
		middleware.RequestTimeout(opts.RequestTimeout),
		middleware.MaxBytes(opts.MaxBodyBytes),
		middleware.RequireSession(),
		middleware.FlashFromCookies,
		middleware.CSRF(),
	))
}

func setAdminRoutes(r *gin.Engine, opts Options) {
	landing := func(c *gin.Context) { c.Redirect(http.StatusFound, defaultLandingPath) }
	r.GET("/", landing)
	r.GET("/admin", landing)

	s := opts.Admin
	r.GET("/admin/orders", pageChain(opts, s.Orders))
	r.GET("/admin/orders/export.csv", pageChain(opts, s.ExportOrders))
	r.GET("/admin/orders/:order_id", pageChain(opts, s.OrderDetail))

	r.GET("/admin/recharges", pageChain(opts, s.Recharges))
	r.GET("/admin/recharges/export.csv", pageChain(opts, s.ExportRecharges))
	r.POST("/admin/recharges/:id/approve", pageChain(opts, s.ApproveRecharge))
	r.POST("/admin/recharges/:id/reject", pageChain(opts, s.RejectRecharge))

	r.GET("/admin/settings", pageChain(opts, s.Settings))
	r.GET("/admin/settings/export.csv", pageChain(opts, s.ExportSettings))
	r.POST("/admin/settings/save-all", pageChain(opts, s.SaveAllSettings))
	r.POST("/admin/settings/init", pageChain(opts, s.InitSettings))
	r.POST("/admin/settings/:key", pageChain(opts, s.SaveSetting))
	r.POST("/admin/settings/:key/edit", pageChain(opts, s.EditSetting))
	r.POST("/admin/settings/:key/cancel", pageChain(opts, s.CancelSettingEdit))
}
