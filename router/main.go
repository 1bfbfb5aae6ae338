package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func SetRouter(r *gin.Engine, opts Options) {
	r.Use(loadSession(opts))

	setSystemRoutes(r, opts)
	setAuthRoutes(r, opts)
	setAdminRoutes(r, opts)

	api := r.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	setAuthAPIRoutes(api, opts)
	setAdminAPIRoutes(api, opts)

	setStaticRoutes(r, opts)
}
