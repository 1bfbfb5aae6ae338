package router

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

const staticPrefix = "/static"

func setStaticRoutes(r *gin.Engine, opts Options) {
	if opts.StaticFS == nil {
		return
	}
	// gzip 只作用于静态资源（注册在页面与 API 路由之后）。
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(static.Serve(staticPrefix, &embedFileSystem{FileSystem: http.FS(opts.StaticFS)}))
}

// embedFileSystem 把 embed.FS 子目录适配为 static.ServeFileSystem。
type embedFileSystem struct {
	http.FileSystem
}

func (e *embedFileSystem) Exists(prefix string, p string) bool {
	name, found := strings.CutPrefix(p, prefix)
	if !found || name == "" || name == "/" || strings.HasSuffix(name, "/") {
		return false
	}
	f, err := e.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}

func (e *embedFileSystem) Open(name string) (http.File, error) {
	if name == "/" {
		return nil, os.ErrNotExist
	}
	return e.FileSystem.Open(name)
}
