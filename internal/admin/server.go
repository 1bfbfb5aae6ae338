// Package admin 提供 StreamMall 管理控制台的 SSR 页面：订单、充值审核、平台设置。
package admin

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"streammall/internal/auth"
	"streammall/internal/backend"
	"streammall/internal/console"
	"streammall/internal/export"
	"streammall/internal/middleware"
	"streammall/internal/version"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Assets 为控制台静态资源（static/ 目录）。
//
//go:embed static
var Assets embed.FS

type Server struct {
	reg    *console.Registry
	loc    *time.Location
	logger *slog.Logger

	tmpl *template.Template
}

func NewServer(reg *console.Registry, loc *time.Location, logger *slog.Logger) (*Server, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{reg: reg, loc: loc, logger: logger}
	t, err := template.New("admin").Funcs(s.funcMap()).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s.tmpl = t
	return s, nil
}

type templateData struct {
	Title       string
	Active      string
	ContentHTML template.HTML
	Error       string
	Notice      string
	CSRFToken   string
	Version     string

	Login     *loginView
	Orders    *ordersView
	Order     *orderDetailView
	Recharges *rechargesView
	Settings  *settingsView
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data templateData) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data templateData) {
	if data.Notice == "" {
		data.Notice = middleware.FlashNotice(r.Context())
	}
	if data.Error == "" {
		data.Error = middleware.FlashError(r.Context())
	}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok && p.CSRFToken != nil {
		data.CSRFToken = *p.CSRFToken
	}
	data.Version = version.Info().Version

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("页面渲染失败", "template", name, "err", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	data.ContentHTML = template.HTML(buf.String())

	layout := "admin_base"
	if data.Login != nil {
		layout = "login_base"
	}
	buf.Reset()
	if err := s.tmpl.ExecuteTemplate(&buf, layout, data); err != nil {
		s.logger.Error("页面渲染失败", "template", layout, "err", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

var errNoWorkspace = errors.New("admin: missing workspace")

// current 返回本次请求对应的工作区与后端凭证。
func (s *Server) current(r *http.Request) (*console.Workspace, backend.Credentials, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || strings.TrimSpace(p.WorkspaceID) == "" {
		return nil, nil, errNoWorkspace
	}
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return nil, nil, errNoWorkspace
	}
	return s.reg.Get(p.WorkspaceID), sess, nil
}

// requireWorkspace 取不到工作区时跳转登录页并返回 false。
func (s *Server) requireWorkspace(w http.ResponseWriter, r *http.Request) (*console.Workspace, backend.Credentials, bool) {
	ws, creds, err := s.current(r)
	if err != nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
		return nil, nil, false
	}
	return ws, creds, true
}

// unauthorized 处理后端 401/403：会话已由凭证回调清除，这里提示并跳转登录页。
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !backend.IsKind(err, backend.KindUnauthorized) {
		return false
	}
	if isAjax(r) {
		ajaxError(w, http.StatusUnauthorized, backend.UserMessage(err))
		return true
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		middleware.SetNextPathCookie(w, r, r.URL.RequestURI())
	}
	middleware.SetFlashError(w, r, backend.UserMessage(err))
	http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
	return true
}

// done 结束一次表单提交：AJAX 返回 JSON，普通表单写 flash 并 302 回列表页。
func (s *Server) done(w http.ResponseWriter, r *http.Request, target string, notice string) {
	middleware.SetFlashNotice(w, r, notice)
	if isAjax(r) {
		// 前端收到 ok 后跳回列表页，由 flash 显示结果。
		ajaxOK(w, notice)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, target string, err error) {
	if s.unauthorized(w, r, err) {
		return
	}
	msg := backend.UserMessage(err)
	if isAjax(r) {
		status := http.StatusBadGateway
		if backend.IsKind(err, backend.KindValidation) {
			status = http.StatusBadRequest
		}
		ajaxError(w, status, msg)
		return
	}
	middleware.SetFlashError(w, r, msg)
	http.Redirect(w, r, target, http.StatusFound)
}

// returnTo 取表单中的 return_to（仅站内路径），否则使用默认列表页。
func returnTo(r *http.Request, fallback string) string {
	if next := middleware.SafeNextPath(r.PostFormValue("return_to")); next != "" {
		return next
	}
	return fallback
}

func withQuery(path string, q url.Values) string {
	if enc := q.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}

func attachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
}
