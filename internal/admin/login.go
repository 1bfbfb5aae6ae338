package admin

import (
	"net/http"
	"strings"

	"streammall/internal/middleware"
)

type loginView struct {
	Email string
	Next  string
}

// LoginPage 渲染登录页；errMsg 非空时在表单上方显示。
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request, errMsg string, email string) {
	next := middleware.SafeNextPath(r.URL.Query().Get("next"))
	if next == "" {
		next = middleware.SafeNextPath(r.PostFormValue("next"))
	}
	status := http.StatusOK
	if errMsg != "" {
		status = http.StatusUnauthorized
	}
	s.renderStatus(w, r, status, "admin_login", templateData{
		Title: "Sign in - StreamMall Admin",
		Error: errMsg,
		Login: &loginView{Email: strings.TrimSpace(email), Next: next},
	})
}
