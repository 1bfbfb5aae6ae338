package middleware

import (
	"net/http"

	"streammall/internal/auth"
)

const LoginPath = "/login"

// RequireSession 要求 context 中已有带 token 的管理员会话（由路由层从 cookie 会话装配）。
// 未登录时 GET/HEAD 记住原路径后跳转登录页；其它方法直接跳转登录页。
func RequireSession() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			sess, hasSess := auth.SessionFromContext(r.Context())
			if !ok || p.ActorType != auth.ActorTypeSession || !hasSess || sess.Token() == "" {
				switch r.Method {
				case http.MethodGet, http.MethodHead:
					SetNextPathCookie(w, r, r.URL.RequestURI())
				}
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
