package middleware

import (
	"errors"
	"net/http"
	"strings"

	"streammall/internal/auth"
)

// CSRF 对有副作用的方法校验会话绑定的 csrf token（X-CSRF-Token header 或表单字段 _csrf）。
func CSRF() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			default:
			}

			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok || p.ActorType != auth.ActorTypeSession || p.CSRFToken == nil {
				http.Error(w, "Not logged in", http.StatusUnauthorized)
				return
			}
			expected := strings.TrimSpace(*p.CSRFToken)
			if expected == "" {
				http.Error(w, "Session is invalid, please sign in again", http.StatusUnauthorized)
				return
			}

			headerToken := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
			if headerToken != "" && headerToken == expected {
				next.ServeHTTP(w, r)
				return
			}

			if err := r.ParseForm(); err != nil {
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) {
					http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "Invalid form", http.StatusBadRequest)
				return
			}
			formToken := strings.TrimSpace(r.PostFormValue("_csrf"))
			if formToken == "" || formToken != expected {
				http.Error(w, "Security check failed, please refresh the page and try again", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
