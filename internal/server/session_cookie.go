package server

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"

	"streammall/internal/auth"
	"streammall/internal/config"
)

const SessionCookieName = "streammall_session"

// newSessionStore 构造加密签名的 cookie 会话存储；会话里保存后端 token，因此必须加密。
func newSessionStore(cfg config.Config, secret string) (sessions.Store, error) {
	hashKey, blockKey, err := auth.DeriveCookieKeys(secret)
	if err != nil {
		return nil, err
	}
	st := cookie.NewStore(hashKey, blockKey)
	st.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Security.SessionMaxAgeSeconds,
		HttpOnly: true,
		Secure:   cfg.Env != "dev" && !cfg.Security.DisableSecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return st, nil
}
