package router

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"streammall/internal/auth"
)

const (
	sessionTokenKey     = "token"
	sessionWorkspaceKey = "workspace_id"
	sessionCSRFKey      = "csrf_token"
	sessionEmailKey     = "email"
)

func sessionString(c *gin.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := sessions.Default(c).Get(key).(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func sessionCSRFToken(c *gin.Context) (string, bool) {
	return sessionString(c, sessionCSRFKey)
}

// loadSession 从 cookie 会话装配管理员主体与后端凭证；后端返回 401/403 时清空会话并回收工作区。
func loadSession(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionString(c, sessionTokenKey)
		if !ok {
			c.Next()
			return
		}
		wsID, ok := sessionString(c, sessionWorkspaceKey)
		if !ok {
			clearSession(c)
			c.Next()
			return
		}
		csrf, _ := sessionCSRFToken(c)

		bs := auth.NewSession(token)
		bs.OnUnauthorized(func() {
			if opts.Logger != nil {
				opts.Logger.Info("后端凭证已失效，清除会话", "workspace_id", wsID)
			}
			clearSession(c)
			if opts.Registry != nil {
				opts.Registry.Drop(wsID)
			}
		})

		p := auth.Principal{ActorType: auth.ActorTypeSession, WorkspaceID: wsID, CSRFToken: &csrf}
		ctx := auth.WithPrincipal(c.Request.Context(), p)
		ctx = auth.WithSession(ctx, bs)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// establishSession 登录成功后写入会话：token、新的工作区 id 与 csrf token。
func establishSession(c *gin.Context, opts Options, email string, token string) error {
	csrf, err := auth.NewRandomToken("csrf_", 32)
	if err != nil {
		return err
	}
	sess := sessions.Default(c)
	if old, ok := sessionString(c, sessionWorkspaceKey); ok && opts.Registry != nil {
		opts.Registry.Drop(old)
	}
	sess.Clear()
	sess.Set(sessionTokenKey, token)
	sess.Set(sessionWorkspaceKey, opts.Registry.NewID())
	sess.Set(sessionCSRFKey, csrf)
	sess.Set(sessionEmailKey, email)
	return sess.Save()
}

func clearSession(c *gin.Context) {
	if c == nil {
		return
	}
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
}

// endSession 登出：回收工作区并清空会话。
func endSession(c *gin.Context, opts Options) {
	if wsID, ok := sessionString(c, sessionWorkspaceKey); ok && opts.Registry != nil {
		opts.Registry.Drop(wsID)
	}
	clearSession(c)
}
