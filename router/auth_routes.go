package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"streammall/internal/backend"
	"streammall/internal/middleware"
)

const defaultLandingPath = "/admin/orders"

func setAuthRoutes(r *gin.Engine, opts Options) {
	loginPage := wrapHTTP(middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opts.Admin.LoginPage(w, r, "", "")
	}), middleware.RequestID, middleware.AccessLog, middleware.FlashFromCookies))

	r.GET("/login", func(c *gin.Context) {
		if _, ok := sessionString(c, sessionTokenKey); ok {
			c.Redirect(http.StatusFound, defaultLandingPath)
			return
		}
		loginPage(c)
	})
	r.POST("/login", wrapLogin(opts))
	r.POST("/logout", logoutHandler(opts))
}

func wrapLogin(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loginFormHandler(c, opts, w, r)
		}), middleware.RequestID, middleware.AccessLog, middleware.MaxBytes(opts.MaxBodyBytes))
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func loginFormHandler(c *gin.Context, opts Options, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		opts.Admin.LoginPage(w, r, "Invalid form", "")
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	token, err := opts.Login.Login(r.Context(), email, password)
	if err != nil {
		logger(opts).Info("管理员登录失败", "email", email, "err", err)
		opts.Admin.LoginPage(w, r, loginErrorMessage(err), email)
		return
	}
	if err := establishSession(c, opts, email, token); err != nil {
		logger(opts).Error("保存会话失败", "err", err)
		opts.Admin.LoginPage(w, r, "Unable to save session, please try again", email)
		return
	}
	logger(opts).Info("管理员已登录", "email", email)

	next := middleware.NextPathFromCookie(r)
	if next == "" {
		next = middleware.SafeNextPath(r.PostFormValue("next"))
	}
	if next == "" || strings.HasPrefix(next, middleware.LoginPath) {
		next = defaultLandingPath
	}
	middleware.ClearNextPathCookie(w, r)
	http.Redirect(w, r, next, http.StatusFound)
}

// loginErrorMessage 登录接口的 401 没有 msg 时，不应提示“会话过期”。
func loginErrorMessage(err error) string {
	var e *backend.Error
	if errors.As(err, &e) && e.Kind == backend.KindUnauthorized && e.Message == "" {
		return "Invalid email or password"
	}
	return backend.UserMessage(err)
}

func logoutHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		want, ok := sessionCSRFToken(c)
		got := strings.TrimSpace(c.GetHeader("X-CSRF-Token"))
		if got == "" {
			got = strings.TrimSpace(c.PostForm("_csrf"))
		}
		if ok && got != want {
			middleware.SetFlashError(c.Writer, c.Request, "Security check failed, please refresh the page and try again")
			c.Redirect(http.StatusFound, defaultLandingPath)
			return
		}
		endSession(c, opts)
		middleware.SetFlashNotice(c.Writer, c.Request, "Signed out")
		c.Redirect(http.StatusFound, middleware.LoginPath)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func setAuthAPIRoutes(api *gin.RouterGroup, opts Options) {
	api.POST("/login", apiLoginHandler(opts))
	api.POST("/logout", requireAPISession(), requireCSRF(), func(c *gin.Context) {
		endSession(c, opts)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": ""})
	})
}

func apiLoginHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "invalid parameters"})
			return
		}
		email := strings.TrimSpace(req.Email)
		token, err := opts.Login.Login(c.Request.Context(), email, req.Password)
		if err != nil {
			logger(opts).Info("管理员登录失败", "email", email, "err", err)
			c.JSON(http.StatusOK, gin.H{"success": false, "message": loginErrorMessage(err)})
			return
		}
		if err := establishSession(c, opts, email, token); err != nil {
			logger(opts).Error("保存会话失败", "err", err)
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Unable to save session, please try again"})
			return
		}
		csrf, _ := sessionCSRFToken(c)
		logger(opts).Info("管理员已登录", "email", email)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "",
			"data": gin.H{
				"email":      email,
				"csrf_token": csrf,
			},
		})
	}
}
