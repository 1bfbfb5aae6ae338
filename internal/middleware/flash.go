package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	flashNoticeCookieName = "sm_flash_notice"
	flashErrorCookieName  = "sm_flash_error"
	nextPathCookieName    = "sm_next"

	maxFlashLen = 500
)

type flashContextKey struct{}

type flashData struct {
	Notice string
	Error  string
}

func FlashNotice(ctx context.Context) string {
	fd, _ := ctx.Value(flashContextKey{}).(flashData)
	return fd.Notice
}

func FlashError(ctx context.Context) string {
	fd, _ := ctx.Value(flashContextKey{}).(flashData)
	return fd.Error
}

func NextPathFromCookie(r *http.Request) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(nextPathCookieName)
	if err != nil {
		return ""
	}
	return SafeNextPath(c.Value)
}

func ClearNextPathCookie(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, r, nextPathCookieName)
}

// SafeNextPath 只接受站内相对路径（可带 query），其余返回空串，防止开放重定向。
func SafeNextPath(raw string) string {
	next := strings.TrimSpace(raw)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || u.Scheme != "" {
		return ""
	}
	if u.Path == "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return ""
	}
	return u.RequestURI()
}

func SetNextPathCookie(w http.ResponseWriter, r *http.Request, nextPath string) {
	nextPath = SafeNextPath(nextPath)
	if nextPath == "" {
		return
	}
	setCookie(w, r, nextPathCookieName, nextPath, 10*time.Minute)
}

func SetFlashNotice(w http.ResponseWriter, r *http.Request, msg string) {
	setFlash(w, r, flashNoticeCookieName, msg)
}

func SetFlashError(w http.ResponseWriter, r *http.Request, msg string) {
	setFlash(w, r, flashErrorCookieName, msg)
}

func setFlash(w http.ResponseWriter, r *http.Request, cookieName string, msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	if len(msg) > maxFlashLen {
		msg = truncateUTF8(msg, maxFlashLen) + "..."
	}
	enc := base64.RawURLEncoding.EncodeToString([]byte(msg))
	setCookie(w, r, cookieName, enc, 2*time.Minute)
}

// truncateUTF8 截到不超过 n 字节，且不切断多字节字符。
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// FlashFromCookies 在 GET/HEAD 请求上读取并清除 flash cookie，放入 context 供模板渲染。
func FlashFromCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
		default:
			next.ServeHTTP(w, r)
			return
		}
		notice := popFlash(w, r, flashNoticeCookieName)
		errMsg := popFlash(w, r, flashErrorCookieName)
		if notice == "" && errMsg == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), flashContextKey{}, flashData{
			Notice: notice,
			Error:  errMsg,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func popFlash(w http.ResponseWriter, r *http.Request, cookieName string) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	clearCookie(w, r, cookieName)
	raw := strings.TrimSpace(c.Value)
	if raw == "" {
		return ""
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func setCookie(w http.ResponseWriter, r *http.Request, name string, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
