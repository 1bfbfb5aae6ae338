// Package middleware 提供控制台页面使用的 net/http 中间件：请求 ID、访问日志、会话校验、CSRF、flash 消息。
package middleware

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain 按书写顺序包裹：Chain(h, a, b) 等价于 a(b(h))。
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		h = mws[i](h)
	}
	return h
}
