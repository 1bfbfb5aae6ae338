// Package auth 提供管理员主体信息与后端凭证会话，供中间件与后端客户端共享。
package auth

import (
	"context"
	"strings"
	"sync"
)

type ActorType string

const (
	ActorTypeSession ActorType = "session"
)

type Principal struct {
	ActorType ActorType
	// WorkspaceID 指向该管理员在进程内的工作区（已加载的列表、编辑缓冲）。
	WorkspaceID string
	CSRFToken   *string
}

type ctxKey int

const (
	principalKey ctxKey = 1
	sessionKey   ctxKey = 2
)

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalKey)
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// Session 持有调用后端所用的 bearer token。
//
// 后端返回 401/403 时调用 NotifyUnauthorized：token 被清空，已注册的回调按注册顺序执行且只执行一次。
type Session struct {
	mu       sync.Mutex
	token    string
	handlers []func()
	expired  bool
}

func NewSession(token string) *Session {
	return &Session{token: strings.TrimSpace(token)}
}

func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// OnUnauthorized 注册凭证失效回调；会话已失效时立即执行。
func (s *Session) OnUnauthorized(fn func()) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	if s.expired {
		s.mu.Unlock()
		fn()
		return
	}
	s.handlers = append(s.handlers, fn)
	s.mu.Unlock()
}

func (s *Session) NotifyUnauthorized() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.expired {
		s.mu.Unlock()
		return
	}
	s.expired = true
	s.token = ""
	handlers := s.handlers
	s.handlers = nil
	s.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

func (s *Session) Expired() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}
