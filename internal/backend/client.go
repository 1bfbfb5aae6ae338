// Package backend 封装对 StreamMall 后端的鉴权 JSON 调用：统一错误分类、响应体限长，不做任何重试。
package backend

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"streammall/internal/config"
	"streammall/internal/obs"
)

// Credentials 是客户端所需的最小鉴权上下文；*auth.Session 满足该接口。
type Credentials interface {
	Token() string
	NotifyUnauthorized()
}

// StaticToken 用于脱离请求生命周期的调用（例如后台对账），失效时不触发任何回调。
type StaticToken string

func (t StaticToken) Token() string      { return strings.TrimSpace(string(t)) }
func (StaticToken) NotifyUnauthorized() {}

type Options struct {
	Timeout          time.Duration
	MaxResponseBytes int64

	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// HTTPClient 非空时直接使用（测试注入）。
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func OptionsFromConfig(bc config.BackendConfig, hc config.BackendHTTPConfig) Options {
	return Options{
		Timeout:             time.Duration(bc.RequestTimeoutSeconds) * time.Second,
		MaxResponseBytes:    bc.MaxResponseBytes,
		DialTimeout:         time.Duration(hc.DialTimeoutSeconds) * time.Second,
		TLSHandshakeTimeout: time.Duration(hc.TLSHandshakeTimeoutSeconds) * time.Second,
		MaxIdleConns:        hc.MaxIdleConns,
		MaxIdleConnsPerHost: hc.MaxIdleConnsPerHost,
		IdleConnTimeout:     time.Duration(hc.IdleConnTimeoutSeconds) * time.Second,
	}
}

type Client struct {
	baseURL string
	http    *http.Client
	maxBody int64
	logger  *slog.Logger
}

func cloneDefaultTransport() *http.Transport {
	if t, ok := http.DefaultTransport.(*http.Transport); ok && t != nil {
		return t.Clone()
	}
	return &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: true,
		MaxIdleConns:      100,
		IdleConnTimeout:   90 * time.Second,
	}
}

func New(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		t := cloneDefaultTransport()
		t.DialContext = (&net.Dialer{Timeout: opts.DialTimeout, KeepAlive: 30 * time.Second}).DialContext
		t.TLSHandshakeTimeout = opts.TLSHandshakeTimeout
		if opts.MaxIdleConns > 0 {
			t.MaxIdleConns = opts.MaxIdleConns
		}
		if opts.MaxIdleConnsPerHost > 0 {
			t.MaxIdleConnsPerHost = opts.MaxIdleConnsPerHost
		}
		if opts.IdleConnTimeout > 0 {
			t.IdleConnTimeout = opts.IdleConnTimeout
		}
		hc = &http.Client{Transport: t, Timeout: opts.Timeout}
	}
	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = 8 << 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    hc,
		maxBody: maxBody,
		logger:  logger,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do 发送一次 JSON 请求。body 为 nil 表示无请求体；2xx 空响应体返回零值 gjson.Result。
func (c *Client) Do(ctx context.Context, creds Credentials, method string, path string, body []byte) (gjson.Result, error) {
	op := method + " " + opPath(path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return gjson.Result{}, &Error{Kind: KindNetwork, Op: op, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil {
		if tok := creds.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		obs.RecordBackendCall(true)
		c.logger.Warn("后端请求失败", "op", op, "err", err, "latency_ms", time.Since(start).Milliseconds())
		return gjson.Result{}, &Error{Kind: KindNetwork, Op: op, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		obs.RecordBackendCall(true)
		return gjson.Result{}, &Error{Kind: KindNetwork, Op: op, StatusCode: resp.StatusCode, Cause: err}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	obs.RecordBackendCall(!ok)
	c.logger.Debug("后端请求", "op", op, "status", resp.StatusCode, "bytes", len(raw), "latency_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if creds != nil {
			creds.NotifyUnauthorized()
		}
		return gjson.Result{}, &Error{Kind: KindUnauthorized, Op: op, StatusCode: resp.StatusCode, Message: messageOf(raw)}
	case !ok:
		return gjson.Result{}, &Error{Kind: KindServer, Op: op, StatusCode: resp.StatusCode, Message: messageOf(raw)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &Error{Kind: KindDecode, Op: op, StatusCode: resp.StatusCode}
	}
	res := gjson.ParseBytes(raw)
	if s := res.Get("success"); s.Exists() && s.Type == gjson.False {
		return gjson.Result{}, &Error{Kind: KindServer, Op: op, StatusCode: resp.StatusCode, Message: messageOf(raw)}
	}
	return res, nil
}

// messageOf 依次读取 msg、message；非 JSON 或字段缺失时返回空串。
func messageOf(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return ""
	}
	for _, key := range []string{"msg", "message"} {
		if v := gjson.GetBytes(raw, key); v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

func opPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
