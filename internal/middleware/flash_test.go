package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFlash_RoundTripAndClear(t *testing.T) {
	set := httptest.NewRecorder()
	SetFlashNotice(set, httptest.NewRequest(http.MethodPost, "/admin/settings/init", nil), "Default settings initialized")
	SetFlashError(set, httptest.NewRequest(http.MethodPost, "/admin/settings/init", nil), "Request failed")

	req := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
	for _, c := range set.Result().Cookies() {
		req.AddCookie(c)
	}

	var notice, errMsg string
	rr := httptest.NewRecorder()
	FlashFromCookies(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notice = FlashNotice(r.Context())
		errMsg = FlashError(r.Context())
	})).ServeHTTP(rr, req)

	if notice != "Default settings initialized" || errMsg != "Request failed" {
		t.Fatalf("notice=%q err=%q", notice, errMsg)
	}
	cleared := 0
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Fatalf("expected both flash cookies cleared, got %d", cleared)
	}
}

func TestFlash_PostDoesNotConsume(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/settings/save-all", nil)
	req.AddCookie(&http.Cookie{Name: flashNoticeCookieName, Value: "aGk"})
	rr := httptest.NewRecorder()
	FlashFromCookies(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FlashNotice(r.Context()) != "" {
			t.Fatalf("flash consumed on POST")
		}
	})).ServeHTTP(rr, req)
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("POST should not touch flash cookies")
	}
}

func TestSafeNextPath(t *testing.T) {
	cases := map[string]string{
		"/admin/orders?status=pending": "/admin/orders?status=pending",
		"/admin/settings":              "/admin/settings",
		"":                             "",
		"admin":                        "",
		"//evil.example.com/x":         "",
		"https://evil.example.com":     "",
		"/\\evil":                      "",
	}
	for in, want := range cases {
		if got := SafeNextPath(in); got != want {
			t.Fatalf("SafeNextPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlash_TruncatesOnRuneBoundary(t *testing.T) {
	// "审" 占 3 字节，500 不是 3 的倍数，按字节截断会切断字符。
	msg := "x" + strings.Repeat("审", 300)
	rec := httptest.NewRecorder()
	SetFlashError(rec, httptest.NewRequest(http.MethodPost, "/admin/recharges/r1/reject", nil), msg)

	var raw string
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashErrorCookieName {
			raw = c.Value
		}
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := string(b)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated flash is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") || len(got) > maxFlashLen+len("...") {
		t.Fatalf("len=%d suffix=%q", len(got), got[len(got)-3:])
	}
	if want := "x" + strings.Repeat("审", 166) + "..."; got != want {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "hello", n: 10, want: "hello"},
		{in: "hello", n: 3, want: "hel"},
		{in: "ab审", n: 3, want: "ab"},
		{in: "ab审", n: 5, want: "ab审"},
		{in: "审核", n: 4, want: "审"},
		{in: "审", n: 1, want: ""},
	}
	for _, tt := range tests {
		if got := truncateUTF8(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
