package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	h := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/orders", nil))
	if !hasDeadline {
		t.Fatalf("expected deadline on request context")
	}

	h = RequestTimeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/orders", nil))
	if hasDeadline {
		t.Fatalf("zero timeout should not set a deadline")
	}
}

func TestMaxBytes_LimitsForm(t *testing.T) {
	var parseErr error
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseErr = r.ParseForm()
	}), MaxBytes(8))

	req := httptest.NewRequest(http.MethodPost, "/admin/settings/save-all", strings.NewReader("value="+strings.Repeat("9", 64)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if parseErr == nil {
		t.Fatalf("expected body limit error")
	}
}
