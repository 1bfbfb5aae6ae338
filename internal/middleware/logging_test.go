package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"streammall/internal/auth"
)

func captureDefaultLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

func TestAccessLog_DoesNotLogAuthorization(t *testing.T) {
	buf := captureDefaultLogger(t)

	secret := "sm_secret_should_not_appear"
	req := httptest.NewRequest(http.MethodGet, "http://example.com/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+secret)
	req.AddCookie(&http.Cookie{Name: "streammall_session", Value: secret})

	rr := httptest.NewRecorder()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), RequestID, AccessLog)

	h.ServeHTTP(rr, req)

	out := buf.String()
	if strings.Contains(out, secret) {
		t.Fatalf("log contains secret token: %s", out)
	}
}

func TestAccessLog_RecordsStatusAndWorkspace(t *testing.T) {
	buf := captureDefaultLogger(t)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/admin/recharges", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{ActorType: auth.ActorTypeSession, WorkspaceID: "ws-1"}))

	rr := httptest.NewRecorder()
	Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	}), RequestID, AccessLog).ServeHTTP(rr, req)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log: %v (%s)", err, buf.String())
	}
	if entry["status"] != float64(http.StatusTeapot) || entry["bytes"] != float64(3) {
		t.Fatalf("entry = %v", entry)
	}
	if entry["workspace_id"] != "ws-1" || entry["path"] != "/admin/recharges" {
		t.Fatalf("entry = %v", entry)
	}
	if rid, _ := entry["request_id"].(string); rid == "" {
		t.Fatalf("missing request_id: %v", entry)
	}
}
