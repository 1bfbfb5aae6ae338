package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

type fakeCreds struct {
	token        string
	unauthorized int
}

func (f *fakeCreds) Token() string       { return f.token }
func (f *fakeCreds) NotifyUnauthorized() { f.unauthorized++ }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", Options{HTTPClient: srv.Client()})
}

func TestDo_AttachesBearerOnlyWhenTokenPresent(t *testing.T) {
	var gotAuth []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	if _, err := c.Do(context.Background(), &fakeCreds{token: "abc"}, http.MethodGet, "/x", nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if _, err := c.Do(context.Background(), &fakeCreds{}, http.MethodGet, "/x", nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if _, err := c.Do(context.Background(), nil, http.MethodGet, "/x", nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotAuth[0] != "Bearer abc" || gotAuth[1] != "" || gotAuth[2] != "" {
		t.Fatalf("authorization headers = %q", gotAuth)
	}
}

func TestDo_ErrorClassification(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		body        string
		wantKind    Kind
		wantMessage string
		wantUnauth  int
	}{
		{name: "unauthorized fires handler", status: 401, body: `{"msg":"Token expired"}`, wantKind: KindUnauthorized, wantMessage: "Token expired", wantUnauth: 1},
		{name: "forbidden fires handler", status: 403, body: `{"message":"Admins only"}`, wantKind: KindUnauthorized, wantMessage: "Admins only", wantUnauth: 1},
		{name: "server msg first", status: 500, body: `{"msg":"boom","message":"ignored"}`, wantKind: KindServer, wantMessage: "boom"},
		{name: "server message second", status: 400, body: `{"message":"bad input"}`, wantKind: KindServer, wantMessage: "bad input"},
		{name: "server no body message", status: 502, body: `<html>bad gateway</html>`, wantKind: KindServer, wantMessage: ""},
		{name: "success false envelope", status: 200, body: `{"success":false,"message":"nope"}`, wantKind: KindServer, wantMessage: "nope"},
		{name: "non json 2xx", status: 200, body: `hello`, wantKind: KindDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			creds := &fakeCreds{token: "t"}
			_, err := c.Do(context.Background(), creds, http.MethodGet, "/x", nil)
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if be.Kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s", be.Kind, tc.wantKind)
			}
			if be.Message != tc.wantMessage {
				t.Fatalf("message = %q, want %q", be.Message, tc.wantMessage)
			}
			if creds.unauthorized != tc.wantUnauth {
				t.Fatalf("unauthorized calls = %d, want %d", creds.unauthorized, tc.wantUnauth)
			}
		})
	}
}

func TestDo_EmptyBodyIsSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	res, err := c.Do(context.Background(), nil, http.MethodPost, "/x", []byte(`{}`))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.Exists() {
		t.Fatalf("expected empty result, got %s", res.Raw)
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, Options{})
	_, err := c.Do(context.Background(), nil, http.MethodGet, "/x", nil)
	if !IsKind(err, KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if got := UserMessage(err); got != "Unable to reach the StreamMall API" {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestDo_SendsJSONBody(t *testing.T) {
	var gotCT, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{}`)
	})
	if _, err := c.Do(context.Background(), nil, http.MethodPut, "/x", []byte(`{"value":3}`)); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotCT != "application/json" || gjson.Get(gotBody, "value").Int() != 3 {
		t.Fatalf("content-type=%q body=%q", gotCT, gotBody)
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("x"), want: "Something went wrong"},
		{name: "validation", err: Validation("op", "A rejection reason is required"), want: "A rejection reason is required"},
		{name: "server fallback", err: &Error{Kind: KindServer, StatusCode: 500, Fallback: "Failed to fetch orders"}, want: "Failed to fetch orders"},
		{name: "server status", err: &Error{Kind: KindServer, StatusCode: 500}, want: "Request failed (HTTP 500)"},
		{name: "unauthorized default", err: &Error{Kind: KindUnauthorized}, want: "Your session has expired, please sign in again"},
		{name: "wrapped", err: errorsJoin(&Error{Kind: KindServer, Message: "inner"}), want: "inner"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserMessage(tc.err); got != tc.want {
				t.Fatalf("UserMessage = %q, want %q", got, tc.want)
			}
		})
	}
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("context"), err)
}

func TestError_String(t *testing.T) {
	e := &Error{Kind: KindServer, Op: "GET /x", StatusCode: 500, Message: "boom"}
	if got := e.Error(); !strings.Contains(got, "GET /x") || !strings.Contains(got, "(500)") || !strings.Contains(got, "boom") {
		t.Fatalf("Error() = %q", got)
	}
}
