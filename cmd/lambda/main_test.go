package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func newEvent(method, path, body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			DomainName: "api.synura.ai",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: "203.0.113.7",
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	called := false
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	resp, err := handle(context.Background(), h, newEvent(http.MethodGet, "/_health", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if resp.Body != "ok" {
		t.Fatalf("expected ok body, got %q", resp.Body)
	}
	if called {
		t.Fatalf("expected health to short-circuit the router")
	}
}

func TestHandleInvalidBase64Body(t *testing.T) {
	evt := newEvent(http.MethodPost, "/v1/contact", "not-base64")
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), http.NotFoundHandler(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	if resp.Body != "invalid body" {
		t.Fatalf("expected invalid body response, got %q", resp.Body)
	}
}

func TestHandleServesThroughRouter(t *testing.T) {
	type captured struct {
		method     string
		path       string
		query      string
		host       string
		remoteAddr string
		cookie     string
		headers    http.Header
		body       string
	}
	var got captured

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c, _ := r.Cookie("admin_session")
		cookie := ""
		if c != nil {
			cookie = c.Value
		}
		got = captured{
			method:     r.Method,
			path:       r.URL.Path,
			query:      r.URL.RawQuery,
			host:       r.Host,
			remoteAddr: r.RemoteAddr,
			cookie:     cookie,
			headers:    r.Header.Clone(),
			body:       string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		http.SetCookie(w, &http.Cookie{Name: "admin_session", Value: "new"})
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	evt := newEvent(http.MethodPost, "/v1/voice/leads", base64.StdEncoding.EncodeToString([]byte(`{"name":"Sam"}`)))
	evt.IsBase64Encoded = true
	evt.RawQueryString = "utm_source=ads"
	evt.Headers = map[string]string{"content-type": "application/json"}
	evt.Cookies = []string{"admin_session=abc"}

	resp, err := handle(context.Background(), h, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	if resp.Body != `{"success":true}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if ct := resp.Headers["content-type"]; ct != "application/json" {
		t.Fatalf("expected content-type header, got %q", ct)
	}
	if len(resp.Cookies) != 1 || resp.Cookies[0] != "admin_session=new" {
		t.Fatalf("expected Set-Cookie in cookies, got %v", resp.Cookies)
	}

	if got.method != http.MethodPost || got.path != "/v1/voice/leads" || got.query != "utm_source=ads" {
		t.Fatalf("unexpected request line %s %s?%s", got.method, got.path, got.query)
	}
	if got.body != `{"name":"Sam"}` {
		t.Fatalf("expected decoded body, got %q", got.body)
	}
	if got.host != "api.synura.ai" {
		t.Fatalf("expected host from domain name, got %q", got.host)
	}
	if got.remoteAddr != "203.0.113.7:0" {
		t.Fatalf("expected source ip as remote addr, got %q", got.remoteAddr)
	}
	if got.cookie != "abc" {
		t.Fatalf("expected cookie to be forwarded, got %q", got.cookie)
	}
	if got.headers.Get("Content-Type") != "application/json" {
		t.Fatalf("expected content type to be forwarded, got %q", got.headers.Get("Content-Type"))
	}
}

func TestResponseWriterBinaryBody(t *testing.T) {
	rw := newResponseWriter()
	_, _ = rw.Write([]byte{0xff, 0xfe, 0x00})
	out := rw.toEvent()
	if !out.IsBase64Encoded {
		t.Fatalf("expected binary body to be base64 encoded")
	}
	if out.StatusCode != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", out.StatusCode)
	}
}

func TestDecodeBodyBase64(t *testing.T) {
	raw := []byte("hello")
	evt := events.APIGatewayV2HTTPRequest{
		Body:            base64.StdEncoding.EncodeToString(raw),
		IsBase64Encoded: true,
	}

	decoded, err := decodeBody(evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(decoded) != "hello" {
		t.Fatalf("expected decoded body, got %q", string(decoded))
	}
}
