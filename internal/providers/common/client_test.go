package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lovedemo/seedManage/internal/domain"
)

func TestGetJSONDecodesPayloadAndSendsHeaders(t *testing.T) {
	var gotQuery url.Values
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"a"},{"name":"b"}]`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		UserAgent: "test-agent/1.0",
		Headers:   http.Header{"X-Api-Key": []string{"secret"}},
	})
	var payload []struct {
		Name string `json:"name"`
	}
	err := client.GetJSON(context.Background(), srv.URL+"/q.php?cat=0", url.Values{"q": {"ubuntu"}}, &payload)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(payload) != 2 {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if gotQuery.Get("q") != "ubuntu" || gotQuery.Get("cat") != "0" {
		t.Fatalf("unexpected query: %v", gotQuery)
	}
	if gotHeader.Get("User-Agent") != "test-agent/1.0" {
		t.Fatalf("unexpected user agent: %q", gotHeader.Get("User-Agent"))
	}
	if gotHeader.Get("X-Api-Key") != "secret" {
		t.Fatalf("expected configured header to be forwarded")
	}
	if gotHeader.Get("Accept") != "application/json" {
		t.Fatalf("unexpected accept header: %q", gotHeader.Get("Accept"))
	}
}

func TestGetJSONTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(ClientConfig{Timeout: 50 * time.Millisecond})
	start := time.Now()
	var payload []any
	err := client.GetJSON(context.Background(), srv.URL, nil, &payload)
	if !errors.Is(err, domain.ErrRemoteTimeout) {
		t.Fatalf("expected ErrRemoteTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
}

func TestGetJSONTransportErrorIsNotTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{Timeout: time.Second})
	var payload []any
	err := client.GetJSON(context.Background(), endpoint, nil, &payload)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, domain.ErrRemoteTimeout) {
		t.Fatalf("connection refused must not be reported as timeout: %v", err)
	}
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{})
	var payload []any
	err := client.GetJSON(context.Background(), srv.URL, nil, &payload)
	if !errors.Is(err, domain.ErrRemoteStatus) {
		t.Fatalf("expected ErrRemoteStatus, got %v", err)
	}
	var statusErr *domain.RemoteStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *RemoteStatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode)
	}
	if len(statusErr.Body) > 512 {
		t.Fatalf("body not truncated: %d bytes", len(statusErr.Body))
	}
}

func TestGetJSONShapeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"not an array"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{})
	var payload []struct{}
	err := client.GetJSON(context.Background(), srv.URL, nil, &payload)
	if !errors.Is(err, domain.ErrRemoteShape) {
		t.Fatalf("expected ErrRemoteShape, got %v", err)
	}
}

func TestGetJSONInvalidEndpoint(t *testing.T) {
	client := NewClient(ClientConfig{})
	var payload []any
	if err := client.GetJSON(context.Background(), "not a url", nil, &payload); err == nil {
		t.Fatal("expected invalid endpoint error")
	}
}
