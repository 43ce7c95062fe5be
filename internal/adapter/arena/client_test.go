package arena

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agentarena/arenasync/internal/logger"
	"github.com/agentarena/arenasync/internal/port/arena"
	"github.com/agentarena/arenasync/internal/resilience"
)

func TestClientAttachesBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, arena.StaticToken("secret"))
	r := NewAgentsService(c).List(context.Background(), arena.ListAgentsOptions{})

	if !r.Success {
		t.Fatalf("expected success, got %q", r.Error)
	}
	if got != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", got)
	}
}

func TestClientTokenAbsenceDegradesToUnauthenticated(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, arena.StaticToken(""))
	r := NewAgentsService(c).List(context.Background(), arena.ListAgentsOptions{})

	if !r.Success {
		t.Fatalf("expected success, got %q", r.Error)
	}
	if sawAuth {
		t.Fatal("empty token must not produce an Authorization header")
	}
}

func TestClientStampsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, arena.StaticToken(""))
	ctx := logger.WithRequestID(context.Background(), "req-42")
	NewAgentsService(c).List(ctx, arena.ListAgentsOptions{})

	if got != "req-42" {
		t.Fatalf("expected request id header, got %q", got)
	}
}

func TestClientMapsBackendDetailIntoEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"agent not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, arena.StaticToken(""))
	r := NewAgentsService(c).Get(context.Background(), "missing")

	if r.Success {
		t.Fatal("expected failure envelope")
	}
	if r.Error != "agent not found" {
		t.Fatalf("expected backend detail, got %q", r.Error)
	}
}

func TestClientMapsStatusLineWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, arena.StaticToken(""))
	r := NewAgentsService(c).Get(context.Background(), "x")

	if r.Success {
		t.Fatal("expected failure envelope")
	}
	if r.Error != "HTTP 400: Bad Request" {
		t.Fatalf("unexpected error %q", r.Error)
	}
}

func TestClientMapsDecodeFailureIntoEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, arena.StaticToken(""))
	r := NewAgentsService(c).List(context.Background(), arena.ListAgentsOptions{})

	if r.Success {
		t.Fatal("expected failure envelope")
	}
	if r.Error != "failed to parse response" {
		t.Fatalf("unexpected error %q", r.Error)
	}
}

func TestClientMapsTransportFailureIntoEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse all connections

	c := NewClient(srv.URL, arena.StaticToken(""))
	r := NewAgentsService(c).List(context.Background(), arena.ListAgentsOptions{})

	if r.Success {
		t.Fatal("expected failure envelope")
	}
	if r.Error == "" {
		t.Fatal("expected transport error message")
	}
}

func TestClientBreakerOpenSurfacesAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, arena.StaticToken(""))
	c.SetBreaker(resilience.NewBreaker(1, time.Minute))
	svc := NewAgentsService(c)

	// First call trips the breaker (5xx counts as backend failure).
	if r := svc.List(context.Background(), arena.ListAgentsOptions{}); r.Success {
		t.Fatal("expected failure on 500")
	}

	r := svc.List(context.Background(), arena.ListAgentsOptions{})
	if r.Success {
		t.Fatal("expected failure while circuit open")
	}
	if r.Error != resilience.ErrCircuitOpen.Error() {
		t.Fatalf("expected circuit-open failure, got %q", r.Error)
	}
}
