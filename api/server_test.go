package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/policyhub/askhr/internal/chat"
	"github.com/policyhub/askhr/internal/log"
	"github.com/policyhub/askhr/internal/retrieval"
	"github.com/policyhub/askhr/internal/session"
	"github.com/policyhub/askhr/internal/testutil"
)

// newTestServer wires a Server against the mock model and a static
// snippet index. The returned MockLLM can be reconfigured per test.
func newTestServer(t *testing.T) (*Server, *session.Manager, *testutil.MockLLM) {
	t.Helper()

	g := genkit.Init(context.Background())
	llm := testutil.NewMockLLM("I could not find that in the policy documents.")
	llm.RegisterModel(g)
	r := testutil.DefineStaticRetriever(g, "api-test-retriever", []retrieval.Snippet{
		{Text: "WFH allowed 3 days/week"},
	})

	assistant, err := chat.New(chat.Config{
		Genkit:      g,
		Retriever:   r,
		Logger:      log.NewNop(),
		ModelName:   testutil.MockModelName,
		ShowSources: true,
	})
	if err != nil {
		t.Fatalf("chat.New() error = %v", err)
	}

	sessions := session.NewManager(assistant)
	return NewServer(sessions, log.NewNop()), sessions, llm
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	for _, tt := range []struct {
		path string
		body string
	}{
		{"/health", "ok"},
		{"/ready", "ready"},
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", tt.path, rec.Code)
		}
		if rec.Body.String() != tt.body {
			t.Errorf("GET %s body = %q, want %q", tt.path, rec.Body.String(), tt.body)
		}
	}
}

func TestStartersEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/starters", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Starters []Starter `json:"starters"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	wantLabels := []string{"Leave policy", "Mediclaim policy", "WFH Policy", "OPD Expenses"}
	if len(resp.Starters) != len(wantLabels) {
		t.Fatalf("got %d starters, want %d", len(resp.Starters), len(wantLabels))
	}
	for i, want := range wantLabels {
		if resp.Starters[i].Label != want {
			t.Errorf("starter[%d].Label = %q, want %q", i, resp.Starters[i].Label, want)
		}
		if resp.Starters[i].Message == "" {
			t.Errorf("starter[%d] has empty message", i)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(log.NewNop())(panicking)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	final := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	})

	chain(final, mw("outer"), mw("inner")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner", "handler"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRun_GracefulShutdown(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	// Give the listener a moment to come up, then ask for shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
