package trace

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewFallsBackToNoopWithoutKeys(t *testing.T) {
	if _, ok := New("https://cloud.langfuse.com", "", "").(Noop); !ok {
		t.Fatalf("missing keys should yield the noop tracer")
	}
	if _, ok := New("https://cloud.langfuse.com", "pk", "sk").(*Langfuse); !ok {
		t.Fatalf("configured keys should yield the Langfuse tracer")
	}
}

func TestLangfuseShipsBatchOnEnd(t *testing.T) {
	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "pk" || pass != "sk" {
			t.Errorf("basic auth = (%q, %q, %v)", user, pass, ok)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		received <- payload
		w.WriteHeader(http.StatusMultiStatus)
	}))
	defer srv.Close()

	tracer := NewLangfuse(srv.URL, "pk", "sk")
	tr := tracer.StartTrace("chat", "sess-1")
	span := tr.Span("relevance-gate")
	span.End("message", "decision")
	tr.Generation(Generation{Name: "answer", Model: "chat-model", Input: "prompt", Output: "reply"})
	tr.Event("clarification-echo", "in", "out")
	tr.End("user message", "final reply")

	select {
	case payload := <-received:
		batch, ok := payload["batch"].([]any)
		if !ok {
			t.Fatalf("payload missing batch: %v", payload)
		}
		// trace-create, span-create, generation-create, event-create
		if len(batch) != 4 {
			t.Fatalf("batch len = %d, want 4", len(batch))
		}
		first := batch[0].(map[string]any)
		if first["type"] != "trace-create" {
			t.Fatalf("first item type = %v", first["type"])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("batch never shipped")
	}
}

func TestLangfuseTraceEndIsIdempotent(t *testing.T) {
	calls := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls <- struct{}{}
	}))
	defer srv.Close()

	tracer := NewLangfuse(srv.URL, "pk", "sk")
	tr := tracer.StartTrace("chat", "sess-1")
	tr.End("a", "b")
	tr.End("a", "b")

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatalf("batch never shipped")
	}
	select {
	case <-calls:
		t.Fatalf("second End() must not ship again")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestNoopTraceIsSafe(t *testing.T) {
	tr := NewNoop().StartTrace("chat", "s")
	tr.Span("x").End(nil, nil)
	tr.Event("e", nil, nil)
	tr.Generation(Generation{})
	tr.End(nil, nil)
}
