package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Langfuse ships traces to the Langfuse ingestion API. Events are buffered per
// trace and flushed in the background when the trace ends; delivery failures
// are logged and dropped.
type Langfuse struct {
	host      string
	publicKey string
	secretKey string
	client    *http.Client
}

func NewLangfuse(host, publicKey, secretKey string) *Langfuse {
	return &Langfuse{
		host:      host,
		publicKey: publicKey,
		secretKey: secretKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// New returns a Langfuse tracer when both keys are set, otherwise Noop.
func New(host, publicKey, secretKey string) Tracer {
	if publicKey == "" || secretKey == "" {
		return NewNoop()
	}
	return NewLangfuse(host, publicKey, secretKey)
}

type ingestionItem struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Body      map[string]any `json:"body"`
}

func (l *Langfuse) StartTrace(name, sessionID string) Trace {
	return &langfuseTrace{
		client:  l,
		traceID: uuid.NewString(),
		name:    name,
		items: []ingestionItem{{
			ID:        uuid.NewString(),
			Type:      "trace-create",
			Timestamp: time.Now().UTC(),
			Body: map[string]any{
				"id":        "", // filled on End, once input/output are known
				"name":      name,
				"sessionId": sessionID,
			},
		}},
	}
}

type langfuseTrace struct {
	client  *Langfuse
	traceID string
	name    string

	mu    sync.Mutex
	items []ingestionItem
	ended bool
}

func (t *langfuseTrace) Span(name string) Span {
	return &langfuseSpan{trace: t, name: name, startedAt: time.Now().UTC()}
}

func (t *langfuseTrace) Event(name string, input, output any) {
	t.append(ingestionItem{
		ID:        uuid.NewString(),
		Type:      "event-create",
		Timestamp: time.Now().UTC(),
		Body: map[string]any{
			"traceId": t.traceID,
			"name":    name,
			"input":   input,
			"output":  output,
		},
	})
}

func (t *langfuseTrace) Generation(g Generation) {
	t.append(ingestionItem{
		ID:        uuid.NewString(),
		Type:      "generation-create",
		Timestamp: time.Now().UTC(),
		Body: map[string]any{
			"traceId":   t.traceID,
			"name":      g.Name,
			"model":     g.Model,
			"input":     g.Input,
			"output":    g.Output,
			"startTime": g.StartedAt,
			"endTime":   g.EndedAt,
			"metadata":  g.Metadata,
			"modelParameters": map[string]any{
				"temperature": g.Temperature,
				"maxTokens":   g.MaxTokens,
			},
		},
	})
}

func (t *langfuseTrace) End(input, output any) {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	t.items[0].Body["id"] = t.traceID
	t.items[0].Body["input"] = input
	t.items[0].Body["output"] = output
	batch := make([]ingestionItem, len(t.items))
	copy(batch, t.items)
	t.mu.Unlock()

	go t.client.ship(batch)
}

func (t *langfuseTrace) append(item ingestionItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return
	}
	t.items = append(t.items, item)
}

type langfuseSpan struct {
	trace     *langfuseTrace
	name      string
	startedAt time.Time
}

func (s *langfuseSpan) End(input, output any) {
	s.trace.append(ingestionItem{
		ID:        uuid.NewString(),
		Type:      "span-create",
		Timestamp: time.Now().UTC(),
		Body: map[string]any{
			"traceId":   s.trace.traceID,
			"name":      s.name,
			"startTime": s.startedAt,
			"endTime":   time.Now().UTC(),
			"input":     input,
			"output":    output,
		},
	})
}

func (l *Langfuse) ship(batch []ingestionItem) {
	payload, err := json.Marshal(map[string]any{"batch": batch})
	if err != nil {
		log.Printf("langfuse: marshal batch: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.host+"/api/public/ingestion", bytes.NewReader(payload))
	if err != nil {
		log.Printf("langfuse: create request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(l.publicKey, l.secretKey)

	res, err := l.client.Do(req)
	if err != nil {
		log.Printf("langfuse: ship batch: %v", err)
		return
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		log.Printf("langfuse: ingestion status %d", res.StatusCode)
	}
}
