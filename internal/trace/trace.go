package trace

import "time"

// Tracer records chat pipeline telemetry. Implementations are fire-and-forget:
// recording must never fail the request, and an unconfigured tracer is a no-op.
type Tracer interface {
	StartTrace(name, sessionID string) Trace
}

// Trace is one request-scoped trace.
type Trace interface {
	Span(name string) Span
	Event(name string, input, output any)
	Generation(g Generation)
	End(input, output any)
}

// Span is a named sub-stage of a trace.
type Span interface {
	End(input, output any)
}

// Generation describes one model call for observability.
type Generation struct {
	Name        string
	Model       string
	Temperature float64
	MaxTokens   int
	Input       string
	Output      string
	StartedAt   time.Time
	EndedAt     time.Time
	Metadata    map[string]any
}
