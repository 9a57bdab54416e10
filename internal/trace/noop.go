package trace

// Noop discards everything. Used whenever Langfuse keys are not configured.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) StartTrace(string, string) Trace { return noopTrace{} }

type noopTrace struct{}

func (noopTrace) Span(string) Span       { return noopSpan{} }
func (noopTrace) Event(string, any, any) {}
func (noopTrace) Generation(Generation)  {}
func (noopTrace) End(any, any)           {}

type noopSpan struct{}

func (noopSpan) End(any, any) {}
