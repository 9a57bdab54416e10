package memory

import (
	"strings"
	"time"
)

// Turn roles. The wire format of the original site used "model" for the
// assistant role; Normalize maps it here.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one conversational exchange half.
type Turn struct {
	Role      string            `json:"role"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NormalizeRole maps external role spellings onto the two internal roles.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "model", "assistant", "ai":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// Transcript is the short-term memory of one session: an append-only,
// chronologically ordered turn sequence. It is not safe for concurrent use;
// the owning session serializes access.
type Transcript struct {
	turns []Turn
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds one turn. Turns are never reordered or mutated afterwards.
func (t *Transcript) Append(role, text string) {
	t.turns = append(t.turns, Turn{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// Len reports the total turn count.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Context returns the most recent limit turns in original order. limit <= 0
// means the full history.
func (t *Transcript) Context(limit int) []Turn {
	if limit <= 0 || limit > len(t.turns) {
		limit = len(t.turns)
	}
	out := make([]Turn, limit)
	copy(out, t.turns[len(t.turns)-limit:])
	return out
}

// ContextString renders the recent history for the prompt envelope. An empty
// transcript renders as an explicit statement so the model never mistakes
// silence for an instruction to ignore history.
func (t *Transcript) ContextString(limit int) string {
	recent := t.Context(limit)
	if len(recent) == 0 {
		return "No previous conversation."
	}

	var b strings.Builder
	for i, turn := range recent {
		if i > 0 {
			b.WriteString("\n")
		}
		if turn.Role == RoleAssistant {
			b.WriteString("Assistant: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(turn.Text)
	}
	return b.String()
}

// LastUserText returns the most recent user turn's text, empty when none.
func (t *Transcript) LastUserText() string {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Role == RoleUser {
			return t.turns[i].Text
		}
	}
	return ""
}
