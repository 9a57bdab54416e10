package policy

import "testing"

func TestOnlyAnswerGenerationFailsClosed(t *testing.T) {
	for _, stage := range Stages() {
		rule := For(stage)
		wantOpen := stage != AnswerGeneration
		if rule.FailsOpen() != wantOpen {
			t.Fatalf("For(%s).FailsOpen() = %v, want %v", stage, rule.FailsOpen(), wantOpen)
		}
	}
}

func TestEveryStageHasFallback(t *testing.T) {
	for _, stage := range Stages() {
		if For(stage).Fallback == "" {
			t.Fatalf("stage %s has no fallback behavior", stage)
		}
	}
}

func TestEmbeddingAndSearchDegradeTheSameWay(t *testing.T) {
	if For(QueryEmbedding).Fallback != For(VectorSearch).Fallback {
		t.Fatalf("retrieval stages should share one degraded behavior")
	}
}

func TestUnknownStageFailsClosed(t *testing.T) {
	rule := For(Stage("made-up"))
	if rule.FailsOpen() {
		t.Fatalf("unknown stage must fail closed")
	}
	if rule.Fallback == "" {
		t.Fatalf("unknown stage rule should still describe its behavior")
	}
}
