package chat

import (
	"strings"
	"testing"

	"github.com/heyoon/twinchat/internal/gate"
)

func TestApologyLocalized(t *testing.T) {
	if !strings.Contains(Apology(gate.LangKorean), "죄송합니다") {
		t.Fatalf("Korean apology = %q", Apology(gate.LangKorean))
	}
	if Apology(gate.LangEnglish) == Apology(gate.LangKorean) {
		t.Fatalf("apologies should differ by language")
	}
}

func TestEmptyMessageErrorLocalized(t *testing.T) {
	if EmptyMessageError(gate.LangKorean) != "메시지가 없습니다." {
		t.Fatalf("Korean empty-message error = %q", EmptyMessageError(gate.LangKorean))
	}
	if EmptyMessageError(gate.LangEnglish) == "" {
		t.Fatalf("English empty-message error should be set")
	}
}
