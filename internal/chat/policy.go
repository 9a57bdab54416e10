package chat

import "github.com/heyoon/twinchat/internal/gate"

// Localized user-facing fallback strings. Which stage degrades to which
// behavior is declared in the internal/policy table; these are the texts the
// fail-closed answer stage and input validation surface to the visitor.
const (
	apologyEN = "Sorry, something went wrong while generating a response. Please try again."
	apologyKO = "죄송합니다. 응답을 생성하는 중에 오류가 발생했습니다. 다시 시도해주세요."

	emptyMessageEN = "The message is empty."
	emptyMessageKO = "메시지가 없습니다."
)

// Apology returns the generation-failure message in the session language.
func Apology(lang string) string {
	if lang == gate.LangKorean {
		return apologyKO
	}
	return apologyEN
}

// EmptyMessageError returns the blank-input error text in the requester's
// language, detected from nothing, so English is the default.
func EmptyMessageError(lang string) string {
	if lang == gate.LangKorean {
		return emptyMessageKO
	}
	return emptyMessageEN
}
