package gate

import (
	"strings"
	"unicode"
)

// Supported reply languages.
const (
	LangEnglish = "en"
	LangKorean  = "ko"
)

// koreanIndicators are short phrases that mark a message as Korean even when
// it carries little or no Hangul, such as romanized particles typed alongside
// English terms.
var koreanIndicators = []string{
	"안녕", "뭐", "어디", "누구", "언제", "왜", "어떻게",
	"입니까", "인가요", "해주세요", "알려줘", "알려주세요",
	"있나요", "있어요", "습니다", "세요",
}

// DetectLanguage classifies a message as Korean or English. The second result
// reports confidence: an unconfident detection must not overwrite a session's
// sticky language.
func DetectLanguage(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return LangEnglish, false
	}

	hangul := 0
	letters := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			letters++
			if unicode.Is(unicode.Hangul, r) {
				hangul++
			}
		}
	}

	if letters == 0 {
		return LangEnglish, false
	}

	ratio := float64(hangul) / float64(letters)
	if ratio > 0.3 {
		return LangKorean, true
	}
	if hangul > 0 {
		// Mixed-script text: a Korean phrase embedded in English terms still
		// means the user writes Korean.
		for _, phrase := range koreanIndicators {
			if strings.Contains(trimmed, phrase) {
				return LangKorean, true
			}
		}
		return LangKorean, false
	}

	return LangEnglish, true
}
