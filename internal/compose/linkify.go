package compose

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/heyoon/twinchat/internal/memory"
)

// InjectSubstringLinks wraps the first occurrence of each allowed label with
// an anchor tag. Matches must sit on word boundaries so a label never fires
// inside a longer word; longer labels are tried first so "Research Projects"
// wins over "Research". Text already inside an anchor is left alone.
func InjectSubstringLinks(text string, links []memory.SiteLink) string {
	ordered := make([]memory.SiteLink, len(links))
	copy(ordered, links)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Label) > len(ordered[j].Label)
	})

	for _, link := range ordered {
		if link.Label == "" || link.Href == "" {
			continue
		}
		if idx := findBoundedLabel(text, link.Label); idx >= 0 {
			text = text[:idx] + anchor(link, link.Label) + text[idx+len(link.Label):]
		}
	}
	return text
}

// findBoundedLabel locates the first boundary-respecting, not-yet-linked
// occurrence of label in text, returning -1 when there is none. Boundaries
// are checked on runes so it works for Hangul labels, which ASCII word
// boundaries would miss.
func findBoundedLabel(text, label string) int {
	from := 0
	for {
		rel := strings.Index(text[from:], label)
		if rel < 0 {
			return -1
		}
		idx := from + rel
		if boundaryBefore(text, idx) && boundaryAfter(text, idx+len(label)) && !insideAnchor(text, idx) {
			return idx
		}
		from = idx + len(label)
	}
}

func boundaryBefore(text string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, idx int) bool {
	if idx >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[idx:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// insideAnchor reports whether position idx falls inside an already emitted
// <a ...>...</a> element.
func insideAnchor(text string, idx int) bool {
	open := strings.LastIndex(text[:idx], "<a ")
	if open < 0 {
		return false
	}
	closing := strings.LastIndex(text[:idx], "</a>")
	return closing < open
}

func anchor(link memory.SiteLink, label string) string {
	if link.External {
		return `<a href="` + link.Href + `" target="_blank" rel="noopener noreferrer">` + label + `</a>`
	}
	return `<a href="` + link.Href + `">` + label + `</a>`
}
