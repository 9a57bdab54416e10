package compose

import (
	"regexp"
	"strings"

	"github.com/heyoon/twinchat/internal/memory"
)

var markerPattern = regexp.MustCompile(`(?is)<link>(.*?)</link>`)

// ResolveMarkers replaces <link>Label</link> markers emitted by the model
// with anchor tags for labels present in the allowed table. Labels match
// case-insensitively; a marker whose label is unknown degrades to its bare
// text so no marker syntax ever reaches the visitor.
func ResolveMarkers(text string, links []memory.SiteLink) string {
	if !strings.Contains(strings.ToLower(text), "<link>") {
		return text
	}

	byLabel := make(map[string]memory.SiteLink, len(links))
	for _, l := range links {
		byLabel[strings.ToLower(strings.TrimSpace(l.Label))] = l
	}

	return markerPattern.ReplaceAllStringFunc(text, func(m string) string {
		inner := markerPattern.FindStringSubmatch(m)[1]
		label := strings.TrimSpace(inner)
		link, ok := byLabel[strings.ToLower(label)]
		if !ok || link.Href == "" {
			return label
		}
		return anchor(link, label)
	})
}
