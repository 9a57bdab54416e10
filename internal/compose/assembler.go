package compose

import (
	"fmt"
	"strings"

	"github.com/heyoon/twinchat/internal/memory"
	"github.com/heyoon/twinchat/internal/retrieval"
)

// Link injection styles.
const (
	LinkStyleMarker    = "marker"
	LinkStyleSubstring = "substring"
)

// Construct is the per-session cache of the static prompt prefix: persona
// framing, profile context, and the allowed link table. History, retrieval
// results, and the question change every turn and are never cached.
type Construct struct {
	prefix string
	links  []memory.SiteLink

	profileKey string
	linkCount  int
}

// Links returns the allowed link table the construct was built with.
func (c *Construct) Links() []memory.SiteLink { return c.links }

// Stale reports whether the construct no longer matches its inputs.
func (c *Construct) Stale(profileContext string, links []memory.SiteLink) bool {
	return c == nil || c.profileKey != profileContext || c.linkCount != len(links)
}

// Assembler builds the full prompt envelope for answer generation.
type Assembler struct {
	personaName    string
	personaTagline string
	linkStyle      string
}

func NewAssembler(personaName, personaTagline, linkStyle string) *Assembler {
	if linkStyle != LinkStyleSubstring {
		linkStyle = LinkStyleMarker
	}
	return &Assembler{
		personaName:    personaName,
		personaTagline: personaTagline,
		linkStyle:      linkStyle,
	}
}

// LinkStyle returns the configured injection style.
func (a *Assembler) LinkStyle() string { return a.linkStyle }

// BuildConstruct assembles the static prompt prefix for one session.
func (a *Assembler) BuildConstruct(profileContext string, links []memory.SiteLink) *Construct {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a friendly assistant on the personal website of %s, %s. ", a.personaName, a.personaTagline)
	b.WriteString("You answer visitors' questions about the site owner in first person on their behalf, grounded strictly in the profile information below. ")
	b.WriteString("If the profile does not cover something, say so honestly instead of guessing.\n\n")

	b.WriteString("# Profile\n")
	if strings.TrimSpace(profileContext) == "" {
		b.WriteString("No profile information is loaded.\n")
	} else {
		b.WriteString(profileContext + "\n")
	}

	if len(links) > 0 {
		b.WriteString("\n# Site pages\n")
		for _, l := range links {
			fmt.Fprintf(&b, "- %s (%s)\n", l.Label, l.Href)
		}
		if a.linkStyle == LinkStyleMarker {
			b.WriteString("\nWhen you mention one of the pages or works listed above by name, wrap exactly its listed label as <link>Label</link>. Never invent labels that are not in the list.\n")
		}
	}

	return &Construct{
		prefix:     b.String(),
		links:      links,
		profileKey: profileContext,
		linkCount:  len(links),
	}
}

// BuildPrompt composes the final generation prompt for one turn.
func (a *Assembler) BuildPrompt(construct *Construct, historyContext string, retrieved retrieval.Result, question, lang string) string {
	var b strings.Builder
	b.WriteString(construct.prefix)

	if !retrieved.Empty() {
		b.WriteString("\n# Retrieved documents\n")
		b.WriteString(retrieved.ContextString())
		b.WriteString("\n")
	}

	b.WriteString("\n# Conversation\n")
	b.WriteString(historyContext)
	b.WriteString("\n")

	b.WriteString("\nAnswer in ")
	if lang == "ko" {
		b.WriteString("Korean")
	} else {
		b.WriteString("English")
	}
	b.WriteString(", concisely and warmly.\n")

	fmt.Fprintf(&b, "\nUser: %s\nAssistant:", question)
	return b.String()
}

// InjectLinks applies the configured link strategy to a generated answer.
func (a *Assembler) InjectLinks(answer string, construct *Construct) string {
	if construct == nil || len(construct.links) == 0 {
		return ResolveMarkers(answer, nil)
	}
	if a.linkStyle == LinkStyleSubstring {
		return InjectSubstringLinks(answer, construct.links)
	}
	return ResolveMarkers(answer, construct.links)
}
