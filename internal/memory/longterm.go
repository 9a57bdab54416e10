package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Record is one long-term profile entry. Fields are optional; each category
// uses the subset that makes sense for it (a publication has authors and a
// journal, an education entry has a school and degree, and so on).
type Record struct {
	Title       string   `json:"title,omitempty"`
	Degree      string   `json:"degree,omitempty"`
	School      string   `json:"school,omitempty"`
	Company     string   `json:"company,omitempty"`
	Authors     string   `json:"authors,omitempty"`
	Journal     string   `json:"journal,omitempty"`
	Time        string   `json:"time,omitempty"`
	Description string   `json:"description,omitempty"`
	Abstract    string   `json:"abstract,omitempty"`
	Link        string   `json:"link,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// SiteLink is one allowed navigation target for link injection.
type SiteLink struct {
	Label    string
	Href     string
	External bool
}

// navLinks are the fixed site navigation entries, always present in the link
// table regardless of profile content.
var navLinks = []SiteLink{
	{Label: "Home", Href: "/"},
	{Label: "Papers", Href: "/papers"},
	{Label: "Research", Href: "/research"},
	{Label: "CV", Href: "/cv"},
	{Label: "Education", Href: "/cv#education"},
	{Label: "Experiences", Href: "/cv#experiences"},
	{Label: "Projects", Href: "/cv#projects"},
	{Label: "Awards", Href: "/cv#awards"},
	{Label: "Skills", Href: "/cv#skills"},
}

// ProfileStore is the long-term memory: an immutable-after-load mapping from
// category name to profile records, shared by all sessions.
type ProfileStore struct {
	data map[string][]Record
}

// NewProfileStore wraps already-loaded category data.
func NewProfileStore(data map[string][]Record) *ProfileStore {
	if data == nil {
		data = map[string][]Record{}
	}
	return &ProfileStore{data: data}
}

// LoadProfile reads the profile document from disk. A missing file yields an
// empty store: the service degrades to "no profile knowledge" instead of
// failing to start.
func LoadProfile(path string) (*ProfileStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewProfileStore(nil), nil
		}
		return nil, fmt.Errorf("read profile data: %w", err)
	}

	var data map[string][]Record
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse profile data: %w", err)
	}
	return NewProfileStore(data), nil
}

// Category returns the records for one category, nil when absent.
func (p *ProfileStore) Category(name string) []Record {
	return p.data[name]
}

// CategoryCount reports how many categories carry at least one record.
func (p *ProfileStore) CategoryCount() int {
	n := 0
	for _, records := range p.data {
		if len(records) > 0 {
			n++
		}
	}
	return n
}

// Empty reports whether the store holds no profile knowledge at all.
func (p *ProfileStore) Empty() bool {
	return p.CategoryCount() == 0
}

// ContextForLLM renders the whole profile as sectioned text for the prompt
// envelope. Long abstracts and descriptions are truncated so a single record
// cannot crowd out the rest of the prompt.
func (p *ProfileStore) ContextForLLM() string {
	var b strings.Builder

	writeSection := func(header string, records []Record, line func(Record) string, detail func(Record) string) {
		if len(records) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## " + header + "\n")
		for _, r := range records {
			b.WriteString("- " + line(r) + "\n")
			if detail != nil {
				if d := detail(r); d != "" {
					b.WriteString("  " + d + "\n")
				}
			}
		}
	}

	writeSection("Education", p.data["education"], func(r Record) string {
		return fmt.Sprintf("%s at %s (%s)", r.Degree, r.School, r.Time)
	}, func(r Record) string {
		return r.Description
	})

	writeSection("Skills", p.data["skills"], func(r Record) string {
		return fmt.Sprintf("%s: %s", r.Title, r.Description)
	}, nil)

	writeSection("Publications", p.data["publications"], func(r Record) string {
		return fmt.Sprintf("%s (%s)", r.Title, r.Time)
	}, func(r Record) string {
		parts := []string{}
		if r.Authors != "" {
			parts = append(parts, "Authors: "+r.Authors)
		}
		if r.Journal != "" {
			parts = append(parts, "Journal: "+r.Journal)
		}
		if r.Abstract != "" {
			parts = append(parts, "Abstract: "+clip(r.Abstract, 200))
		}
		return strings.Join(parts, "\n  ")
	})

	writeSection("Work Experiences", p.data["experiences"], func(r Record) string {
		return fmt.Sprintf("%s at %s (%s)", r.Title, r.Company, r.Time)
	}, func(r Record) string {
		return clip(r.Description, 200)
	})

	writeSection("Projects", p.data["projects"], func(r Record) string {
		return fmt.Sprintf("%s (%s)", r.Title, r.Time)
	}, func(r Record) string {
		return clip(r.Description, 200)
	})

	writeSection("Awards & Honors", p.data["awards"], func(r Record) string {
		return fmt.Sprintf("%s (%s)", r.Title, r.Time)
	}, nil)

	writeSection("Other Experiences", p.data["otherExperiences"], func(r Record) string {
		return fmt.Sprintf("%s (%s)", r.Title, r.Time)
	}, func(r Record) string {
		return clip(r.Description, 200)
	})

	return strings.TrimRight(b.String(), "\n")
}

// SiteLinks derives the allowed link table: fixed navigation entries plus
// titled publications and projects that carry a link.
func (p *ProfileStore) SiteLinks() []SiteLink {
	links := make([]SiteLink, 0, len(navLinks))
	links = append(links, navLinks...)

	for _, category := range []string{"publications", "projects"} {
		for _, r := range p.data[category] {
			if r.Title == "" || r.Link == "" {
				continue
			}
			links = append(links, SiteLink{
				Label:    r.Title,
				Href:     r.Link,
				External: strings.HasPrefix(r.Link, "http"),
			})
		}
	}
	return links
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
