package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProfileFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profile file: %v", err)
	}
	return path
}

func TestLoadProfileMissingFileIsEmptyStore(t *testing.T) {
	store, err := LoadProfile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if !store.Empty() {
		t.Fatalf("missing file should yield an empty store")
	}
}

func TestLoadProfileInvalidJSONFails(t *testing.T) {
	path := writeProfileFile(t, "{not json")
	if _, err := LoadProfile(path); err == nil {
		t.Fatalf("invalid JSON should fail loading")
	}
}

func TestContextForLLMRendersSections(t *testing.T) {
	path := writeProfileFile(t, `{
		"education": [{"degree": "M.S.", "school": "Example University", "time": "2023"}],
		"publications": [{"title": "Paper One", "authors": "A, B", "time": "2024", "abstract": "Short abstract."}]
	}`)
	store, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}

	ctx := store.ContextForLLM()
	if !strings.Contains(ctx, "## Education") {
		t.Fatalf("missing education section:\n%s", ctx)
	}
	if !strings.Contains(ctx, "M.S. at Example University (2023)") {
		t.Fatalf("missing education line:\n%s", ctx)
	}
	if !strings.Contains(ctx, "Paper One (2024)") {
		t.Fatalf("missing publication line:\n%s", ctx)
	}
}

func TestContextForLLMClipsLongAbstract(t *testing.T) {
	long := strings.Repeat("가", 300)
	store := NewProfileStore(map[string][]Record{
		"publications": {{Title: "P", Time: "2024", Abstract: long}},
	})
	ctx := store.ContextForLLM()
	if strings.Contains(ctx, long) {
		t.Fatalf("long abstract should be clipped")
	}
	if !strings.Contains(ctx, "...") {
		t.Fatalf("clipped abstract should end with ellipsis")
	}
}

func TestSiteLinksIncludeNavAndLinkedWorks(t *testing.T) {
	store := NewProfileStore(map[string][]Record{
		"publications": {
			{Title: "Linked Paper", Link: "https://example.org/p1"},
			{Title: "No Link Paper"},
		},
		"projects": {
			{Title: "Internal Project", Link: "/cv#projects"},
		},
	})

	links := store.SiteLinks()
	byLabel := map[string]SiteLink{}
	for _, l := range links {
		byLabel[l.Label] = l
	}

	if _, ok := byLabel["Papers"]; !ok {
		t.Fatalf("nav entry Papers missing: %+v", links)
	}
	paper, ok := byLabel["Linked Paper"]
	if !ok || !paper.External {
		t.Fatalf("Linked Paper = %+v, want external link", paper)
	}
	project, ok := byLabel["Internal Project"]
	if !ok || project.External {
		t.Fatalf("Internal Project = %+v, want internal link", project)
	}
	if _, ok := byLabel["No Link Paper"]; ok {
		t.Fatalf("unlinked works should not enter the link table")
	}
}

func TestCategoryCount(t *testing.T) {
	store := NewProfileStore(map[string][]Record{
		"education": {{Degree: "B.S."}},
		"projects":  {},
	})
	if got := store.CategoryCount(); got != 1 {
		t.Fatalf("CategoryCount() = %d, want 1", got)
	}
}
