package prompts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"voicefront/internal/dayphase"
)

func TestTemplateRender(t *testing.T) {
	t.Parallel()

	tpl := NewTemplate("  Today is {{date}} in {{ city }}. {{missing}}done  ", 5)
	got := tpl.Render(map[string]string{"date": "17 October 2026, Saturday", "city": "Berlin"})
	want := "Today is 17 October 2026, Saturday in Berlin. done"
	if got != want {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestTemplateExpandsNestedValuesWithinLimit(t *testing.T) {
	t.Parallel()

	tpl := NewTemplate("{{a}}", 3)
	got := tpl.Render(map[string]string{"a": "{{b}}", "b": "B"})
	if got != "B" {
		t.Fatalf("expected nested expansion, got %q", got)
	}

	loop := NewTemplate("{{a}}", 3)
	if got := loop.Render(map[string]string{"a": "{{a}}"}); got != "{{a}}" {
		t.Fatalf("expected self reference to stop at limit, got %q", got)
	}
}

func TestLoadTemplateMissingFile(t *testing.T) {
	t.Parallel()

	tpl, err := LoadTemplate(filepath.Join(t.TempDir(), "absent.txt"), 0)
	if err != nil {
		t.Fatalf("missing template should not fail: %v", err)
	}
	if tpl.Text() != "" {
		t.Fatalf("expected empty template, got %q", tpl.Text())
	}
}

func TestLoadTemplateFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "system_prompt.txt")
	if err := os.WriteFile(path, []byte("\nYou are in {{location}}.\n"), 0o600); err != nil {
		t.Fatalf("write prompt: %v", err)
	}
	tpl, err := LoadTemplate(path, 0)
	if err != nil {
		t.Fatalf("load prompt: %v", err)
	}
	if got := tpl.Render(map[string]string{"location": "Paris, France"}); got != "You are in Paris, France." {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestVarsFallbacks(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 17, 15, 4, 5, 0, time.UTC)
	vars := Vars(now, Location{})

	expect := map[string]string{
		"date":     "17 October 2026, Saturday",
		"day":      "Saturday",
		"time":     "3:04:05 PM",
		"location": "Unknown",
		"country":  "Unknown",
		"city":     "Unknown",
		"lat":      "0.00",
		"lon":      "0.00",
	}
	for key, want := range expect {
		if vars[key] != want {
			t.Fatalf("%s: expected %q, got %q", key, want, vars[key])
		}
	}

	located := Vars(now, Location{City: "Berlin", Country: "Germany", Lat: "52.5", Lon: "13.4"})
	if located["location"] != "Berlin, Germany" {
		t.Fatalf("unexpected location: %q", located["location"])
	}
}

func TestCatalogPick(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	for _, phase := range dayphase.All {
		if n := len(catalog.Greetings[phase]); n != 10 {
			t.Fatalf("%s: expected 10 greetings, got %d", phase, n)
		}
	}

	first := func(int) int { return 0 }
	if got := catalog.Pick(dayphase.Morning, first); got != "Good morning! I'm here and ready to help." {
		t.Fatalf("unexpected morning greeting: %q", got)
	}
	if got := catalog.Pick("brunch", first); got != catalog.Greetings[dayphase.Day][0] {
		t.Fatalf("unknown phase should use day greetings, got %q", got)
	}
	if got := catalog.Pick(dayphase.Night, nil); got == "" {
		t.Fatal("expected a random greeting")
	}
}

func TestLoadCatalogOverridesPhases(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "greetings.yaml")
	contents := "greetings:\n  evening:\n    - Evening, friend.\n  night: []\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write greetings: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load greetings: %v", err)
	}
	if got := catalog.Greetings[dayphase.Evening]; len(got) != 1 || got[0] != "Evening, friend." {
		t.Fatalf("evening not overridden: %v", got)
	}
	if len(catalog.Greetings[dayphase.Night]) != 10 {
		t.Fatal("empty override should keep defaults")
	}
}

func TestLoadCatalogRejectsBadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "greetings.yaml")
	if err := os.WriteFile(path, []byte("greetings: [unterminated"), 0o600); err != nil {
		t.Fatalf("write greetings: %v", err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected parse error")
	}
}
