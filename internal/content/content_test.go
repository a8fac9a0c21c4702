package content

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Paris", "paris"},
		{"  Paris!  ", "paris"},
		{"NEW   YORK", "new york"},
		{"St. Petersburg", "st petersburg"},
		{"", ""},
		{"!!!", ""},
		{"café", "café"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchesDestination(t *testing.T) {
	d := Destination{
		Name:    "New York",
		Aliases: []string{"NYC", "Big Apple"},
	}
	for _, answer := range []string{"new york", "  New York!  ", "nyc", "big apple", "BIG  APPLE"} {
		if !MatchesDestination(answer, d) {
			t.Errorf("expected %q to match %s", answer, d.Name)
		}
	}
	for _, answer := range []string{"", "boston", "new", "york"} {
		if MatchesDestination(answer, d) {
			t.Errorf("expected %q not to match %s", answer, d.Name)
		}
	}
}

func TestMatchesFollowup(t *testing.T) {
	q := Followup{Text: "Year?", Type: OpenText, CorrectAnswer: "1889"}
	if !MatchesFollowup(" 1889 ", q) {
		t.Error("expected trimmed answer to match")
	}
	if MatchesFollowup("1890", q) {
		t.Error("expected wrong answer not to match")
	}
	if MatchesFollowup("", q) {
		t.Error("expected empty answer not to match")
	}
}

func TestBuiltinValidates(t *testing.T) {
	dests := Builtin()
	if len(dests) == 0 {
		t.Fatal("builtin bank is empty")
	}
	for _, d := range dests {
		if err := d.Validate(); err != nil {
			t.Errorf("builtin destination %s: %v", d.ID, err)
		}
	}
}

func TestClueAt(t *testing.T) {
	d := Builtin()[0]
	for _, level := range ClueLevels {
		clue, ok := d.ClueAt(level)
		if !ok {
			t.Fatalf("missing clue for %d points", level)
		}
		if clue.Text == "" {
			t.Errorf("clue for %d points has no text", level)
		}
	}
	if _, ok := d.ClueAt(7); ok {
		t.Error("expected no clue for 7 points")
	}
}

func TestValidateRejectsBadDestinations(t *testing.T) {
	base := Builtin()[0]

	missingClue := base
	missingClue.Clues = base.Clues[:4]
	if err := missingClue.Validate(); err == nil {
		t.Error("expected error for missing clue level")
	}

	badFollowup := base
	badFollowup.Followups = []Followup{{Text: "Q?", Type: MultipleChoice, Options: []string{"only one"}, CorrectAnswer: "only one"}}
	if err := badFollowup.Validate(); err == nil {
		t.Error("expected error for multiple choice with one option")
	}

	unknownType := base
	unknownType.Followups = []Followup{{Text: "Q?", Type: "freeform", CorrectAnswer: "a"}}
	if err := unknownType.Validate(); err == nil {
		t.Error("expected error for unknown question type")
	}
}

func TestLoadPack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	pack := `pack_id: test-pack
destinations:
  - id: paris
    name: Paris
    country: France
    aliases: [paree]
    clues:
      - {points: 10, text: "clue ten"}
      - {points: 8, text: "clue eight"}
      - {points: 6, text: "clue six"}
      - {points: 4, text: "clue four"}
      - {points: 2, text: "clue two"}
    followups:
      - text: "Which river?"
        type: multiple_choice
        options: [Seine, Loire]
        correct_answer: Seine
`
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPack(path)
	if err != nil {
		t.Fatalf("LoadPack: %v", err)
	}
	if p.PackID != "test-pack" {
		t.Errorf("PackID = %q, want test-pack", p.PackID)
	}
	dests := p.Destinations()
	if len(dests) != 1 || dests[0].Name != "Paris" {
		t.Fatalf("unexpected destinations: %+v", dests)
	}
	if dests[0].Followups[0].Type != MultipleChoice {
		t.Errorf("followup type = %q", dests[0].Followups[0].Type)
	}
}

func TestLoadPackRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(path, []byte("pack_id: empty\ndestinations: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPack(path); err == nil {
		t.Error("expected error for empty pack")
	}

	if _, err := LoadPack(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
