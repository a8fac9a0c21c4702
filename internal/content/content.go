package content

import (
	"fmt"
	"strings"
	"unicode"
)

// ClueLevels is the fixed descending point sequence a destination is played
// through. Every destination must carry exactly one clue per level.
var ClueLevels = []int{10, 8, 6, 4, 2}

// FollowupPoints is the fixed award for a correct follow-up answer,
// independent of the clue level the destination was guessed at.
const FollowupPoints = 2

// QuestionType distinguishes the two follow-up question formats.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	OpenText       QuestionType = "open_text"
)

// Clue is one hint revealed at a specific point level.
type Clue struct {
	Points int    `yaml:"points" json:"points"`
	Text   string `yaml:"text" json:"text"`
}

// Followup is a post-reveal trivia question tied to a destination.
type Followup struct {
	Text          string       `yaml:"text" json:"text"`
	Type          QuestionType `yaml:"type" json:"type"`
	Options       []string     `yaml:"options,omitempty" json:"options,omitempty"`
	CorrectAnswer string       `yaml:"correct_answer" json:"correctAnswer"`
}

// Destination is one round of the game: a place to guess, five clues in
// descending value, the accepted answer set, and its follow-up questions.
type Destination struct {
	ID        string     `yaml:"id" json:"id"`
	Name      string     `yaml:"name" json:"name"`
	Country   string     `yaml:"country" json:"country"`
	Aliases   []string   `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Clues     []Clue     `yaml:"clues" json:"clues"`
	Followups []Followup `yaml:"followups,omitempty" json:"followups,omitempty"`
}

// ClueAt returns the clue for the given point level.
func (d Destination) ClueAt(points int) (Clue, bool) {
	for _, c := range d.Clues {
		if c.Points == points {
			return c, true
		}
	}
	return Clue{}, false
}

// Validate checks that a destination is playable: one clue per level in
// ClueLevels and well-formed follow-ups.
func (d Destination) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("destination %q: missing name", d.ID)
	}
	for _, level := range ClueLevels {
		if _, ok := d.ClueAt(level); !ok {
			return fmt.Errorf("destination %q: missing clue for %d points", d.ID, level)
		}
	}
	if len(d.Clues) != len(ClueLevels) {
		return fmt.Errorf("destination %q: expected %d clues, got %d", d.ID, len(ClueLevels), len(d.Clues))
	}
	for i, q := range d.Followups {
		if q.Text == "" {
			return fmt.Errorf("destination %q: followup %d has no text", d.ID, i)
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("destination %q: followup %d has no correct answer", d.ID, i)
		}
		switch q.Type {
		case MultipleChoice:
			if len(q.Options) < 2 {
				return fmt.Errorf("destination %q: followup %d needs at least 2 options", d.ID, i)
			}
		case OpenText:
			if len(q.Options) > 0 {
				return fmt.Errorf("destination %q: followup %d is open text but has options", d.ID, i)
			}
		default:
			return fmt.Errorf("destination %q: followup %d has unknown type %q", d.ID, i, q.Type)
		}
	}
	return nil
}

// Provider supplies the ordered destination list for a game.
type Provider interface {
	Destinations() []Destination
}

// Static is a Provider over a fixed slice.
type Static []Destination

func (s Static) Destinations() []Destination { return s }

// Normalize lowercases an answer, strips punctuation and collapses
// whitespace so "  Paris! " and "paris" compare equal.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// MatchesDestination reports whether an answer names the destination,
// comparing the normalized text against the name and all aliases.
func MatchesDestination(answer string, d Destination) bool {
	got := Normalize(answer)
	if got == "" {
		return false
	}
	if got == Normalize(d.Name) {
		return true
	}
	for _, alias := range d.Aliases {
		if got == Normalize(alias) {
			return true
		}
	}
	return false
}

// MatchesFollowup reports whether an answer matches the question's correct
// answer. Multiple-choice and open-text both use normalized exact match.
func MatchesFollowup(answer string, q Followup) bool {
	got := Normalize(answer)
	return got != "" && got == Normalize(q.CorrectAnswer)
}
