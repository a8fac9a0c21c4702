package game

import (
	"sort"

	"railquiz/internal/content"
)

// Player is one participant. Join order is preserved; the scoreboard keeps
// the same insertion order.
type Player struct {
	PlayerID    string
	Name        string
	Role        Role
	IsConnected bool
	JoinedAtMs  int64
	Score       int
}

// LockedAnswer is a brake winner's committed destination guess. Entries are
// append-only within a round and scored at lock time.
type LockedAnswer struct {
	PlayerID            string
	AnswerText          string
	LockedAtLevelPoints int
	LockedAtMs          int64
	IsCorrect           bool
	PointsAwarded       int
}

// BrakeLock is the ephemeral per-clue-level record of the winning pull.
// At most one non-closed lock exists per session at any time.
type BrakeLock struct {
	PlayerID     string
	ServerTimeMs int64
	LevelPoints  int
}

// FollowupAnswer is one player's submission to the current follow-up
// question. Last write wins until the question locks.
type FollowupAnswer struct {
	PlayerID      string
	PlayerName    string
	AnswerText    string
	SubmittedAtMs int64
}

// FollowupState tracks the timer-driven follow-up sub-engine. The question
// index only advances forward, after the question's lock has fired.
type FollowupState struct {
	QuestionIndex  int
	TotalQuestions int
	Question       content.Followup
	Answers        []FollowupAnswer
	DeadlineMs     int64
}

// AnswerBy returns the player's current submission, if any.
func (f *FollowupState) AnswerBy(playerID string) (FollowupAnswer, bool) {
	for _, a := range f.Answers {
		if a.PlayerID == playerID {
			return a, true
		}
	}
	return FollowupAnswer{}, false
}

// TTSManifestEntry points at a pre-generated voice clip. Fed by the
// external audio-asset provider; host-visible only.
type TTSManifestEntry struct {
	ClipID     string `json:"clipId"`
	PhraseID   string `json:"phraseId"`
	URL        string `json:"url"`
	DurationMs int64  `json:"durationMs"`
}

// AudioState is the shared music/sfx state. Omitted entirely from PLAYER
// projections.
type AudioState struct {
	CurrentTrackID string
	IsPlaying      bool
	GainDb         float64
	TTSManifest    []TTSManifestEntry
}

// ScoreEntry is one scoreboard row. Ties share a rank.
type ScoreEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// State is the authoritative mutable game state for one session. It is
// exclusively owned by the session's single-writer loop; everything else
// reads it through Project.
type State struct {
	// Version increments on every committed mutation; snapshots carry it.
	Version int64
	// PhaseEpoch increments only on phase/sub-phase transitions and is the
	// generation key that invalidates outstanding timers.
	PhaseEpoch int64

	SessionID string
	JoinCode  string
	Phase     Phase
	Players   []*Player

	RoundIndex       int
	DestinationIndex int
	Destination      *content.Destination
	Revealed         bool
	ClueLevelPoints  int
	ClueText         string

	Brake *BrakeLock
	// brakeWinners records the winning pull per clue level for the current
	// destination, so later pulls at a consumed level lose with too_late.
	BrakeWinners map[int]string
	// lastBrakeMs is the per-player rate-limit bookkeeping.
	LastBrakeMs map[string]int64

	LockedAnswers []LockedAnswer
	Followup      *FollowupState
	Audio         AudioState
}

// NewState builds a fresh lobby-phase state.
func NewState(sessionID, joinCode string) *State {
	return &State{
		Version:      1,
		SessionID:    sessionID,
		JoinCode:     joinCode,
		Phase:        PhaseLobby,
		BrakeWinners: make(map[int]string),
		LastBrakeMs:  make(map[string]int64),
	}
}

// PlayerByID finds a participant of any role.
func (s *State) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.PlayerID == id {
			return p
		}
	}
	return nil
}

// ActivePlayers returns the competing players in join order.
func (s *State) ActivePlayers() []*Player {
	var out []*Player
	for _, p := range s.Players {
		if p.Role == RolePlayer {
			out = append(out, p)
		}
	}
	return out
}

// HasLockedAnswer reports whether the player already locked a guess for
// the current destination.
func (s *State) HasLockedAnswer(playerID string) bool {
	for _, a := range s.LockedAnswers {
		if a.PlayerID == playerID {
			return true
		}
	}
	return false
}

// Scoreboard returns cumulative scores sorted descending, with ties
// sharing a rank (1, 1, 3 style).
func (s *State) Scoreboard() []ScoreEntry {
	players := s.ActivePlayers()
	entries := make([]ScoreEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, ScoreEntry{PlayerID: p.PlayerID, Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	rank := 1
	for i := range entries {
		if i > 0 && entries[i].Score < entries[i-1].Score {
			rank = i + 1
		}
		entries[i].Rank = rank
	}
	return entries
}

// bumpPhase commits a phase-affecting transition: both the snapshot version
// and the timer generation move forward.
func (s *State) bumpPhase() {
	s.Version++
	s.PhaseEpoch++
}

// bump commits a mutation that does not invalidate timers (connectivity
// flips, answer submissions within a window).
func (s *State) bump() {
	s.Version++
}
