package game

import (
	"strings"

	"railquiz/internal/content"
)

// RejectReason explains a losing brake pull. Reported via BRAKE_REJECTED,
// not a generic error.
type RejectReason string

const (
	RejectTooLate       RejectReason = "too_late"
	RejectAlreadyPaused RejectReason = "already_paused"
	RejectRateLimited   RejectReason = "rate_limited"
)

// CluePresent describes a clue entering (or resuming) CLUE_LEVEL.
type CluePresent struct {
	ClueText        string
	ClueLevelPoints int
	ClueIndex       int
	RoundIndex      int
	Resumed         bool
}

// BrakeOutcome is the arbitration result for one BRAKE_PULL.
type BrakeOutcome struct {
	Accepted        bool
	Reason          RejectReason
	PlayerID        string
	PlayerName      string
	WinnerPlayerID  string
	ClueLevelPoints int
}

// AnswerLocked is a committed, scored brake answer.
type AnswerLocked struct {
	PlayerID            string
	LockedAtLevelPoints int
	AnswerText          string
	IsCorrect           bool
	PointsAwarded       int
	RemainingClues      bool
}

// AnswerResult is one row of DESTINATION_RESULTS.
type AnswerResult struct {
	PlayerID            string `json:"playerId"`
	PlayerName          string `json:"playerName"`
	AnswerText          string `json:"answerText"`
	IsCorrect           bool   `json:"isCorrect"`
	PointsAwarded       int    `json:"pointsAwarded"`
	LockedAtLevelPoints int    `json:"lockedAtLevelPoints"`
}

// Reveal carries the uncovered destination plus the round's results.
type Reveal struct {
	DestinationName string
	Country         string
	Aliases         []string
	Results         []AnswerResult
	Scoreboard      []ScoreEntry
}

// FollowupPresent describes a follow-up question being shown.
type FollowupPresent struct {
	QuestionIndex  int
	TotalQuestions int
	QuestionText   string
	Type           content.QuestionType
	Options        []string
	CorrectAnswer  string
	DeadlineMs     int64
	DurationMs     int64
}

// FollowupResult is one player's outcome for a locked follow-up question.
type FollowupResult struct {
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	AnswerText    string `json:"answerText"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsAwarded int    `json:"pointsAwarded"`
}

// FollowupLocked is the outcome of one question's deadline firing: lock,
// score, and either the next question or the completed sequence.
type FollowupLocked struct {
	QuestionIndex     int
	AnswersByPlayer   map[string]string
	Results           []FollowupResult
	CorrectAnswer     string
	NextQuestionIndex *int
	Next              *FollowupPresent
	SequenceComplete  bool
	Scoreboard        []ScoreEntry
}

// AdvanceKind tags what a host advance did.
type AdvanceKind int

const (
	AdvanceClue AdvanceKind = iota
	AdvanceReveal
	AdvanceFollowup
	AdvanceScoreboard
	AdvanceNextRound
	AdvanceGameEnd
)

// Advance is the tagged result of HOST_NEXT_CLUE in any phase that
// accepts it.
type Advance struct {
	Kind           AdvanceKind
	Clue           *CluePresent
	Reveal         *Reveal
	Followup       *FollowupPresent
	Scoreboard     []ScoreEntry
	DiscardedBrake bool
}

// Machine validates commands against the current phase, applies
// transitions, and reports what to broadcast. It is the only writer of its
// State; callers must serialize access (the session loop does).
type Machine struct {
	state *State
	dests []content.Destination
}

func NewMachine(state *State, dests []content.Destination) *Machine {
	return &Machine{state: state, dests: dests}
}

func (m *Machine) State() *State { return m.state }

// AddPlayer registers a participant while the lobby is open.
func (m *Machine) AddPlayer(playerID, name string, role Role, nowMs int64) (*Player, error) {
	if m.state.Phase != PhaseLobby {
		return nil, PhaseConflictf("cannot join in phase %s", m.state.Phase)
	}
	if name = strings.TrimSpace(name); name == "" {
		return nil, Validationf("player name is required")
	}
	if m.state.PlayerByID(playerID) != nil {
		return nil, Validationf("player %s already joined", playerID)
	}
	p := &Player{PlayerID: playerID, Name: name, Role: role, JoinedAtMs: nowMs}
	m.state.Players = append(m.state.Players, p)
	m.state.bump()
	return p, nil
}

// SetConnected flips a participant's connectivity flag. Returns false when
// the player is unknown or the flag was already set.
func (m *Machine) SetConnected(playerID string, connected bool) bool {
	p := m.state.PlayerByID(playerID)
	if p == nil || p.IsConnected == connected {
		return false
	}
	p.IsConnected = connected
	m.state.bump()
	return true
}

// SetTTSManifest attaches the audio-asset manifest from the external
// provider. Host projections carry it; TV and players never see it.
func (m *Machine) SetTTSManifest(entries []TTSManifestEntry) {
	m.state.Audio.TTSManifest = entries
	m.state.bump()
}

// StartGame transitions LOBBY into ROUND_INTRO and loads the first
// destination. Host only.
func (m *Machine) StartGame(role Role) error {
	if role != RoleHost {
		return Unauthorizedf("only the host may start the game")
	}
	if m.state.Phase != PhaseLobby {
		return PhaseConflictf("game already started (phase %s)", m.state.Phase)
	}
	if len(m.dests) == 0 {
		return Validationf("no destinations available")
	}
	m.loadDestination(0)
	m.state.Phase = PhaseRoundIntro
	m.state.bumpPhase()
	return nil
}

// BeginClueLevel is the round-intro auto-advance: ROUND_INTRO into
// CLUE_LEVEL at the top point level.
func (m *Machine) BeginClueLevel() (*CluePresent, error) {
	if m.state.Phase != PhaseRoundIntro {
		return nil, PhaseConflictf("not in round intro (phase %s)", m.state.Phase)
	}
	return m.presentClue(content.ClueLevels[0], false)
}

// PullBrake arbitrates one pull. The caller's receipt order is the only
// fairness key; client timestamps are never consulted. Exactly one pull
// per clue level is accepted.
func (m *Machine) PullBrake(playerID string, nowMs, rateLimitMs int64) (*BrakeOutcome, error) {
	p := m.state.PlayerByID(playerID)
	if p == nil || p.Role != RolePlayer {
		return nil, Unauthorizedf("only joined players may pull the brake")
	}

	// Lock already held: the phase flipped before this pull was evaluated.
	if m.state.Phase == PhasePausedForBrake {
		return &BrakeOutcome{
			Reason:         RejectAlreadyPaused,
			PlayerID:       playerID,
			WinnerPlayerID: m.state.Brake.PlayerID,
		}, nil
	}
	if m.state.Phase != PhaseClueLevel {
		return nil, PhaseConflictf("cannot pull brake in phase %s", m.state.Phase)
	}

	level := m.state.ClueLevelPoints
	if winner, taken := m.state.BrakeWinners[level]; taken {
		return &BrakeOutcome{
			Reason:         RejectTooLate,
			PlayerID:       playerID,
			WinnerPlayerID: winner,
		}, nil
	}

	if last, ok := m.state.LastBrakeMs[playerID]; ok && nowMs-last < rateLimitMs {
		return &BrakeOutcome{Reason: RejectRateLimited, PlayerID: playerID}, nil
	}

	m.state.LastBrakeMs[playerID] = nowMs
	m.state.BrakeWinners[level] = playerID
	m.state.Brake = &BrakeLock{PlayerID: playerID, ServerTimeMs: nowMs, LevelPoints: level}
	m.state.Phase = PhasePausedForBrake
	m.state.bumpPhase()

	return &BrakeOutcome{
		Accepted:        true,
		PlayerID:        playerID,
		PlayerName:      p.Name,
		WinnerPlayerID:  playerID,
		ClueLevelPoints: level,
	}, nil
}

// SubmitBrakeAnswer locks and scores the winner's guess, closes the lock,
// and returns to CLUE_LEVEL at the same level.
func (m *Machine) SubmitBrakeAnswer(playerID, answerText string, nowMs int64) (*AnswerLocked, error) {
	if m.state.Phase != PhasePausedForBrake {
		return nil, PhaseConflictf("cannot submit answer in phase %s", m.state.Phase)
	}
	if m.state.Brake == nil || m.state.Brake.PlayerID != playerID {
		return nil, Unauthorizedf("only the brake winner may submit an answer")
	}
	answerText = strings.TrimSpace(answerText)
	if answerText == "" {
		return nil, Validationf("answerText is required")
	}
	if m.state.HasLockedAnswer(playerID) {
		return nil, Validationf("player already locked an answer for this destination")
	}

	level := m.state.Brake.LevelPoints
	correct := content.MatchesDestination(answerText, *m.state.Destination)
	points := 0
	if correct {
		points = level
	}
	m.state.LockedAnswers = append(m.state.LockedAnswers, LockedAnswer{
		PlayerID:            playerID,
		AnswerText:          answerText,
		LockedAtLevelPoints: level,
		LockedAtMs:          nowMs,
		IsCorrect:           correct,
		PointsAwarded:       points,
	})
	if p := m.state.PlayerByID(playerID); p != nil {
		p.Score += points
	}

	m.state.Brake = nil
	m.state.Phase = PhaseClueLevel
	m.state.bumpPhase()

	return &AnswerLocked{
		PlayerID:            playerID,
		LockedAtLevelPoints: level,
		AnswerText:          answerText,
		IsCorrect:           correct,
		PointsAwarded:       points,
		RemainingClues:      levelIndex(level) < len(content.ClueLevels)-1,
	}, nil
}

// ExpireBrakeWindow discards a pending lock whose answer window lapsed and
// resumes the clue level. The level stays consumed. Returns false if the
// pause is already gone.
func (m *Machine) ExpireBrakeWindow() bool {
	if m.state.Phase != PhasePausedForBrake || m.state.Brake == nil {
		return false
	}
	m.state.Brake = nil
	m.state.Phase = PhaseClueLevel
	m.state.bumpPhase()
	return true
}

// HostAdvance handles HOST_NEXT_CLUE in every phase that accepts it:
// advancing clues, cancelling a pending brake, revealing, starting the
// follow-up sequence, and moving between rounds.
func (m *Machine) HostAdvance(role Role, nowMs, followupWindowMs int64) (*Advance, error) {
	if role != RoleHost {
		return nil, Unauthorizedf("only the host may advance the game")
	}

	switch m.state.Phase {
	case PhasePausedForBrake:
		// Host override: the pending lock is discarded without scoring.
		m.state.Brake = nil
		adv, err := m.advanceClue(nowMs)
		if err != nil {
			return nil, err
		}
		adv.DiscardedBrake = true
		if adv.Clue != nil {
			adv.Clue.Resumed = true
		}
		return adv, nil

	case PhaseClueLevel:
		return m.advanceClue(nowMs)

	case PhaseReveal:
		return m.advanceFromReveal(nowMs, followupWindowMs)

	case PhaseScoreboard:
		return m.advanceFromScoreboard()

	default:
		return nil, PhaseConflictf("cannot advance in phase %s", m.state.Phase)
	}
}

func (m *Machine) advanceClue(nowMs int64) (*Advance, error) {
	idx := levelIndex(m.state.ClueLevelPoints)
	if idx < 0 {
		return nil, Validationf("no active clue level")
	}
	if idx == len(content.ClueLevels)-1 {
		return m.reveal()
	}
	clue, err := m.presentClue(content.ClueLevels[idx+1], false)
	if err != nil {
		return nil, err
	}
	return &Advance{Kind: AdvanceClue, Clue: clue}, nil
}

func (m *Machine) reveal() (*Advance, error) {
	d := m.state.Destination
	m.state.Phase = PhaseReveal
	m.state.Revealed = true
	m.state.ClueLevelPoints = 0
	m.state.ClueText = ""
	m.state.bumpPhase()

	results := make([]AnswerResult, 0, len(m.state.LockedAnswers))
	for _, a := range m.state.LockedAnswers {
		name := ""
		if p := m.state.PlayerByID(a.PlayerID); p != nil {
			name = p.Name
		}
		results = append(results, AnswerResult{
			PlayerID:            a.PlayerID,
			PlayerName:          name,
			AnswerText:          a.AnswerText,
			IsCorrect:           a.IsCorrect,
			PointsAwarded:       a.PointsAwarded,
			LockedAtLevelPoints: a.LockedAtLevelPoints,
		})
	}

	return &Advance{Kind: AdvanceReveal, Reveal: &Reveal{
		DestinationName: d.Name,
		Country:         d.Country,
		Aliases:         d.Aliases,
		Results:         results,
		Scoreboard:      m.state.Scoreboard(),
	}}, nil
}

func (m *Machine) advanceFromReveal(nowMs, followupWindowMs int64) (*Advance, error) {
	if len(m.state.Destination.Followups) == 0 {
		m.state.Phase = PhaseScoreboard
		m.state.bumpPhase()
		return &Advance{Kind: AdvanceScoreboard, Scoreboard: m.state.Scoreboard()}, nil
	}
	fp := m.startFollowup(0, nowMs, followupWindowMs)
	m.state.Phase = PhaseFollowup
	m.state.bumpPhase()
	return &Advance{Kind: AdvanceFollowup, Followup: fp}, nil
}

func (m *Machine) advanceFromScoreboard() (*Advance, error) {
	next := m.state.DestinationIndex + 1
	if next >= len(m.dests) {
		m.state.Phase = PhaseGameEnd
		m.state.bumpPhase()
		return &Advance{Kind: AdvanceGameEnd, Scoreboard: m.state.Scoreboard()}, nil
	}
	m.resetRound()
	m.loadDestination(next)
	m.state.RoundIndex++
	m.state.Phase = PhaseRoundIntro
	m.state.bumpPhase()
	return &Advance{Kind: AdvanceNextRound, Scoreboard: m.state.Scoreboard()}, nil
}

// SubmitFollowupAnswer records one player's answer before the deadline.
// The last submission per player wins.
func (m *Machine) SubmitFollowupAnswer(playerID, answerText string, nowMs int64) error {
	fq := m.state.Followup
	if m.state.Phase != PhaseFollowup || fq == nil {
		return PhaseConflictf("no follow-up question is active (phase %s)", m.state.Phase)
	}
	p := m.state.PlayerByID(playerID)
	if p == nil || p.Role != RolePlayer {
		return Unauthorizedf("only joined players may answer follow-up questions")
	}
	answerText = strings.TrimSpace(answerText)
	if answerText == "" {
		return Validationf("answerText is required")
	}
	if nowMs > fq.DeadlineMs {
		return Validationf("answer window closed")
	}
	for i := range fq.Answers {
		if fq.Answers[i].PlayerID == playerID {
			fq.Answers[i].AnswerText = answerText
			fq.Answers[i].SubmittedAtMs = nowMs
			m.state.bump()
			return nil
		}
	}
	fq.Answers = append(fq.Answers, FollowupAnswer{
		PlayerID:      playerID,
		PlayerName:    p.Name,
		AnswerText:    answerText,
		SubmittedAtMs: nowMs,
	})
	m.state.bump()
	return nil
}

// LockFollowup fires on the answer deadline: lock, score every player,
// and advance to the next question or close the sequence.
func (m *Machine) LockFollowup(nowMs, followupWindowMs int64) (*FollowupLocked, error) {
	fq := m.state.Followup
	if m.state.Phase != PhaseFollowup || fq == nil {
		return nil, PhaseConflictf("no follow-up question is active (phase %s)", m.state.Phase)
	}

	answers := make(map[string]string, len(fq.Answers))
	for _, a := range fq.Answers {
		answers[a.PlayerID] = a.AnswerText
	}

	results := make([]FollowupResult, 0, len(m.state.ActivePlayers()))
	for _, p := range m.state.ActivePlayers() {
		text := answers[p.PlayerID]
		correct := text != "" && content.MatchesFollowup(text, fq.Question)
		points := 0
		if correct {
			points = content.FollowupPoints
			p.Score += points
		}
		results = append(results, FollowupResult{
			PlayerID:      p.PlayerID,
			PlayerName:    p.Name,
			AnswerText:    text,
			IsCorrect:     correct,
			PointsAwarded: points,
		})
	}

	locked := &FollowupLocked{
		QuestionIndex:   fq.QuestionIndex,
		AnswersByPlayer: answers,
		Results:         results,
		CorrectAnswer:   fq.Question.CorrectAnswer,
		Scoreboard:      m.state.Scoreboard(),
	}

	next := fq.QuestionIndex + 1
	if next < fq.TotalQuestions {
		locked.NextQuestionIndex = &next
		locked.Next = m.startFollowup(next, nowMs, followupWindowMs)
		m.state.bumpPhase()
		return locked, nil
	}

	m.state.Followup = nil
	m.state.Phase = PhaseScoreboard
	m.state.bumpPhase()
	locked.SequenceComplete = true
	return locked, nil
}

func (m *Machine) startFollowup(index int, nowMs, windowMs int64) *FollowupPresent {
	q := m.state.Destination.Followups[index]
	m.state.Followup = &FollowupState{
		QuestionIndex:  index,
		TotalQuestions: len(m.state.Destination.Followups),
		Question:       q,
		DeadlineMs:     nowMs + windowMs,
	}
	return &FollowupPresent{
		QuestionIndex:  index,
		TotalQuestions: len(m.state.Destination.Followups),
		QuestionText:   q.Text,
		Type:           q.Type,
		Options:        q.Options,
		CorrectAnswer:  q.CorrectAnswer,
		DeadlineMs:     nowMs + windowMs,
		DurationMs:     windowMs,
	}
}

func (m *Machine) presentClue(points int, resumed bool) (*CluePresent, error) {
	clue, ok := m.state.Destination.ClueAt(points)
	if !ok {
		return nil, Validationf("destination %q has no clue for %d points", m.state.Destination.ID, points)
	}
	m.state.Phase = PhaseClueLevel
	m.state.ClueLevelPoints = points
	m.state.ClueText = clue.Text
	m.state.bumpPhase()
	return &CluePresent{
		ClueText:        clue.Text,
		ClueLevelPoints: points,
		ClueIndex:       levelIndex(points),
		RoundIndex:      m.state.RoundIndex,
		Resumed:         resumed,
	}, nil
}

func (m *Machine) loadDestination(index int) {
	d := m.dests[index]
	m.state.DestinationIndex = index
	m.state.Destination = &d
	m.state.Revealed = false
}

func (m *Machine) resetRound() {
	m.state.LockedAnswers = nil
	m.state.Brake = nil
	m.state.BrakeWinners = make(map[int]string)
	m.state.Followup = nil
	m.state.ClueLevelPoints = 0
	m.state.ClueText = ""
}

func levelIndex(points int) int {
	for i, p := range content.ClueLevels {
		if p == points {
			return i
		}
	}
	return -1
}
