package game

import "railquiz/internal/content"

// View is the role-specific, redacted projection of session state. It is
// what STATE_SNAPSHOT carries; fields that must be absent for a role (not
// merely null) are pointers with omitempty.
type View struct {
	Version         int64              `json:"version"`
	SessionID       string             `json:"sessionId"`
	JoinCode        string             `json:"joinCode"`
	Phase           Phase              `json:"phase"`
	RoundIndex      int                `json:"roundIndex"`
	Players         []PlayerView       `json:"players"`
	Destination     *DestinationView   `json:"destination,omitempty"`
	ClueLevelPoints *int               `json:"clueLevelPoints"`
	ClueText        *string            `json:"clueText"`
	BrakeOwnerID    *string            `json:"brakeOwnerPlayerId"`
	LockedAnswers   []LockedAnswerView `json:"lockedAnswers"`
	Followup        *FollowupView      `json:"followupQuestion,omitempty"`
	Scoreboard      []ScoreEntry       `json:"scoreboard"`
	Audio           *AudioView         `json:"audioState,omitempty"`
	Host            *HostPanelView     `json:"host,omitempty"`
}

// PlayerView is the public slice of a participant.
type PlayerView struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	IsConnected bool   `json:"isConnected"`
	Score       int    `json:"score"`
}

// DestinationView hides the name from players until revealed.
type DestinationView struct {
	Name     *string  `json:"name"`
	Country  *string  `json:"country"`
	Aliases  []string `json:"aliases,omitempty"`
	Revealed bool     `json:"revealed"`
}

// LockedAnswerView redacts other players' answer text for PLAYER views.
type LockedAnswerView struct {
	PlayerID            string  `json:"playerId"`
	AnswerText          *string `json:"answerText,omitempty"`
	LockedAtLevelPoints int     `json:"lockedAtLevelPoints"`
	IsCorrect           *bool   `json:"isCorrect,omitempty"`
	PointsAwarded       *int    `json:"pointsAwarded,omitempty"`
}

// FollowupView is the follow-up sub-state. CorrectAnswer and AnswersByPlayer
// are host/TV fields; players get AnsweredByMe instead.
type FollowupView struct {
	QuestionIndex   int               `json:"currentQuestionIndex"`
	TotalQuestions  int               `json:"totalQuestions"`
	QuestionText    string            `json:"questionText"`
	Options         []string          `json:"options,omitempty"`
	DeadlineMs      int64             `json:"deadlineMs"`
	CorrectAnswer   *string           `json:"correctAnswer,omitempty"`
	AnswersByPlayer map[string]string `json:"answersByPlayer,omitempty"`
	AnsweredByMe    *bool             `json:"answeredByMe,omitempty"`
}

// AudioView mirrors AudioState for host and TV. The TTS manifest is a
// content-pipeline concern and stays host-only.
type AudioView struct {
	CurrentTrackID *string            `json:"currentTrackId"`
	IsPlaying      bool               `json:"isPlaying"`
	GainDb         float64            `json:"gainDb"`
	TTSManifest    []TTSManifestEntry `json:"ttsManifest,omitempty"`
}

// HostPanelView is host-only control metadata.
type HostPanelView struct {
	RemainingClues bool `json:"remainingClues"`
	AnsweredCount  int  `json:"answeredCount"`
	TotalPlayers   int  `json:"totalPlayers"`
}

// Project derives the role-filtered view of a state. It is pure and
// deterministic: the same (state, role, playerID) triple always yields a
// structurally identical view, which reconnection relies on.
func Project(s *State, role Role, playerID string) View {
	v := View{
		Version:    s.Version,
		SessionID:  s.SessionID,
		JoinCode:   s.JoinCode,
		Phase:      s.Phase,
		RoundIndex: s.RoundIndex,
		Scoreboard: s.Scoreboard(),
	}

	v.Players = make([]PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Role != RolePlayer {
			continue
		}
		v.Players = append(v.Players, PlayerView{
			PlayerID:    p.PlayerID,
			Name:        p.Name,
			IsConnected: p.IsConnected,
			Score:       p.Score,
		})
	}

	if s.ClueLevelPoints > 0 {
		v.ClueLevelPoints = intPtr(s.ClueLevelPoints)
		v.ClueText = strPtr(s.ClueText)
	}
	if s.Brake != nil {
		v.BrakeOwnerID = strPtr(s.Brake.PlayerID)
	}

	if s.Destination != nil {
		dv := &DestinationView{Revealed: s.Revealed}
		if role == RoleHost || role == RoleTV || s.Revealed {
			dv.Name = strPtr(s.Destination.Name)
			dv.Country = strPtr(s.Destination.Country)
			dv.Aliases = s.Destination.Aliases
		}
		v.Destination = dv
	}

	v.LockedAnswers = make([]LockedAnswerView, 0, len(s.LockedAnswers))
	for _, a := range s.LockedAnswers {
		av := LockedAnswerView{
			PlayerID:            a.PlayerID,
			LockedAtLevelPoints: a.LockedAtLevelPoints,
		}
		if role != RolePlayer || a.PlayerID == playerID {
			av.AnswerText = strPtr(a.AnswerText)
			av.IsCorrect = boolPtr(a.IsCorrect)
			av.PointsAwarded = intPtr(a.PointsAwarded)
		}
		v.LockedAnswers = append(v.LockedAnswers, av)
	}

	if fq := s.Followup; fq != nil {
		fv := &FollowupView{
			QuestionIndex:  fq.QuestionIndex,
			TotalQuestions: fq.TotalQuestions,
			QuestionText:   fq.Question.Text,
			Options:        fq.Question.Options,
			DeadlineMs:     fq.DeadlineMs,
		}
		switch role {
		case RolePlayer:
			_, answered := fq.AnswerBy(playerID)
			fv.AnsweredByMe = boolPtr(answered)
		default:
			fv.CorrectAnswer = strPtr(fq.Question.CorrectAnswer)
			fv.AnswersByPlayer = make(map[string]string, len(fq.Answers))
			for _, a := range fq.Answers {
				fv.AnswersByPlayer[a.PlayerID] = a.AnswerText
			}
		}
		v.Followup = fv
	}

	// Players never receive the audioState key, not even nulled.
	if role == RoleHost || role == RoleTV {
		av := &AudioView{
			IsPlaying: s.Audio.IsPlaying,
			GainDb:    s.Audio.GainDb,
		}
		if s.Audio.CurrentTrackID != "" {
			av.CurrentTrackID = strPtr(s.Audio.CurrentTrackID)
		}
		if role == RoleHost {
			av.TTSManifest = s.Audio.TTSManifest
		}
		v.Audio = av
	}

	if role == RoleHost {
		panel := &HostPanelView{
			RemainingClues: s.ClueLevelPoints > 0 && levelIndex(s.ClueLevelPoints) < len(content.ClueLevels)-1,
			TotalPlayers:   len(v.Players),
		}
		if s.Followup != nil {
			panel.AnsweredCount = len(s.Followup.Answers)
		}
		v.Host = panel
	}

	return v
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
