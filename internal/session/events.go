package session

import (
	"railquiz/internal/content"
	"railquiz/internal/game"
)

// EventType enumerates server-to-client events.
type EventType string

const (
	EventWelcome                 EventType = "WELCOME"
	EventStateSnapshot           EventType = "STATE_SNAPSHOT"
	EventLobbyUpdated            EventType = "LOBBY_UPDATED"
	EventCluePresent             EventType = "CLUE_PRESENT"
	EventBrakeAccepted           EventType = "BRAKE_ACCEPTED"
	EventBrakeRejected           EventType = "BRAKE_REJECTED"
	EventBrakeAnswerLocked       EventType = "BRAKE_ANSWER_LOCKED"
	EventDestinationReveal       EventType = "DESTINATION_REVEAL"
	EventDestinationResults      EventType = "DESTINATION_RESULTS"
	EventFollowupQuestionPresent EventType = "FOLLOWUP_QUESTION_PRESENT"
	EventFollowupAnswersLocked   EventType = "FOLLOWUP_ANSWERS_LOCKED"
	EventFollowupResults         EventType = "FOLLOWUP_RESULTS"
	EventScoreboardUpdate        EventType = "SCOREBOARD_UPDATE"
	EventMusicSet                EventType = "MUSIC_SET"
	EventMusicStop               EventType = "MUSIC_STOP"
	EventSfxPlay                 EventType = "SFX_PLAY"
	EventError                   EventType = "ERROR"
)

// Envelope is the wire frame for every server-to-client event.
type Envelope struct {
	EventID      string    `json:"eventId"`
	Type         EventType `json:"type"`
	SessionID    string    `json:"sessionId"`
	ServerTimeMs int64     `json:"serverTimeMs"`
	Payload      any       `json:"payload"`
}

type WelcomePayload struct {
	ConnectionID string    `json:"connectionId"`
	Role         game.Role `json:"role"`
	PlayerID     string    `json:"playerId,omitempty"`
	ServerTimeMs int64     `json:"serverTimeMs"`
}

type StateSnapshotPayload struct {
	State game.View `json:"state"`
}

type LobbyPlayer struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	IsConnected bool   `json:"isConnected"`
}

type LobbyUpdatedPayload struct {
	Players  []LobbyPlayer `json:"players"`
	JoinCode string        `json:"joinCode"`
}

type CluePresentPayload struct {
	ClueText        string `json:"clueText"`
	ClueLevelPoints int    `json:"clueLevelPoints"`
	ClueIndex       int    `json:"clueIndex"`
	RoundIndex      int    `json:"roundIndex"`
}

type BrakeAcceptedPayload struct {
	PlayerID        string `json:"playerId"`
	PlayerName      string `json:"playerName"`
	ClueLevelPoints int    `json:"clueLevelPoints"`
	// AnswerTimeoutMs is only present on the winner's copy.
	AnswerTimeoutMs int64 `json:"answerTimeoutMs,omitempty"`
}

type BrakeRejectedPayload struct {
	PlayerID       string            `json:"playerId"`
	Reason         game.RejectReason `json:"reason"`
	WinnerPlayerID string            `json:"winnerPlayerId,omitempty"`
}

type BrakeAnswerLockedPayload struct {
	PlayerID            string `json:"playerId"`
	LockedAtLevelPoints int    `json:"lockedAtLevelPoints"`
	// AnswerText and RemainingClues are host-only.
	AnswerText     *string `json:"answerText,omitempty"`
	RemainingClues *bool   `json:"remainingClues,omitempty"`
}

type DestinationRevealPayload struct {
	DestinationName string   `json:"destinationName"`
	Country         string   `json:"country"`
	Aliases         []string `json:"aliases,omitempty"`
}

type DestinationResultsPayload struct {
	Results []game.AnswerResult `json:"results"`
}

type FollowupQuestionPresentPayload struct {
	QuestionIndex   int                  `json:"currentQuestionIndex"`
	TotalQuestions  int                  `json:"totalQuestions"`
	QuestionText    string               `json:"questionText"`
	QuestionType    content.QuestionType `json:"questionType"`
	Options         []string             `json:"options,omitempty"`
	DeadlineMs      int64                `json:"deadlineMs"`
	TimerDurationMs int64                `json:"timerDurationMs"`
	// CorrectAnswer is only present on host and TV copies.
	CorrectAnswer *string `json:"correctAnswer,omitempty"`
}

type FollowupAnswersLockedPayload struct {
	QuestionIndex int `json:"questionIndex"`
	AnsweredCount int `json:"answeredCount"`
	// AnswersByPlayer is host-only.
	AnswersByPlayer map[string]string `json:"answersByPlayer,omitempty"`
}

type FollowupResultsPayload struct {
	QuestionIndex     int                   `json:"questionIndex"`
	Results           []game.FollowupResult `json:"results"`
	CorrectAnswer     string                `json:"correctAnswer"`
	NextQuestionIndex *int                  `json:"nextQuestionIndex"`
}

type ScoreboardUpdatePayload struct {
	Scoreboard []game.ScoreEntry `json:"scoreboard"`
	IsGameOver bool              `json:"isGameOver,omitempty"`
}

type MusicSetPayload struct {
	TrackID string  `json:"trackId"`
	GainDb  float64 `json:"gainDb"`
}

type MusicStopPayload struct {
	FadeOutMs int `json:"fadeOutMs"`
}

type SfxPlayPayload struct {
	SfxID  string  `json:"sfxId"`
	Volume float64 `json:"volume"`
}

type ErrorPayload struct {
	ErrorCode game.ErrorCode `json:"errorCode"`
	Message   string         `json:"message"`
}

// directiveEvent maps an audio directive onto its wire event.
func directiveEvent(d game.Directive) (EventType, any) {
	switch d.Type {
	case game.DirectiveMusicSet:
		return EventMusicSet, MusicSetPayload{TrackID: d.TrackID, GainDb: d.GainDb}
	case game.DirectiveMusicStop:
		return EventMusicStop, MusicStopPayload{FadeOutMs: d.FadeOutMs}
	default:
		return EventSfxPlay, SfxPlayPayload{SfxID: d.SfxID, Volume: d.Volume}
	}
}
