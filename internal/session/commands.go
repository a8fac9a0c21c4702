package session

import (
	"encoding/json"
	"fmt"
)

// CommandType enumerates client-to-server commands.
type CommandType string

const (
	CmdHostStartGame        CommandType = "HOST_START_GAME"
	CmdHostNextClue         CommandType = "HOST_NEXT_CLUE"
	CmdBrakePull            CommandType = "BRAKE_PULL"
	CmdBrakeAnswerSubmit    CommandType = "BRAKE_ANSWER_SUBMIT"
	CmdFollowupAnswerSubmit CommandType = "FOLLOWUP_ANSWER_SUBMIT"
	CmdResumeSession        CommandType = "RESUME_SESSION"
)

// Command is the client envelope. The client-supplied serverTimeMs is
// informational only and never used for arbitration.
type Command struct {
	Type         CommandType     `json:"type"`
	SessionID    string          `json:"sessionId"`
	ServerTimeMs int64           `json:"serverTimeMs,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

type BrakePullPayload struct {
	PlayerID     string `json:"playerId"`
	ClientTimeMs int64  `json:"clientTimeMs,omitempty"`
}

type BrakeAnswerSubmitPayload struct {
	PlayerID   string `json:"playerId"`
	AnswerText string `json:"answerText"`
}

type FollowupAnswerSubmitPayload struct {
	PlayerID   string `json:"playerId"`
	AnswerText string `json:"answerText"`
}

type ResumeSessionPayload struct {
	PlayerID            string `json:"playerId"`
	LastReceivedEventID string `json:"lastReceivedEventId,omitempty"`
}

// ParseCommand decodes a client frame.
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("malformed command frame: %w", err)
	}
	if cmd.Type == "" {
		return nil, fmt.Errorf("command frame missing type")
	}
	return &cmd, nil
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("malformed payload: %w", err)
	}
	return out, nil
}
