package game

// Phase is the state machine's current game phase. Exactly one phase is
// active at any time; every command is only valid in a declared subset.
type Phase string

const (
	PhaseLobby          Phase = "LOBBY"
	PhaseRoundIntro     Phase = "ROUND_INTRO"
	PhaseClueLevel      Phase = "CLUE_LEVEL"
	PhasePausedForBrake Phase = "PAUSED_FOR_BRAKE"
	PhaseReveal         Phase = "REVEAL_DESTINATION"
	PhaseFollowup       Phase = "FOLLOWUP_QUESTION"
	PhaseScoreboard     Phase = "SCOREBOARD"
	PhaseGameEnd        Phase = "GAME_END"
)
