package game

// Audio directive types. Ducking and dynamic mix blending are deliberately
// unsupported; the sequencer can only set, stop, and play one-shots.
type DirectiveType string

const (
	DirectiveMusicSet  DirectiveType = "MUSIC_SET"
	DirectiveMusicStop DirectiveType = "MUSIC_STOP"
	DirectiveSfxPlay   DirectiveType = "SFX_PLAY"
)

const (
	TrackTravelLoop   = "music_travel_loop"
	TrackFollowupLoop = "music_followup_loop"

	SfxBrake  = "sfx_brake"
	SfxReveal = "sfx_reveal"

	// Fade-out defaults: a normal stop versus the shorter end-of-followup stop.
	FadeStopMs         = 600
	FadeFollowupEndMs  = 400
	DefaultSfxVolume   = 1.0
	DefaultMusicGainDb = 0.0
)

// Directive is one audio instruction for HOST/TV clients. Directives are
// always broadcast after the domain event announcing their transition.
type Directive struct {
	Type      DirectiveType
	TrackID   string
	GainDb    float64
	FadeOutMs int
	SfxID     string
	Volume    float64
}

func musicSet(trackID string) Directive {
	return Directive{Type: DirectiveMusicSet, TrackID: trackID, GainDb: DefaultMusicGainDb}
}

func musicStop(fadeMs int) Directive {
	return Directive{Type: DirectiveMusicStop, FadeOutMs: fadeMs}
}

func sfxPlay(sfxID string) Directive {
	return Directive{Type: DirectiveSfxPlay, SfxID: sfxID, Volume: DefaultSfxVolume}
}

// CueClueLevel starts (or resumes) the travel theme on entering CLUE_LEVEL.
func CueClueLevel(s *State) []Directive {
	s.Audio.CurrentTrackID = TrackTravelLoop
	s.Audio.IsPlaying = true
	s.Audio.GainDb = DefaultMusicGainDb
	return []Directive{musicSet(TrackTravelLoop)}
}

// CueBrakeAccepted stops the music and fires the brake sting for the
// transition into PAUSED_FOR_BRAKE.
func CueBrakeAccepted(s *State) []Directive {
	s.Audio.CurrentTrackID = ""
	s.Audio.IsPlaying = false
	return []Directive{musicStop(FadeStopMs), sfxPlay(SfxBrake)}
}

// CueReveal stops the music and fires the reveal sting for the transition
// into REVEAL_DESTINATION.
func CueReveal(s *State) []Directive {
	s.Audio.CurrentTrackID = ""
	s.Audio.IsPlaying = false
	return []Directive{musicStop(FadeStopMs), sfxPlay(SfxReveal)}
}

// CueFollowupStart switches to the follow-up theme.
func CueFollowupStart(s *State) []Directive {
	s.Audio.CurrentTrackID = TrackFollowupLoop
	s.Audio.IsPlaying = true
	s.Audio.GainDb = DefaultMusicGainDb
	return []Directive{musicSet(TrackFollowupLoop)}
}

// CueFollowupSequenceEnd stops the follow-up theme with the shorter fade.
func CueFollowupSequenceEnd(s *State) []Directive {
	s.Audio.CurrentTrackID = ""
	s.Audio.IsPlaying = false
	return []Directive{musicStop(FadeFollowupEndMs)}
}
