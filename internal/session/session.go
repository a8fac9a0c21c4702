package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"railquiz/internal/content"
	"railquiz/internal/game"
)

// ErrClosed is returned when a command is submitted to a closed session.
var ErrClosed = errors.New("session closed")

// Recipient identifies one connected client for fanout rendering.
type Recipient struct {
	ConnectionID string
	Role         game.Role
	PlayerID     string
}

// Broadcaster fans one event out to every connection of a session. The
// render callback returns the recipient-specific frame, or false to skip
// that recipient. Frames must be delivered per connection in call order.
type Broadcaster interface {
	Fanout(sessionID string, render func(Recipient) ([]byte, bool))
}

// NoopBroadcaster drops everything. Used when a session runs headless.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Fanout(string, func(Recipient) ([]byte, bool)) {}

// EventSink receives the canonical copy of every committed event, e.g. for
// mirroring onto a message bus. May be nil.
type EventSink interface {
	Publish(sessionID string, data []byte) error
}

// Config holds the per-session timing knobs.
type Config struct {
	IntroDelay        time.Duration
	BrakeAnswerWindow time.Duration
	FollowupWindow    time.Duration
	BrakeRateLimit    time.Duration
	CommandBuffer     int
}

func DefaultConfig() Config {
	return Config{
		IntroDelay:        4 * time.Second,
		BrakeAnswerWindow: 20 * time.Second,
		FollowupWindow:    15 * time.Second,
		BrakeRateLimit:    2 * time.Second,
		CommandBuffer:     256,
	}
}

type timerKind int

const (
	timerIntro timerKind = iota
	timerBrakeWindow
	timerFollowup
)

// inbound is one unit of work for the session loop: either a raw client
// command or an internal task. The channel is the single-writer queue;
// receipt order on it is the arbitration order.
type inbound struct {
	origin Recipient
	raw    []byte
	reply  func([]byte)
	fn     func()
}

// Session owns one game's state. All mutations happen on its run loop, one
// command at a time, in receipt order. Timers, broadcasts, and queries all
// route through the same loop, so every broadcast sees a consistent state.
type Session struct {
	id       string
	joinCode string
	hostID   string

	machine     *game.Machine
	cfg         Config
	clock       clockwork.Clock
	broadcaster Broadcaster
	sink        EventSink
	logger      zerolog.Logger

	cmdCh     chan inbound
	closed    chan struct{}
	closeOnce sync.Once
	createdAt time.Time

	timersMu sync.Mutex
	timers   map[timerKind]clockwork.Timer
}

// New starts a session actor over an already-initialized state.
func New(st *game.State, dests []content.Destination, hostID string, cfg Config, clock clockwork.Clock, b Broadcaster, sink EventSink, logger zerolog.Logger) *Session {
	if b == nil {
		b = NoopBroadcaster{}
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultConfig().CommandBuffer
	}
	s := &Session{
		id:          st.SessionID,
		joinCode:    st.JoinCode,
		hostID:      hostID,
		machine:     game.NewMachine(st, dests),
		cfg:         cfg,
		clock:       clock,
		broadcaster: b,
		sink:        sink,
		logger:      logger.With().Str("session_id", st.SessionID).Logger(),
		cmdCh:       make(chan inbound, cfg.CommandBuffer),
		closed:      make(chan struct{}),
		createdAt:   clock.Now(),
		timers:      make(map[timerKind]clockwork.Timer),
	}
	go s.run()
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) JoinCode() string     { return s.joinCode }
func (s *Session) HostID() string       { return s.hostID }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Close stops the loop and cancels all timers.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.timersMu.Lock()
		for kind, t := range s.timers {
			stopAndDrain(t)
			delete(s.timers, kind)
		}
		s.timersMu.Unlock()
	})
}

// Submit enqueues a raw client command. The reply callback receives frames
// addressed to the issuing connection only (errors, rejections, resumes).
func (s *Session) Submit(origin Recipient, raw []byte, reply func([]byte)) error {
	return s.enqueue(inbound{origin: origin, raw: raw, reply: reply})
}

// do runs fn on the session loop.
func (s *Session) do(fn func()) error {
	return s.enqueue(inbound{fn: fn})
}

func (s *Session) enqueue(in inbound) error {
	select {
	case <-s.closed:
		return ErrClosed
	case s.cmdCh <- in:
		return nil
	}
}

func (s *Session) run() {
	for {
		select {
		case <-s.closed:
			return
		case in := <-s.cmdCh:
			if in.fn != nil {
				in.fn()
				continue
			}
			s.handle(in)
		}
	}
}

// AddPlayer registers a competing player while the lobby is open and
// broadcasts the updated lobby. Called by the external join layer.
func (s *Session) AddPlayer(name string) (*game.Player, error) {
	type result struct {
		p   *game.Player
		err error
	}
	ch := make(chan result, 1)
	if err := s.do(func() {
		p, err := s.machine.AddPlayer(uuid.NewString(), name, game.RolePlayer, s.nowMs())
		if err == nil {
			s.broadcastLobby()
		}
		ch <- result{p, err}
	}); err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.p, r.err
	case <-s.closed:
		return nil, ErrClosed
	}
}

// SetTTSManifest attaches the external audio-asset manifest.
func (s *Session) SetTTSManifest(entries []game.TTSManifestEntry) error {
	return s.do(func() { s.machine.SetTTSManifest(entries) })
}

// View renders a role projection through the loop, so the returned state is
// never a partial write.
func (s *Session) View(role game.Role, playerID string) (game.View, error) {
	ch := make(chan game.View, 1)
	if err := s.do(func() { ch <- game.Project(s.machine.State(), role, playerID) }); err != nil {
		return game.View{}, err
	}
	select {
	case v := <-ch:
		return v, nil
	case <-s.closed:
		return game.View{}, ErrClosed
	}
}

// Connect marks the recipient's player connected (if any), sends WELCOME
// and a snapshot to that connection, and broadcasts the lobby change.
// register, if non-nil, runs on the loop immediately before WELCOME goes
// out, so a connection attached there never sees an event older than its
// own WELCOME.
func (s *Session) Connect(r Recipient, register func()) error {
	return s.do(func() {
		if register != nil {
			register()
		}
		changed := r.PlayerID != "" && s.machine.SetConnected(r.PlayerID, true)
		s.sendTo(r, s.envelope(EventWelcome, WelcomePayload{
			ConnectionID: r.ConnectionID,
			Role:         r.Role,
			PlayerID:     r.PlayerID,
			ServerTimeMs: s.nowMs(),
		}))
		s.sendTo(r, s.snapshotEnvelope(r))
		if changed {
			s.broadcastLobby()
		}
	})
}

// Disconnect marks the recipient's player disconnected and broadcasts the
// lobby change. Session state otherwise survives untouched.
func (s *Session) Disconnect(r Recipient) error {
	return s.do(func() {
		if r.PlayerID != "" && s.machine.SetConnected(r.PlayerID, false) {
			s.broadcastLobby()
		}
	})
}

// ConnectedPlayers reports how many competing players are connected.
func (s *Session) ConnectedPlayers() int {
	ch := make(chan int, 1)
	if err := s.do(func() {
		n := 0
		for _, p := range s.machine.State().ActivePlayers() {
			if p.IsConnected {
				n++
			}
		}
		ch <- n
	}); err != nil {
		return 0
	}
	select {
	case n := <-ch:
		return n
	case <-s.closed:
		return 0
	}
}

// Phase reports the current phase.
func (s *Session) Phase() game.Phase {
	ch := make(chan game.Phase, 1)
	if err := s.do(func() { ch <- s.machine.State().Phase }); err != nil {
		return ""
	}
	select {
	case ph := <-ch:
		return ph
	case <-s.closed:
		return ""
	}
}

// ── command handling ────────────────────────────────────────────────────

func (s *Session) handle(in inbound) {
	cmd, err := ParseCommand(in.raw)
	if err != nil {
		s.replyError(in, game.Validationf("%v", err))
		return
	}
	if cmd.SessionID != "" && cmd.SessionID != s.id {
		s.replyError(in, game.Validationf("command addressed to session %s", cmd.SessionID))
		return
	}

	switch cmd.Type {
	case CmdHostStartGame:
		s.handleStartGame(in)
	case CmdHostNextClue:
		s.handleHostAdvance(in)
	case CmdBrakePull:
		s.handleBrakePull(in, cmd)
	case CmdBrakeAnswerSubmit:
		s.handleBrakeAnswer(in, cmd)
	case CmdFollowupAnswerSubmit:
		s.handleFollowupAnswer(in, cmd)
	case CmdResumeSession:
		s.handleResume(in, cmd)
	default:
		s.replyError(in, game.Validationf("unknown command type %q", cmd.Type))
	}
}

func (s *Session) handleStartGame(in inbound) {
	if err := s.machine.StartGame(in.origin.Role); err != nil {
		s.replyError(in, err)
		return
	}
	s.logger.Info().
		Str("destination_id", s.machine.State().Destination.ID).
		Msg("game started")
	s.scheduleIntro()
	s.broadcastSnapshots(nil)
}

func (s *Session) handleHostAdvance(in inbound) {
	adv, err := s.machine.HostAdvance(in.origin.Role, s.nowMs(), s.cfg.FollowupWindow.Milliseconds())
	if err != nil {
		s.replyError(in, err)
		return
	}
	if adv.DiscardedBrake {
		s.cancelTimer(timerBrakeWindow)
		s.logger.Info().Msg("host override discarded pending brake")
	}

	st := s.machine.State()
	switch adv.Kind {
	case game.AdvanceClue:
		s.broadcastAll(EventCluePresent, CluePresentPayload{
			ClueText:        adv.Clue.ClueText,
			ClueLevelPoints: adv.Clue.ClueLevelPoints,
			ClueIndex:       adv.Clue.ClueIndex,
			RoundIndex:      adv.Clue.RoundIndex,
		})
		if !st.Audio.IsPlaying {
			s.broadcastAudio(game.CueClueLevel(st))
		}

	case game.AdvanceReveal:
		s.broadcastAll(EventDestinationReveal, DestinationRevealPayload{
			DestinationName: adv.Reveal.DestinationName,
			Country:         adv.Reveal.Country,
			Aliases:         adv.Reveal.Aliases,
		})
		s.broadcastAudio(game.CueReveal(st))
		s.broadcastAll(EventDestinationResults, DestinationResultsPayload{Results: adv.Reveal.Results})
		s.broadcastAll(EventScoreboardUpdate, ScoreboardUpdatePayload{Scoreboard: adv.Reveal.Scoreboard})

	case game.AdvanceFollowup:
		s.presentFollowup(adv.Followup)
		s.broadcastAudio(game.CueFollowupStart(st))

	case game.AdvanceScoreboard:
		s.broadcastAll(EventScoreboardUpdate, ScoreboardUpdatePayload{Scoreboard: adv.Scoreboard})

	case game.AdvanceNextRound:
		s.logger.Info().
			Int("round_index", st.RoundIndex).
			Str("destination_id", st.Destination.ID).
			Msg("next round")
		s.scheduleIntro()

	case game.AdvanceGameEnd:
		s.broadcastAll(EventScoreboardUpdate, ScoreboardUpdatePayload{
			Scoreboard: adv.Scoreboard,
			IsGameOver: true,
		})
		s.logger.Info().Msg("game over")
	}

	s.broadcastSnapshots(nil)
}

func (s *Session) handleBrakePull(in inbound, cmd *Command) {
	payload, err := decodePayload[BrakePullPayload](cmd.Payload)
	if err != nil {
		s.replyError(in, game.Validationf("%v", err))
		return
	}
	playerID := s.issuerPlayerID(in.origin, payload.PlayerID)
	if playerID == "" {
		s.replyError(in, game.Validationf("playerId is required"))
		return
	}

	// Arbitration key is our own receipt order on the loop; the client's
	// clientTimeMs is informational only.
	outcome, gerr := s.machine.PullBrake(playerID, s.nowMs(), s.cfg.BrakeRateLimit.Milliseconds())
	if gerr != nil {
		s.replyError(in, gerr)
		return
	}

	if !outcome.Accepted {
		s.replyEnvelope(in, s.envelope(EventBrakeRejected, BrakeRejectedPayload{
			PlayerID:       outcome.PlayerID,
			Reason:         outcome.Reason,
			WinnerPlayerID: outcome.WinnerPlayerID,
		}))
		return
	}

	s.logger.Info().
		Str("player_id", outcome.PlayerID).
		Int("clue_level", outcome.ClueLevelPoints).
		Msg("brake accepted")

	// One event, two shapes: the winner's copy carries the answer window.
	winnerID := outcome.PlayerID
	accepted := BrakeAcceptedPayload{
		PlayerID:        outcome.PlayerID,
		PlayerName:      outcome.PlayerName,
		ClueLevelPoints: outcome.ClueLevelPoints,
	}
	s.broadcastPerRecipient(EventBrakeAccepted, func(r Recipient) (any, bool) {
		p := accepted
		if r.PlayerID == winnerID {
			p.AnswerTimeoutMs = s.cfg.BrakeAnswerWindow.Milliseconds()
		}
		return p, true
	})
	s.broadcastAudio(game.CueBrakeAccepted(s.machine.State()))
	s.scheduleBrakeWindow()
	s.broadcastSnapshots(nil)
}

func (s *Session) handleBrakeAnswer(in inbound, cmd *Command) {
	payload, err := decodePayload[BrakeAnswerSubmitPayload](cmd.Payload)
	if err != nil {
		s.replyError(in, game.Validationf("%v", err))
		return
	}
	playerID := s.issuerPlayerID(in.origin, payload.PlayerID)

	locked, gerr := s.machine.SubmitBrakeAnswer(playerID, payload.AnswerText, s.nowMs())
	if gerr != nil {
		s.replyError(in, gerr)
		return
	}
	s.cancelTimer(timerBrakeWindow)

	s.logger.Info().
		Str("player_id", locked.PlayerID).
		Int("locked_at_level", locked.LockedAtLevelPoints).
		Bool("correct", locked.IsCorrect).
		Msg("brake answer locked")

	base := BrakeAnswerLockedPayload{
		PlayerID:            locked.PlayerID,
		LockedAtLevelPoints: locked.LockedAtLevelPoints,
	}
	s.broadcastPerRecipient(EventBrakeAnswerLocked, func(r Recipient) (any, bool) {
		p := base
		if r.Role == game.RoleHost {
			text := locked.AnswerText
			remaining := locked.RemainingClues
			p.AnswerText = &text
			p.RemainingClues = &remaining
		}
		return p, true
	})
	s.broadcastAudio(game.CueClueLevel(s.machine.State()))
	s.broadcastSnapshots(nil)
}

func (s *Session) handleFollowupAnswer(in inbound, cmd *Command) {
	payload, err := decodePayload[FollowupAnswerSubmitPayload](cmd.Payload)
	if err != nil {
		s.replyError(in, game.Validationf("%v", err))
		return
	}
	playerID := s.issuerPlayerID(in.origin, payload.PlayerID)

	if gerr := s.machine.SubmitFollowupAnswer(playerID, payload.AnswerText, s.nowMs()); gerr != nil {
		s.replyError(in, gerr)
		return
	}

	// Only host, TV, and the submitting player see a different projection.
	s.broadcastSnapshots(func(r Recipient) bool {
		return r.Role != game.RolePlayer || r.PlayerID == playerID
	})
}

func (s *Session) handleResume(in inbound, cmd *Command) {
	payload, err := decodePayload[ResumeSessionPayload](cmd.Payload)
	if err != nil {
		s.replyError(in, game.Validationf("%v", err))
		return
	}
	if in.origin.PlayerID != "" && payload.PlayerID != "" && payload.PlayerID != in.origin.PlayerID {
		s.replyError(in, game.Validationf("playerId does not match this connection"))
		return
	}

	changed := in.origin.PlayerID != "" && s.machine.SetConnected(in.origin.PlayerID, true)

	// The snapshot is the full current-state source of truth; missed
	// events are not replayed.
	s.replyEnvelope(in, s.snapshotEnvelope(in.origin))
	if changed {
		s.broadcastLobby()
	}
}

// issuerPlayerID resolves which player a command acts for. Player
// connections always act as themselves; host/TV test harnesses may name a
// player explicitly.
func (s *Session) issuerPlayerID(origin Recipient, claimed string) string {
	if origin.Role == game.RolePlayer && origin.PlayerID != "" {
		return origin.PlayerID
	}
	return claimed
}

// ── timers ──────────────────────────────────────────────────────────────

func (s *Session) scheduleIntro() {
	s.schedule(timerIntro, s.cfg.IntroDelay, func() {
		clue, err := s.machine.BeginClueLevel()
		if err != nil {
			return
		}
		s.broadcastAll(EventCluePresent, CluePresentPayload{
			ClueText:        clue.ClueText,
			ClueLevelPoints: clue.ClueLevelPoints,
			ClueIndex:       clue.ClueIndex,
			RoundIndex:      clue.RoundIndex,
		})
		s.broadcastAudio(game.CueClueLevel(s.machine.State()))
		s.broadcastSnapshots(nil)
	})
}

func (s *Session) scheduleBrakeWindow() {
	s.schedule(timerBrakeWindow, s.cfg.BrakeAnswerWindow, func() {
		if !s.machine.ExpireBrakeWindow() {
			return
		}
		s.logger.Info().Msg("brake answer window expired, resuming clue level")
		s.broadcastAudio(game.CueClueLevel(s.machine.State()))
		s.broadcastSnapshots(nil)
	})
}

func (s *Session) scheduleFollowupDeadline() {
	s.schedule(timerFollowup, s.cfg.FollowupWindow, func() {
		locked, err := s.machine.LockFollowup(s.nowMs(), s.cfg.FollowupWindow.Milliseconds())
		if err != nil {
			return
		}
		s.logger.Info().
			Int("question_index", locked.QuestionIndex).
			Int("answered", len(locked.AnswersByPlayer)).
			Msg("follow-up answers locked")

		base := FollowupAnswersLockedPayload{
			QuestionIndex: locked.QuestionIndex,
			AnsweredCount: len(locked.AnswersByPlayer),
		}
		s.broadcastPerRecipient(EventFollowupAnswersLocked, func(r Recipient) (any, bool) {
			p := base
			if r.Role == game.RoleHost {
				p.AnswersByPlayer = locked.AnswersByPlayer
			}
			return p, true
		})
		s.broadcastAll(EventFollowupResults, FollowupResultsPayload{
			QuestionIndex:     locked.QuestionIndex,
			Results:           locked.Results,
			CorrectAnswer:     locked.CorrectAnswer,
			NextQuestionIndex: locked.NextQuestionIndex,
		})

		if locked.Next != nil {
			s.presentFollowup(locked.Next)
		} else {
			s.broadcastAll(EventScoreboardUpdate, ScoreboardUpdatePayload{Scoreboard: locked.Scoreboard})
			s.broadcastAudio(game.CueFollowupSequenceEnd(s.machine.State()))
		}
		s.broadcastSnapshots(nil)
	})
}

// presentFollowup broadcasts FOLLOWUP_QUESTION_PRESENT (role-variant) and
// arms the answer deadline.
func (s *Session) presentFollowup(fp *game.FollowupPresent) {
	base := FollowupQuestionPresentPayload{
		QuestionIndex:   fp.QuestionIndex,
		TotalQuestions:  fp.TotalQuestions,
		QuestionText:    fp.QuestionText,
		QuestionType:    fp.Type,
		Options:         fp.Options,
		DeadlineMs:      fp.DeadlineMs,
		TimerDurationMs: fp.DurationMs,
	}
	correct := fp.CorrectAnswer
	s.broadcastPerRecipient(EventFollowupQuestionPresent, func(r Recipient) (any, bool) {
		p := base
		if r.Role == game.RoleHost || r.Role == game.RoleTV {
			p.CorrectAnswer = &correct
		}
		return p, true
	})
	s.scheduleFollowupDeadline()
}

// schedule arms a one-shot timer bound to the current phase epoch. When it
// fires, the work runs on the session loop and is dropped if any
// transition has bumped the epoch since — that linearizes timer fires
// against host overrides: only one of the two takes effect.
func (s *Session) schedule(kind timerKind, d time.Duration, fire func()) {
	epoch := s.machine.State().PhaseEpoch
	timer := s.clock.NewTimer(d)
	s.replaceTimer(kind, timer)

	go func() {
		select {
		case <-timer.Chan():
			s.removeTimer(kind, timer)
			_ = s.do(func() {
				if s.machine.State().PhaseEpoch != epoch {
					s.logger.Debug().Int("timer_kind", int(kind)).Msg("stale timer discarded")
					return
				}
				fire()
			})
		case <-s.closed:
			stopAndDrain(timer)
		}
	}()
}

// replaceTimer atomically swaps in a new timer for a kind, stopping any
// pending one first.
func (s *Session) replaceTimer(kind timerKind, t clockwork.Timer) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if existing, ok := s.timers[kind]; ok {
		stopAndDrain(existing)
	}
	s.timers[kind] = t
}

func (s *Session) cancelTimer(kind timerKind) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[kind]; ok {
		stopAndDrain(t)
		delete(s.timers, kind)
	}
}

func (s *Session) removeTimer(kind timerKind, t clockwork.Timer) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if existing, ok := s.timers[kind]; ok && existing == t {
		delete(s.timers, kind)
	}
}

// stopAndDrain stops a timer and drains its channel so the goroutine
// waiting on it cannot leak a stale fire.
func stopAndDrain(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

// ── broadcasting ────────────────────────────────────────────────────────

func (s *Session) nowMs() int64 {
	return s.clock.Now().UnixMilli()
}

func (s *Session) envelope(t EventType, payload any) Envelope {
	return Envelope{
		EventID:      uuid.NewString(),
		Type:         t,
		SessionID:    s.id,
		ServerTimeMs: s.nowMs(),
		Payload:      payload,
	}
}

func (s *Session) snapshotEnvelope(r Recipient) Envelope {
	view := game.Project(s.machine.State(), r.Role, r.PlayerID)
	return s.envelope(EventStateSnapshot, StateSnapshotPayload{State: view})
}

// broadcastAll sends the same payload to every connection.
func (s *Session) broadcastAll(t EventType, payload any) {
	s.broadcastPerRecipient(t, func(Recipient) (any, bool) { return payload, true })
}

// broadcastPerRecipient sends one event whose payload may differ per
// recipient. All copies share an event id. The canonical (host-shaped)
// copy is mirrored to the sink.
func (s *Session) broadcastPerRecipient(t EventType, render func(Recipient) (any, bool)) {
	env := s.envelope(t, nil)
	s.broadcaster.Fanout(s.id, func(r Recipient) ([]byte, bool) {
		payload, ok := render(r)
		if !ok {
			return nil, false
		}
		copy := env
		copy.Payload = payload
		data, err := json.Marshal(copy)
		if err != nil {
			s.logger.Error().Err(err).Str("event_type", string(t)).Msg("failed to marshal event")
			return nil, false
		}
		return data, true
	})
	s.mirror(env, render)
}

// broadcastAudio emits directives to host and TV connections only, after
// the domain event of the transition they belong to.
func (s *Session) broadcastAudio(directives []game.Directive) {
	for _, d := range directives {
		t, payload := directiveEvent(d)
		s.broadcastPerRecipient(t, func(r Recipient) (any, bool) {
			if r.Role != game.RoleHost && r.Role != game.RoleTV {
				return nil, false
			}
			return payload, true
		})
	}
}

// broadcastSnapshots sends each matching connection its own fresh
// projection of the just-committed state.
func (s *Session) broadcastSnapshots(filter func(Recipient) bool) {
	s.broadcaster.Fanout(s.id, func(r Recipient) ([]byte, bool) {
		if filter != nil && !filter(r) {
			return nil, false
		}
		data, err := json.Marshal(s.snapshotEnvelope(r))
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to marshal snapshot")
			return nil, false
		}
		return data, true
	})
}

func (s *Session) broadcastLobby() {
	st := s.machine.State()
	players := make([]LobbyPlayer, 0, len(st.Players))
	for _, p := range st.ActivePlayers() {
		players = append(players, LobbyPlayer{
			PlayerID:    p.PlayerID,
			Name:        p.Name,
			IsConnected: p.IsConnected,
		})
	}
	s.broadcastAll(EventLobbyUpdated, LobbyUpdatedPayload{Players: players, JoinCode: s.joinCode})
}

// sendTo delivers an envelope to a single connection via the fanout path.
func (s *Session) sendTo(target Recipient, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal direct event")
		return
	}
	s.broadcaster.Fanout(s.id, func(r Recipient) ([]byte, bool) {
		if r.ConnectionID != target.ConnectionID {
			return nil, false
		}
		return data, true
	})
}

func (s *Session) mirror(env Envelope, render func(Recipient) (any, bool)) {
	if s.sink == nil {
		return
	}
	payload, ok := render(Recipient{Role: game.RoleHost, PlayerID: s.hostID})
	if !ok {
		return
	}
	env.Payload = payload
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := s.sink.Publish(s.id, data); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(env.Type)).Msg("event mirror publish failed")
	}
}

func (s *Session) replyEnvelope(in inbound, env Envelope) {
	if in.reply == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal reply")
		return
	}
	in.reply(data)
}

// replyError reports a rejected command to the issuing connection only.
// State is never mutated on this path.
func (s *Session) replyError(in inbound, err error) {
	var gerr *game.Error
	if !errors.As(err, &gerr) {
		gerr = game.Validationf("%v", err)
	}
	s.logger.Debug().
		Str("code", string(gerr.Code)).
		Str("connection_id", in.origin.ConnectionID).
		Msg(gerr.Message)
	s.replyEnvelope(in, s.envelope(EventError, ErrorPayload{ErrorCode: gerr.Code, Message: gerr.Message}))
}
