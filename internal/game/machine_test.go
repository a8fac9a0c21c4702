package game

import (
	"testing"

	"railquiz/internal/content"
)

const testRateLimitMs = 2000
const testFollowupWindowMs = 15000

func newTestMachine(t *testing.T, playerNames ...string) *Machine {
	t.Helper()
	st := NewState("sess-1", "ABC123")
	st.Players = append(st.Players, &Player{PlayerID: "host", Name: "Host", Role: RoleHost})
	m := NewMachine(st, content.Builtin())
	for i, name := range playerNames {
		id := string(rune('a' + i))
		if _, err := m.AddPlayer(id, name, RolePlayer, 0); err != nil {
			t.Fatalf("AddPlayer(%s): %v", name, err)
		}
	}
	return m
}

// startedMachine runs LOBBY through to the first 10-point clue.
func startedMachine(t *testing.T, playerNames ...string) *Machine {
	t.Helper()
	m := newTestMachine(t, playerNames...)
	if err := m.StartGame(RoleHost); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if _, err := m.BeginClueLevel(); err != nil {
		t.Fatalf("BeginClueLevel: %v", err)
	}
	return m
}

func TestAddPlayerOnlyInLobby(t *testing.T) {
	m := startedMachine(t, "Ada")
	if _, err := m.AddPlayer("late", "Late", RolePlayer, 0); err == nil {
		t.Fatal("expected join after start to fail")
	}
}

func TestAddPlayerValidation(t *testing.T) {
	m := newTestMachine(t, "Ada")
	if _, err := m.AddPlayer("x", "   ", RolePlayer, 0); err == nil {
		t.Error("expected empty name to be rejected")
	}
	if _, err := m.AddPlayer("a", "Dup", RolePlayer, 0); err == nil {
		t.Error("expected duplicate player id to be rejected")
	}
}

func TestStartGameHostOnly(t *testing.T) {
	m := newTestMachine(t, "Ada")
	if err := m.StartGame(RolePlayer); err == nil {
		t.Fatal("expected player start to be rejected")
	}
	if err := m.StartGame(RoleTV); err == nil {
		t.Fatal("expected TV start to be rejected")
	}
	if err := m.StartGame(RoleHost); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if m.State().Phase != PhaseRoundIntro {
		t.Fatalf("phase = %s, want %s", m.State().Phase, PhaseRoundIntro)
	}
	if err := m.StartGame(RoleHost); err == nil {
		t.Fatal("expected second start to be rejected")
	}
}

func TestBeginClueLevelPresentsTopLevel(t *testing.T) {
	m := newTestMachine(t, "Ada")
	if _, err := m.BeginClueLevel(); err == nil {
		t.Fatal("expected BeginClueLevel in lobby to fail")
	}
	if err := m.StartGame(RoleHost); err != nil {
		t.Fatal(err)
	}
	clue, err := m.BeginClueLevel()
	if err != nil {
		t.Fatalf("BeginClueLevel: %v", err)
	}
	if clue.ClueLevelPoints != 10 || clue.ClueIndex != 0 {
		t.Errorf("clue = %+v, want 10 points at index 0", clue)
	}
	if m.State().Phase != PhaseClueLevel {
		t.Errorf("phase = %s, want %s", m.State().Phase, PhaseClueLevel)
	}
}

func TestPullBrakeFirstWins(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")

	first, err := m.PullBrake("a", 1000, testRateLimitMs)
	if err != nil {
		t.Fatalf("PullBrake(a): %v", err)
	}
	if !first.Accepted {
		t.Fatalf("first pull rejected: %+v", first)
	}
	if m.State().Phase != PhasePausedForBrake {
		t.Fatalf("phase = %s, want %s", m.State().Phase, PhasePausedForBrake)
	}

	second, err := m.PullBrake("b", 1001, testRateLimitMs)
	if err != nil {
		t.Fatalf("PullBrake(b): %v", err)
	}
	if second.Accepted {
		t.Fatal("second pull should lose")
	}
	if second.Reason != RejectAlreadyPaused {
		t.Errorf("reason = %s, want %s", second.Reason, RejectAlreadyPaused)
	}
	if second.WinnerPlayerID != "a" {
		t.Errorf("winner = %s, want a", second.WinnerPlayerID)
	}
}

func TestPullBrakeConsumedLevel(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")

	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitBrakeAnswer("a", "Oslo", 2000); err != nil {
		t.Fatal(err)
	}
	// Back in CLUE_LEVEL at the same 10-point level: consumed.
	out, err := m.PullBrake("b", 5000, testRateLimitMs)
	if err != nil {
		t.Fatal(err)
	}
	if out.Accepted || out.Reason != RejectTooLate {
		t.Fatalf("outcome = %+v, want too_late", out)
	}
	if out.WinnerPlayerID != "a" {
		t.Errorf("winner = %s, want a", out.WinnerPlayerID)
	}
}

func TestPullBrakeRateLimited(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")

	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitBrakeAnswer("a", "Oslo", 1500); err != nil {
		t.Fatal(err)
	}
	// Host advances to the 8-point level so the level itself is free.
	if _, err := m.HostAdvance(RoleHost, 2000, testFollowupWindowMs); err != nil {
		t.Fatal(err)
	}

	out, err := m.PullBrake("a", 2500, testRateLimitMs)
	if err != nil {
		t.Fatal(err)
	}
	if out.Accepted || out.Reason != RejectRateLimited {
		t.Fatalf("outcome = %+v, want rate_limited", out)
	}
	// A rejected pull must not refresh the rate-limit window.
	out, err = m.PullBrake("a", 3100, testRateLimitMs)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Accepted {
		t.Fatalf("pull after window should win, got %+v", out)
	}
}

func TestPullBrakeRequiresPlayerRole(t *testing.T) {
	m := startedMachine(t, "Ada")
	if _, err := m.PullBrake("host", 1000, testRateLimitMs); err == nil {
		t.Error("expected host pull to be rejected")
	}
	if _, err := m.PullBrake("ghost", 1000, testRateLimitMs); err == nil {
		t.Error("expected unknown player pull to be rejected")
	}
}

func TestFivePullsOneWinner(t *testing.T) {
	m := startedMachine(t, "P1", "P2", "P3", "P4", "P5")

	accepted := 0
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		out, err := m.PullBrake(id, int64(1000+i), testRateLimitMs)
		if err != nil {
			t.Fatalf("PullBrake(%s): %v", id, err)
		}
		if out.Accepted {
			accepted++
			if id != "a" {
				t.Errorf("winner = %s, want a (receipt order)", id)
			}
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted = %d, want exactly 1", accepted)
	}
}

func TestSubmitBrakeAnswerScoresAtLockedLevel(t *testing.T) {
	m := startedMachine(t, "Ada")

	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	locked, err := m.SubmitBrakeAnswer("a", "  paris! ", 2000)
	if err != nil {
		t.Fatalf("SubmitBrakeAnswer: %v", err)
	}
	if !locked.IsCorrect || locked.PointsAwarded != 10 {
		t.Errorf("locked = %+v, want correct at 10 points", locked)
	}
	if !locked.RemainingClues {
		t.Error("expected remaining clues below the 10-point level")
	}
	if got := m.State().PlayerByID("a").Score; got != 10 {
		t.Errorf("score = %d, want 10", got)
	}
	if m.State().Phase != PhaseClueLevel {
		t.Errorf("phase = %s, want %s", m.State().Phase, PhaseClueLevel)
	}
	if m.State().Brake != nil {
		t.Error("brake lock should be closed")
	}
}

func TestSubmitBrakeAnswerGuards(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")

	if _, err := m.SubmitBrakeAnswer("a", "Paris", 1000); err == nil {
		t.Error("expected submit without a pause to fail")
	}
	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitBrakeAnswer("b", "Paris", 1100); err == nil {
		t.Error("expected non-winner submit to fail")
	}
	if _, err := m.SubmitBrakeAnswer("a", "   ", 1100); err == nil {
		t.Error("expected empty answer to fail")
	}
}

func TestOneLockedAnswerPerDestination(t *testing.T) {
	m := startedMachine(t, "Ada")

	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitBrakeAnswer("a", "Oslo", 2000); err != nil {
		t.Fatal(err)
	}
	if _, err := m.HostAdvance(RoleHost, 4000, testFollowupWindowMs); err != nil {
		t.Fatal(err)
	}
	out, err := m.PullBrake("a", 9000, testRateLimitMs)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Accepted {
		t.Fatalf("second pull should win the 8-point level, got %+v", out)
	}
	if _, err := m.SubmitBrakeAnswer("a", "Paris", 9100); err == nil {
		t.Fatal("expected second locked answer for the same destination to fail")
	}
}

func TestExpireBrakeWindowKeepsLevelConsumed(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")

	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	if !m.ExpireBrakeWindow() {
		t.Fatal("expected expiry to apply")
	}
	if m.State().Phase != PhaseClueLevel {
		t.Fatalf("phase = %s, want %s", m.State().Phase, PhaseClueLevel)
	}
	if m.State().HasLockedAnswer("a") {
		t.Error("expired window must not lock an answer")
	}
	out, err := m.PullBrake("b", 25000, testRateLimitMs)
	if err != nil {
		t.Fatal(err)
	}
	if out.Accepted || out.Reason != RejectTooLate {
		t.Fatalf("level should stay consumed after expiry, got %+v", out)
	}
	if m.ExpireBrakeWindow() {
		t.Error("second expiry should be a no-op")
	}
}

func TestHostAdvanceWalksClueLevels(t *testing.T) {
	m := startedMachine(t, "Ada")

	want := []int{8, 6, 4, 2}
	for _, points := range want {
		adv, err := m.HostAdvance(RoleHost, 1000, testFollowupWindowMs)
		if err != nil {
			t.Fatalf("HostAdvance: %v", err)
		}
		if adv.Kind != AdvanceClue {
			t.Fatalf("kind = %v, want AdvanceClue", adv.Kind)
		}
		if adv.Clue.ClueLevelPoints != points {
			t.Errorf("points = %d, want %d", adv.Clue.ClueLevelPoints, points)
		}
	}

	adv, err := m.HostAdvance(RoleHost, 1000, testFollowupWindowMs)
	if err != nil {
		t.Fatalf("HostAdvance past 2 points: %v", err)
	}
	if adv.Kind != AdvanceReveal {
		t.Fatalf("kind = %v, want AdvanceReveal", adv.Kind)
	}
	if adv.Reveal.DestinationName != "Paris" {
		t.Errorf("revealed %q, want Paris", adv.Reveal.DestinationName)
	}
	if !m.State().Revealed {
		t.Error("state not marked revealed")
	}
}

func TestHostAdvanceRequiresHost(t *testing.T) {
	m := startedMachine(t, "Ada")
	if _, err := m.HostAdvance(RolePlayer, 1000, testFollowupWindowMs); err == nil {
		t.Error("expected player advance to be rejected")
	}
	if _, err := m.HostAdvance(RoleTV, 1000, testFollowupWindowMs); err == nil {
		t.Error("expected TV advance to be rejected")
	}
}

func TestHostAdvanceDiscardsPendingBrake(t *testing.T) {
	m := startedMachine(t, "Ada")

	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	adv, err := m.HostAdvance(RoleHost, 2000, testFollowupWindowMs)
	if err != nil {
		t.Fatalf("HostAdvance: %v", err)
	}
	if !adv.DiscardedBrake {
		t.Error("expected DiscardedBrake")
	}
	if adv.Kind != AdvanceClue || adv.Clue.ClueLevelPoints != 8 {
		t.Fatalf("adv = %+v, want resume at 8 points", adv)
	}
	if !adv.Clue.Resumed {
		t.Error("expected resumed clue")
	}
	if m.State().HasLockedAnswer("a") {
		t.Error("discarded brake must not lock an answer")
	}
}

func TestRevealToFollowupSequence(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")
	advanceToReveal(t, m)

	adv, err := m.HostAdvance(RoleHost, 10000, testFollowupWindowMs)
	if err != nil {
		t.Fatalf("advance from reveal: %v", err)
	}
	if adv.Kind != AdvanceFollowup {
		t.Fatalf("kind = %v, want AdvanceFollowup", adv.Kind)
	}
	fp := adv.Followup
	if fp.QuestionIndex != 0 || fp.TotalQuestions != 2 {
		t.Errorf("followup = %+v, want question 0 of 2", fp)
	}
	if fp.DeadlineMs != 10000+testFollowupWindowMs {
		t.Errorf("deadline = %d, want %d", fp.DeadlineMs, 10000+testFollowupWindowMs)
	}
	if m.State().Phase != PhaseFollowup {
		t.Errorf("phase = %s, want %s", m.State().Phase, PhaseFollowup)
	}
}

func TestFollowupAnswerAndLock(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")
	advanceToReveal(t, m)
	if _, err := m.HostAdvance(RoleHost, 10000, testFollowupWindowMs); err != nil {
		t.Fatal(err)
	}

	// Ada answers correctly; Ben changes his mind and stays wrong.
	if err := m.SubmitFollowupAnswer("a", "Seine", 11000); err != nil {
		t.Fatal(err)
	}
	if err := m.SubmitFollowupAnswer("b", "Seine", 11500); err != nil {
		t.Fatal(err)
	}
	if err := m.SubmitFollowupAnswer("b", "Loire", 12000); err != nil {
		t.Fatal(err)
	}
	if err := m.SubmitFollowupAnswer("a", "Seine", 99999); err == nil {
		t.Error("expected submit past deadline to fail")
	}

	locked, err := m.LockFollowup(25000, testFollowupWindowMs)
	if err != nil {
		t.Fatalf("LockFollowup: %v", err)
	}
	if locked.AnswersByPlayer["b"] != "Loire" {
		t.Errorf("last write should win, got %q", locked.AnswersByPlayer["b"])
	}
	if got := m.State().PlayerByID("a").Score; got != 2 {
		t.Errorf("Ada score = %d, want 2", got)
	}
	if got := m.State().PlayerByID("b").Score; got != 0 {
		t.Errorf("Ben score = %d, want 0", got)
	}
	if locked.Next == nil || locked.Next.QuestionIndex != 1 {
		t.Fatalf("expected next question, got %+v", locked.Next)
	}
	if locked.NextQuestionIndex == nil || *locked.NextQuestionIndex != 1 {
		t.Error("expected NextQuestionIndex = 1")
	}

	// Second question closes the sequence.
	locked, err = m.LockFollowup(50000, testFollowupWindowMs)
	if err != nil {
		t.Fatal(err)
	}
	if !locked.SequenceComplete || locked.Next != nil {
		t.Fatalf("expected sequence complete, got %+v", locked)
	}
	if m.State().Phase != PhaseScoreboard {
		t.Errorf("phase = %s, want %s", m.State().Phase, PhaseScoreboard)
	}
	if m.State().Followup != nil {
		t.Error("followup state should be cleared")
	}
}

func TestFollowupAnswerGuards(t *testing.T) {
	m := startedMachine(t, "Ada")
	if err := m.SubmitFollowupAnswer("a", "Seine", 1000); err == nil {
		t.Error("expected submit outside followup phase to fail")
	}
	advanceToReveal(t, m)
	if _, err := m.HostAdvance(RoleHost, 10000, testFollowupWindowMs); err != nil {
		t.Fatal(err)
	}
	if err := m.SubmitFollowupAnswer("host", "Seine", 11000); err == nil {
		t.Error("expected host submit to be rejected")
	}
	if err := m.SubmitFollowupAnswer("a", "  ", 11000); err == nil {
		t.Error("expected empty answer to be rejected")
	}
}

func TestScoreboardToNextRoundAndGameEnd(t *testing.T) {
	m := startedMachine(t, "Ada")
	dests := content.Builtin()

	for round := 0; round < len(dests); round++ {
		if round > 0 {
			if _, err := m.BeginClueLevel(); err != nil {
				t.Fatalf("round %d BeginClueLevel: %v", round, err)
			}
		}
		advanceToReveal(t, m)
		// Walk every follow-up question of this destination.
		if _, err := m.HostAdvance(RoleHost, 1000, testFollowupWindowMs); err != nil {
			t.Fatalf("round %d into followups: %v", round, err)
		}
		for m.State().Phase == PhaseFollowup {
			if _, err := m.LockFollowup(99000, testFollowupWindowMs); err != nil {
				t.Fatalf("round %d LockFollowup: %v", round, err)
			}
		}
		if m.State().Phase != PhaseScoreboard {
			t.Fatalf("round %d phase = %s, want %s", round, m.State().Phase, PhaseScoreboard)
		}

		adv, err := m.HostAdvance(RoleHost, 1000, testFollowupWindowMs)
		if err != nil {
			t.Fatalf("round %d advance from scoreboard: %v", round, err)
		}
		if round < len(dests)-1 {
			if adv.Kind != AdvanceNextRound {
				t.Fatalf("round %d kind = %v, want AdvanceNextRound", round, adv.Kind)
			}
			if m.State().RoundIndex != round+1 {
				t.Errorf("round index = %d, want %d", m.State().RoundIndex, round+1)
			}
			if len(m.State().LockedAnswers) != 0 || len(m.State().BrakeWinners) != 0 {
				t.Error("round state not reset")
			}
		} else {
			if adv.Kind != AdvanceGameEnd {
				t.Fatalf("final kind = %v, want AdvanceGameEnd", adv.Kind)
			}
			if m.State().Phase != PhaseGameEnd {
				t.Errorf("phase = %s, want %s", m.State().Phase, PhaseGameEnd)
			}
		}
	}
}

func TestParisScenario(t *testing.T) {
	// Ada brakes at 10 and misses; Ben brakes at 6 and names Paris.
	m := startedMachine(t, "Ada", "Ben")

	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	locked, err := m.SubmitBrakeAnswer("a", "Vienna", 2000)
	if err != nil {
		t.Fatal(err)
	}
	if locked.IsCorrect {
		t.Fatal("Vienna should be wrong")
	}

	if _, err := m.HostAdvance(RoleHost, 5000, testFollowupWindowMs); err != nil { // 8
		t.Fatal(err)
	}
	if _, err := m.HostAdvance(RoleHost, 6000, testFollowupWindowMs); err != nil { // 6
		t.Fatal(err)
	}
	out, err := m.PullBrake("b", 7000, testRateLimitMs)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Accepted || out.ClueLevelPoints != 6 {
		t.Fatalf("outcome = %+v, want accepted at 6", out)
	}
	locked, err = m.SubmitBrakeAnswer("b", "paree", 8000)
	if err != nil {
		t.Fatal(err)
	}
	if !locked.IsCorrect || locked.PointsAwarded != 6 {
		t.Fatalf("locked = %+v, want correct alias at 6 points", locked)
	}

	board := m.State().Scoreboard()
	if board[0].PlayerID != "b" || board[0].Score != 6 || board[0].Rank != 1 {
		t.Errorf("leader = %+v, want Ben at 6", board[0])
	}
	if board[1].PlayerID != "a" || board[1].Score != 0 || board[1].Rank != 2 {
		t.Errorf("second = %+v, want Ada at 0", board[1])
	}
}

func TestScoreboardTiesShareRank(t *testing.T) {
	m := newTestMachine(t, "Ada", "Ben", "Cleo")
	m.State().PlayerByID("a").Score = 6
	m.State().PlayerByID("b").Score = 6
	m.State().PlayerByID("c").Score = 2

	board := m.State().Scoreboard()
	if board[0].Rank != 1 || board[1].Rank != 1 || board[2].Rank != 3 {
		t.Errorf("ranks = %d,%d,%d, want 1,1,3", board[0].Rank, board[1].Rank, board[2].Rank)
	}
	// Stable sort keeps join order within the tie.
	if board[0].PlayerID != "a" || board[1].PlayerID != "b" {
		t.Errorf("tie order = %s,%s, want a,b", board[0].PlayerID, board[1].PlayerID)
	}
}

func TestPhaseEpochBumpsOnTransitionsOnly(t *testing.T) {
	m := startedMachine(t, "Ada")
	epoch := m.State().PhaseEpoch

	// Connectivity flips bump the version but not the epoch.
	m.SetConnected("a", true)
	if m.State().PhaseEpoch != epoch {
		t.Error("connectivity change must not bump the phase epoch")
	}

	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	if m.State().PhaseEpoch != epoch+1 {
		t.Error("brake pause should bump the phase epoch")
	}
}

// advanceToReveal walks the current clue levels down to the reveal.
func advanceToReveal(t *testing.T, m *Machine) {
	t.Helper()
	for m.State().Phase == PhaseClueLevel {
		if _, err := m.HostAdvance(RoleHost, 1000, testFollowupWindowMs); err != nil {
			t.Fatalf("advanceToReveal: %v", err)
		}
	}
	if m.State().Phase != PhaseReveal {
		t.Fatalf("phase = %s, want %s", m.State().Phase, PhaseReveal)
	}
}
