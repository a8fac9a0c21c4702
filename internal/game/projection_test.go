package game

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func projectedJSON(t *testing.T, s *State, role Role, playerID string) map[string]any {
	t.Helper()
	data, err := json.Marshal(Project(s, role, playerID))
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal view: %v", err)
	}
	return out
}

func TestProjectHidesDestinationFromPlayersUntilReveal(t *testing.T) {
	m := startedMachine(t, "Ada")
	s := m.State()

	player := Project(s, RolePlayer, "a")
	if player.Destination == nil {
		t.Fatal("player view should carry the destination envelope")
	}
	if player.Destination.Name != nil || player.Destination.Country != nil {
		t.Error("player must not see the destination name before reveal")
	}

	host := Project(s, RoleHost, "host")
	if host.Destination.Name == nil || *host.Destination.Name != "Paris" {
		t.Error("host must see the destination name")
	}
	tv := Project(s, RoleTV, "")
	if tv.Destination.Name == nil {
		t.Error("TV must see the destination name")
	}

	advanceToReveal(t, m)
	player = Project(s, RolePlayer, "a")
	if player.Destination.Name == nil || *player.Destination.Name != "Paris" {
		t.Error("player must see the destination after reveal")
	}
	if !player.Destination.Revealed {
		t.Error("revealed flag not set")
	}
}

func TestProjectRedactsOtherPlayersAnswers(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")
	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitBrakeAnswer("a", "Vienna", 2000); err != nil {
		t.Fatal(err)
	}
	s := m.State()

	own := Project(s, RolePlayer, "a")
	if len(own.LockedAnswers) != 1 || own.LockedAnswers[0].AnswerText == nil {
		t.Fatal("player must see their own answer text")
	}
	if *own.LockedAnswers[0].AnswerText != "Vienna" {
		t.Errorf("answer = %q, want Vienna", *own.LockedAnswers[0].AnswerText)
	}

	other := Project(s, RolePlayer, "b")
	if len(other.LockedAnswers) != 1 {
		t.Fatal("other players still see that an answer exists")
	}
	av := other.LockedAnswers[0]
	if av.AnswerText != nil || av.IsCorrect != nil || av.PointsAwarded != nil {
		t.Error("other players must not see answer text or result")
	}
	if av.LockedAtLevelPoints != 10 {
		t.Errorf("locked level = %d, want 10", av.LockedAtLevelPoints)
	}

	host := Project(s, RoleHost, "host")
	if host.LockedAnswers[0].AnswerText == nil || host.LockedAnswers[0].IsCorrect == nil {
		t.Error("host must see full answer rows")
	}
}

func TestProjectAudioStateKeyAbsentForPlayers(t *testing.T) {
	m := startedMachine(t, "Ada")
	CueClueLevel(m.State())

	playerJSON := projectedJSON(t, m.State(), RolePlayer, "a")
	if _, present := playerJSON["audioState"]; present {
		t.Error("audioState key must be absent from player snapshots, not null")
	}

	hostJSON := projectedJSON(t, m.State(), RoleHost, "host")
	if _, present := hostJSON["audioState"]; !present {
		t.Error("host snapshot must carry audioState")
	}
	tvJSON := projectedJSON(t, m.State(), RoleTV, "")
	if _, present := tvJSON["audioState"]; !present {
		t.Error("TV snapshot must carry audioState")
	}
}

func TestProjectTTSManifestHostOnly(t *testing.T) {
	m := startedMachine(t, "Ada")
	m.SetTTSManifest([]TTSManifestEntry{{ClipID: "clip-1", PhraseID: "intro", URL: "https://cdn/clip-1.mp3"}})
	CueClueLevel(m.State())

	host := Project(m.State(), RoleHost, "host")
	if len(host.Audio.TTSManifest) != 1 {
		t.Error("host must see the TTS manifest")
	}
	tv := Project(m.State(), RoleTV, "")
	if tv.Audio == nil || len(tv.Audio.TTSManifest) != 0 {
		t.Error("TV gets audio state but never the manifest")
	}
}

func TestProjectFollowupViews(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")
	advanceToReveal(t, m)
	if _, err := m.HostAdvance(RoleHost, 10000, testFollowupWindowMs); err != nil {
		t.Fatal(err)
	}
	if err := m.SubmitFollowupAnswer("a", "Seine", 11000); err != nil {
		t.Fatal(err)
	}
	s := m.State()

	answered := Project(s, RolePlayer, "a")
	if answered.Followup == nil || answered.Followup.AnsweredByMe == nil || !*answered.Followup.AnsweredByMe {
		t.Error("answering player should see answeredByMe=true")
	}
	if answered.Followup.CorrectAnswer != nil || answered.Followup.AnswersByPlayer != nil {
		t.Error("players must not see the correct answer or the answer map")
	}

	waiting := Project(s, RolePlayer, "b")
	if waiting.Followup.AnsweredByMe == nil || *waiting.Followup.AnsweredByMe {
		t.Error("non-answering player should see answeredByMe=false")
	}

	host := Project(s, RoleHost, "host")
	if host.Followup.CorrectAnswer == nil || *host.Followup.CorrectAnswer != "Seine" {
		t.Error("host must see the correct answer")
	}
	if host.Followup.AnswersByPlayer["a"] != "Seine" {
		t.Error("host must see live submissions")
	}
	if host.Host == nil || host.Host.AnsweredCount != 1 || host.Host.TotalPlayers != 2 {
		t.Errorf("host panel = %+v, want 1 of 2 answered", host.Host)
	}
}

func TestProjectHostPanelOnlyForHost(t *testing.T) {
	m := startedMachine(t, "Ada")
	for _, role := range []Role{RolePlayer, RoleTV} {
		v := Project(m.State(), role, "a")
		if v.Host != nil {
			t.Errorf("role %s must not receive the host panel", role)
		}
	}
	host := Project(m.State(), RoleHost, "host")
	if host.Host == nil || !host.Host.RemainingClues {
		t.Error("host panel should report remaining clues at the 10-point level")
	}
}

func TestProjectExcludesNonPlayersFromRoster(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")
	v := Project(m.State(), RoleHost, "host")
	if len(v.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(v.Players))
	}
	for _, p := range v.Players {
		if p.PlayerID == "host" {
			t.Error("host must not appear in the player roster")
		}
	}
}

func TestProjectDeterministic(t *testing.T) {
	m := startedMachine(t, "Ada", "Ben")
	if _, err := m.PullBrake("a", 1000, testRateLimitMs); err != nil {
		t.Fatal(err)
	}
	s := m.State()

	first := Project(s, RolePlayer, "b")
	second := Project(s, RolePlayer, "b")
	if !reflect.DeepEqual(first, second) {
		t.Error("projection must be deterministic for identical input")
	}
	if first.BrakeOwnerID == nil || *first.BrakeOwnerID != "a" {
		t.Error("brake owner missing from view")
	}
}

func TestProjectClueFieldsNullOutsideClueLevel(t *testing.T) {
	m := newTestMachine(t, "Ada")
	data, err := json.Marshal(Project(m.State(), RolePlayer, "a"))
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"clueLevelPoints":null`, `"clueText":null`, `"brakeOwnerPlayerId":null`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("lobby snapshot missing %s", key)
		}
	}
}
