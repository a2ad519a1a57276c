package store

import (
	"testing"
	"time"

	"github.com/pbxops/acdboard/internal/types"
)

func seeded() *Store {
	s := New()
	s.Replace(&Snapshot{
		Agents: []types.AgentInfo{
			{ID: 7, UUID: "agent-uuid-7", Number: "1007", Extension: "1007", Name: "Ada Agent", Logged: true},
			{ID: 9, Number: "1009", Extension: "1009", Name: "Bo Backup"},
		},
		Users: []types.UserInfo{
			{UUID: "user-a", Name: "Ada Agent", Extension: "1007"},
			{UUID: "user-c", Name: "Cleo Clerk", Extension: "1011"},
		},
		Queues: []types.QueueMeta{
			{ID: 3, Label: "Support"},
			{ID: 5, Label: "Sales"},
			{Label: "Outside call center"},
		},
		Rosters: map[string][]types.RosterRow{
			"Support": {
				{AgentID: 7, UserUUID: "user-a", Name: "Ada Agent", Extension: "1007", Logged: true, QueueID: 3, QueueLabel: "Support"},
				{AgentID: 9, Name: "Bo Backup", Extension: "1009", QueueID: 3, QueueLabel: "Support"},
			},
			"Sales": {
				{AgentID: 7, UserUUID: "user-a", Name: "Ada Agent", Extension: "1007", Logged: true, QueueID: 5, QueueLabel: "Sales"},
			},
			"Outside call center": {
				{UserUUID: "user-c", Name: "Cleo Clerk", Extension: "1011", QueueLabel: "Outside call center"},
			},
		},
	})
	return s
}

func TestSetAgentLoggedPatchesEveryRow(t *testing.T) {
	s := seeded()

	prevLogged, prevPaused, rows, ok := s.SetAgentLogged(7, false)
	if !ok {
		t.Fatal("agent 7 should exist")
	}
	if !prevLogged || prevPaused {
		t.Errorf("previous state = (%v, %v), want (true, false)", prevLogged, prevPaused)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 patched rows (Support and Sales), got %d", len(rows))
	}
	for _, r := range rows {
		if r.Logged {
			t.Errorf("row in %s still logged after logout", r.QueueLabel)
		}
	}
}

func TestLogoutClearsPause(t *testing.T) {
	s := seeded()
	s.SetAgentPaused(7, true)

	_, prevPaused, _, _ := s.SetAgentLogged(7, false)
	if !prevPaused {
		t.Error("previous paused should have been true")
	}
	a, _ := s.Agent(7)
	if a.Logged || a.Paused {
		t.Errorf("after logout agent = logged %v paused %v, want both false", a.Logged, a.Paused)
	}
}

func TestApplyPauseEventRequiresLogin(t *testing.T) {
	s := seeded()

	if _, applied := s.ApplyPauseEvent(9, true); applied {
		t.Error("pause event on a logged-out agent must be dropped")
	}
	if rows, applied := s.ApplyPauseEvent(7, true); !applied || len(rows) != 2 {
		t.Errorf("pause event on logged agent: applied=%v rows=%d, want true/2", applied, len(rows))
	}
	// Repeating the same state is a no-op.
	if _, applied := s.ApplyPauseEvent(7, true); applied {
		t.Error("duplicate pause event must not re-apply")
	}
}

func TestRestoreAgentRollsBackExactly(t *testing.T) {
	s := seeded()
	s.SetAgentPaused(7, true)
	prevLogged, prevPaused, _, _ := s.SetAgentLogged(7, false)

	rows := s.RestoreAgent(7, prevLogged, prevPaused)
	if len(rows) != 2 {
		t.Fatalf("expected 2 restored rows, got %d", len(rows))
	}
	a, _ := s.Agent(7)
	if !a.Logged || !a.Paused {
		t.Errorf("restored agent = logged %v paused %v, want both true", a.Logged, a.Paused)
	}
}

func TestLoginTargetSurvivesReload(t *testing.T) {
	s := seeded()
	s.SetLoginTarget(7, "1007", "default")

	s.Replace(&Snapshot{
		Agents: []types.AgentInfo{{ID: 7, Number: "1007", Extension: "1007", Name: "Ada Agent"}},
	})

	ext, dialCtx, ok := s.LoginTarget(7)
	if !ok || ext != "1007" || dialCtx != "default" {
		t.Errorf("login target after reload = (%q, %q, %v), want (1007, default, true)", ext, dialCtx, ok)
	}
}

func TestAgentByNumberFallsBackToExtension(t *testing.T) {
	s := New()
	s.Replace(&Snapshot{
		Agents: []types.AgentInfo{{ID: 4, Number: "", Extension: "2204", Name: "Ext Only"}},
	})
	if a, ok := s.AgentByNumber("2204"); !ok || a.ID != 4 {
		t.Errorf("lookup by extension = (%+v, %v), want agent 4", a, ok)
	}
	if _, ok := s.AgentByNumber("9999"); ok {
		t.Error("unknown number must not resolve")
	}
}

func TestReplaceCallsDiff(t *testing.T) {
	s := New()
	start := time.Now()
	s.ReplaceCalls(map[string]types.CallInfo{
		"user-a": {Number: "0600", Direction: "inbound", StartedAt: start},
		"user-b": {Number: "0611", Direction: "outbound", StartedAt: start},
	})

	started, ended, changed := s.ReplaceCalls(map[string]types.CallInfo{
		"user-a": {Number: "0600", Direction: "inbound", StartedAt: start},
		"user-c": {Number: "0622", Direction: "inbound", StartedAt: start},
	})
	if len(started) != 1 || started["user-c"].Number != "0622" {
		t.Errorf("started = %v, want only user-c", started)
	}
	if len(ended) != 1 || ended["user-b"].Number != "0611" {
		t.Errorf("ended = %v, want only user-b", ended)
	}
	if len(changed) != 2 {
		t.Errorf("changed = %v, want 2 entries", changed)
	}
}

func TestSetDNDReturnsPrevious(t *testing.T) {
	s := New()
	if prev := s.SetDND("user-a", types.DNDSetting{Enabled: true}); prev.Enabled {
		t.Error("first write should report zero-value previous")
	}
	if prev := s.SetDND("user-a", types.DNDSetting{}); !prev.Enabled {
		t.Error("second write should report enabled previous")
	}
}

func TestCountsAndSnapshot(t *testing.T) {
	s := seeded()
	counts := s.Counts()
	support := counts["Support"]
	if support.Total != 2 || support.Logged != 1 || support.Offline != 1 {
		t.Errorf("Support counts = %+v", support)
	}

	msg := s.SnapshotMessage()
	if msg.Type != types.MessageSnapshot {
		t.Errorf("snapshot type = %q", msg.Type)
	}
	if len(msg.Queues) != 3 || len(msg.Rosters) != 3 {
		t.Errorf("snapshot has %d queues, %d rosters, want 3/3", len(msg.Queues), len(msg.Rosters))
	}

	// Snapshot rows are copies, mutating them must not leak into the store.
	msg.Rosters["Support"][0].Logged = false
	if rows := s.RowsFor(types.Key{AgentID: 7}); !rows[0].Logged {
		t.Error("snapshot mutation leaked into store")
	}
}

func TestRowsForMatchesEitherIdentity(t *testing.T) {
	s := seeded()
	if rows := s.RowsFor(types.Key{UserUUID: "user-a"}); len(rows) != 2 {
		t.Errorf("by user uuid: %d rows, want 2", len(rows))
	}
	if rows := s.RowsFor(types.Key{UserUUID: "user-c"}); len(rows) != 1 {
		t.Errorf("outside-only user: %d rows, want 1", len(rows))
	}
}
