package roster

import (
	"testing"

	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/types"
)

func directory() ([]platform.User, []platform.Agent) {
	users := []platform.User{
		{
			UUID: "user-ada", ID: 11, Firstname: "Ada", Lastname: "Lovelace",
			Lines: []platform.UserLine{{Extensions: []platform.UserExtension{{Exten: "1001", Context: "default"}}}},
		},
		{
			UUID: "user-bo", ID: 12, Firstname: "Bo", Lastname: "Burnham",
			Lines: []platform.UserLine{{Extensions: []platform.UserExtension{{Exten: "1002", Context: "default"}}}},
		},
		{
			UUID: "user-cleo", ID: 13, Firstname: "Cleo", Lastname: "Clerk",
			Lines: []platform.UserLine{{Extensions: []platform.UserExtension{{Exten: "1003", Context: "default"}}}},
		},
		{UUID: "user-noline", ID: 14, Firstname: "No", Lastname: "Line"},
	}
	agents := []platform.Agent{
		{ID: 21, UUID: "agent-ada", Number: "1001", Extension: "1001", Logged: true},
		{ID: 22, UUID: "agent-bo", Number: "1002", Extension: "1002", Logged: true, Paused: true},
	}
	return users, agents
}

func TestResolveUserMemberBindsAgentByExtension(t *testing.T) {
	users, agents := directory()
	ix := NewIndexes(users, agents)

	row := ix.ResolveUserMember(platform.QueueMember{UUID: "user-ada"})
	if row.Name != "Ada Lovelace" {
		t.Errorf("name = %q", row.Name)
	}
	if row.AgentID != 21 || !row.Logged {
		t.Errorf("agent binding = id %d logged %v, want 21/true", row.AgentID, row.Logged)
	}
}

func TestResolveUserMemberByNumericID(t *testing.T) {
	users, agents := directory()
	ix := NewIndexes(users, agents)

	row := ix.ResolveUserMember(platform.QueueMember{ID: 13})
	if row.UserUUID != "user-cleo" || row.AgentID != 0 {
		t.Errorf("row = %+v, want cleo with no agent", row)
	}
}

func TestResolveAgentMemberPrefersUserName(t *testing.T) {
	users, agents := directory()
	ix := NewIndexes(users, agents)

	row := ix.ResolveAgentMember(platform.QueueMember{AgentID: 22})
	if row.Name != "Bo Burnham" {
		t.Errorf("name = %q, want the directory user's name", row.Name)
	}
	if row.UserUUID != "user-bo" || !row.Paused {
		t.Errorf("row = %+v", row)
	}
}

func TestResolveBareNumberFallback(t *testing.T) {
	users, agents := directory()
	ix := NewIndexes(users, agents)

	row := ix.ResolveUserMember(platform.QueueMember{Number: "1001"})
	if row.AgentID != 21 || row.UserUUID != "user-ada" {
		t.Errorf("bare number should upgrade to full identity, got %+v", row)
	}

	row = ix.ResolveAgentMember(platform.QueueMember{Number: "5555"})
	if row.Name != "Unknown" || row.Extension != "5555" {
		t.Errorf("unresolvable reference = %+v, want Unknown/5555", row)
	}
}

func TestBuildGroupsAndDeduplicates(t *testing.T) {
	users, agents := directory()
	q := platform.Queue{ID: 3, Name: "support", DisplayName: "Support"}
	// Same person referenced from both membership lists.
	q.Members.Users = []platform.QueueMember{{UUID: "user-ada"}}
	q.Members.Agents = []platform.QueueMember{{AgentID: 21}, {AgentID: 22}}

	res := Build([]platform.Queue{q}, users, agents, Config{OutsideLabel: "Outside call center"})

	rows := res.Rosters["Support"]
	if len(rows) != 2 {
		t.Fatalf("Support has %d rows, want 2 after dedupe: %+v", len(rows), rows)
	}
	for _, r := range rows {
		if r.QueueID != 3 || r.QueueLabel != "Support" {
			t.Errorf("row not stamped with queue identity: %+v", r)
		}
	}
}

func TestBuildOutsideRoster(t *testing.T) {
	users, agents := directory()
	res := Build(nil, users, agents, Config{OutsideLabel: "Outside call center"})

	rows := res.Rosters["Outside call center"]
	if len(rows) != 3 {
		t.Fatalf("outside roster has %d rows, want 3 (users with extensions)", len(rows))
	}
	for _, r := range rows {
		if r.QueueID != 0 {
			t.Errorf("outside row carries queue id %d", r.QueueID)
		}
	}
	// Ada is agent-bound, her live state must show through.
	for _, r := range rows {
		if r.UserUUID == "user-ada" && (!r.Logged || r.AgentID != 21) {
			t.Errorf("outside row lost agent binding: %+v", r)
		}
	}
}

func TestQueueOrderingWithPriorityPattern(t *testing.T) {
	qs := []platform.Queue{
		{ID: 1, DisplayName: "Billing"},
		{ID: 2, DisplayName: "VIP Support"},
		{ID: 3, DisplayName: "After Hours"},
	}
	res := Build(qs, nil, nil, Config{OutsideLabel: "Outside", PriorityPattern: "vip"})

	want := []string{"VIP Support", "After Hours", "Billing", "Outside"}
	if len(res.Queues) != len(want) {
		t.Fatalf("got %d queues, want %d", len(res.Queues), len(want))
	}
	for i, q := range res.Queues {
		if q.Label != want[i] {
			t.Errorf("queue[%d] = %q, want %q", i, q.Label, want[i])
		}
	}
}

func TestRowOrderingNumericExtensions(t *testing.T) {
	rows := []types.RosterRow{
		{Name: "Same Name", Extension: "100"},
		{Name: "Same Name", Extension: "99"},
		{Name: "Another", Extension: "500"},
	}
	sortRows(rows)
	if rows[0].Name != "Another" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Extension != "99" || rows[2].Extension != "100" {
		t.Errorf("extension tiebreak not numeric: %q before %q", rows[1].Extension, rows[2].Extension)
	}
}

func TestDuplicateExtensionFirstMatchWins(t *testing.T) {
	users := []platform.User{
		{UUID: "first", Firstname: "First", Lines: []platform.UserLine{{Extensions: []platform.UserExtension{{Exten: "2000"}}}}},
		{UUID: "second", Firstname: "Second", Lines: []platform.UserLine{{Extensions: []platform.UserExtension{{Exten: "2000"}}}}},
	}
	agents := []platform.Agent{{ID: 31, Number: "2000", Extension: "2000"}}
	ix := NewIndexes(users, agents)

	row := ix.ResolveAgentMember(platform.QueueMember{AgentID: 31})
	if row.UserUUID != "first" {
		t.Errorf("duplicate extension resolved to %q, want the first record", row.UserUUID)
	}
}
