package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pbxops/acdboard/internal/loader"
	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/store"
	"github.com/pbxops/acdboard/internal/types"
	"github.com/rs/zerolog"
)

func TestCanonicalName(t *testing.T) {
	cases := map[string]string{
		"agent_status_update":         "agentstatusupdate",
		"AgentStatusUpdate":           "agentstatusupdate",
		"agent-status-update":         "agentstatusupdate",
		"users_services_dnd_updated":  "usersservicesdndupdated",
		"chatd.presence.updated":      "chatdpresenceupdated",
		"Call Created":                "callcreated",
		"auth_session_created":        "authsessioncreated",
		"queue_member_associated":     "queuememberassociated",
		"already_canonical_lowercase": "alreadycanonicallowercase",
	}
	for in, want := range cases {
		if got := CanonicalName(in); got != want {
			t.Errorf("CanonicalName(%q) = %q, want %q", in, got, want)
		}
	}
}

type recordingHub struct {
	mu       sync.Mutex
	messages []any
}

func (h *recordingHub) Broadcast(v any) {
	h.mu.Lock()
	h.messages = append(h.messages, v)
	h.mu.Unlock()
}

func (h *recordingHub) last() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return nil
	}
	return h.messages[len(h.messages)-1]
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

type recordingHistory struct {
	mu    sync.Mutex
	state []types.StateChangeRecord
	calls []types.CallRecord
}

func (h *recordingHistory) SaveStateChange(_ context.Context, rec types.StateChangeRecord) error {
	h.mu.Lock()
	h.state = append(h.state, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHistory) SaveCallRecord(_ context.Context, rec types.CallRecord) error {
	h.mu.Lock()
	h.calls = append(h.calls, rec)
	h.mu.Unlock()
	return nil
}

func seededStore() *store.Store {
	s := store.New()
	s.Replace(&store.Snapshot{
		Agents: []types.AgentInfo{
			{ID: 7, UUID: "agent-7", Number: "1007", Extension: "1007", Name: "Ada", Logged: false},
		},
		Users: []types.UserInfo{{UUID: "user-ada", Name: "Ada", Extension: "1007"}},
		Queues: []types.QueueMeta{
			{ID: 3, Label: "Support"},
		},
		Rosters: map[string][]types.RosterRow{
			"Support": {{AgentID: 7, UserUUID: "user-ada", Name: "Ada", Extension: "1007", QueueID: 3, QueueLabel: "Support"}},
		},
	})
	return s
}

func testReconciler(t *testing.T, handler http.Handler) (*Reconciler, *recordingHub, *recordingHistory, *store.Store) {
	t.Helper()
	if handler == nil {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	st := seededStore()
	hub := &recordingHub{}
	hist := &recordingHistory{}
	client := platform.NewClient(srv.URL, "tok", zerolog.Nop())
	ld := loader.New(client, zerolog.Nop(), loader.Config{OutsideLabel: "Outside call center"})
	rec := New(st, client, ld, hub, hist, 10*time.Millisecond, zerolog.Nop())
	return rec, hub, hist, st
}

func event(name string, payload any) types.Event {
	data, _ := json.Marshal(payload)
	return types.Event{Name: name, Data: data}
}

func TestAgentStatusEventPatchesStore(t *testing.T) {
	rec, hub, hist, st := testReconciler(t, nil)

	rec.HandleEvent(context.Background(), event("agent_status_update",
		map[string]any{"agent_id": 7, "status": "logged_in"}))

	if a, _ := st.Agent(7); !a.Logged {
		t.Error("agent should be logged in after event")
	}
	patch, ok := hub.last().(types.RowPatchMessage)
	if !ok {
		t.Fatalf("last message = %T, want RowPatchMessage", hub.last())
	}
	if len(patch.Rows) != 1 || !patch.Rows[0].Logged {
		t.Errorf("patch = %+v", patch)
	}
	if len(hist.state) != 1 || hist.state[0].Source != "feed" {
		t.Errorf("history = %+v", hist.state)
	}
}

func TestDuplicateAgentStatusEventIsSilent(t *testing.T) {
	rec, hub, _, _ := testReconciler(t, nil)

	ev := event("agent_status_update", map[string]any{"agent_id": 7, "status": "logged_out"})
	rec.HandleEvent(context.Background(), ev)

	if hub.count() != 0 {
		t.Errorf("no-op event broadcast %d messages", hub.count())
	}
}

func TestPauseEventResolvesByNumber(t *testing.T) {
	rec, hub, _, st := testReconciler(t, nil)
	st.SetAgentLogged(7, true)

	rec.HandleEvent(context.Background(), event("agent_paused",
		map[string]any{"agent_number": "1007", "paused": true}))

	if a, _ := st.Agent(7); !a.Paused {
		t.Error("agent should be paused")
	}
	if hub.count() == 0 {
		t.Error("expected a row patch broadcast")
	}
}

func TestPauseEventOnLoggedOutAgentDropped(t *testing.T) {
	rec, hub, _, st := testReconciler(t, nil)

	rec.HandleEvent(context.Background(), event("agent_paused",
		map[string]any{"agent_id": 7, "paused": true}))

	if a, _ := st.Agent(7); a.Paused {
		t.Error("pause on logged-out agent must not apply")
	}
	if hub.count() != 0 {
		t.Errorf("dropped event broadcast %d messages", hub.count())
	}
}

func TestDNDEventForKnownUser(t *testing.T) {
	rec, hub, _, st := testReconciler(t, nil)

	rec.HandleEvent(context.Background(), event("users_services_dnd_updated",
		map[string]any{"user_uuid": "user-ada", "enabled": true}))

	if !st.DND("user-ada").Enabled {
		t.Error("DND not applied")
	}
	patch, ok := hub.last().(types.UserPatchMessage)
	if !ok || patch.DND == nil || !patch.DND.Enabled {
		t.Errorf("last message = %+v", hub.last())
	}
}

func TestPresenceEventBroadcasts(t *testing.T) {
	rec, hub, _, _ := testReconciler(t, nil)

	rec.HandleEvent(context.Background(), event("chatd_presence_updated",
		map[string]any{"uuid": "user-ada", "state": "away"}))

	patch, ok := hub.last().(types.UserPatchMessage)
	if !ok || patch.Presence == nil || *patch.Presence != types.PresenceAway {
		t.Errorf("last message = %+v", hub.last())
	}
}

func TestCallEventDiffsAndPersists(t *testing.T) {
	answered := true
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/calld/1.0/calls" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if answered {
			json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{
				{
					"user_uuid": "user-ada", "peer_caller_id_number": "0601",
					"status": "Up", "is_caller": false,
					"answer_time": time.Now().Add(-time.Minute).Format(time.RFC3339),
				},
			}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{}})
	})

	rec, hub, hist, st := testReconciler(t, handler)
	ctx := context.Background()

	rec.HandleEvent(ctx, event("call_created", map[string]any{}))
	if _, ok := st.Call("user-ada"); !ok {
		t.Fatal("call not recorded in store")
	}
	patch, ok := hub.last().(types.UserPatchMessage)
	if !ok || patch.Call == nil || patch.Call.Number != "0601" {
		t.Fatalf("last message = %+v", hub.last())
	}

	answered = false
	rec.HandleEvent(ctx, event("call_ended", map[string]any{}))
	if _, ok := st.Call("user-ada"); ok {
		t.Error("ended call still in store")
	}
	endPatch, ok := hub.last().(types.UserPatchMessage)
	if !ok || !endPatch.CallEnded {
		t.Errorf("last message = %+v", hub.last())
	}
	if len(hist.calls) != 1 || hist.calls[0].Number != "0601" || hist.calls[0].Duration <= 0 {
		t.Errorf("call history = %+v", hist.calls)
	}
}

func TestUnknownEntitySchedulesReload(t *testing.T) {
	var loads int32
	var mu sync.Mutex
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if r.URL.Path == "/api/agentd/1.0/agents" {
			loads++
		}
		mu.Unlock()
		switch r.URL.Path {
		case "/api/agentd/1.0/agents", "/api/confd/1.1/queues", "/api/confd/1.1/users":
			w.Write([]byte(`{"items":[]}`))
		case "/api/chatd/1.0/users/presences", "/api/calld/1.0/calls":
			w.Write([]byte(`{"items":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	rec, _, _, _ := testReconciler(t, handler)

	// Two unknown-agent events inside the debounce window collapse to one load.
	ev := event("agent_status_update", map[string]any{"agent_id": 999, "status": "logged_in"})
	rec.HandleEvent(context.Background(), ev)
	rec.HandleEvent(context.Background(), ev)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if loads != 1 {
		t.Errorf("reload ran %d times, want 1 (debounced)", loads)
	}
}

func TestUnrecognizedEventIgnored(t *testing.T) {
	rec, hub, _, _ := testReconciler(t, nil)
	rec.HandleEvent(context.Background(), event("fax_outbound_created", map[string]any{}))
	if hub.count() != 0 {
		t.Errorf("unrecognized event broadcast %d messages", hub.count())
	}
}

func TestReloadSwapsStoreAndBroadcastsSnapshot(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/agentd/1.0/agents":
			w.Write([]byte(`[{"id":42,"number":"2042","extension":"2042","logged":true}]`))
		case "/api/confd/1.1/queues", "/api/confd/1.1/users",
			"/api/chatd/1.0/users/presences", "/api/calld/1.0/calls":
			w.Write([]byte(`{"items":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	rec, hub, _, st := testReconciler(t, handler)

	if err := rec.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := st.Agent(42); !ok {
		t.Error("store not swapped to the new directory")
	}
	snap, ok := hub.last().(types.SnapshotMessage)
	if !ok || snap.Type != types.MessageSnapshot {
		t.Errorf("last message = %T", hub.last())
	}
}
