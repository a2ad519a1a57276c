package reconcile

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pbxops/acdboard/internal/loader"
	"github.com/pbxops/acdboard/internal/metrics"
	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/store"
	"github.com/pbxops/acdboard/internal/types"
	"github.com/rs/zerolog"
)

// Broadcaster pushes messages to every connected dashboard.
type Broadcaster interface {
	Broadcast(v any)
}

// History persists state transitions and completed calls.
type History interface {
	SaveStateChange(ctx context.Context, rec types.StateChangeRecord) error
	SaveCallRecord(ctx context.Context, rec types.CallRecord) error
}

// Reconciler folds platform feed events into the store. Events naming a known
// entity become targeted patches; events about entities or shapes the store
// cannot place fall back to a debounced full reload, which is always correct
// and merely more expensive.
type Reconciler struct {
	store   *store.Store
	client  *platform.Client
	loader  *loader.Loader
	hub     Broadcaster
	history History
	logger  zerolog.Logger

	debounce    time.Duration
	mu          sync.Mutex
	reloadTimer *time.Timer
}

// New creates a reconciler.
func New(st *store.Store, client *platform.Client, ld *loader.Loader, hub Broadcaster, history History, debounce time.Duration, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    st,
		client:   client,
		loader:   ld,
		hub:      hub,
		history:  history,
		logger:   logger.With().Str("component", "reconcile").Logger(),
		debounce: debounce,
	}
}

// Run consumes feed events until the channel closes or the context ends.
func (r *Reconciler) Run(ctx context.Context, events <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent routes one feed event to its handler family.
func (r *Reconciler) HandleEvent(ctx context.Context, ev types.Event) {
	name := CanonicalName(ev.Name)
	switch {
	case name == "agentstatusupdate":
		r.handleAgentStatus(ctx, ev.Data)
	case name == "agentpaused" || name == "agentunpaused":
		r.handleAgentPause(ctx, ev.Data, name == "agentpaused")
	case strings.HasPrefix(name, "call"):
		r.refreshCalls(ctx)
	case name == "usersservicesdndupdated":
		r.handleDND(ev.Data)
	case name == "usersforwardsunconditionalupdated":
		r.handleForward(ev.Data)
	case name == "chatdpresenceupdated":
		r.handlePresence(ev.Data)
	case name == "authsessioncreated" || name == "authsessiondeleted":
		r.handleSession(ev.Data, name == "authsessioncreated")
	case strings.HasPrefix(name, "queuemember") ||
		strings.HasPrefix(name, "queuecreated") ||
		strings.HasPrefix(name, "queueedited") ||
		strings.HasPrefix(name, "queuedeleted") ||
		strings.HasPrefix(name, "agentcreated") ||
		strings.HasPrefix(name, "agentedited") ||
		strings.HasPrefix(name, "agentdeleted") ||
		strings.HasPrefix(name, "usercreated") ||
		strings.HasPrefix(name, "useredited") ||
		strings.HasPrefix(name, "userdeleted"):
		// Directory shape changed, regroup everything.
		r.ScheduleReload()
	default:
		r.logger.Debug().Str("event", ev.Name).Msg("unhandled event")
		metrics.Get().RecordEventIgnored()
	}
}

func (r *Reconciler) patchRows(key types.Key, rows []types.RosterRow) {
	r.hub.Broadcast(types.RowPatchMessage{
		Type:   types.MessageRowPatch,
		Key:    key,
		Rows:   rows,
		Counts: r.store.Counts(),
	})
	metrics.Get().RecordPatchBroadcast()
}

// resolveAgent finds the agent an event refers to, by id first and number as
// the fallback.
func (r *Reconciler) resolveAgent(id int, number string) (types.AgentInfo, bool) {
	if id != 0 {
		if a, ok := r.store.Agent(id); ok {
			return a, true
		}
	}
	if number != "" {
		if a, ok := r.store.AgentByNumber(number); ok {
			return a, true
		}
	}
	return types.AgentInfo{}, false
}

func (r *Reconciler) handleAgentStatus(ctx context.Context, data json.RawMessage) {
	var ev types.AgentStatusEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		r.logger.Debug().Err(err).Msg("undecodable agent status event")
		metrics.Get().RecordEventIgnored()
		return
	}
	agent, ok := r.resolveAgent(ev.AgentID, ev.AgentNumber)
	if !ok {
		// An agent the directory does not know yet, resync.
		r.ScheduleReload()
		return
	}

	logged := ev.Status == "logged_in"
	prev, _, rows, _ := r.store.SetAgentLogged(agent.ID, logged)
	if prev == logged {
		return
	}
	r.patchRows(types.Key{AgentID: agent.ID, UserUUID: agent.UUID}, rows)
	if err := r.history.SaveStateChange(ctx, types.StateChangeRecord{
		AgentKey:  agentKey(agent),
		Timestamp: time.Now().Format(time.RFC3339Nano),
		AgentID:   agent.ID,
		UserUUID:  agent.UUID,
		Field:     "logged",
		Value:     logged,
		Source:    "feed",
	}); err != nil {
		r.logger.Warn().Err(err).Msg("failed to persist state change")
	}
}

func (r *Reconciler) handleAgentPause(ctx context.Context, data json.RawMessage, paused bool) {
	var ev types.AgentPauseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		r.logger.Debug().Err(err).Msg("undecodable agent pause event")
		metrics.Get().RecordEventIgnored()
		return
	}
	agent, ok := r.resolveAgent(ev.AgentID, ev.AgentNumber)
	if !ok {
		r.ScheduleReload()
		return
	}

	rows, applied := r.store.ApplyPauseEvent(agent.ID, paused)
	if !applied {
		return
	}
	r.patchRows(types.Key{AgentID: agent.ID, UserUUID: agent.UUID}, rows)
	if err := r.history.SaveStateChange(ctx, types.StateChangeRecord{
		AgentKey:  agentKey(agent),
		Timestamp: time.Now().Format(time.RFC3339Nano),
		AgentID:   agent.ID,
		UserUUID:  agent.UUID,
		Field:     "paused",
		Value:     paused,
		Source:    "feed",
	}); err != nil {
		r.logger.Warn().Err(err).Msg("failed to persist state change")
	}
}

// refreshCalls re-fetches the in-progress call list and diffs it against the
// store. Call events are frequent and their payloads inconsistent across
// versions, so the list is the single source of truth.
func (r *Reconciler) refreshCalls(ctx context.Context) {
	active, err := r.client.ListCalls(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("call refresh failed")
		return
	}

	calls := make(map[string]types.CallInfo)
	for _, c := range active {
		if !c.Answered() || c.UserUUID == "" {
			continue
		}
		calls[c.UserUUID] = types.CallInfo{
			Number:    c.PeerNumber,
			Name:      c.PeerName,
			Direction: c.Direction(),
			StartedAt: c.StartedAt(),
		}
	}

	started, ended, _ := r.store.ReplaceCalls(calls)
	for userUUID, call := range started {
		c := call
		r.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: userUUID, Call: &c})
		metrics.Get().RecordPatchBroadcast()
	}
	now := time.Now()
	for userUUID, call := range ended {
		r.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: userUUID, CallEnded: true})
		metrics.Get().RecordPatchBroadcast()
		if err := r.history.SaveCallRecord(ctx, types.CallRecord{
			DateKey:   call.StartedAt.Format("2006-01-02"),
			CallID:    uuid.New().String(),
			UserUUID:  userUUID,
			Number:    call.Number,
			Name:      call.Name,
			Direction: call.Direction,
			StartedAt: call.StartedAt,
			EndedAt:   now,
			Duration:  now.Sub(call.StartedAt).Seconds(),
		}); err != nil {
			r.logger.Warn().Err(err).Msg("failed to persist call record")
		}
	}
}

func (r *Reconciler) handleDND(data json.RawMessage) {
	var ev types.DNDEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.UserUUID == "" {
		metrics.Get().RecordEventIgnored()
		return
	}
	if !r.store.HasUser(ev.UserUUID) {
		r.ScheduleReload()
		return
	}
	setting := types.DNDSetting{Enabled: ev.Enabled}
	r.store.SetDND(ev.UserUUID, setting)
	r.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: ev.UserUUID, DND: &setting})
	metrics.Get().RecordPatchBroadcast()
}

func (r *Reconciler) handleForward(data json.RawMessage) {
	var ev types.ForwardEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.UserUUID == "" {
		metrics.Get().RecordEventIgnored()
		return
	}
	if !r.store.HasUser(ev.UserUUID) {
		r.ScheduleReload()
		return
	}
	setting := types.ForwardSetting{Enabled: ev.Enabled, Destination: ev.Destination}
	r.store.SetForward(ev.UserUUID, setting)
	r.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: ev.UserUUID, Forward: &setting})
	metrics.Get().RecordPatchBroadcast()
}

func (r *Reconciler) handlePresence(data json.RawMessage) {
	var ev types.PresenceEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.UserUUID == "" {
		metrics.Get().RecordEventIgnored()
		return
	}
	presence := types.Presence(ev.State)
	r.store.SetPresence(ev.UserUUID, presence)
	r.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: ev.UserUUID, Presence: &presence})
	metrics.Get().RecordPatchBroadcast()
}

func (r *Reconciler) handleSession(data json.RawMessage, active bool) {
	var ev types.SessionEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.UserUUID == "" {
		metrics.Get().RecordEventIgnored()
		return
	}
	r.store.SetSession(ev.UserUUID, active)
	sess := active
	r.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: ev.UserUUID, Session: &sess})
	metrics.Get().RecordPatchBroadcast()
}

// ScheduleReload arms the debounced full reload. Bursts of events that each
// demand a resync collapse into a single load.
func (r *Reconciler) ScheduleReload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reloadTimer != nil {
		r.reloadTimer.Stop()
	}
	r.reloadTimer = time.AfterFunc(r.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := r.Reload(ctx); err != nil {
			r.logger.Error().Err(err).Msg("scheduled reload failed")
		}
	})
}

// Reload runs a full load, swaps the store, and pushes a fresh snapshot to
// every dashboard.
func (r *Reconciler) Reload(ctx context.Context) error {
	snap, err := r.loader.Load(ctx)
	if err != nil {
		return err
	}
	r.store.Replace(snap)
	r.hub.Broadcast(r.store.SnapshotMessage())
	metrics.Get().RecordFullReload()
	return nil
}

func agentKey(agent types.AgentInfo) string {
	if agent.Number != "" {
		return agent.Number
	}
	return strconv.Itoa(agent.ID)
}
