package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pbxops/acdboard/internal/metrics"
	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/store"
	"github.com/pbxops/acdboard/internal/types"
	"github.com/rs/zerolog"
)

// ErrUnknownAgent is returned when an intent names an agent the store has
// never seen.
var ErrUnknownAgent = errors.New("actions: unknown agent")

// Broadcaster pushes messages to every connected dashboard.
type Broadcaster interface {
	Broadcast(v any)
}

// History persists agent state transitions for later review.
type History interface {
	SaveStateChange(ctx context.Context, rec types.StateChangeRecord) error
}

// ReloadFunc triggers a full load-and-regroup cycle.
type ReloadFunc func(ctx context.Context) error

// Config carries the intent-related settings.
type Config struct {
	// PauseReason is recorded platform-side with every pause.
	PauseReason string

	// Supervision dial prefixes, dialed in front of the target extension.
	ListenPrefix  string
	WhisperPrefix string
	BargePrefix   string
}

// Dispatcher executes supervisor intents optimistically: the store flips
// first and dashboards get the patch immediately, then the platform call
// runs. A failed call rolls the store back and re-patches.
type Dispatcher struct {
	store   *store.Store
	client  *platform.Client
	hub     Broadcaster
	history History
	reload  ReloadFunc
	logger  zerolog.Logger
	cfg     Config
}

// New creates a dispatcher.
func New(st *store.Store, client *platform.Client, hub Broadcaster, history History, reload ReloadFunc, logger zerolog.Logger, cfg Config) *Dispatcher {
	return &Dispatcher{
		store:   st,
		client:  client,
		hub:     hub,
		history: history,
		reload:  reload,
		logger:  logger.With().Str("component", "actions").Logger(),
		cfg:     cfg,
	}
}

// patchRows pushes the updated rows of one entity plus refreshed counts.
func (d *Dispatcher) patchRows(key types.Key, rows []types.RosterRow) {
	d.hub.Broadcast(types.RowPatchMessage{
		Type:   types.MessageRowPatch,
		Key:    key,
		Rows:   rows,
		Counts: d.store.Counts(),
	})
	metrics.Get().RecordPatchBroadcast()
}

func (d *Dispatcher) status(level, message string) {
	d.hub.Broadcast(types.StatusMessage{Type: types.MessageStatus, Level: level, Message: message})
}

// record persists one state transition; persistence failures only log.
func (d *Dispatcher) record(ctx context.Context, agent types.AgentInfo, field string, value bool, source string) {
	key := agent.Number
	if key == "" {
		key = strconv.Itoa(agent.ID)
	}
	rec := types.StateChangeRecord{
		AgentKey:  key,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		AgentID:   agent.ID,
		UserUUID:  agent.UUID,
		Field:     field,
		Value:     value,
		Source:    source,
	}
	if err := d.history.SaveStateChange(ctx, rec); err != nil {
		d.logger.Warn().Err(err).Int("agent_id", agent.ID).Msg("failed to persist state change")
	}
}

// SetPaused pauses or resumes an agent.
func (d *Dispatcher) SetPaused(ctx context.Context, agentID int, paused bool) error {
	agent, ok := d.store.Agent(agentID)
	if !ok {
		return ErrUnknownAgent
	}
	number := agent.Number
	if number == "" {
		number = agent.Extension
	}
	if number == "" {
		return fmt.Errorf("agent %d has no number to address: %w", agentID, ErrUnknownAgent)
	}

	prev, rows, _ := d.store.SetAgentPaused(agentID, paused)
	d.patchRows(types.Key{AgentID: agentID, UserUUID: agent.UUID}, rows)

	var err error
	if paused {
		err = d.client.PauseAgent(ctx, number, d.cfg.PauseReason)
	} else {
		err = d.client.UnpauseAgent(ctx, number)
	}
	if err != nil {
		_, rows, _ := d.store.SetAgentPaused(agentID, prev)
		d.patchRows(types.Key{AgentID: agentID, UserUUID: agent.UUID}, rows)
		d.record(ctx, agent, "paused", prev, "rollback")
		metrics.Get().RecordIntent("pause", "rolled_back")
		d.status("error", "Pause change failed, state restored")
		return err
	}

	d.record(ctx, agent, "paused", paused, "intent")
	metrics.Get().RecordIntent("pause", "ok")
	return nil
}

// Login logs an agent in on its own extension. The extension's dial context
// is resolved once through the configuration service and cached on the agent.
func (d *Dispatcher) Login(ctx context.Context, agentID int) error {
	agent, ok := d.store.Agent(agentID)
	if !ok {
		return ErrUnknownAgent
	}

	extension, dialContext, cached := d.store.LoginTarget(agentID)
	if !cached {
		if agent.Extension == "" {
			return fmt.Errorf("agent %d has no extension to log in on: %w", agentID, ErrUnknownAgent)
		}
		ext, err := d.client.LookupExtension(ctx, agent.Extension)
		if err != nil {
			metrics.Get().RecordIntent("login", "rolled_back")
			d.status("error", "Could not resolve the agent's extension")
			return err
		}
		extension, dialContext = ext.Exten, ext.Context
		d.store.SetLoginTarget(agentID, extension, dialContext)
	}

	prevLogged, prevPaused, rows, _ := d.store.SetAgentLogged(agentID, true)
	d.patchRows(types.Key{AgentID: agentID, UserUUID: agent.UUID}, rows)

	if err := d.client.LoginAgent(ctx, agentID, extension, dialContext); err != nil {
		rows := d.store.RestoreAgent(agentID, prevLogged, prevPaused)
		d.patchRows(types.Key{AgentID: agentID, UserUUID: agent.UUID}, rows)
		d.record(ctx, agent, "logged", prevLogged, "rollback")
		metrics.Get().RecordIntent("login", "rolled_back")
		d.status("error", "Login failed, state restored")
		return err
	}

	d.record(ctx, agent, "logged", true, "intent")
	metrics.Get().RecordIntent("login", "ok")
	return nil
}

// Logout logs an agent out.
func (d *Dispatcher) Logout(ctx context.Context, agentID int) error {
	agent, ok := d.store.Agent(agentID)
	if !ok {
		return ErrUnknownAgent
	}

	prevLogged, prevPaused, rows, _ := d.store.SetAgentLogged(agentID, false)
	d.patchRows(types.Key{AgentID: agentID, UserUUID: agent.UUID}, rows)

	if err := d.client.LogoffAgent(ctx, agentID); err != nil {
		rows := d.store.RestoreAgent(agentID, prevLogged, prevPaused)
		d.patchRows(types.Key{AgentID: agentID, UserUUID: agent.UUID}, rows)
		d.record(ctx, agent, "logged", prevLogged, "rollback")
		metrics.Get().RecordIntent("logout", "rolled_back")
		d.status("error", "Logout failed, state restored")
		return err
	}

	d.record(ctx, agent, "logged", false, "intent")
	metrics.Get().RecordIntent("logout", "ok")
	return nil
}

// SetDND toggles a user's Do Not Disturb service.
func (d *Dispatcher) SetDND(ctx context.Context, userUUID string, enabled bool) error {
	setting := types.DNDSetting{Enabled: enabled}
	prev := d.store.SetDND(userUUID, setting)
	d.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: userUUID, DND: &setting})
	metrics.Get().RecordPatchBroadcast()

	if err := d.client.SetDND(ctx, userUUID, enabled); err != nil {
		restored := prev
		d.store.SetDND(userUUID, restored)
		d.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: userUUID, DND: &restored})
		metrics.Get().RecordIntent("dnd", "rolled_back")
		d.status("error", "DND change failed, state restored")
		return err
	}
	metrics.Get().RecordIntent("dnd", "ok")
	return nil
}

// SetForward updates a user's unconditional forward.
func (d *Dispatcher) SetForward(ctx context.Context, userUUID string, fwd types.ForwardSetting) error {
	prev := d.store.SetForward(userUUID, fwd)
	d.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: userUUID, Forward: &fwd})
	metrics.Get().RecordPatchBroadcast()

	if err := d.client.SetForward(ctx, userUUID, fwd); err != nil {
		restored := prev
		d.store.SetForward(userUUID, restored)
		d.hub.Broadcast(types.UserPatchMessage{Type: types.MessageUserPatch, UserUUID: userUUID, Forward: &restored})
		metrics.Get().RecordIntent("forward", "rolled_back")
		d.status("error", "Forward change failed, state restored")
		return err
	}
	metrics.Get().RecordIntent("forward", "ok")
	return nil
}

// MoveQueue reassigns an agent between queues. Membership reshapes the whole
// grouping, so instead of patching the change triggers a full reload once the
// platform confirms it.
func (d *Dispatcher) MoveQueue(ctx context.Context, agentID, fromQueueID, toQueueID int) error {
	if _, ok := d.store.Agent(agentID); !ok {
		return ErrUnknownAgent
	}
	if fromQueueID == toQueueID {
		return nil
	}

	if toQueueID != 0 {
		if err := d.client.AddAgentToQueue(ctx, agentID, toQueueID); err != nil {
			metrics.Get().RecordIntent("move_queue", "rolled_back")
			d.status("error", "Queue assignment failed")
			return err
		}
	}
	if fromQueueID != 0 {
		if err := d.client.RemoveAgentFromQueue(ctx, agentID, fromQueueID); err != nil {
			// The add went through; reload so dashboards see the real state.
			metrics.Get().RecordIntent("move_queue", "rolled_back")
			d.status("error", "Queue removal failed")
			if rerr := d.reload(ctx); rerr != nil {
				d.logger.Error().Err(rerr).Msg("reload after partial queue move failed")
			}
			return err
		}
	}

	metrics.Get().RecordIntent("move_queue", "ok")
	d.status("success", "Agent reassigned")
	return d.reload(ctx)
}

// Supervise originates a supervision call (listen, whisper, or barge) toward
// the agent's extension.
func (d *Dispatcher) Supervise(ctx context.Context, mode string, agentID int) error {
	agent, ok := d.store.Agent(agentID)
	if !ok {
		return ErrUnknownAgent
	}
	if agent.Extension == "" {
		return fmt.Errorf("agent %d has no extension to supervise: %w", agentID, ErrUnknownAgent)
	}

	var prefix string
	switch mode {
	case "listen":
		prefix = d.cfg.ListenPrefix
	case "whisper":
		prefix = d.cfg.WhisperPrefix
	case "barge":
		prefix = d.cfg.BargePrefix
	default:
		return fmt.Errorf("unknown supervision mode %q", mode)
	}

	if err := d.client.Originate(ctx, prefix+agent.Extension); err != nil {
		metrics.Get().RecordIntent("supervise", "rolled_back")
		return err
	}
	metrics.Get().RecordIntent("supervise", "ok")
	return nil
}
