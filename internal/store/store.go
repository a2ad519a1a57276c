package store

import (
	"sync"
	"time"

	"github.com/pbxops/acdboard/internal/types"
)

// Snapshot is the complete reconciled view produced by a full load. The store
// swaps it in wholesale; point mutations then patch it in place until the
// next load.
type Snapshot struct {
	Agents    []types.AgentInfo
	Users     []types.UserInfo
	Queues    []types.QueueMeta
	Rosters   map[string][]types.RosterRow
	Presences map[string]types.Presence
	Sessions  map[string]bool
	DND       map[string]types.DNDSetting
	Forwards  map[string]types.ForwardSetting
	Calls     map[string]types.CallInfo
	Stats     map[int]types.QueueStats
}

// Store owns every in-memory map of the reconciled view behind one mutex.
// Handlers run on goroutines, so all reads of "current" state go through
// here at patch time rather than through captured copies.
type Store struct {
	mu sync.RWMutex

	agents       map[int]*types.AgentInfo
	agentsByExt  map[string]int
	agentsByUUID map[string]int
	users        map[string]types.UserInfo

	queues  []types.QueueMeta
	rosters map[string][]types.RosterRow

	presences map[string]types.Presence
	sessions  map[string]bool
	dnd       map[string]types.DNDSetting
	forwards  map[string]types.ForwardSetting
	calls     map[string]types.CallInfo
	stats     map[int]types.QueueStats

	loadedAt time.Time
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.agents = make(map[int]*types.AgentInfo)
	s.agentsByExt = make(map[string]int)
	s.agentsByUUID = make(map[string]int)
	s.users = make(map[string]types.UserInfo)
	s.queues = nil
	s.rosters = make(map[string][]types.RosterRow)
	s.presences = make(map[string]types.Presence)
	s.sessions = make(map[string]bool)
	s.dnd = make(map[string]types.DNDSetting)
	s.forwards = make(map[string]types.ForwardSetting)
	s.calls = make(map[string]types.CallInfo)
	s.stats = make(map[int]types.QueueStats)
}

// Replace swaps in the result of a full load, preserving cached login targets
// across reloads.
func (s *Store) Replace(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make(map[int][2]string)
	for id, a := range s.agents {
		if a.LoginExtension != "" {
			targets[id] = [2]string{a.LoginExtension, a.LoginContext}
		}
	}

	s.reset()
	for i := range snap.Agents {
		a := snap.Agents[i]
		if t, ok := targets[a.ID]; ok {
			a.LoginExtension, a.LoginContext = t[0], t[1]
		}
		s.agents[a.ID] = &a
		if ext := a.Extension; ext != "" {
			if _, taken := s.agentsByExt[ext]; !taken {
				s.agentsByExt[ext] = a.ID
			}
		}
		if a.UUID != "" {
			s.agentsByUUID[a.UUID] = a.ID
		}
	}
	for _, u := range snap.Users {
		s.users[u.UUID] = u
	}
	s.queues = append(s.queues, snap.Queues...)
	for label, rows := range snap.Rosters {
		s.rosters[label] = append([]types.RosterRow(nil), rows...)
	}
	for k, v := range snap.Presences {
		s.presences[k] = v
	}
	for k, v := range snap.Sessions {
		s.sessions[k] = v
	}
	for k, v := range snap.DND {
		s.dnd[k] = v
	}
	for k, v := range snap.Forwards {
		s.forwards[k] = v
	}
	for k, v := range snap.Calls {
		s.calls[k] = v
	}
	for k, v := range snap.Stats {
		s.stats[k] = v
	}
	s.loadedAt = time.Now()
}

// LoadedAt returns the time of the last full load.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Agent returns a copy of the agent record with the given ACD id.
func (s *Store) Agent(id int) (types.AgentInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.agents[id]; ok {
		return *a, true
	}
	return types.AgentInfo{}, false
}

// AgentByNumber resolves an agent by number or extension.
func (s *Store) AgentByNumber(number string) (types.AgentInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		if a.Number == number {
			return *a, true
		}
	}
	if id, ok := s.agentsByExt[number]; ok {
		return *s.agents[id], true
	}
	return types.AgentInfo{}, false
}

// HasUser reports whether the directory user is known.
func (s *Store) HasUser(uuid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[uuid]
	return ok
}

// updateAgentRows applies fn to every roster row bound to the agent and
// returns copies of the updated rows. Callers hold the write lock.
func (s *Store) updateAgentRows(id int, fn func(*types.RosterRow)) []types.RosterRow {
	var updated []types.RosterRow
	for label, rows := range s.rosters {
		for i := range rows {
			if rows[i].AgentID == id {
				fn(&rows[i])
				updated = append(updated, rows[i])
			}
		}
		s.rosters[label] = rows
	}
	return updated
}

// SetAgentLogged flips an agent's logged flag, clearing paused on logout, and
// patches every roster row bound to that agent. The previous values are
// returned so a failed mutation can be rolled back exactly.
func (s *Store) SetAgentLogged(id int, logged bool) (prevLogged, prevPaused bool, rows []types.RosterRow, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.agents[id]
	if !found {
		return false, false, nil, false
	}
	prevLogged, prevPaused = a.Logged, a.Paused
	a.Logged = logged
	if !logged {
		a.Paused = false
	}
	rows = s.updateAgentRows(id, func(r *types.RosterRow) {
		r.Logged = a.Logged
		r.Paused = a.Paused
	})
	return prevLogged, prevPaused, rows, true
}

// SetAgentPaused flips an agent's paused flag and patches its rows.
func (s *Store) SetAgentPaused(id int, paused bool) (prev bool, rows []types.RosterRow, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.agents[id]
	if !found {
		return false, nil, false
	}
	prev = a.Paused
	a.Paused = paused
	rows = s.updateAgentRows(id, func(r *types.RosterRow) {
		r.Paused = paused
	})
	return prev, rows, true
}

// ApplyPauseEvent applies a pause/unpause reported by the platform. Pause
// state only exists on a logged-in agent, so the event is dropped otherwise.
func (s *Store) ApplyPauseEvent(id int, paused bool) (rows []types.RosterRow, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.agents[id]
	if !found || !a.Logged {
		return nil, false
	}
	if a.Paused == paused {
		return nil, false
	}
	a.Paused = paused
	rows = s.updateAgentRows(id, func(r *types.RosterRow) {
		r.Paused = paused
	})
	return rows, true
}

// RestoreAgent puts an agent back to an exact earlier state, used for
// optimistic rollback.
func (s *Store) RestoreAgent(id int, logged, paused bool) []types.RosterRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.agents[id]
	if !found {
		return nil
	}
	a.Logged = logged
	a.Paused = paused
	return s.updateAgentRows(id, func(r *types.RosterRow) {
		r.Logged = logged
		r.Paused = paused
	})
}

// SetLoginTarget caches the extension/context pair resolved for an agent.
func (s *Store) SetLoginTarget(id int, extension, dialContext string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.agents[id]; ok {
		a.LoginExtension = extension
		a.LoginContext = dialContext
	}
}

// LoginTarget returns the cached login target for an agent, if any.
func (s *Store) LoginTarget(id int) (extension, dialContext string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, found := s.agents[id]
	if !found || a.LoginExtension == "" || a.LoginContext == "" {
		return "", "", false
	}
	return a.LoginExtension, a.LoginContext, true
}

// SetPresence records a user's chat presence.
func (s *Store) SetPresence(uuid string, p types.Presence) {
	s.mu.Lock()
	s.presences[uuid] = p
	s.mu.Unlock()
}

// SetSession records whether a user has any active session.
func (s *Store) SetSession(uuid string, active bool) {
	s.mu.Lock()
	s.sessions[uuid] = active
	s.mu.Unlock()
}

// SetDND writes a user's DND toggle and returns the previous value for
// rollback.
func (s *Store) SetDND(uuid string, d types.DNDSetting) (prev types.DNDSetting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.dnd[uuid]
	s.dnd[uuid] = d
	return prev
}

// DND returns a user's DND toggle.
func (s *Store) DND(uuid string) types.DNDSetting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dnd[uuid]
}

// SetForward writes a user's unconditional forward and returns the previous
// value for rollback.
func (s *Store) SetForward(uuid string, f types.ForwardSetting) (prev types.ForwardSetting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.forwards[uuid]
	s.forwards[uuid] = f
	return prev
}

// Forward returns a user's unconditional forward rule.
func (s *Store) Forward(uuid string) types.ForwardSetting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forwards[uuid]
}

// ReplaceCalls swaps in a fresh in-progress call map and diffs it against the
// previous one. Started holds calls that appeared or changed, ended the calls
// that disappeared; changed lists every affected user uuid once.
func (s *Store) ReplaceCalls(calls map[string]types.CallInfo) (started, ended map[string]types.CallInfo, changed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started = make(map[string]types.CallInfo)
	ended = make(map[string]types.CallInfo)

	for uuid, call := range calls {
		old, had := s.calls[uuid]
		if !had || old != call {
			started[uuid] = call
			changed = append(changed, uuid)
		}
	}
	for uuid, old := range s.calls {
		if _, still := calls[uuid]; !still {
			ended[uuid] = old
			changed = append(changed, uuid)
		}
	}

	s.calls = make(map[string]types.CallInfo, len(calls))
	for uuid, call := range calls {
		s.calls[uuid] = call
	}
	return started, ended, changed
}

// Call returns the in-progress call of a user, if any.
func (s *Store) Call(uuid string) (types.CallInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[uuid]
	return c, ok
}

// SetQueueStats replaces the per-queue statistics window.
func (s *Store) SetQueueStats(stats map[int]types.QueueStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = make(map[int]types.QueueStats, len(stats))
	for id, st := range stats {
		s.stats[id] = st
	}
}

// Queues returns the ordered queue list.
func (s *Store) Queues() []types.QueueMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.QueueMeta(nil), s.queues...)
}

// QueueByID finds queue metadata by numeric id.
func (s *Store) QueueByID(id int) (types.QueueMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.queues {
		if q.ID == id {
			return q, true
		}
	}
	return types.QueueMeta{}, false
}

// RowsFor returns copies of every roster row sharing the identity key.
func (s *Store) RowsFor(key types.Key) []types.RosterRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []types.RosterRow
	for _, roster := range s.rosters {
		for _, r := range roster {
			if key.Matches(r.Key()) {
				rows = append(rows, r)
			}
		}
	}
	return rows
}

// Counts computes the header counts of every roster.
func (s *Store) Counts() map[string]types.RosterCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]types.RosterCounts, len(s.rosters))
	for label, rows := range s.rosters {
		counts[label] = types.CountRoster(rows)
	}
	return counts
}

// SnapshotMessage builds the full dashboard snapshot from current state.
func (s *Store) SnapshotMessage() types.SnapshotMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg := types.SnapshotMessage{
		Type:      types.MessageSnapshot,
		Timestamp: time.Now(),
		Queues:    append([]types.QueueMeta(nil), s.queues...),
		Rosters:   make(map[string][]types.RosterRow, len(s.rosters)),
		Counts:    make(map[string]types.RosterCounts, len(s.rosters)),
		Presences: make(map[string]types.Presence, len(s.presences)),
		Sessions:  make(map[string]bool, len(s.sessions)),
		DND:       make(map[string]types.DNDSetting, len(s.dnd)),
		Forwards:  make(map[string]types.ForwardSetting, len(s.forwards)),
		Calls:     make(map[string]types.CallInfo, len(s.calls)),
		Stats:     make(map[int]types.QueueStats, len(s.stats)),
	}
	for label, rows := range s.rosters {
		msg.Rosters[label] = append([]types.RosterRow(nil), rows...)
		msg.Counts[label] = types.CountRoster(rows)
	}
	for k, v := range s.presences {
		msg.Presences[k] = v
	}
	for k, v := range s.sessions {
		msg.Sessions[k] = v
	}
	for k, v := range s.dnd {
		msg.DND[k] = v
	}
	for k, v := range s.forwards {
		msg.Forwards[k] = v
	}
	for k, v := range s.calls {
		msg.Calls[k] = v
	}
	for k, v := range s.stats {
		msg.Stats[k] = v
	}
	return msg
}
