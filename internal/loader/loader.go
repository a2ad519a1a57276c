package loader

import (
	"context"
	"sync"
	"time"

	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/roster"
	"github.com/pbxops/acdboard/internal/store"
	"github.com/pbxops/acdboard/internal/types"
	"github.com/rs/zerolog"
)

// Config controls the load.
type Config struct {
	OutsideLabel    string
	PriorityPattern string

	// StatsWindow is how far back queue statistics reach.
	StatsWindow time.Duration

	// DetailConcurrency bounds the parallel per-user detail fetches.
	DetailConcurrency int
}

// Loader performs the full load: the three primary directories, the grouped
// rosters, and every secondary enrichment. Primary failures abort the load;
// secondary failures degrade to an empty section and a warning.
type Loader struct {
	client *platform.Client
	logger zerolog.Logger
	cfg    Config
}

// New creates a loader.
func New(client *platform.Client, logger zerolog.Logger, cfg Config) *Loader {
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 8
	}
	return &Loader{
		client: client,
		logger: logger.With().Str("component", "loader").Logger(),
		cfg:    cfg,
	}
}

// Load fetches and reconciles the complete platform view.
func (l *Loader) Load(ctx context.Context) (*store.Snapshot, error) {
	var (
		agents []platform.Agent
		queues []platform.Queue
		users  []platform.User
	)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(3)
	go func() {
		defer wg.Done()
		agents, errs[0] = l.client.ListAgents(ctx)
	}()
	go func() {
		defer wg.Done()
		queues, errs[1] = l.client.ListQueues(ctx)
	}()
	go func() {
		defer wg.Done()
		users, errs[2] = l.client.ListUsers(ctx)
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	grouped := roster.Build(queues, users, agents, roster.Config{
		OutsideLabel:    l.cfg.OutsideLabel,
		PriorityPattern: l.cfg.PriorityPattern,
	})

	snap := &store.Snapshot{
		Queues:  grouped.Queues,
		Rosters: grouped.Rosters,
	}
	for _, a := range agents {
		snap.Agents = append(snap.Agents, types.AgentInfo{
			ID:        a.ID,
			UUID:      a.UUID,
			Number:    a.Number,
			Extension: a.Ext(),
			Name:      a.Name(),
			Logged:    a.Logged,
			Paused:    a.Paused,
		})
	}
	for _, u := range users {
		snap.Users = append(snap.Users, types.UserInfo{
			UUID:      u.UUID,
			Name:      u.Name(),
			Extension: u.PrimaryExtension(),
		})
	}

	ix := roster.NewIndexes(users, agents)
	snap.Presences = l.loadPresences(ctx)
	snap.Calls = l.loadCalls(ctx)
	snap.Stats = l.loadStats(ctx, grouped.Queues)
	snap.DND, snap.Forwards = l.loadUserServices(ctx, users)
	snap.Sessions = l.loadSessions(ctx, users, ix)

	l.logger.Info().
		Int("agents", len(agents)).
		Int("users", len(users)).
		Int("queues", len(queues)).
		Int("calls", len(snap.Calls)).
		Msg("full load complete")
	return snap, nil
}

func (l *Loader) loadPresences(ctx context.Context) map[string]types.Presence {
	presences, err := l.client.ListPresences(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("presence load failed, continuing without")
		return map[string]types.Presence{}
	}
	return presences
}

// loadCalls keeps only answered calls and enriches anonymous caller IDs
// through the directory.
func (l *Loader) loadCalls(ctx context.Context) map[string]types.CallInfo {
	calls := make(map[string]types.CallInfo)
	active, err := l.client.ListCalls(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("call load failed, continuing without")
		return calls
	}
	for _, c := range active {
		if !c.Answered() || c.UserUUID == "" {
			continue
		}
		info := types.CallInfo{
			Number:    c.PeerNumber,
			Name:      c.PeerName,
			Direction: c.Direction(),
			StartedAt: c.StartedAt(),
		}
		if info.Name == "" && info.Number != "" {
			if name, err := l.client.LookupContact(ctx, info.Number); err == nil {
				info.Name = name
			}
		}
		calls[c.UserUUID] = info
	}
	return calls
}

func (l *Loader) loadStats(ctx context.Context, queues []types.QueueMeta) map[int]types.QueueStats {
	stats := make(map[int]types.QueueStats)
	if l.cfg.StatsWindow <= 0 {
		return stats
	}
	until := time.Now()
	from := until.Add(-l.cfg.StatsWindow)
	for _, q := range queues {
		if q.ID == 0 {
			continue
		}
		st, err := l.client.QueueStatistics(ctx, q.ID, from, until)
		if err != nil {
			l.logger.Warn().Err(err).Int("queue_id", q.ID).Msg("queue statistics failed")
			continue
		}
		stats[q.ID] = st
	}
	return stats
}

// loadUserServices fetches DND and forward state per user with bounded
// concurrency. Individual misses are dropped silently; the services are
// cosmetic next to roster state.
func (l *Loader) loadUserServices(ctx context.Context, users []platform.User) (map[string]types.DNDSetting, map[string]types.ForwardSetting) {
	var mu sync.Mutex
	dnd := make(map[string]types.DNDSetting)
	forwards := make(map[string]types.ForwardSetting)

	sem := make(chan struct{}, l.cfg.DetailConcurrency)
	var wg sync.WaitGroup
	for _, u := range users {
		if u.UUID == "" {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(uuid string) {
			defer wg.Done()
			defer func() { <-sem }()
			if d, err := l.client.GetDND(ctx, uuid); err == nil {
				mu.Lock()
				dnd[uuid] = d
				mu.Unlock()
			}
			if f, err := l.client.GetForward(ctx, uuid); err == nil {
				mu.Lock()
				forwards[uuid] = f
				mu.Unlock()
			}
		}(u.UUID)
	}
	wg.Wait()
	return dnd, forwards
}

// loadSessions checks session presence only for users with no ACD binding;
// agent-bound users show their state through the agent's logged flag.
func (l *Loader) loadSessions(ctx context.Context, users []platform.User, ix *roster.Indexes) map[string]bool {
	var mu sync.Mutex
	sessions := make(map[string]bool)

	sem := make(chan struct{}, l.cfg.DetailConcurrency)
	var wg sync.WaitGroup
	for _, u := range users {
		if u.UUID == "" {
			continue
		}
		if _, bound := ix.AgentByExtension(u.PrimaryExtension()); bound && u.PrimaryExtension() != "" {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(uuid string) {
			defer wg.Done()
			defer func() { <-sem }()
			active, err := l.client.HasSession(ctx, uuid)
			if err != nil {
				return
			}
			mu.Lock()
			sessions[uuid] = active
			mu.Unlock()
		}(u.UUID)
	}
	wg.Wait()
	return sessions
}
