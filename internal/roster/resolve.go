package roster

import (
	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/types"
)

// unknownName is rendered when no directory record resolves for a member.
const unknownName = "Unknown"

// Indexes holds every lookup table needed to resolve a queue member reference
// into a full identity. Extension indexes keep the first record seen for a
// number; duplicate extensions across the directory are a configuration smell
// and the first match wins deterministically.
type Indexes struct {
	usersByUUID  map[string]platform.User
	usersByID    map[int]platform.User
	usersByExt   map[string]platform.User
	agentsByID   map[int]platform.Agent
	agentsByUUID map[string]platform.Agent
	agentsByExt  map[string]platform.Agent
}

// NewIndexes builds resolution indexes from the user and agent directories.
func NewIndexes(users []platform.User, agents []platform.Agent) *Indexes {
	ix := &Indexes{
		usersByUUID:  make(map[string]platform.User),
		usersByID:    make(map[int]platform.User),
		usersByExt:   make(map[string]platform.User),
		agentsByID:   make(map[int]platform.Agent),
		agentsByUUID: make(map[string]platform.Agent),
		agentsByExt:  make(map[string]platform.Agent),
	}
	for _, u := range users {
		if u.UUID != "" {
			ix.usersByUUID[u.UUID] = u
		}
		if u.ID != 0 {
			ix.usersByID[u.ID] = u
		}
		if ext := u.PrimaryExtension(); ext != "" {
			if _, taken := ix.usersByExt[ext]; !taken {
				ix.usersByExt[ext] = u
			}
		}
	}
	for _, a := range agents {
		if a.ID != 0 {
			ix.agentsByID[a.ID] = a
		}
		if a.UUID != "" {
			ix.agentsByUUID[a.UUID] = a
		}
		if ext := a.Ext(); ext != "" {
			if _, taken := ix.agentsByExt[ext]; !taken {
				ix.agentsByExt[ext] = a
			}
		}
	}
	return ix
}

// AgentByExtension resolves the ACD agent bound to an extension, if any.
func (ix *Indexes) AgentByExtension(ext string) (platform.Agent, bool) {
	a, ok := ix.agentsByExt[ext]
	return a, ok
}

// ResolveUserMember resolves a member reference from a queue's users list.
// The chain runs uuid, then numeric id, then the bare number carried on the
// reference itself. The resolved extension then binds the row to an ACD agent
// when one shares it.
func (ix *Indexes) ResolveUserMember(m platform.QueueMember) types.RosterRow {
	var (
		user  platform.User
		found bool
	)
	if m.UUID != "" {
		user, found = ix.usersByUUID[m.UUID]
	}
	if !found && m.ID != 0 {
		user, found = ix.usersByID[m.ID]
	}

	if !found {
		return ix.bareNumberRow(m.Number)
	}

	row := types.RosterRow{
		UserUUID:  user.UUID,
		Name:      user.Name(),
		Extension: user.PrimaryExtension(),
	}
	if a, ok := ix.agentsByExt[row.Extension]; ok && row.Extension != "" {
		row.AgentID = a.ID
		row.Number = a.Number
		row.Logged = a.Logged
		row.Paused = a.Paused
	}
	return row
}

// ResolveAgentMember resolves a member reference from a queue's agents list.
// The chain runs agent uuid, then agent id, then the bare number. When a
// directory user shares the agent's extension the user's name is preferred,
// since agent records rarely carry a usable one.
func (ix *Indexes) ResolveAgentMember(m platform.QueueMember) types.RosterRow {
	var (
		agent platform.Agent
		found bool
	)
	if m.AgentUUID != "" {
		agent, found = ix.agentsByUUID[m.AgentUUID]
	}
	if !found && m.AgentID != 0 {
		agent, found = ix.agentsByID[m.AgentID]
	}

	if !found {
		return ix.bareNumberRow(m.Number)
	}

	row := types.RosterRow{
		AgentID:   agent.ID,
		Number:    agent.Number,
		Extension: agent.Ext(),
		Logged:    agent.Logged,
		Paused:    agent.Paused,
		Name:      agent.Name(),
	}
	if u, ok := ix.usersByExt[row.Extension]; ok && row.Extension != "" {
		row.UserUUID = u.UUID
		row.Name = u.Name()
	}
	return row
}

// bareNumberRow is the terminal fallback for a reference no directory record
// explains. A matching agent extension still upgrades it; otherwise the row
// renders as Unknown with whatever number the reference carried.
func (ix *Indexes) bareNumberRow(number string) types.RosterRow {
	if number != "" {
		if a, ok := ix.agentsByExt[number]; ok {
			row := types.RosterRow{
				AgentID:   a.ID,
				Number:    a.Number,
				Extension: a.Ext(),
				Logged:    a.Logged,
				Paused:    a.Paused,
				Name:      a.Name(),
			}
			if u, uok := ix.usersByExt[row.Extension]; uok {
				row.UserUUID = u.UUID
				row.Name = u.Name()
			}
			return row
		}
		if u, ok := ix.usersByExt[number]; ok {
			return types.RosterRow{
				UserUUID:  u.UUID,
				Name:      u.Name(),
				Extension: u.PrimaryExtension(),
			}
		}
	}
	return types.RosterRow{Name: unknownName, Extension: number}
}
