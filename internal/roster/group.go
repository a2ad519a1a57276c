package roster

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/types"
)

// Config controls grouping and ordering.
type Config struct {
	// OutsideLabel names the synthetic roster that holds every directory
	// user, queue member or not.
	OutsideLabel string

	// PriorityPattern, when non-empty, floats queues whose label contains it
	// (case-insensitive) to the front of the queue list.
	PriorityPattern string
}

// Result is the grouped view ready to be swapped into the store.
type Result struct {
	Queues  []types.QueueMeta
	Rosters map[string][]types.RosterRow
}

// Build resolves every queue membership against the directories and groups
// the rows by queue label. Each entity appears once per queue it belongs to,
// and every user with an extension additionally appears in the outside
// roster.
func Build(queues []platform.Queue, users []platform.User, agents []platform.Agent, cfg Config) Result {
	ix := NewIndexes(users, agents)

	res := Result{Rosters: make(map[string][]types.RosterRow)}
	queueIDs := make(map[string]int)

	for _, q := range sortQueues(queues, cfg.PriorityPattern) {
		label := q.DisplayLabel()
		if _, seen := queueIDs[label]; !seen {
			queueIDs[label] = q.NumericID()
			res.Queues = append(res.Queues, types.QueueMeta{ID: q.NumericID(), Label: label})
		}
		id := queueIDs[label]

		seen := make(map[types.Key]bool)
		for _, r := range res.Rosters[label] {
			seen[r.Key()] = true
		}

		var rows []types.RosterRow
		for _, m := range q.Members.Users {
			rows = append(rows, ix.ResolveUserMember(m))
		}
		for _, m := range q.Members.Agents {
			rows = append(rows, ix.ResolveAgentMember(m))
		}
		for _, row := range rows {
			key := row.Key()
			// Unknown rows have an empty key and always render.
			if key != (types.Key{}) {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			row.QueueID = id
			row.QueueLabel = label
			res.Rosters[label] = append(res.Rosters[label], row)
		}
	}

	if cfg.OutsideLabel != "" {
		res.Queues = append(res.Queues, types.QueueMeta{Label: cfg.OutsideLabel})
		res.Rosters[cfg.OutsideLabel] = outsideRows(users, ix, cfg.OutsideLabel)
	}

	for label := range res.Rosters {
		sortRows(res.Rosters[label])
	}
	return res
}

// outsideRows projects every directory user with an extension into the
// synthetic roster, bound to their ACD agent when one shares the extension.
func outsideRows(users []platform.User, ix *Indexes, label string) []types.RosterRow {
	var rows []types.RosterRow
	for _, u := range users {
		ext := u.PrimaryExtension()
		if ext == "" {
			continue
		}
		row := types.RosterRow{
			UserUUID:   u.UUID,
			Name:       u.Name(),
			Extension:  ext,
			QueueLabel: label,
		}
		if a, ok := ix.AgentByExtension(ext); ok {
			row.AgentID = a.ID
			row.Number = a.Number
			row.Logged = a.Logged
			row.Paused = a.Paused
		}
		rows = append(rows, row)
	}
	return rows
}

// sortQueues orders queues by label, with priority-pattern matches first.
func sortQueues(queues []platform.Queue, pattern string) []platform.Queue {
	sorted := append([]platform.Queue(nil), queues...)
	pattern = strings.ToLower(pattern)
	priority := func(q platform.Queue) bool {
		return pattern != "" && strings.Contains(strings.ToLower(q.DisplayLabel()), pattern)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := priority(sorted[i]), priority(sorted[j])
		if pi != pj {
			return pi
		}
		return strings.ToLower(sorted[i].DisplayLabel()) < strings.ToLower(sorted[j].DisplayLabel())
	})
	return sorted
}

// sortRows orders roster rows by name, breaking ties on extension. Extensions
// compare numerically when both parse, so 99 sorts before 100.
func sortRows(rows []types.RosterRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		ni, nj := strings.ToLower(rows[i].Name), strings.ToLower(rows[j].Name)
		if ni != nj {
			return ni < nj
		}
		return extLess(rows[i].Extension, rows[j].Extension)
	})
}

func extLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
