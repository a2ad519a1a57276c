package reconcile

import "strings"

// CanonicalName normalizes an event name for matching. Platform versions
// disagree on separators and casing ("agent_status_update" vs
// "AgentStatusUpdate"), so matching runs on the lowercased name with
// separators stripped.
func CanonicalName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '_', '-', '.', ' ':
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
