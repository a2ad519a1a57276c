package alerts

import (
	"fmt"

	"github.com/pbxops/acdboard/internal/types"
)

// CheckQueueAlerts evaluates coverage rules against the current roster
// counts. The outside roster never alerts; it has no service level to cover.
func CheckQueueAlerts(counts map[string]types.RosterCounts, outsideLabel string) []types.QueueAlert {
	var alerts []types.QueueAlert
	for label, c := range counts {
		if label == outsideLabel || c.Total == 0 {
			continue
		}

		switch {
		case c.Logged == 0:
			alerts = append(alerts, types.QueueAlert{
				QueueLabel: label,
				Rule:       "no_coverage",
				Severity:   types.SeverityCritical,
				Message:    fmt.Sprintf("No agents logged in (%d assigned)", c.Total),
			})
		case c.Paused == c.Logged:
			alerts = append(alerts, types.QueueAlert{
				QueueLabel: label,
				Rule:       "all_paused",
				Severity:   types.SeverityWarning,
				Message:    fmt.Sprintf("All %d logged-in agents are paused", c.Logged),
			})
		}
	}
	return alerts
}
