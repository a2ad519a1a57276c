package types

import "time"

// StateChangeRecord is one persisted agent state transition, keyed for
// per-agent history queries.
type StateChangeRecord struct {
	AgentKey  string `dynamodbav:"AgentKey" json:"agentKey"`   // agent number, or user uuid when no ACD identity
	Timestamp string `dynamodbav:"Timestamp" json:"timestamp"` // RFC3339Nano, sort key
	AgentID   int    `dynamodbav:"AgentID" json:"agentId,omitempty"`
	UserUUID  string `dynamodbav:"UserUUID" json:"userUuid,omitempty"`
	Field     string `dynamodbav:"Field" json:"field"` // "logged" or "paused"
	Value     bool   `dynamodbav:"Value" json:"value"`
	Source    string `dynamodbav:"Source" json:"source"` // "feed", "intent", "rollback"
}

// CallRecord is one completed call observed through the in-progress call diff,
// keyed by day for dashboard history queries.
type CallRecord struct {
	DateKey   string    `dynamodbav:"DateKey" json:"dateKey"` // YYYY-MM-DD
	CallID    string    `dynamodbav:"CallID" json:"callId"`   // assigned at record time
	UserUUID  string    `dynamodbav:"UserUUID" json:"userUuid"`
	Number    string    `dynamodbav:"Number" json:"number"`
	Name      string    `dynamodbav:"Name" json:"name,omitempty"`
	Direction string    `dynamodbav:"Direction" json:"direction"`
	StartedAt time.Time `dynamodbav:"StartedAt" json:"startedAt"`
	EndedAt   time.Time `dynamodbav:"EndedAt" json:"endedAt"`
	Duration  float64   `dynamodbav:"Duration" json:"durationSeconds"`
}
