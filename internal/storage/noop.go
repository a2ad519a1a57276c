package storage

import (
	"context"

	"github.com/pbxops/acdboard/internal/types"
)

// Store defines the history storage interface
type Store interface {
	SaveStateChange(ctx context.Context, rec types.StateChangeRecord) error
	SaveCallRecord(ctx context.Context, rec types.CallRecord) error
	GetStateChanges(ctx context.Context, agentKey string) ([]types.StateChangeRecord, error)
	GetCallRecords(ctx context.Context, dateKey string) ([]types.CallRecord, error)
	GetUserCallsByDate(ctx context.Context, userUUID, date string) ([]types.CallRecord, error)
	TruncateAll(ctx context.Context) error
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveStateChange(context.Context, types.StateChangeRecord) error { return nil }
func (s *NoopStore) SaveCallRecord(context.Context, types.CallRecord) error         { return nil }
func (s *NoopStore) GetStateChanges(context.Context, string) ([]types.StateChangeRecord, error) {
	return nil, nil
}
func (s *NoopStore) GetCallRecords(context.Context, string) ([]types.CallRecord, error) {
	return nil, nil
}
func (s *NoopStore) GetUserCallsByDate(context.Context, string, string) ([]types.CallRecord, error) {
	return nil, nil
}
func (s *NoopStore) TruncateAll(context.Context) error { return nil }
