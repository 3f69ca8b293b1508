package repositories

import (
	"context"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

// SnapshotRepository defines durable storage for per-meeting token snapshots
type SnapshotRepository interface {
	// Save deep-merges delta into the meeting's snapshot
	Save(ctx context.Context, key entities.MeetingKey, delta entities.TokenMap) error

	// Load reads one meeting's snapshot; a missing snapshot is an empty map
	Load(ctx context.Context, key entities.MeetingKey) (entities.TokenMap, error)

	// LoadAll reads every discoverable snapshot. Partitions that fail are
	// left out of the result and reported through the returned error.
	LoadAll(ctx context.Context) (map[entities.MeetingKey]entities.TokenMap, error)
}
