package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Reaper drops idle conversation contexts.
type Reaper interface {
	Reap(ctx context.Context) (int, error)
}

// Snapshotter persists an in-memory index.
type Snapshotter interface {
	Save(path string) error
	Size() int
}

// Job names.
const (
	JobReapSessions   = "reap-sessions"
	JobSnapshotVector = "snapshot-vectors"
)

// ReapSessions returns a job that removes expired sessions.
func ReapSessions(r Reaper) Job {
	return func(ctx context.Context) error {
		if _, err := r.Reap(ctx); err != nil {
			return fmt.Errorf("reap sessions: %w", err)
		}
		return nil
	}
}

// SnapshotVectors returns a job that writes the vector index to path.
func SnapshotVectors(idx Snapshotter, path string, logger *zap.Logger) Job {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := idx.Save(path); err != nil {
			return fmt.Errorf("snapshot vectors: %w", err)
		}
		logger.Debug("vector index saved", zap.String("path", path), zap.Int("vectors", idx.Size()))
		return nil
	}
}
