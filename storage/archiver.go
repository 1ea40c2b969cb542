// Package storage archives immutable finalization snapshots to S3-compatible
// object storage for audit. Archival is best-effort: the snapshot in Postgres
// is the source of truth and a failed archive never fails finalization.
package storage

import (
	"context"

	"github.com/athleon/academy-engine/models"
)

// SnapshotArchiver is the port the finalizer writes audit copies through.
// The no-op implementation serves deployments without object storage and
// test runs, the same way the skill-write port has a no-op side.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snapshot *models.FinalizationSnapshot) error
}

// NoopArchiver discards snapshots.
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, *models.FinalizationSnapshot) error {
	return nil
}
