// Package storage provides abstractions for the raw-records cache.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/apachehub/deudacero/internal/models"
)

// ErrNoSnapshot is returned when a member has no cached pull yet.
var ErrNoSnapshot = errors.New("no snapshot for member")

// Snapshot is one member's cached raw pull: the normalized group records of
// the last successful refresh. Only raw records are cached; computed
// settlements are always derived fresh.
type Snapshot struct {
	// PullID identifies the refresh that produced this snapshot (UUID).
	PullID string

	// MemberID is the member the pull was made for.
	MemberID int64

	// FetchedAt is when the pull completed.
	FetchedAt time.Time

	// Groups are the normalized per-group records.
	Groups []models.GroupRecords
}

// Store caches raw pulls per member. A member's snapshot is replaced
// wholesale on each successful refresh; there is no partial update.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// in-memory) without changing the service layer.
type Store interface {
	// ReplaceSnapshot atomically replaces the member's cached pull.
	ReplaceSnapshot(ctx context.Context, snapshot *Snapshot) error

	// Snapshot returns the member's latest cached pull, or ErrNoSnapshot.
	Snapshot(ctx context.Context, memberID int64) (*Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}
