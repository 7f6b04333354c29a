// Package sqlite provides a SQLite-backed implementation of the storage.Store
// interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/apachehub/deudacero/internal/models"
	"github.com/apachehub/deudacero/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceSnapshot deletes the member's previous pull and inserts the new one
// in a single transaction, so readers only ever see a complete pull.
func (s *SQLiteStore) ReplaceSnapshot(ctx context.Context, snapshot *storage.Snapshot) error {
	if snapshot.PullID == "" {
		snapshot.PullID = uuid.New().String()
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshot_edges", "snapshot_member_names", "snapshot_groups", "snapshots"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE member_id = ?", snapshot.MemberID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO snapshots (member_id, pull_id, fetched_at) VALUES (?, ?, ?)",
		snapshot.MemberID, snapshot.PullID, snapshot.FetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, group := range snapshot.Groups {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO snapshot_groups (member_id, group_id, name) VALUES (?, ?, ?)",
			snapshot.MemberID, group.GroupID, group.GroupName,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		for subjectID, name := range group.MemberNames {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO snapshot_member_names (member_id, group_id, subject_id, name) VALUES (?, ?, ?, ?)",
				snapshot.MemberID, group.GroupID, subjectID, name,
			)
			if err != nil {
				return fmt.Errorf("failed to insert member name: %w", err)
			}
		}

		for i, edge := range group.Edges {
			var occurredAt any
			if edge.OccurredAt != nil {
				occurredAt = edge.OccurredAt.UTC().Format(time.RFC3339Nano)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO snapshot_edges (id, member_id, group_id, position, amount, debtor_id, creditor_id, occurred_at, source)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.New().String(), snapshot.MemberID, group.GroupID, i,
				edge.Amount, edge.DebtorID, edge.CreditorID, occurredAt, string(edge.Source),
			)
			if err != nil {
				return fmt.Errorf("failed to insert edge: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Snapshot loads the member's latest cached pull.
func (s *SQLiteStore) Snapshot(ctx context.Context, memberID int64) (*storage.Snapshot, error) {
	snapshot := &storage.Snapshot{MemberID: memberID}

	var fetchedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT pull_id, fetched_at FROM snapshots WHERE member_id = ?", memberID,
	).Scan(&snapshot.PullID, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	snapshot.FetchedAt = time.Unix(fetchedAt, 0)

	groups, err := s.loadGroups(ctx, memberID)
	if err != nil {
		return nil, err
	}
	snapshot.Groups = groups
	return snapshot, nil
}

func (s *SQLiteStore) loadGroups(ctx context.Context, memberID int64) ([]models.GroupRecords, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, name FROM snapshot_groups WHERE member_id = ? ORDER BY group_id", memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []models.GroupRecords
	index := make(map[int64]int)
	for rows.Next() {
		var group models.GroupRecords
		if err := rows.Scan(&group.GroupID, &group.GroupName); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		group.MemberNames = make(map[int64]string)
		index[group.GroupID] = len(groups)
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nameRows, err := s.db.QueryContext(ctx,
		"SELECT group_id, subject_id, name FROM snapshot_member_names WHERE member_id = ?", memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query member names: %w", err)
	}
	defer nameRows.Close()
	for nameRows.Next() {
		var groupID, subjectID int64
		var name string
		if err := nameRows.Scan(&groupID, &subjectID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan member name: %w", err)
		}
		if i, ok := index[groupID]; ok {
			groups[i].MemberNames[subjectID] = name
		}
	}
	if err := nameRows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT group_id, amount, debtor_id, creditor_id, occurred_at, source
		 FROM snapshot_edges WHERE member_id = ? ORDER BY group_id, position`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var groupID int64
		var edge models.DebtEdge
		var occurredAt sql.NullString
		var source string
		if err := edgeRows.Scan(&groupID, &edge.Amount, &edge.DebtorID, &edge.CreditorID, &occurredAt, &source); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge.Source = models.EdgeSource(source)
		if occurredAt.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, occurredAt.String); err == nil {
				edge.OccurredAt = &ts
			}
		}
		if i, ok := index[groupID]; ok {
			groups[i].Edges = append(groups[i].Edges, edge)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}
