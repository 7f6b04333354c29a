package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// All snapshot tables hang off member_id so a member's pull can be replaced
// wholesale in one transaction.
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    member_id INTEGER PRIMARY KEY,
    pull_id TEXT NOT NULL,
    fetched_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_groups (
    member_id INTEGER NOT NULL,
    group_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    PRIMARY KEY (member_id, group_id),
    FOREIGN KEY (member_id) REFERENCES snapshots(member_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS snapshot_member_names (
    member_id INTEGER NOT NULL,
    group_id INTEGER NOT NULL,
    subject_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    PRIMARY KEY (member_id, group_id, subject_id),
    FOREIGN KEY (member_id) REFERENCES snapshots(member_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS snapshot_edges (
    id TEXT PRIMARY KEY,
    member_id INTEGER NOT NULL,
    group_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    amount REAL NOT NULL,
    debtor_id INTEGER NOT NULL,
    creditor_id INTEGER NOT NULL,
    occurred_at TEXT,
    source TEXT NOT NULL,
    FOREIGN KEY (member_id) REFERENCES snapshots(member_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_snapshot_groups_member_id ON snapshot_groups(member_id);
CREATE INDEX IF NOT EXISTS idx_snapshot_member_names_member_id ON snapshot_member_names(member_id);
CREATE INDEX IF NOT EXISTS idx_snapshot_edges_member_group ON snapshot_edges(member_id, group_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
