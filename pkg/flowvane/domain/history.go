package domain

import (
	"database/sql"
	"time"
)

// HistoryEntry is one immutable row of the audit ledger. Rows are
// written once, in the same transaction as the state write, and never
// updated or deleted.
type HistoryEntry struct {
	ID         string
	InstanceID int64
	Transition string
	FromState  string
	ToState    string
	Actor      string
	Trigger    string
	// Conditions is the full evaluation trace as JSON: {expr: bool}.
	Conditions sql.NullString
	// Actions is the ordered JSON list of executed actions, each tagged
	// with its phase (pre/post) and outcome.
	Actions sql.NullString
	// Snapshot captures the tracked record's fields at commit time.
	Snapshot sql.NullString
	Notes    sql.NullString
	Created  time.Time
}
