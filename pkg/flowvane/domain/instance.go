package domain

import (
	"database/sql"
	"time"
)

// Instance binds one workflow definition to one external record. Unique
// per (definition_id, record_type, record_id); created once and never
// deleted, including after reaching a final state.
type Instance struct {
	ID             int64
	DefinitionID   int64
	RecordType     string
	RecordID       string
	CurrentState   string
	PreviousState  sql.NullString
	TransitionedAt time.Time
	TransitionedBy string
	// DataVars accumulates the free-form data bag across transitions,
	// shallow-merged and never reset. Stored as JSON.
	DataVars sql.NullString
	// Version backs optimistic locking on the transition commit.
	Version int64
	Created time.Time
	Modified time.Time
}
