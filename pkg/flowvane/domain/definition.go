package domain

import (
	"database/sql"
	"time"
)

// Definition is one row of workflow_definitions: a named state machine
// schema bound to a target entity type. The schema itself (states and
// transitions) is stored as JSON and decoded by the models package.
type Definition struct {
	ID          int64
	Slug        string
	Name        string
	Description string
	EntityType  string
	Schema      string
	Owner       sql.NullString
	Active      bool
	Created     time.Time
	Updated     time.Time
}
