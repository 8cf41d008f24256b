package domain

import (
	"database/sql"
	"time"
)

// Actor is a caller identity for the HTTP API and the transitioned_by /
// history attribution. ApiKey holds a bcrypt hash, never the key itself.
type Actor struct {
	ID      int64
	Name    string
	ApiKey  sql.NullString
	System  bool
	Enabled bool
	Created time.Time
}
