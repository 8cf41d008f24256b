package repository

import (
	"database/sql"
	"log/slog"
	"strings"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
)

// HistoryRepository provides methods to persist and query the
// append-only audit ledger. Rows are written once, inside the
// transition transaction, and never updated or deleted.
type HistoryRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewHistoryRepository(db *sql.DB, clock core.Clock) *HistoryRepository {
	return &HistoryRepository{db: db, clock: clock}
}

const historyColumns = ` id, instance_id, transition, from_state, to_state, actor, trigger_type,
		       conditions, actions, snapshot, notes, created `

// saveTx appends one ledger row within the transition transaction.
func (r *HistoryRepository) saveTx(tx *sql.Tx, e *domain.HistoryEntry) error {
	vals := []interface{}{
		e.ID, e.InstanceID, e.Transition, e.FromState, e.ToState, e.Actor, e.Trigger,
		e.Conditions, e.Actions, e.Snapshot, e.Notes, formatDateInDatabase(e.Created),
	}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	query := `
		INSERT INTO workflow_history (
			id, instance_id, transition, from_state, to_state, actor, trigger_type,
			conditions, actions, snapshot, notes, created
		) VALUES (` + strings.Join(pps, ", ") + `)`

	if _, err := tx.Exec(query, vals...); err != nil {
		slog.Error("Failed to save history entry", "error", err, "instance_id", e.InstanceID)
		return err
	}
	return nil
}

// FindAllByInstanceID returns the full ledger for one instance, oldest
// first, so replaying it reconstructs the record's history.
func (r *HistoryRepository) FindAllByInstanceID(instanceID int64) (*[]domain.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM workflow_history
		WHERE instance_id = ` + placeholder(1) + `
		ORDER BY created ASC, id ASC
	`
	rows, err := r.db.Query(query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.InstanceID,
			&e.Transition,
			&e.FromState,
			&e.ToState,
			&e.Actor,
			&e.Trigger,
			&e.Conditions,
			&e.Actions,
			&e.Snapshot,
			&e.Notes,
			&e.Created,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &entries, nil
}
