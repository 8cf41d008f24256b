package repository

import (
	"database/sql"
	"log/slog"
	"strings"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
)

// InstanceRepository persists workflow instances, one row per
// (definition, record) binding. It also owns the transition commit,
// which spans the instance update and the history append.
type InstanceRepository struct {
	db      *sql.DB
	clock   core.Clock
	history *HistoryRepository
}

func NewInstanceRepository(db *sql.DB, clock core.Clock, history *HistoryRepository) *InstanceRepository {
	return &InstanceRepository{db: db, clock: clock, history: history}
}

const instanceColumns = ` id, definition_id, record_type, record_id, current_state, previous_state,
		       transitioned_at, transitioned_by, data_vars, version, created, modified `

// FindOrCreate resolves the instance for (definition, record), creating
// it at the given initial values when absent. The insert tolerates a
// unique-key collision so two concurrent first initializations both end
// up reading the same row. The bool result reports whether this call
// created the row.
func (r *InstanceRepository) FindOrCreate(inst *domain.Instance) (*domain.Instance, bool, error) {
	existing, err := r.FindByDefinitionAndRecord(inst.DefinitionID, inst.RecordType, inst.RecordID)
	if err == nil {
		return existing, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	vals := []interface{}{
		inst.DefinitionID, inst.RecordType, inst.RecordID, inst.CurrentState, inst.PreviousState,
		formatDateInDatabase(inst.TransitionedAt), inst.TransitionedBy, inst.DataVars, inst.Version,
		formatDateInDatabase(inst.Created), formatDateInDatabase(inst.Modified),
	}
	pps := make([]string, 0, len(vals))
	for i := range vals {
		pps = append(pps, placeholder(i+1))
	}
	query := insertIgnorePrefix() + `workflow_instances (
		definition_id, record_type, record_id, current_state, previous_state,
		transitioned_at, transitioned_by, data_vars, version, created, modified
	) VALUES (` + strings.Join(pps, ", ") + `)` + insertIgnoreSuffix("definition_id, record_type, record_id")

	res, err := r.db.Exec(query, vals...)
	if err != nil {
		return nil, false, err
	}
	affected, _ := res.RowsAffected()

	// Re-read regardless: a racing caller may have won the insert.
	row, err := r.FindByDefinitionAndRecord(inst.DefinitionID, inst.RecordType, inst.RecordID)
	if err != nil {
		return nil, false, err
	}
	return row, affected == 1, nil
}

// FindByDefinitionAndRecord fetches the unique instance for a
// (definition, record) triple.
func (r *InstanceRepository) FindByDefinitionAndRecord(definitionID int64, recordType, recordID string) (*domain.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE definition_id = ` + placeholder(1) + ` AND record_type = ` + placeholder(2) + ` AND record_id = ` + placeholder(3) + `
	`
	return scanInstance(r.db.QueryRow(query, definitionID, recordType, recordID))
}

// FindByID fetches a single instance by id.
func (r *InstanceRepository) FindByID(id int64) (*domain.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances WHERE id = ` + placeholder(1) + `
	`
	return scanInstance(r.db.QueryRow(query, id))
}

// FindByRecord returns every instance bound to a record, across
// definitions. Callers with more than one workflow per record must
// disambiguate by slug.
func (r *InstanceRepository) FindByRecord(recordType, recordID string) (*[]domain.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE record_type = ` + placeholder(1) + ` AND record_id = ` + placeholder(2) + `
		ORDER BY id
	`
	rows, err := r.db.Query(query, recordType, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []domain.Instance
	for rows.Next() {
		var inst domain.Instance
		if err := rows.Scan(
			&inst.ID,
			&inst.DefinitionID,
			&inst.RecordType,
			&inst.RecordID,
			&inst.CurrentState,
			&inst.PreviousState,
			&inst.TransitionedAt,
			&inst.TransitionedBy,
			&inst.DataVars,
			&inst.Version,
			&inst.Created,
			&inst.Modified,
		); err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &instances, nil
}

// CommitTransition writes the state change and its history row in one
// transaction, guarded by an optimistic version check on the instance.
// Returns false (with the transaction rolled back) when another caller
// committed first; inst is updated in place on success. The during
// callback runs after the version check has succeeded and returns the
// ledger entry to append, so post-transition side effects execute while
// the instance row is still held by this transaction.
func (r *InstanceRepository) CommitTransition(inst *domain.Instance, during func() *domain.HistoryEntry) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}

	query := `
		UPDATE workflow_instances
		SET current_state = ` + placeholder(1) + `, previous_state = ` + placeholder(2) + `,
		    transitioned_at = ` + placeholder(3) + `, transitioned_by = ` + placeholder(4) + `,
		    data_vars = ` + placeholder(5) + `, version = version + 1, modified = ` + nowFunc(r.clock) + `
		WHERE id = ` + placeholder(6) + ` AND version = ` + placeholder(7) + `
	`
	res, err := tx.Exec(query,
		inst.CurrentState,
		inst.PreviousState,
		formatDateInDatabase(inst.TransitionedAt),
		inst.TransitionedBy,
		inst.DataVars,
		inst.ID,
		inst.Version,
	)
	if err != nil {
		tx.Rollback()
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if affected != 1 {
		tx.Rollback()
		return false, nil
	}

	if err := r.history.saveTx(tx, during()); err != nil {
		tx.Rollback()
		return false, err
	}

	if err := tx.Commit(); err != nil {
		slog.Error("Failed to commit transition", "error", err, "instance_id", inst.ID)
		return false, err
	}
	inst.Version++
	return true, nil
}
