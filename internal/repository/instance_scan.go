package repository

import (
	"database/sql"

	"github.com/flowvane/flowvane/pkg/flowvane/domain"
)

func scanInstance(row *sql.Row) (*domain.Instance, error) {
	var inst domain.Instance
	err := row.Scan(
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
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
