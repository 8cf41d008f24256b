package repository

import (
	"database/sql"

	"github.com/flowvane/flowvane/internal/config"
	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
)

// DefinitionRepository persists workflow definitions (the schemas).
type DefinitionRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewDefinitionRepository(db *sql.DB, clock core.Clock) *DefinitionRepository {
	return &DefinitionRepository{db: db, clock: clock}
}

const definitionColumns = ` id, slug, name, description, entity_type, schema_json, owner, active, created, updated `

// Save upserts a definition by its unique slug.
func (r *DefinitionRepository) Save(def *domain.Definition) error {
	query := ""
	db := config.GetSystemSettingString(config.DATABASE_TYPE)
	if db == config.DATABASE_TYPE_POSTGRES || db == config.DATABASE_TYPE_SQLLITE {
		query = `
		INSERT INTO workflow_definitions (slug, name, description, entity_type, schema_json, owner, active, created, updated)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `, ` + placeholder(8) + `, ` + placeholder(9) + `)
		ON CONFLICT (slug)
		DO UPDATE SET name = EXCLUDED.name,
			description = EXCLUDED.description,
			entity_type = EXCLUDED.entity_type,
			schema_json = EXCLUDED.schema_json,
			owner = EXCLUDED.owner,
			active = EXCLUDED.active,
			updated = EXCLUDED.updated
	`
	} else if db == config.DATABASE_TYPE_MYSQL {
		query = `
		INSERT INTO workflow_definitions (slug, name, description, entity_type, schema_json, owner, active, created, updated)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `, ` + placeholder(8) + `, ` + placeholder(9) + `)
		ON DUPLICATE KEY UPDATE name = VALUES(name),
			description = VALUES(description),
			entity_type = VALUES(entity_type),
			schema_json = VALUES(schema_json),
			owner = VALUES(owner),
			active = VALUES(active),
			updated = VALUES(updated)
	`
	} else {
		panic("Unknown database type trying to save workflow definition")
	}

	_, err := r.db.Exec(query,
		def.Slug,
		def.Name,
		def.Description,
		def.EntityType,
		def.Schema,
		def.Owner,
		def.Active,
		formatDateInDatabase(def.Created),
		formatDateInDatabase(def.Updated),
	)
	return err
}

// FindBySlug fetches a definition by its unique slug.
func (r *DefinitionRepository) FindBySlug(slug string) (*domain.Definition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM workflow_definitions WHERE slug = ` + placeholder(1) + `
	`
	return r.scanOne(r.db.QueryRow(query, slug))
}

// FindByID fetches a definition by its row id.
func (r *DefinitionRepository) FindByID(id int64) (*domain.Definition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM workflow_definitions WHERE id = ` + placeholder(1) + `
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

func (r *DefinitionRepository) scanOne(row *sql.Row) (*domain.Definition, error) {
	var def domain.Definition
	err := row.Scan(
		&def.ID,
		&def.Slug,
		&def.Name,
		&def.Description,
		&def.EntityType,
		&def.Schema,
		&def.Owner,
		&def.Active,
		&def.Created,
		&def.Updated,
	)
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// FindAll returns all definitions ordered by slug.
func (r *DefinitionRepository) FindAll() (*[]domain.Definition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM workflow_definitions
		ORDER BY slug
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]domain.Definition, 0)
	for rows.Next() {
		var d domain.Definition
		if err := rows.Scan(&d.ID, &d.Slug, &d.Name, &d.Description, &d.EntityType, &d.Schema, &d.Owner, &d.Active, &d.Created, &d.Updated); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &defs, nil
}
