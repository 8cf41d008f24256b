package repository

import (
	"database/sql"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
)

// ActorRepository persists caller identities for API auth and audit
// attribution. API keys are stored as bcrypt hashes.
type ActorRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewActorRepository(db *sql.DB, clock core.Clock) *ActorRepository {
	return &ActorRepository{db: db, clock: clock}
}

// Save inserts a new actor and returns its generated id.
func (r *ActorRepository) Save(a *domain.Actor) (int64, error) {
	if a.Created.IsZero() {
		a.Created = r.clock.Now().UTC()
	}
	base := `
		INSERT INTO actors (name, api_key, is_system, enabled, created)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `)
	`
	var err error
	if supportsReturning() {
		err = r.db.QueryRow(base+" RETURNING id",
			a.Name, a.ApiKey, a.System, a.Enabled, formatDateInDatabase(a.Created),
		).Scan(&a.ID)
	} else {
		res, e := r.db.Exec(base,
			a.Name, a.ApiKey, a.System, a.Enabled, formatDateInDatabase(a.Created),
		)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				a.ID = id
			}
		}
	}
	return a.ID, err
}

// FindByName fetches an enabled actor by its unique name.
func (r *ActorRepository) FindByName(name string) (*domain.Actor, error) {
	query := `
		SELECT id, name, api_key, is_system, enabled, created
		FROM actors WHERE name = ` + placeholder(1) + ` AND enabled = ` + placeholder(2) + `
	`
	var a domain.Actor
	err := r.db.QueryRow(query, name, true).Scan(
		&a.ID,
		&a.Name,
		&a.ApiKey,
		&a.System,
		&a.Enabled,
		&a.Created,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountAll returns the number of actors, used to decide whether the
// bootstrap actor needs seeding.
func (r *ActorRepository) CountAll() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM actors`).Scan(&n)
	return n, err
}
