package engine

import (
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
)

// DefinitionRepo defines the interface for definition persistence,
// matching repository.DefinitionRepository.
type DefinitionRepo interface {
	Save(def *domain.Definition) error
	FindBySlug(slug string) (*domain.Definition, error)
	FindByID(id int64) (*domain.Definition, error)
	FindAll() (*[]domain.Definition, error)
}

// InstanceRepo defines the interface for instance persistence.
type InstanceRepo interface {
	FindOrCreate(inst *domain.Instance) (*domain.Instance, bool, error)
	FindByDefinitionAndRecord(definitionID int64, recordType, recordID string) (*domain.Instance, error)
	FindByID(id int64) (*domain.Instance, error)
	FindByRecord(recordType, recordID string) (*[]domain.Instance, error)
	CommitTransition(inst *domain.Instance, during func() *domain.HistoryEntry) (bool, error)
}

// HistoryRepo defines the interface for audit ledger reads. Writes only
// happen through InstanceRepo.CommitTransition.
type HistoryRepo interface {
	FindAllByInstanceID(instanceID int64) (*[]domain.HistoryEntry, error)
}

// ActorRepo defines the interface for actor persistence, used by the
// HTTP auth layer.
type ActorRepo interface {
	Save(a *domain.Actor) (int64, error)
	FindByName(name string) (*domain.Actor, error)
	CountAll() (int, error)
}
