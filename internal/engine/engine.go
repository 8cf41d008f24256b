package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/flowvane/flowvane/internal/actions"
	"github.com/flowvane/flowvane/internal/conditions"
	"github.com/flowvane/flowvane/internal/config"
	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// Engine orchestrates definitions, instances and the audit ledger. All
// state changes to an instance go through Transition; everything else
// is read-only.
type Engine struct {
	definitionRepo DefinitionRepo
	instanceRepo   InstanceRepo
	historyRepo    HistoryRepo
	conditions     *conditionRegistry
	actions        *actionRegistry
	capabilities   *capabilityRegistry
	bus            core.ServiceBus
	clock          core.Clock
	events         chan models.TransitionEvent
}

// NewEngine wires the engine with its stores and the optional
// cross-module service bus and permission checker (both may be nil).
func NewEngine(definitionRepo DefinitionRepo, instanceRepo InstanceRepo, historyRepo HistoryRepo,
	bus core.ServiceBus, perms conditions.PermissionChecker, clock core.Clock) *Engine {

	bufSize := config.GetSystemSettingInteger(config.EVENT_BUFFER_SIZE)
	if bufSize <= 0 {
		bufSize = 256
	}
	e := &Engine{
		definitionRepo: definitionRepo,
		instanceRepo:   instanceRepo,
		historyRepo:    historyRepo,
		capabilities:   newCapabilityRegistry(),
		bus:            bus,
		clock:          clock,
		events:         make(chan models.TransitionEvent, bufSize),
	}
	e.conditions = newConditionRegistry(conditions.Builtins(clock, perms))
	e.actions = newActionRegistry(actions.Builtins(clock, func(name string, payload map[string]any) {
		slog.Info("Workflow action event", "event", name, "payload", payload)
	}))
	return e
}

// RegisterCondition adds or replaces a named condition.
func (e *Engine) RegisterCondition(name string, fn core.ConditionFunc) {
	e.conditions.register(name, fn)
}

// RegisterAction adds or replaces a named action.
func (e *Engine) RegisterAction(name string, fn core.ActionFunc) {
	e.actions.register(name, fn)
}

// RegisterCapabilities binds a capability set to a record type.
func (e *Engine) RegisterCapabilities(recordType string, set core.CapabilitySet) {
	e.capabilities.register(recordType, set)
}

// Events exposes the one-way transition event stream. Events are
// dropped with a warning when nobody drains the channel.
func (e *Engine) Events() <-chan models.TransitionEvent {
	return e.events
}

func (e *Engine) emit(ev models.TransitionEvent) {
	select {
	case e.events <- ev:
	default:
		slog.Warn("Event buffer full, dropping transition event", "event", ev.Name, "record_id", ev.RecordID)
	}
}

// DefineWorkflow validates and upserts a definition by slug. The write
// is all-or-nothing: any violation rejects the whole payload.
func (e *Engine) DefineWorkflow(ctx context.Context, slug string, entityType string, payload models.DefinitionPayload, owner string) (*domain.Definition, error) {
	if err := validateDefinition(slug, entityType, payload); err != nil {
		return nil, err
	}

	schema, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal definition schema: %w", err)
	}

	name := payload.Name
	if name == "" {
		name = slug
	}
	now := e.clock.Now().UTC()
	def := &domain.Definition{
		Slug:        slug,
		Name:        name,
		Description: payload.Description,
		EntityType:  entityType,
		Schema:      string(schema),
		Owner:       nullString(owner),
		Active:      true,
		Created:     now,
		Updated:     now,
	}
	slog.InfoContext(ctx, "Saving workflow definition", "slug", slug, "entity_type", entityType, "owner", owner)
	if err := e.definitionRepo.Save(def); err != nil {
		return nil, err
	}
	return e.definitionRepo.FindBySlug(slug)
}

// InitializeWorkflow resolves (or creates) the instance binding the
// record to the named workflow. Idempotent: an existing instance is
// returned unchanged.
func (e *Engine) InitializeWorkflow(ctx context.Context, rec core.Record, slug string, actor string) (*domain.Instance, error) {
	def, payload, err := e.resolveDefinition(slug)
	if err != nil {
		return nil, err
	}
	if def.EntityType != "" && def.EntityType != rec.RecordType() {
		return nil, fmt.Errorf("workflow %q tracks %s records, got %s", slug, def.EntityType, rec.RecordType())
	}

	now := e.clock.Now().UTC()
	inst, created, err := e.instanceRepo.FindOrCreate(&domain.Instance{
		DefinitionID:   def.ID,
		RecordType:     rec.RecordType(),
		RecordID:       rec.RecordID(),
		CurrentState:   payload.InitialState,
		TransitionedAt: now,
		TransitionedBy: actor,
		Created:        now,
		Modified:       now,
	})
	if err != nil {
		return nil, err
	}
	if created {
		slog.InfoContext(ctx, "Initialized workflow instance",
			"workflow", slug, "record_type", rec.RecordType(), "record_id", rec.RecordID(), "state", inst.CurrentState)
	}
	return inst, nil
}

// GetTransition looks a transition up on a definition by slug. Pure
// lookup, no evaluation.
func (e *Engine) GetTransition(slug string, transitionID string) (*models.TransitionSpec, error) {
	_, payload, err := e.resolveDefinition(slug)
	if err != nil {
		return nil, err
	}
	spec, ok := payload.Transitions[transitionID]
	if !ok {
		return nil, &UnknownTransitionError{Workflow: slug, Transition: transitionID}
	}
	return &spec, nil
}

// CanTransition reports whether the transition exists and may fire from
// the given state, structurally. Conditions are not consulted.
func (e *Engine) CanTransition(slug string, fromState string, transitionID string) (bool, error) {
	_, payload, err := e.resolveDefinition(slug)
	if err != nil {
		return false, err
	}
	spec, ok := payload.Transitions[transitionID]
	if !ok {
		return false, nil
	}
	return spec.From.Matches(fromState), nil
}

// Export renders a definition for UI consumption.
func (e *Engine) Export(slug string) (*models.ApiDefinition, error) {
	def, payload, err := e.resolveDefinition(slug)
	if err != nil {
		return nil, err
	}
	return &models.ApiDefinition{
		Slug:         def.Slug,
		Name:         def.Name,
		Description:  def.Description,
		EntityType:   def.EntityType,
		InitialState: payload.InitialState,
		States:       payload.States,
		Transitions:  payload.Transitions,
		Owner:        def.Owner.String,
		Active:       def.Active,
	}, nil
}

// ListDefinitions exposes the definition list for web/API layers.
func (e *Engine) ListDefinitions() (*[]domain.Definition, error) {
	return e.definitionRepo.FindAll()
}

// resolveDefinition loads an active definition and its parsed schema.
func (e *Engine) resolveDefinition(slug string) (*domain.Definition, *models.DefinitionPayload, error) {
	def, err := e.definitionRepo.FindBySlug(slug)
	if err != nil {
		return nil, nil, fmt.Errorf("workflow %q: %w", slug, err)
	}
	if !def.Active {
		return nil, nil, fmt.Errorf("workflow %q is inactive", slug)
	}
	payload, err := parseSchema(def)
	if err != nil {
		return nil, nil, err
	}
	return def, payload, nil
}

func parseSchema(def *domain.Definition) (*models.DefinitionPayload, error) {
	var payload models.DefinitionPayload
	if err := json.Unmarshal([]byte(def.Schema), &payload); err != nil {
		return nil, fmt.Errorf("definition %q has a corrupt schema: %w", def.Slug, err)
	}
	return &payload, nil
}

func nullString(s string) (ns sql.NullString) {
	if s != "" {
		ns.String = s
		ns.Valid = true
	}
	return
}

// mergeData shallow-merges the incoming payload over the accumulated
// bag. The bag only ever grows; it is never reset.
func mergeData(existing string, incoming map[string]any) (string, map[string]any, error) {
	merged := make(map[string]any)
	if existing != "" && existing != "null" {
		if err := json.Unmarshal([]byte(existing), &merged); err != nil {
			return "", nil, fmt.Errorf("corrupt instance data bag: %w", err)
		}
	}
	for k, v := range incoming {
		merged[k] = v
	}
	if len(merged) == 0 {
		return "", map[string]any{}, nil
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return "", nil, err
	}
	return string(b), merged, nil
}

func newHistoryID() string { return uuid.NewString() }
