package engine

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time                         { return c.now }
func (c *fakeClock) After(d time.Duration) <-chan time.Time { return time.After(0) }
func (c *fakeClock) Sleep(d time.Duration)                  {}

// memStore backs the mock repos with an in-memory table so the engine's
// read-modify-commit cycle behaves like the real thing, version checks
// included.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	definitions map[string]*domain.Definition
	instances   map[int64]*domain.Instance
	ledger      []domain.HistoryEntry
}

func newMemStore() *memStore {
	return &memStore{
		nextID:      1,
		definitions: make(map[string]*domain.Definition),
		instances:   make(map[int64]*domain.Instance),
	}
}

type memDefinitionRepo struct{ store *memStore }

func (r *memDefinitionRepo) Save(def *domain.Definition) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existing, ok := r.store.definitions[def.Slug]; ok {
		def.ID = existing.ID
	} else {
		def.ID = r.store.nextID
		r.store.nextID++
	}
	copied := *def
	r.store.definitions[def.Slug] = &copied
	return nil
}

func (r *memDefinitionRepo) FindBySlug(slug string) (*domain.Definition, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	def, ok := r.store.definitions[slug]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *def
	return &copied, nil
}

func (r *memDefinitionRepo) FindByID(id int64) (*domain.Definition, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, def := range r.store.definitions {
		if def.ID == id {
			copied := *def
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memDefinitionRepo) FindAll() (*[]domain.Definition, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	defs := make([]domain.Definition, 0, len(r.store.definitions))
	for _, def := range r.store.definitions {
		defs = append(defs, *def)
	}
	return &defs, nil
}

type memInstanceRepo struct {
	store *memStore
	// CommitTransitionFunc overrides the default commit when set.
	CommitTransitionFunc func(inst *domain.Instance, during func() *domain.HistoryEntry) (bool, error)
}

func (r *memInstanceRepo) FindOrCreate(inst *domain.Instance) (*domain.Instance, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.instances {
		if existing.DefinitionID == inst.DefinitionID &&
			existing.RecordType == inst.RecordType && existing.RecordID == inst.RecordID {
			copied := *existing
			return &copied, false, nil
		}
	}
	inst.ID = r.store.nextID
	r.store.nextID++
	copied := *inst
	r.store.instances[inst.ID] = &copied
	out := *inst
	return &out, true, nil
}

func (r *memInstanceRepo) FindByDefinitionAndRecord(definitionID int64, recordType, recordID string) (*domain.Instance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, inst := range r.store.instances {
		if inst.DefinitionID == definitionID && inst.RecordType == recordType && inst.RecordID == recordID {
			copied := *inst
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memInstanceRepo) FindByID(id int64) (*domain.Instance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	inst, ok := r.store.instances[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *inst
	return &copied, nil
}

func (r *memInstanceRepo) FindByRecord(recordType, recordID string) (*[]domain.Instance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Instance
	for _, inst := range r.store.instances {
		if inst.RecordType == recordType && inst.RecordID == recordID {
			out = append(out, *inst)
		}
	}
	return &out, nil
}

func (r *memInstanceRepo) CommitTransition(inst *domain.Instance, during func() *domain.HistoryEntry) (bool, error) {
	if r.CommitTransitionFunc != nil {
		return r.CommitTransitionFunc(inst, during)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.instances[inst.ID]
	if !ok || stored.Version != inst.Version {
		return false, nil
	}
	entry := during()
	updated := *inst
	updated.Version = inst.Version + 1
	r.store.instances[inst.ID] = &updated
	r.store.ledger = append(r.store.ledger, *entry)
	inst.Version++
	return true, nil
}

type memHistoryRepo struct{ store *memStore }

func (r *memHistoryRepo) FindAllByInstanceID(instanceID int64) (*[]domain.HistoryEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.HistoryEntry
	for _, e := range r.store.ledger {
		if e.InstanceID == instanceID {
			out = append(out, e)
		}
	}
	return &out, nil
}

// mockBus is a ServiceBus with Func field overrides.
type mockBus struct {
	HasServiceFunc func(name string) bool
	CallFunc       func(name string, payload map[string]any) error
	Calls          []string
}

func (b *mockBus) HasService(name string) bool {
	if b.HasServiceFunc != nil {
		return b.HasServiceFunc(name)
	}
	return false
}

func (b *mockBus) Call(ctx context.Context, name string, payload map[string]any) error {
	b.Calls = append(b.Calls, name)
	if b.CallFunc != nil {
		return b.CallFunc(name, payload)
	}
	return nil
}

// orderRecord mimics a commerce order being tracked.
type orderRecord struct {
	id     string
	fields map[string]any
	// mirrored state per workflow slug
	mirrored map[string]string
	lines    int
}

func newOrderRecord(id string) *orderRecord {
	return &orderRecord{id: id, fields: map[string]any{}, mirrored: map[string]string{}}
}

func (o *orderRecord) RecordType() string { return "order" }
func (o *orderRecord) RecordID() string   { return o.id }

func (o *orderRecord) Field(name string) (any, bool) {
	v, ok := o.fields[name]
	return v, ok
}

func (o *orderRecord) SetField(name string, value any) error {
	o.fields[name] = value
	return nil
}

func (o *orderRecord) NodeState() string { return o.mirrored["order_flow"] }

func (o *orderRecord) SetNodeState(workflow string, state string) error {
	o.mirrored[workflow] = state
	return nil
}

func (o *orderRecord) Snapshot() map[string]any {
	snap := make(map[string]any, len(o.fields))
	for k, v := range o.fields {
		snap[k] = v
	}
	return snap
}

func (o *orderRecord) RelationCount(name string) int {
	if name == "line_items" {
		return o.lines
	}
	return 0
}

// orderFlowPayload is the example schema: draft -> pending -> confirmed
// with a wildcard cancel into a final state.
func orderFlowPayload() models.DefinitionPayload {
	return models.DefinitionPayload{
		Name:         "Order Flow",
		InitialState: "draft",
		States: map[string]models.StateSpec{
			"draft":     {Label: "Draft"},
			"pending":   {Label: "Pending"},
			"confirmed": {Label: "Confirmed"},
			"cancelled": {Label: "Cancelled", IsFinal: true},
		},
		Transitions: map[string]models.TransitionSpec{
			"submit": {
				From:       models.FromSpec{"draft"},
				To:         "pending",
				Conditions: []models.StepSpec{{Name: "has_field", Params: map[string]any{"field": "customer_email"}}},
			},
			"confirm": {
				From:       models.FromSpec{"pending"},
				To:         "confirmed",
				Conditions: []models.StepSpec{{Name: "min_related", Params: map[string]any{"relation": "line_items", "min": 1}}},
			},
			"cancel": {
				From: models.FromSpec{"*"},
				To:   "cancelled",
			},
		},
	}
}

type testEnv struct {
	store        *memStore
	instanceRepo *memInstanceRepo
	engine       *Engine
	clock        *fakeClock
}

func newTestEnv(bus core.ServiceBus) *testEnv {
	store := newMemStore()
	instanceRepo := &memInstanceRepo{store: store}
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	eng := NewEngine(&memDefinitionRepo{store: store}, instanceRepo, &memHistoryRepo{store: store}, bus, nil, clock)
	return &testEnv{store: store, instanceRepo: instanceRepo, engine: eng, clock: clock}
}
