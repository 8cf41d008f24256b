package core

import "context"

// Record is the contract every tracked business record must satisfy.
// The engine never owns the record's lifecycle; it only needs a stable
// (type, id) identity to bind a workflow instance to it.
type Record interface {
	RecordType() string
	RecordID() string
}

// FieldReader is implemented by records that expose field values to the
// built-in condition vocabulary (has_field, field_equals, ...).
type FieldReader interface {
	Field(name string) (any, bool)
}

// FieldWriter is implemented by records that allow the built-in
// update_field action to write back to them.
type FieldWriter interface {
	SetField(name string, value any) error
}

// StateHolder is implemented by records that carry a conventional state
// field of their own. After a transition commits the engine mirrors the
// new state onto the record, best effort.
type StateHolder interface {
	NodeState() string
	SetNodeState(workflow string, state string) error
}

// Snapshotter lets a record contribute a field snapshot to history rows.
// Records without it are recorded by identity only.
type Snapshotter interface {
	Snapshot() map[string]any
}

// RelationCounter backs the relation-based built-in conditions.
type RelationCounter interface {
	RelationCount(name string) int
}

// ConditionFunc is a named predicate evaluated against a live record.
// Params come from the transition's condition spec.
type ConditionFunc func(ctx context.Context, rec Record, params map[string]any) (bool, error)

// ActionFunc is a named side effect run before or after a transition
// commits. The data bag is the instance's accumulated data merged with
// the incoming payload.
type ActionFunc func(ctx context.Context, rec Record, data map[string]any, params map[string]any) error

// CapabilitySet is the explicit replacement for method-name probing on
// records: a record type registers the conditions and actions it can
// answer for, and the engine falls back to these when a name is not in
// the global registries.
type CapabilitySet struct {
	Conditions map[string]ConditionFunc
	Actions    map[string]ActionFunc
}

// CapabilityProvider may be implemented by a record to carry its own
// capability set instead of (or in addition to) a per-type registration.
type CapabilityProvider interface {
	Capabilities() CapabilitySet
}
