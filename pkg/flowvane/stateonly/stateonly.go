// Package stateonly is the reduced workflow flavor: the state lives on
// the record itself, with no instance row and no audit ledger. It
// reuses the same schema, condition and action primitives as the full
// engine, for records whose lifecycle is too lightweight to track.
package stateonly

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// Machine is a code-declared workflow applied directly to records. Its
// schema passes the same validation as a stored definition; build one
// once and share it.
type Machine struct {
	Slug       string
	payload    models.DefinitionPayload
	conditions map[string]core.ConditionFunc
	actions    map[string]core.ActionFunc
	clock      core.Clock
}

// New validates the payload and builds a machine. The condition and
// action maps may be nil; records can still answer through their own
// capability sets.
func New(slug string, payload models.DefinitionPayload,
	conds map[string]core.ConditionFunc, acts map[string]core.ActionFunc, clock core.Clock) (*Machine, error) {

	if len(payload.States) == 0 || len(payload.Transitions) == 0 {
		return nil, fmt.Errorf("machine %q needs at least one state and one transition", slug)
	}
	if _, ok := payload.States[payload.InitialState]; !ok {
		return nil, fmt.Errorf("machine %q: initial state %q is not declared", slug, payload.InitialState)
	}
	for id, tr := range payload.Transitions {
		for _, from := range tr.From {
			if from == models.WildcardState {
				continue
			}
			if _, ok := payload.States[from]; !ok {
				return nil, fmt.Errorf("machine %q: transition %q from unknown state %q", slug, id, from)
			}
		}
		if _, ok := payload.States[tr.To]; !ok {
			return nil, fmt.Errorf("machine %q: transition %q to unknown state %q", slug, id, tr.To)
		}
	}
	if clock == nil {
		clock = core.NewRealClock()
	}
	return &Machine{Slug: slug, payload: payload, conditions: conds, actions: acts, clock: clock}, nil
}

// Initialize stamps the initial state onto a record that has none yet.
func (m *Machine) Initialize(rec core.StateHolder) error {
	if rec.NodeState() != "" {
		return nil
	}
	return rec.SetNodeState(m.Slug, m.payload.InitialState)
}

// Apply fires one transition against the record's own state field. The
// same guard semantics hold as in the full engine; there is just no
// persistence of the attempt.
func (m *Machine) Apply(ctx context.Context, rec interface {
	core.Record
	core.StateHolder
}, transitionID string, data map[string]any) error {

	spec, ok := m.payload.Transitions[transitionID]
	if !ok {
		return fmt.Errorf("machine %q has no transition %q", m.Slug, transitionID)
	}
	current := rec.NodeState()
	if current == "" {
		current = m.payload.InitialState
	}
	if !spec.From.Matches(current) {
		return fmt.Errorf("transition %q cannot fire from state %q", transitionID, current)
	}

	if failed := m.evaluate(ctx, rec, spec.Conditions); len(failed) > 0 {
		return fmt.Errorf("conditions not met for transition %q: %s", transitionID, strings.Join(failed, ", "))
	}

	for _, a := range spec.PreActions {
		if err := m.run(ctx, rec, data, a); err != nil {
			return fmt.Errorf("pre-action %q failed: %w", a.Name, err)
		}
	}

	if err := rec.SetNodeState(m.Slug, spec.To); err != nil {
		return err
	}

	for _, a := range spec.Actions {
		if err := m.run(ctx, rec, data, a); err != nil {
			slog.ErrorContext(ctx, "Post-action failed, continuing",
				"machine", m.Slug, "action", a.Name, "error", err)
		}
	}
	return nil
}

// Available lists the transitions that may structurally fire from the
// record's current state.
func (m *Machine) Available(rec core.StateHolder) []string {
	current := rec.NodeState()
	if current == "" {
		current = m.payload.InitialState
	}
	var out []string
	for id, spec := range m.payload.Transitions {
		if spec.From.Matches(current) {
			out = append(out, id)
		}
	}
	return out
}

func (m *Machine) evaluate(ctx context.Context, rec core.Record, specs []models.StepSpec) []string {
	var failed []string
	for _, spec := range specs {
		name, negated := spec.Resolve()
		fn, ok := m.conditions[name]
		if !ok {
			if cp, isProvider := rec.(core.CapabilityProvider); isProvider {
				fn, ok = cp.Capabilities().Conditions[name]
			}
		}
		if !ok {
			slog.WarnContext(ctx, "Unknown condition, skipping", "machine", m.Slug, "condition", name)
			continue
		}
		passed, err := fn(ctx, rec, spec.Params)
		if err != nil {
			passed = false
		}
		if negated {
			passed = !passed
		}
		if !passed {
			failed = append(failed, spec.Name)
		}
	}
	return failed
}

func (m *Machine) run(ctx context.Context, rec core.Record, data map[string]any, spec models.StepSpec) error {
	fn, ok := m.actions[spec.Name]
	if !ok {
		if cp, isProvider := rec.(core.CapabilityProvider); isProvider {
			fn, ok = cp.Capabilities().Actions[spec.Name]
		}
	}
	if !ok {
		slog.WarnContext(ctx, "Unknown action, skipping", "machine", m.Slug, "action", spec.Name)
		return nil
	}
	return fn(ctx, rec, data, spec.Params)
}
