package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// TransitionRequest carries everything one transition call needs. The
// actor is explicit: there is no ambient current-user lookup.
type TransitionRequest struct {
	Record     core.Record
	Transition string
	// Workflow disambiguates records bound to more than one workflow.
	Workflow string
	Data     map[string]any
	Trigger  models.TriggerType
	Actor    string
	Notes    string
}

// Transition executes one guarded transition as a single atomic unit:
// structural check, condition gate, pre-actions, optimistic state
// commit, state mirroring, post-actions, history append, event
// emission. A failed guard or pre-action leaves no trace: no state
// change and no history row.
func (e *Engine) Transition(ctx context.Context, req TransitionRequest) (*domain.Instance, error) {
	if !req.Trigger.Valid() {
		req.Trigger = models.TriggerManual
	}
	ctx = context.WithValue(ctx, core.CtxKeyActor, req.Actor)

	inst, def, payload, err := e.resolveInstance(req.Record, req.Workflow)
	if err != nil {
		return nil, err
	}

	spec, ok := payload.Transitions[req.Transition]
	if !ok {
		return nil, &UnknownTransitionError{Workflow: def.Slug, Transition: req.Transition}
	}

	if !spec.From.Matches(inst.CurrentState) {
		return nil, &InvalidTransitionStateError{
			Transition:   req.Transition,
			CurrentState: inst.CurrentState,
			From:         spec.From,
		}
	}

	condResult := e.evaluateConditions(ctx, req.Record, spec.Conditions)
	if !condResult.Passed {
		return nil, &ConditionsNotMetError{Transition: req.Transition, Failed: condResult.Failed}
	}

	mergedJSON, merged, err := mergeData(inst.DataVars.String, req.Data)
	if err != nil {
		return nil, err
	}

	traces := make([]models.ActionTrace, 0, len(spec.PreActions)+len(spec.Actions))
	for _, a := range spec.PreActions {
		tr, err := e.runAction(ctx, req.Record, inst, merged, a, "pre")
		if tr != nil {
			traces = append(traces, *tr)
		}
		if err != nil {
			// Abort the whole unit: state untouched, no history row.
			return nil, &PreActionError{Action: a.Name, Err: err}
		}
	}

	fromState := inst.CurrentState
	inst.PreviousState = nullString(fromState)
	inst.CurrentState = spec.To
	inst.TransitionedAt = e.clock.Now().UTC()
	inst.TransitionedBy = req.Actor
	if mergedJSON != "" {
		inst.DataVars = nullString(mergedJSON)
	}

	committed, err := e.instanceRepo.CommitTransition(inst, func() *domain.HistoryEntry {
		// The version check has passed; the instance row is held by
		// this transaction until the history row is in.
		e.mirrorState(ctx, req.Record, def.Slug, spec.To)

		// Post-action failures are logged and skipped: the state write
		// is already in flight and must not be misreported.
		for _, a := range spec.Actions {
			tr, err := e.runAction(ctx, req.Record, inst, merged, a, "post")
			if tr != nil {
				traces = append(traces, *tr)
			}
			if err != nil {
				slog.ErrorContext(ctx, "Post-action failed, continuing",
					"action", a.Name, "transition", req.Transition, "error", err)
			}
		}

		return e.buildHistoryEntry(inst, req, fromState, spec.To, condResult, traces)
	})
	if err != nil {
		return nil, err
	}
	if !committed {
		return nil, fmt.Errorf("transition %q on %s/%s: %w",
			req.Transition, req.Record.RecordType(), req.Record.RecordID(), ErrTransitionConflict)
	}

	slog.InfoContext(ctx, "Transitioned workflow instance",
		"workflow", def.Slug, "transition", req.Transition,
		"from", fromState, "to", spec.To,
		"record_type", req.Record.RecordType(), "record_id", req.Record.RecordID(),
		"actor", req.Actor, "trigger", string(req.Trigger))

	e.emit(models.TransitionEvent{
		ID:         newHistoryID(),
		Name:       fmt.Sprintf("workflow.%s.transitioned", def.Slug),
		Workflow:   def.Slug,
		Transition: req.Transition,
		FromState:  fromState,
		ToState:    spec.To,
		RecordType: req.Record.RecordType(),
		RecordID:   req.Record.RecordID(),
	})

	return e.instanceRepo.FindByID(inst.ID)
}

// AvailableTransitions annotates every transition whose from set
// matches the current state with a live, advisory condition evaluation.
// The engine re-validates inside the real Transition call; a caller
// acting on this list may still lose to a concurrent writer.
func (e *Engine) AvailableTransitions(ctx context.Context, rec core.Record, slug string) ([]models.AvailableTransition, error) {
	inst, _, payload, err := e.resolveInstance(rec, slug)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(payload.Transitions))
	for id := range payload.Transitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.AvailableTransition, 0, len(ids))
	for _, id := range ids {
		spec := payload.Transitions[id]
		if !spec.From.Matches(inst.CurrentState) {
			continue
		}
		result := e.evaluateConditions(ctx, rec, spec.Conditions)
		out = append(out, models.AvailableTransition{
			ID:               id,
			Label:            spec.Label,
			Icon:             spec.Icon,
			To:               spec.To,
			Confirm:          spec.Confirm,
			CanExecute:       result.Passed,
			FailedConditions: result.Failed,
		})
	}
	return out, nil
}

// History returns the full audit ledger of the record's instance,
// oldest entry first.
func (e *Engine) History(ctx context.Context, rec core.Record, slug string) (*[]domain.HistoryEntry, error) {
	inst, _, _, err := e.resolveInstance(rec, slug)
	if err != nil {
		return nil, err
	}
	return e.historyRepo.FindAllByInstanceID(inst.ID)
}

// resolveInstance finds the instance for a record, by slug when given,
// otherwise expecting exactly one bound workflow.
func (e *Engine) resolveInstance(rec core.Record, slug string) (*domain.Instance, *domain.Definition, *models.DefinitionPayload, error) {
	if slug != "" {
		def, payload, err := e.resolveDefinition(slug)
		if err != nil {
			return nil, nil, nil, err
		}
		inst, err := e.instanceRepo.FindByDefinitionAndRecord(def.ID, rec.RecordType(), rec.RecordID())
		if err == sql.ErrNoRows {
			return nil, nil, nil, ErrNoWorkflowInstance
		}
		if err != nil {
			return nil, nil, nil, err
		}
		return inst, def, payload, nil
	}

	instances, err := e.instanceRepo.FindByRecord(rec.RecordType(), rec.RecordID())
	if err != nil {
		return nil, nil, nil, err
	}
	if instances == nil || len(*instances) == 0 {
		return nil, nil, nil, ErrNoWorkflowInstance
	}
	if len(*instances) > 1 {
		return nil, nil, nil, ErrAmbiguousWorkflow
	}
	inst := (*instances)[0]

	def, err := e.definitionRepo.FindByID(inst.DefinitionID)
	if err != nil {
		return nil, nil, nil, err
	}
	payload, err := parseSchema(def)
	if err != nil {
		return nil, nil, nil, err
	}
	return &inst, def, payload, nil
}

// mirrorState copies the committed state onto the record's own state
// field when it carries one. Best effort; the instance row is the
// source of truth.
func (e *Engine) mirrorState(ctx context.Context, rec core.Record, slug string, state string) {
	sh, ok := rec.(core.StateHolder)
	if !ok {
		return
	}
	if err := sh.SetNodeState(slug, state); err != nil {
		slog.WarnContext(ctx, "Failed to mirror state onto record",
			"workflow", slug, "record_type", rec.RecordType(), "record_id", rec.RecordID(), "error", err)
	}
}

func (e *Engine) buildHistoryEntry(inst *domain.Instance, req TransitionRequest,
	fromState, toState string, cond models.ConditionResult, traces []models.ActionTrace) *domain.HistoryEntry {

	entry := &domain.HistoryEntry{
		ID:         newHistoryID(),
		InstanceID: inst.ID,
		Transition: req.Transition,
		FromState:  fromState,
		ToState:    toState,
		Actor:      req.Actor,
		Trigger:    string(req.Trigger),
		Notes:      nullString(req.Notes),
		Created:    e.clock.Now().UTC(),
	}
	if len(cond.Details) > 0 {
		if b, err := json.Marshal(cond.Details); err == nil {
			entry.Conditions = nullString(string(b))
		}
	}
	if len(traces) > 0 {
		if b, err := json.Marshal(traces); err == nil {
			entry.Actions = nullString(string(b))
		}
	}
	entry.Snapshot = nullString(snapshotJSON(req.Record))
	return entry
}

// snapshotJSON captures the record's fields at commit time. Records
// without a Snapshotter are recorded by identity only.
func snapshotJSON(rec core.Record) string {
	var snap map[string]any
	if s, ok := rec.(core.Snapshotter); ok {
		snap = s.Snapshot()
	}
	if snap == nil {
		snap = map[string]any{}
	}
	snap["record_type"] = rec.RecordType()
	snap["record_id"] = rec.RecordID()
	b, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to snapshot record", "record_type", rec.RecordType(), "error", err)
		return ""
	}
	return string(b)
}
