package engine

import (
	"context"
	"log/slog"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// evaluateConditions runs a transition's condition list against the
// live record. Read-only and lock-free; an empty list always passes.
//
// Resolution order per condition: registry, then the record's
// capability set. A name that resolves nowhere is skipped with a
// warning rather than failed, trading strictness for plugin
// extensibility.
func (e *Engine) evaluateConditions(ctx context.Context, rec core.Record, specs []models.StepSpec) models.ConditionResult {
	result := models.ConditionResult{Passed: true, Details: make(map[string]bool)}

	for _, spec := range specs {
		name, negated := spec.Resolve()

		fn, ok := e.conditions.lookup(name)
		if !ok {
			fn, ok = e.capabilities.condition(rec, name)
		}
		if !ok {
			slog.WarnContext(ctx, "Unknown condition, skipping",
				"condition", name, "record_type", rec.RecordType())
			continue
		}

		passed, err := fn(ctx, rec, spec.Params)
		if err != nil {
			// An erroring predicate fails closed.
			slog.WarnContext(ctx, "Condition evaluation errored",
				"condition", name, "record_type", rec.RecordType(), "error", err)
			passed = false
		}
		if negated {
			passed = !passed
		}

		result.Details[spec.Name] = passed
		if !passed {
			result.Passed = false
			result.Failed = append(result.Failed, spec.Name)
		}
	}
	return result
}
