package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/domain"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// runAction executes one action entry. Resolution order: the service
// bus for namespaced names, then the action registry, then the record's
// capability set. An unresolved name is a logged no-op, not an error.
// The returned trace is nil for skipped actions; the ledger records
// executed actions only.
func (e *Engine) runAction(ctx context.Context, rec core.Record, inst *domain.Instance,
	data map[string]any, spec models.StepSpec, phase string) (*models.ActionTrace, error) {

	trace := &models.ActionTrace{Phase: phase, Name: spec.Name, OK: true}

	if strings.Contains(spec.Name, ".") && e.bus != nil && e.bus.HasService(spec.Name) {
		payload := map[string]any{
			"record_type": rec.RecordType(),
			"record_id":   rec.RecordID(),
			"instance_id": inst.ID,
			"data":        data,
		}
		for k, v := range spec.Params {
			payload[k] = v
		}
		if err := e.bus.Call(ctx, spec.Name, payload); err != nil {
			trace.OK = false
			trace.Error = err.Error()
			return trace, err
		}
		return trace, nil
	}

	fn, ok := e.actions.lookup(spec.Name)
	if !ok {
		fn, ok = e.capabilities.action(rec, spec.Name)
	}
	if !ok {
		slog.WarnContext(ctx, "Unknown action, skipping",
			"action", spec.Name, "phase", phase, "record_type", rec.RecordType())
		return nil, nil
	}

	if err := fn(ctx, rec, data, spec.Params); err != nil {
		trace.OK = false
		trace.Error = err.Error()
		return trace, err
	}
	return trace, nil
}
