package engine

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// validateDefinition checks a payload before it is written. Every
// violation is collected so the caller can fix them all at once.
func validateDefinition(slug string, entityType string, payload models.DefinitionPayload) error {
	var errs *multierror.Error

	if slug == "" {
		errs = multierror.Append(errs, fmt.Errorf("slug is required"))
	}
	if entityType == "" {
		errs = multierror.Append(errs, fmt.Errorf("entity type is required"))
	}
	if len(payload.States) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("at least one state is required"))
	}
	if len(payload.Transitions) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("at least one transition is required"))
	}

	if payload.InitialState == "" {
		errs = multierror.Append(errs, fmt.Errorf("initial_state is required"))
	} else if _, ok := payload.States[payload.InitialState]; !ok {
		errs = multierror.Append(errs, fmt.Errorf("initial_state %q is not a declared state", payload.InitialState))
	}

	for id, tr := range payload.Transitions {
		if len(tr.From) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("transition %q has no from state", id))
		}
		for _, from := range tr.From {
			if from == models.WildcardState {
				continue
			}
			if _, ok := payload.States[from]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("transition %q from state %q is not declared", id, from))
			} else if payload.States[from].IsFinal {
				// Final states are informational labels only; an explicit
				// outgoing transition is legal but usually a mistake.
				slog.Warn("Transition declared from a final state", "workflow", slug, "transition", id, "state", from)
			}
		}
		if tr.To == "" {
			errs = multierror.Append(errs, fmt.Errorf("transition %q has no to state", id))
		} else if _, ok := payload.States[tr.To]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("transition %q to state %q is not declared", id, tr.To))
		}
	}

	if errs.ErrorOrNil() != nil {
		return &DefinitionValidationError{Slug: slug, Errs: errs}
	}
	return nil
}
