package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrNoWorkflowInstance means the record has no instance for the
// requested workflow; callers must initialize first.
var ErrNoWorkflowInstance = errors.New("no workflow instance for record")

// ErrAmbiguousWorkflow means the record is bound to more than one
// workflow and the caller did not disambiguate by slug.
var ErrAmbiguousWorkflow = errors.New("record has multiple workflow instances, workflow slug required")

// ErrTransitionConflict means a concurrent transition committed first;
// the caller may re-read and retry if the transition is still valid.
var ErrTransitionConflict = errors.New("instance was transitioned concurrently")

// DefinitionValidationError rejects a whole defineWorkflow write,
// listing every violation found rather than just the first.
type DefinitionValidationError struct {
	Slug string
	Errs *multierror.Error
}

func (e *DefinitionValidationError) Error() string {
	return fmt.Sprintf("definition %q is invalid: %s", e.Slug, e.Errs.Error())
}

func (e *DefinitionValidationError) Unwrap() error { return e.Errs }

// Violations returns the individual violation messages.
func (e *DefinitionValidationError) Violations() []string {
	out := make([]string, 0, len(e.Errs.Errors))
	for _, err := range e.Errs.Errors {
		out = append(out, err.Error())
	}
	return out
}

// UnknownTransitionError means the transition id is not declared on the
// owning definition.
type UnknownTransitionError struct {
	Workflow   string
	Transition string
}

func (e *UnknownTransitionError) Error() string {
	return fmt.Sprintf("workflow %q has no transition %q", e.Workflow, e.Transition)
}

// InvalidTransitionStateError is the structural failure: the instance's
// current state is not in the transition's from set. Independent of
// business guards.
type InvalidTransitionStateError struct {
	Transition   string
	CurrentState string
	From         []string
}

func (e *InvalidTransitionStateError) Error() string {
	return fmt.Sprintf("transition %q cannot fire from state %q (from: %s)",
		e.Transition, e.CurrentState, strings.Join(e.From, ", "))
}

// ConditionsNotMetError is the business guard failure, carrying the
// names of the failed conditions. Recoverable: nothing was written.
type ConditionsNotMetError struct {
	Transition string
	Failed     []string
}

func (e *ConditionsNotMetError) Error() string {
	return fmt.Sprintf("conditions not met for transition %q: %s",
		e.Transition, strings.Join(e.Failed, ", "))
}

// PreActionError aborts the whole transition before any state write.
type PreActionError struct {
	Action string
	Err    error
}

func (e *PreActionError) Error() string {
	return fmt.Sprintf("pre-action %q failed: %v", e.Action, e.Err)
}

func (e *PreActionError) Unwrap() error { return e.Err }
