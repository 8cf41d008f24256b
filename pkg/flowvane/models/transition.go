package models

// TriggerType classifies who or what fired a transition, recorded per
// history row for audit purposes.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerAutomatic TriggerType = "automatic"
	TriggerSystem    TriggerType = "system"
)

// Valid reports whether t is one of the known classifications.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerManual, TriggerAutomatic, TriggerSystem:
		return true
	}
	return false
}

// ConditionResult is the outcome of evaluating a transition's condition
// list. Details maps each evaluated expression (with its negation
// prefix, as declared) to its boolean outcome. An empty condition list
// always passes.
type ConditionResult struct {
	Passed  bool            `json:"passed"`
	Failed  []string        `json:"failed,omitempty"`
	Details map[string]bool `json:"details,omitempty"`
}

// ActionTrace records one executed action for the history ledger.
type ActionTrace struct {
	Phase string `json:"phase"` // "pre" or "post"
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// AvailableTransition annotates a transition whose from set matches the
// instance's current state with a live, advisory condition evaluation.
// The engine re-validates everything inside the real transition call, so
// this may be stale by the time the caller acts.
type AvailableTransition struct {
	ID               string   `json:"id"`
	Label            string   `json:"label,omitempty"`
	Icon             string   `json:"icon,omitempty"`
	To               string   `json:"to"`
	Confirm          bool     `json:"confirm,omitempty"`
	CanExecute       bool     `json:"can_execute"`
	FailedConditions []string `json:"failed_conditions,omitempty"`
}

// TransitionEvent is the one-way notification emitted after a
// transition commits. Name is "workflow.<slug>.transitioned".
type TransitionEvent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Workflow   string `json:"workflow"`
	Transition string `json:"transition"`
	FromState  string `json:"from_state"`
	ToState    string `json:"to_state"`
	RecordType string `json:"record_type"`
	RecordID   string `json:"record_id"`
}
