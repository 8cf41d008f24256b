package models

import "time"

// DefineApiRequest upserts a workflow definition.
type DefineApiRequest struct {
	EntityType string            `json:"entity_type"`
	Owner      string            `json:"owner,omitempty"`
	Definition DefinitionPayload `json:"definition"`
}

// InitializeApiRequest starts (or finds) a workflow instance for a record.
type InitializeApiRequest struct {
	Record   RecordRef `json:"record"`
	Workflow string    `json:"workflow"`
}

// TransitionApiRequest fires one transition over the HTTP API.
type TransitionApiRequest struct {
	Record     RecordRef      `json:"record"`
	Transition string         `json:"transition"`
	Workflow   string         `json:"workflow,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Trigger    TriggerType    `json:"trigger,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// ApiInstance is the wire shape of a workflow instance.
type ApiInstance struct {
	ID             int64          `json:"id"`
	Workflow       string         `json:"workflow"`
	RecordType     string         `json:"record_type"`
	RecordID       string         `json:"record_id"`
	CurrentState   string         `json:"current_state"`
	PreviousState  string         `json:"previous_state,omitempty"`
	TransitionedAt time.Time      `json:"transitioned_at"`
	TransitionedBy string         `json:"transitioned_by"`
	Data           map[string]any `json:"data,omitempty"`
}

// ApiHistoryEntry is the wire shape of one audit ledger row.
type ApiHistoryEntry struct {
	ID         string          `json:"id"`
	Transition string          `json:"transition"`
	FromState  string          `json:"from_state"`
	ToState    string          `json:"to_state"`
	Actor      string          `json:"actor"`
	Trigger    string          `json:"trigger"`
	Conditions map[string]bool `json:"conditions,omitempty"`
	Actions    []ActionTrace   `json:"actions,omitempty"`
	Snapshot   map[string]any  `json:"snapshot,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Created    time.Time       `json:"created"`
}

// ApiDefinition is the export shape of a definition for UI consumption.
type ApiDefinition struct {
	Slug         string                    `json:"slug"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description,omitempty"`
	EntityType   string                    `json:"entity_type"`
	InitialState string                    `json:"initial_state"`
	States       map[string]StateSpec      `json:"states"`
	Transitions  map[string]TransitionSpec `json:"transitions"`
	Owner        string                    `json:"owner,omitempty"`
	Active       bool                      `json:"active"`
}
