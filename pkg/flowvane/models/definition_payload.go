package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefinitionPayload is the inbound schema for defineWorkflow, accepted
// as JSON over the API or YAML from a seed directory. It is also what
// gets stored verbatim (as JSON) in the definitions table.
type DefinitionPayload struct {
	Name         string                    `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string                    `json:"description,omitempty" yaml:"description,omitempty"`
	InitialState string                    `json:"initial_state,omitempty" yaml:"initial_state,omitempty"`
	States       map[string]StateSpec      `json:"states" yaml:"states"`
	Transitions  map[string]TransitionSpec `json:"transitions" yaml:"transitions"`
	Config       map[string]any            `json:"config,omitempty" yaml:"config,omitempty"`
}

type StateSpec struct {
	Label   string `json:"label" yaml:"label"`
	Color   string `json:"color,omitempty" yaml:"color,omitempty"`
	IsFinal bool   `json:"is_final,omitempty" yaml:"is_final,omitempty"`
}

type TransitionSpec struct {
	From       FromSpec   `json:"from" yaml:"from"`
	To         string     `json:"to" yaml:"to"`
	Label      string     `json:"label,omitempty" yaml:"label,omitempty"`
	Icon       string     `json:"icon,omitempty" yaml:"icon,omitempty"`
	Confirm    bool       `json:"confirm,omitempty" yaml:"confirm,omitempty"`
	Conditions []StepSpec `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	PreActions []StepSpec `json:"pre_actions,omitempty" yaml:"pre_actions,omitempty"`
	Actions    []StepSpec `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// FromSpec is the source-state set of a transition: a single state key,
// a list of keys, or the wildcard "*" matching any state.
type FromSpec []string

const WildcardState = "*"

// Matches reports whether a transition with this from set may fire from
// the given state.
func (f FromSpec) Matches(state string) bool {
	for _, s := range f {
		if s == WildcardState || s == state {
			return true
		}
	}
	return false
}

// IsWildcard reports whether the set contains the wildcard.
func (f FromSpec) IsWildcard() bool {
	for _, s := range f {
		if s == WildcardState {
			return true
		}
	}
	return false
}

func (f *FromSpec) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*f = FromSpec{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("from must be a state key, a list of state keys or %q", WildcardState)
	}
	*f = FromSpec(list)
	return nil
}

func (f FromSpec) MarshalJSON() ([]byte, error) {
	if len(f) == 1 {
		return json.Marshal(f[0])
	}
	return json.Marshal([]string(f))
}

func (f *FromSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*f = FromSpec{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return fmt.Errorf("from must be a state key, a list of state keys or %q", WildcardState)
	}
	*f = FromSpec(list)
	return nil
}

// StepSpec is one entry of a transition's conditions, pre_actions or
// actions list: either a bare name or {name, params}. Condition names
// may carry a leading "!" for negation.
type StepSpec struct {
	Name   string         `json:"name" yaml:"name"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Resolve strips the negation prefix, returning the bare name and
// whether the step was negated.
func (s StepSpec) Resolve() (name string, negated bool) {
	if strings.HasPrefix(s.Name, "!") {
		return strings.TrimPrefix(s.Name, "!"), true
	}
	return s.Name, false
}

func (s *StepSpec) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		s.Name = name
		return nil
	}
	type alias StepSpec
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return fmt.Errorf("step must be a name or a {name, params} object")
	}
	if a.Name == "" {
		return fmt.Errorf("step object requires a name")
	}
	*s = StepSpec(a)
	return nil
}

func (s StepSpec) MarshalJSON() ([]byte, error) {
	if len(s.Params) == 0 {
		return json.Marshal(s.Name)
	}
	type alias StepSpec
	return json.Marshal(alias(s))
}

func (s *StepSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Name = node.Value
		return nil
	}
	type alias StepSpec
	var a alias
	if err := node.Decode(&a); err != nil {
		return fmt.Errorf("step must be a name or a {name, params} object")
	}
	if a.Name == "" {
		return fmt.Errorf("step object requires a name")
	}
	*s = StepSpec(a)
	return nil
}
