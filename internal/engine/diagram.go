package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// GenerateDiagram derives a mermaid flowchart from a definition: nodes
// are states, edges are transitions. Pure and side-effect free, meant
// for documentation and debugging tooling.
func (e *Engine) GenerateDiagram(slug string) (string, error) {
	_, payload, err := e.resolveDefinition(slug)
	if err != nil {
		return "", err
	}
	return buildFlowChart(payload), nil
}

func buildFlowChart(payload *models.DefinitionPayload) string {
	var sb strings.Builder

	startClass := "fill:#5568FE,stroke:#3346FF,stroke-width:2px,color:#fff,rx:10,ry:10;"
	finalClass := "fill:#4ECDC4,stroke:#1F9C8C,stroke-width:2px,color:#fff,stroke-dasharray: 4 2,rx:10,ry:10;"
	normalClass := "fill:#F0F4F8,stroke:#B0C4DE,stroke-width:1px,color:#333,rx:10,ry:10;"

	stateKeys := make([]string, 0, len(payload.States))
	for key := range payload.States {
		stateKeys = append(stateKeys, key)
	}
	sort.Strings(stateKeys)

	transitionKeys := make([]string, 0, len(payload.Transitions))
	for key := range payload.Transitions {
		transitionKeys = append(transitionKeys, key)
	}
	sort.Strings(transitionKeys)

	sb.WriteString("flowchart TD\n")

	// Node declarations carry the display labels.
	for _, key := range stateKeys {
		sb.WriteString(fmt.Sprintf("    %s[%s]\n", key, payload.States[key].Label))
	}

	// Edges; a wildcard from fans out from every declared state.
	for _, id := range transitionKeys {
		tr := payload.Transitions[id]
		froms := []string(tr.From)
		if tr.From.IsWildcard() {
			froms = stateKeys
		}
		for _, from := range froms {
			if from == models.WildcardState {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", from, id, tr.To))
		}
	}

	sb.WriteString(fmt.Sprintf("    classDef startClass %s\n", startClass))
	sb.WriteString(fmt.Sprintf("    classDef finalClass %s\n", finalClass))
	sb.WriteString(fmt.Sprintf("    classDef normalClass %s\n", normalClass))

	for _, key := range stateKeys {
		switch {
		case key == payload.InitialState:
			sb.WriteString(fmt.Sprintf("    class %s startClass;\n", key))
		case payload.States[key].IsFinal:
			sb.WriteString(fmt.Sprintf("    class %s finalClass;\n", key))
		default:
			sb.WriteString(fmt.Sprintf("    class %s normalClass;\n", key))
		}
	}

	return sb.String()
}
