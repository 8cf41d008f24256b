package sqllite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowvane/flowvane/internal/engine"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

// invoice is a minimal record for end-to-end engine runs over sqlite.
type invoice struct {
	id     string
	fields map[string]any
}

func (i *invoice) RecordType() string { return "invoice" }
func (i *invoice) RecordID() string   { return i.id }

func (i *invoice) Field(name string) (any, bool) {
	v, ok := i.fields[name]
	return v, ok
}

func (i *invoice) SetField(name string, value any) error {
	i.fields[name] = value
	return nil
}

func invoicePayload() models.DefinitionPayload {
	return models.DefinitionPayload{
		Name:         "Invoice Flow",
		InitialState: "draft",
		States: map[string]models.StateSpec{
			"draft": {Label: "Draft"},
			"sent":  {Label: "Sent"},
			"paid":  {Label: "Paid", IsFinal: true},
		},
		Transitions: map[string]models.TransitionSpec{
			"send": {
				From:       models.FromSpec{"draft"},
				To:         "sent",
				Conditions: []models.StepSpec{{Name: "has_field", Params: map[string]any{"field": "total"}}},
			},
			"pay": {
				From: models.FromSpec{"sent"},
				To:   "paid",
			},
		},
	}
}

// TestEngineLifecycleOverSqlite drives the full define, initialize,
// transition, history cycle against the real repositories.
func TestEngineLifecycleOverSqlite(t *testing.T) {
	runTestWithSetup(t, func(t *testing.T, env *testEnv) {
		eng := engine.NewEngine(env.definitions, env.instances, env.history, nil, nil, env.clock)
		ctx := context.Background()

		if _, err := eng.DefineWorkflow(ctx, "invoice_flow", "invoice", invoicePayload(), "billing"); err != nil {
			t.Fatalf("Failed to define workflow: %v", err)
		}

		inv := &invoice{id: "inv-1", fields: map[string]any{}}
		inst, err := eng.InitializeWorkflow(ctx, inv, "invoice_flow", "system")
		if err != nil {
			t.Fatalf("Failed to initialize workflow: %v", err)
		}
		if inst.CurrentState != "draft" {
			t.Fatalf("Expected initial state draft, got %s", inst.CurrentState)
		}

		// Guard blocks without a total; nothing is written.
		_, err = eng.Transition(ctx, engine.TransitionRequest{
			Record: inv, Transition: "send", Workflow: "invoice_flow", Actor: "alice",
		})
		var notMet *engine.ConditionsNotMetError
		if !errors.As(err, &notMet) {
			t.Fatalf("Expected ConditionsNotMetError, got %v", err)
		}

		inv.fields["total"] = 125.50
		inst, err = eng.Transition(ctx, engine.TransitionRequest{
			Record: inv, Transition: "send", Workflow: "invoice_flow", Actor: "alice",
			Data: map[string]any{"channel": "email"},
		})
		if err != nil {
			t.Fatalf("Failed to send: %v", err)
		}
		if inst.CurrentState != "sent" || inst.Version != 1 {
			t.Fatalf("Expected sent at version 1, got %s at %d", inst.CurrentState, inst.Version)
		}

		env.clock.Advance(time.Minute)
		inst, err = eng.Transition(ctx, engine.TransitionRequest{
			Record: inv, Transition: "pay", Workflow: "invoice_flow", Actor: "bob",
			Trigger: models.TriggerSystem,
		})
		if err != nil {
			t.Fatalf("Failed to pay: %v", err)
		}
		if inst.CurrentState != "paid" || inst.Version != 2 {
			t.Fatalf("Expected paid at version 2, got %s at %d", inst.CurrentState, inst.Version)
		}

		entries, err := eng.History(ctx, inv, "invoice_flow")
		if err != nil {
			t.Fatalf("Failed to read history: %v", err)
		}
		if len(*entries) != 2 {
			t.Fatalf("Expected 2 history rows, got %d", len(*entries))
		}
		first, second := (*entries)[0], (*entries)[1]
		if first.Transition != "send" || first.Actor != "alice" {
			t.Errorf("Unexpected first entry: %+v", first)
		}
		if second.Transition != "pay" || second.Trigger != string(models.TriggerSystem) {
			t.Errorf("Unexpected second entry: %+v", second)
		}
		if !first.Snapshot.Valid {
			t.Error("Expected a record snapshot on the history row")
		}
	})
}
