package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
	"github.com/flowvane/flowvane/pkg/flowvane/models"
)

func TestEvaluateConditions_EmptyListPasses(t *testing.T) {
	env := newTestEnv(nil)
	result := env.engine.evaluateConditions(context.Background(), newOrderRecord("1"), nil)
	if !result.Passed {
		t.Error("an empty condition list must pass")
	}
}

func TestEvaluateConditions_Negation(t *testing.T) {
	env := newTestEnv(nil)
	order := newOrderRecord("1")
	order.fields["archived"] = true

	specs := []models.StepSpec{
		{Name: "!has_field", Params: map[string]any{"field": "deleted_at"}},
		{Name: "!has_field", Params: map[string]any{"field": "archived"}},
	}
	result := env.engine.evaluateConditions(context.Background(), order, specs)
	if result.Passed {
		t.Error("expected the second negated condition to fail")
	}
	if got := result.Details["!has_field"]; got != false {
		t.Errorf("details must be keyed by the declared name including the bang, got %v", result.Details)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "!has_field" {
		t.Errorf("expected failed [!has_field], got %v", result.Failed)
	}
}

func TestEvaluateConditions_UnknownNameSkippedWithWarning(t *testing.T) {
	env := newTestEnv(nil)
	specs := []models.StepSpec{{Name: "no_such_condition"}}
	result := env.engine.evaluateConditions(context.Background(), newOrderRecord("1"), specs)
	if !result.Passed {
		t.Error("an unknown condition is skipped, not failed")
	}
	if _, ok := result.Details["no_such_condition"]; ok {
		t.Error("a skipped condition must not appear in the details")
	}
}

func TestEvaluateConditions_ErrorFailsClosed(t *testing.T) {
	env := newTestEnv(nil)
	env.engine.RegisterCondition("flaky", func(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
		return true, errors.New("backend unavailable")
	})
	result := env.engine.evaluateConditions(context.Background(), newOrderRecord("1"),
		[]models.StepSpec{{Name: "flaky"}})
	if result.Passed {
		t.Error("an erroring predicate must fail closed")
	}
}

func TestEvaluateConditions_CapabilityFallback(t *testing.T) {
	env := newTestEnv(nil)
	env.engine.RegisterCapabilities("order", core.CapabilitySet{
		Conditions: map[string]core.ConditionFunc{
			"is_priority": func(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
				v, _ := rec.(core.FieldReader).Field("priority")
				return v == true, nil
			},
		},
	})

	order := newOrderRecord("1")
	result := env.engine.evaluateConditions(context.Background(), order,
		[]models.StepSpec{{Name: "is_priority"}})
	if result.Passed {
		t.Error("expected is_priority to fail without the field")
	}

	order.fields["priority"] = true
	result = env.engine.evaluateConditions(context.Background(), order,
		[]models.StepSpec{{Name: "is_priority"}})
	if !result.Passed {
		t.Error("expected the record-type capability to resolve and pass")
	}
}

func TestEvaluateConditions_RegistryWinsOverCapability(t *testing.T) {
	env := newTestEnv(nil)
	env.engine.RegisterCapabilities("order", core.CapabilitySet{
		Conditions: map[string]core.ConditionFunc{
			"check": func(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
				return false, nil
			},
		},
	})
	env.engine.RegisterCondition("check", func(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
		return true, nil
	})

	result := env.engine.evaluateConditions(context.Background(), newOrderRecord("1"),
		[]models.StepSpec{{Name: "check"}})
	if !result.Passed {
		t.Error("the shared registry must take precedence over the capability set")
	}
}

func TestTransition_DispatchesDottedActionToBus(t *testing.T) {
	bus := &mockBus{
		HasServiceFunc: func(name string) bool { return name == "billing.charge" },
	}
	env := newTestEnv(bus)

	payload := orderFlowPayload()
	submit := payload.Transitions["submit"]
	submit.Conditions = nil
	submit.Actions = []models.StepSpec{{Name: "billing.charge", Params: map[string]any{"amount": 100}}}
	payload.Transitions["submit"] = submit
	if _, err := env.engine.DefineWorkflow(context.Background(), "order_flow", "order", payload, ""); err != nil {
		t.Fatalf("DefineWorkflow returned error: %v", err)
	}

	order := newOrderRecord("1")
	env.engine.InitializeWorkflow(context.Background(), order, "order_flow", "alice")

	if _, err := env.engine.Transition(context.Background(), TransitionRequest{
		Record: order, Transition: "submit", Workflow: "order_flow", Actor: "alice",
	}); err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}

	if len(bus.Calls) != 1 || bus.Calls[0] != "billing.charge" {
		t.Fatalf("expected one bus call to billing.charge, got %v", bus.Calls)
	}
}

func TestTransition_UnknownActionSkipped(t *testing.T) {
	env := newTestEnv(nil)

	payload := orderFlowPayload()
	submit := payload.Transitions["submit"]
	submit.Conditions = nil
	submit.Actions = []models.StepSpec{{Name: "no_such_action"}}
	payload.Transitions["submit"] = submit
	if _, err := env.engine.DefineWorkflow(context.Background(), "order_flow", "order", payload, ""); err != nil {
		t.Fatalf("DefineWorkflow returned error: %v", err)
	}

	order := newOrderRecord("1")
	env.engine.InitializeWorkflow(context.Background(), order, "order_flow", "alice")

	inst, err := env.engine.Transition(context.Background(), TransitionRequest{
		Record: order, Transition: "submit", Workflow: "order_flow", Actor: "alice",
	})
	if err != nil {
		t.Fatalf("an unknown action must be skipped, got %v", err)
	}
	if inst.CurrentState != "pending" {
		t.Errorf("expected state pending, got %q", inst.CurrentState)
	}
}

func TestTransition_UpdateFieldAction(t *testing.T) {
	env := newTestEnv(nil)

	payload := orderFlowPayload()
	submit := payload.Transitions["submit"]
	submit.Conditions = nil
	submit.Actions = []models.StepSpec{
		{Name: "update_field", Params: map[string]any{"field": "submitted", "value": true}},
	}
	payload.Transitions["submit"] = submit
	if _, err := env.engine.DefineWorkflow(context.Background(), "order_flow", "order", payload, ""); err != nil {
		t.Fatalf("DefineWorkflow returned error: %v", err)
	}

	order := newOrderRecord("1")
	env.engine.InitializeWorkflow(context.Background(), order, "order_flow", "alice")

	if _, err := env.engine.Transition(context.Background(), TransitionRequest{
		Record: order, Transition: "submit", Workflow: "order_flow", Actor: "alice",
	}); err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if v, ok := order.Field("submitted"); !ok || v != true {
		t.Errorf("expected update_field to set submitted=true, got %v", v)
	}
}
