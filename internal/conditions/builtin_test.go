package conditions

import (
	"context"
	"testing"
	"time"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time                         { return c.now }
func (c *stubClock) After(d time.Duration) <-chan time.Time { return time.After(0) }
func (c *stubClock) Sleep(d time.Duration)                  {}

// stubRecord carries fields and relation counts for predicate tests.
type stubRecord struct {
	fields    map[string]any
	relations map[string]int
}

func (r *stubRecord) RecordType() string { return "stub" }
func (r *stubRecord) RecordID() string   { return "1" }

func (r *stubRecord) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

func (r *stubRecord) RelationCount(name string) int { return r.relations[name] }

func TestHasField(t *testing.T) {
	rec := &stubRecord{fields: map[string]any{
		"email": "a@example.com",
		"blank": "",
		"nil":   nil,
		"count": 0,
	}}

	cases := []struct {
		field string
		want  bool
	}{
		{"email", true},
		{"blank", false},
		{"nil", false},
		{"missing", false},
		{"count", true}, // zero is still a value
	}
	for _, tc := range cases {
		got, err := HasField(context.Background(), rec, map[string]any{"field": tc.field})
		if err != nil {
			t.Fatalf("HasField(%s) returned error: %v", tc.field, err)
		}
		if got != tc.want {
			t.Errorf("HasField(%s) = %v, want %v", tc.field, got, tc.want)
		}
	}

	if _, err := HasField(context.Background(), rec, map[string]any{}); err == nil {
		t.Error("expected an error without a field param")
	}
}

func TestFieldEquals_StringRendering(t *testing.T) {
	rec := &stubRecord{fields: map[string]any{"status": "open", "retries": 3}}

	cases := []struct {
		field string
		value any
		want  bool
	}{
		{"status", "open", true},
		{"status", "closed", false},
		{"retries", 3, true},
		{"retries", "3", true}, // JSON callers send strings
		{"retries", float64(3), true},
		{"missing", "x", false},
	}
	for _, tc := range cases {
		got, err := FieldEquals(context.Background(), rec, map[string]any{"field": tc.field, "value": tc.value})
		if err != nil {
			t.Fatalf("FieldEquals(%s, %v) returned error: %v", tc.field, tc.value, err)
		}
		if got != tc.want {
			t.Errorf("FieldEquals(%s, %v) = %v, want %v", tc.field, tc.value, got, tc.want)
		}
	}
}

func TestMinRelated(t *testing.T) {
	rec := &stubRecord{relations: map[string]int{"line_items": 2}}

	got, err := MinRelated(context.Background(), rec, map[string]any{"relation": "line_items", "min": 2})
	if err != nil || !got {
		t.Errorf("expected 2 >= 2 to pass, got %v, %v", got, err)
	}
	// JSON numbers decode as float64.
	got, err = MinRelated(context.Background(), rec, map[string]any{"relation": "line_items", "min": float64(3)})
	if err != nil || got {
		t.Errorf("expected 2 >= 3 to fail, got %v, %v", got, err)
	}
	if _, err := MinRelated(context.Background(), rec, map[string]any{"relation": "line_items", "min": "two"}); err == nil {
		t.Error("expected an error for a non-numeric min")
	}
}

func TestHasRelation(t *testing.T) {
	rec := &stubRecord{relations: map[string]int{"comments": 1}}
	fn := HasRelation(1)

	got, err := fn(context.Background(), rec, map[string]any{"relation": "comments"})
	if err != nil || !got {
		t.Errorf("expected has_relation to pass, got %v, %v", got, err)
	}
	got, err = fn(context.Background(), rec, map[string]any{"relation": "attachments"})
	if err != nil || got {
		t.Errorf("expected has_relation to fail on an empty relation, got %v, %v", got, err)
	}
}

func TestActorCan(t *testing.T) {
	checker := func(ctx context.Context, actor string, permission string) bool {
		return actor == "alice" && permission == "orders.approve"
	}
	fn := ActorCan(checker)
	params := map[string]any{"permission": "orders.approve"}

	ctx := context.WithValue(context.Background(), core.CtxKeyActor, "alice")
	got, err := fn(ctx, &stubRecord{}, params)
	if err != nil || !got {
		t.Errorf("expected alice to hold the permission, got %v, %v", got, err)
	}

	ctx = context.WithValue(context.Background(), core.CtxKeyActor, "bob")
	got, err = fn(ctx, &stubRecord{}, params)
	if err != nil || got {
		t.Errorf("expected bob to be denied, got %v, %v", got, err)
	}

	// No checker wired in: fail closed.
	got, err = ActorCan(nil)(ctx, &stubRecord{}, params)
	if err != nil || got {
		t.Errorf("expected actor_can to fail closed without a checker, got %v, %v", got, err)
	}
}

func TestElapsedSince(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fn := ElapsedSince(&stubClock{now: now})

	rec := &stubRecord{fields: map[string]any{
		"created_at": now.Add(-2 * time.Hour),
		"shipped_at": now.Add(-10 * time.Minute).Format(time.RFC3339),
		"garbage":    "not a time",
	}}

	got, err := fn(context.Background(), rec, map[string]any{"duration": "1h"})
	if err != nil || !got {
		t.Errorf("expected 2h > 1h on created_at default, got %v, %v", got, err)
	}
	got, err = fn(context.Background(), rec, map[string]any{"duration": "30m", "field": "shipped_at"})
	if err != nil || got {
		t.Errorf("expected 10m < 30m to fail, got %v, %v", got, err)
	}
	if _, err := fn(context.Background(), rec, map[string]any{"duration": "nope"}); err == nil {
		t.Error("expected an error for a bad duration")
	}
	if _, err := fn(context.Background(), rec, map[string]any{"duration": "1h", "field": "garbage"}); err == nil {
		t.Error("expected an error for a non-timestamp field")
	}
}
