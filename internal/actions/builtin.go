// Package actions ships the built-in action vocabulary.
package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
)

// EventSink receives events from the dispatch_event built-in. The
// engine wires its own emitter in here.
type EventSink func(name string, payload map[string]any)

// Builtins returns the standard action set.
func Builtins(clock core.Clock, events EventSink) map[string]core.ActionFunc {
	return map[string]core.ActionFunc{
		"log":             Log,
		"update_field":    UpdateField,
		"touch_timestamp": TouchTimestamp(clock),
		"dispatch_event":  DispatchEvent(events),
	}
}

// Log writes a structured log line; params.message is the text, every
// other param is logged as-is.
func Log(ctx context.Context, rec core.Record, data map[string]any, params map[string]any) error {
	msg, _ := params["message"].(string)
	if msg == "" {
		msg = "workflow action"
	}
	attrs := []any{"record_type", rec.RecordType(), "record_id", rec.RecordID()}
	for k, v := range params {
		if k == "message" {
			continue
		}
		attrs = append(attrs, k, v)
	}
	slog.InfoContext(ctx, msg, attrs...)
	return nil
}

// UpdateField writes params.value into params.field on the record.
func UpdateField(ctx context.Context, rec core.Record, data map[string]any, params map[string]any) error {
	field, ok := params["field"].(string)
	if !ok || field == "" {
		return fmt.Errorf("update_field requires a field param")
	}
	value, ok := params["value"]
	if !ok {
		return fmt.Errorf("update_field requires a value param")
	}
	fw, ok := rec.(core.FieldWriter)
	if !ok {
		return fmt.Errorf("record %s does not accept field writes", rec.RecordType())
	}
	return fw.SetField(field, value)
}

// TouchTimestamp stamps the current time into params.field.
func TouchTimestamp(clock core.Clock) core.ActionFunc {
	return func(ctx context.Context, rec core.Record, data map[string]any, params map[string]any) error {
		field, ok := params["field"].(string)
		if !ok || field == "" {
			return fmt.Errorf("touch_timestamp requires a field param")
		}
		fw, ok := rec.(core.FieldWriter)
		if !ok {
			return fmt.Errorf("record %s does not accept field writes", rec.RecordType())
		}
		return fw.SetField(field, clock.Now().UTC())
	}
}

// DispatchEvent emits a named event carrying the record identity, the
// instance data bag and any extra params.
func DispatchEvent(events EventSink) core.ActionFunc {
	return func(ctx context.Context, rec core.Record, data map[string]any, params map[string]any) error {
		name, ok := params["event"].(string)
		if !ok || name == "" {
			return fmt.Errorf("dispatch_event requires an event param")
		}
		if events == nil {
			slog.WarnContext(ctx, "No event sink configured, dropping event", "event", name)
			return nil
		}
		payload := map[string]any{
			"record_type": rec.RecordType(),
			"record_id":   rec.RecordID(),
			"data":        data,
		}
		for k, v := range params {
			if k == "event" {
				continue
			}
			payload[k] = v
		}
		events(name, payload)
		return nil
	}
}
