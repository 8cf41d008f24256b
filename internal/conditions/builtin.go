// Package conditions ships the built-in condition vocabulary. Each
// entry is registered under its name when the engine is constructed;
// callers add their own on top through the engine's registry.
package conditions

import (
	"context"
	"fmt"
	"time"

	"github.com/flowvane/flowvane/pkg/flowvane/core"
)

// PermissionChecker answers actor_can. The permission system itself
// lives outside this module; hosts plug theirs in via engine options.
type PermissionChecker func(ctx context.Context, actor string, permission string) bool

// Builtins returns the standard condition set.
func Builtins(clock core.Clock, perms PermissionChecker) map[string]core.ConditionFunc {
	return map[string]core.ConditionFunc{
		"exists":        Exists,
		"has_field":     HasField,
		"field_equals":  FieldEquals,
		"has_relation":  HasRelation(1),
		"min_related":   MinRelated,
		"actor_can":     ActorCan(perms),
		"elapsed_since": ElapsedSince(clock),
	}
}

// Exists passes when the record is present at all.
func Exists(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
	return rec != nil, nil
}

// HasField passes when the named field is present and non-empty.
func HasField(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
	field, err := paramString(params, "field")
	if err != nil {
		return false, err
	}
	fr, ok := rec.(core.FieldReader)
	if !ok {
		return false, nil
	}
	v, ok := fr.Field(field)
	if !ok || v == nil {
		return false, nil
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false, nil
	}
	return true, nil
}

// FieldEquals compares the named field against the expected value using
// string rendering, so 1 and "1" compare equal across JSON and Go
// callers.
func FieldEquals(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
	field, err := paramString(params, "field")
	if err != nil {
		return false, err
	}
	want, ok := params["value"]
	if !ok {
		return false, fmt.Errorf("field_equals requires a value param")
	}
	fr, isReader := rec.(core.FieldReader)
	if !isReader {
		return false, nil
	}
	got, present := fr.Field(field)
	if !present {
		return false, nil
	}
	return fmt.Sprint(got) == fmt.Sprint(want), nil
}

// HasRelation returns a condition passing when the named relation has
// at least min entries.
func HasRelation(min int) core.ConditionFunc {
	return func(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
		relation, err := paramString(params, "relation")
		if err != nil {
			return false, err
		}
		rc, ok := rec.(core.RelationCounter)
		if !ok {
			return false, nil
		}
		return rc.RelationCount(relation) >= min, nil
	}
}

// MinRelated passes when the named relation has at least params.min
// entries.
func MinRelated(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
	relation, err := paramString(params, "relation")
	if err != nil {
		return false, err
	}
	min, err := paramInt(params, "min")
	if err != nil {
		return false, err
	}
	rc, ok := rec.(core.RelationCounter)
	if !ok {
		return false, nil
	}
	return rc.RelationCount(relation) >= min, nil
}

// ActorCan asks the host's permission checker whether the acting user
// holds params.permission. Without a checker wired in, the condition
// fails closed.
func ActorCan(perms PermissionChecker) core.ConditionFunc {
	return func(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
		permission, err := paramString(params, "permission")
		if err != nil {
			return false, err
		}
		if perms == nil {
			return false, nil
		}
		actor, _ := ctx.Value(core.CtxKeyActor).(string)
		return perms(ctx, actor, permission), nil
	}
}

// ElapsedSince passes once params.duration has elapsed since the
// timestamp in params.field (default created_at). The field may hold a
// time.Time or an RFC3339 string.
func ElapsedSince(clock core.Clock) core.ConditionFunc {
	return func(ctx context.Context, rec core.Record, params map[string]any) (bool, error) {
		durStr, err := paramString(params, "duration")
		if err != nil {
			return false, err
		}
		dur, err := time.ParseDuration(durStr)
		if err != nil {
			return false, fmt.Errorf("elapsed_since: bad duration %q: %w", durStr, err)
		}
		field := "created_at"
		if f, ok := params["field"].(string); ok && f != "" {
			field = f
		}
		fr, ok := rec.(core.FieldReader)
		if !ok {
			return false, nil
		}
		raw, present := fr.Field(field)
		if !present {
			return false, nil
		}
		var ts time.Time
		switch v := raw.(type) {
		case time.Time:
			ts = v
		case string:
			ts, err = time.Parse(time.RFC3339, v)
			if err != nil {
				return false, fmt.Errorf("elapsed_since: field %s is not a timestamp: %w", field, err)
			}
		default:
			return false, fmt.Errorf("elapsed_since: field %s is not a timestamp", field)
		}
		return clock.Now().Sub(ts) >= dur, nil
	}
}

func paramString(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing %s param", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s param must be a non-empty string", key)
	}
	return s, nil
}

func paramInt(params map[string]any, key string) (int, error) {
	switch v := params[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s param must be a number", key)
	}
}
