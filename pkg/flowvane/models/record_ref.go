package models

// RecordRef is the generic record the HTTP API works with: callers
// cannot pass live Go objects over the wire, so they send an identity
// plus the field values conditions should see.
type RecordRef struct {
	Type   string         `json:"record_type"`
	ID     string         `json:"record_id"`
	Fields map[string]any `json:"fields,omitempty"`
}

func (r *RecordRef) RecordType() string { return r.Type }
func (r *RecordRef) RecordID() string   { return r.ID }

func (r *RecordRef) Field(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

func (r *RecordRef) SetField(name string, value any) error {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[name] = value
	return nil
}

func (r *RecordRef) Snapshot() map[string]any {
	snap := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		snap[k] = v
	}
	return snap
}
