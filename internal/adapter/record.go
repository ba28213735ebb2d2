// Package adapter turns loosely-shaped backend signal payloads into canonical
// core.Signal values. Nothing here returns an error: missing or malformed fields
// resolve to documented defaults.
package adapter

import (
	"encoding/json"
	"strings"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// Record is a raw signal record as sent by the backend.
type Record struct {
	raw gjson.Result
}

// ParseRecord wraps a JSON object. Invalid JSON yields an empty record.
func ParseRecord(data []byte) Record {
	if !gjson.ValidBytes(data) {
		return Record{}
	}
	return Record{raw: gjson.ParseBytes(data)}
}

// NewRecord builds a record from a decoded map.
func NewRecord(fields map[string]any) Record {
	data, err := json.Marshal(fields)
	if err != nil {
		return Record{}
	}
	return ParseRecord(data)
}

// FromSignal renders a canonical signal back into a record.
func FromSignal(s core.Signal) Record {
	data, err := json.Marshal(s)
	if err != nil {
		return Record{}
	}
	return ParseRecord(data)
}

// UnmarshalJSON lets []Record decode straight from a response body.
func (r *Record) UnmarshalJSON(data []byte) error {
	*r = ParseRecord(data)
	return nil
}

// MarshalJSON returns the original payload.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.raw.Raw == "" {
		return []byte("{}"), nil
	}
	return []byte(r.raw.Raw), nil
}

// IsObject reports whether the record holds a JSON object.
func (r Record) IsObject() bool {
	return r.raw.IsObject()
}

// Has reports whether a non-null value exists at path.
func (r Record) Has(path string) bool {
	_, ok := r.get(path)
	return ok
}

func (r Record) get(path string) (gjson.Result, bool) {
	if !r.raw.IsObject() {
		return gjson.Result{}, false
	}
	v := r.raw.Get(escapePath(path))
	if !v.Exists() || v.Type == gjson.Null {
		return gjson.Result{}, false
	}
	return v, true
}

// escapePath leaves dotted paths intact but protects gjson wildcard characters
// that can appear in backend keys.
func escapePath(path string) string {
	return strings.NewReplacer("*", `\*`, "?", `\?`).Replace(path)
}

// firstString returns the first alias holding a non-empty string.
func (r Record) firstString(aliases ...string) (string, bool) {
	for _, a := range aliases {
		v, ok := r.get(a)
		if !ok || v.IsObject() || v.IsArray() {
			continue
		}
		s, err := cast.ToStringE(v.Value())
		if err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// firstNumber returns the first alias holding a finite number. Numeric strings
// are accepted.
func (r Record) firstNumber(aliases ...string) (float64, bool) {
	for _, a := range aliases {
		v, ok := r.get(a)
		if !ok || v.IsObject() || v.IsArray() {
			continue
		}
		f, err := cast.ToFloat64E(v.Value())
		if err != nil {
			continue
		}
		if finite(f) {
			return f, true
		}
	}
	return 0, false
}

// firstBool returns the first alias holding something bool-like.
func (r Record) firstBool(aliases ...string) (bool, bool) {
	for _, a := range aliases {
		v, ok := r.get(a)
		if !ok {
			continue
		}
		b, err := cast.ToBoolE(v.Value())
		if err == nil {
			return b, true
		}
	}
	return false, false
}

// firstStrings returns the first alias holding a non-empty list of strings.
// Plain strings are split on commas.
func (r Record) firstStrings(aliases ...string) ([]string, bool) {
	for _, a := range aliases {
		v, ok := r.get(a)
		if !ok {
			continue
		}
		var out []string
		switch {
		case v.IsArray():
			for _, item := range v.Array() {
				if s := strings.TrimSpace(item.String()); s != "" {
					out = append(out, s)
				}
			}
		case v.Type == gjson.String:
			for _, part := range strings.Split(v.String(), ",") {
				if s := strings.TrimSpace(part); s != "" {
					out = append(out, s)
				}
			}
		}
		if len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}

// keys returns the object keys at path in document order.
func (r Record) keys(path string) []string {
	v, ok := r.get(path)
	if !ok || !v.IsObject() {
		return nil
	}
	var out []string
	v.ForEach(func(key, _ gjson.Result) bool {
		out = append(out, key.String())
		return true
	})
	return out
}
