package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

// marshalData encodes the exported fields of e as a JSON object.
// References are stored as the target's surrogate ID; absent values as null.
// Targets without an ID are returned so the caller can save them first.
func marshalData(a *schema.Analysis, e schema.Entity) ([]byte, error) {
	data := make(map[string]any, len(a.ExportedFields()))
	for _, f := range a.ExportedFields() {
		v := f.Get(e)
		if f.IsRef() {
			target, absent, err := refOf(f, v)
			if err != nil {
				return nil, err
			}
			if absent {
				data[f.Name] = nil
				continue
			}
			if target.EntityID() == "" {
				return nil, fmt.Errorf("%s.%s references an unsaved %s", a.Name(), f.Name, f.Target)
			}
			data[f.Name] = target.EntityID()
			continue
		}
		val, err := f.ToValue(v)
		if err != nil {
			return nil, err
		}
		data[f.Name] = jsonValue(val)
	}
	return json.Marshal(data)
}

func jsonValue(v ir.Value) any {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Bool:
		return bool(val)
	default:
		return nil
	}
}

// unmarshalData decodes a data column into raw field values. Numbers are
// kept as json.Number so int64 values survive without float rounding.
func unmarshalData(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return data, nil
}

// scalarFromJSON converts a decoded JSON value into the Go value passed to
// Field.Set.
func scalarFromJSON(f *schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case schema.KindInt:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%s.%s: want number, got %T", f.Owner, f.Name, v)
		}
		return n.Int64()
	case schema.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%s.%s: want bool, got %T", f.Owner, f.Name, v)
		}
		return b, nil
	case schema.KindString, schema.KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s.%s: want string, got %T", f.Owner, f.Name, v)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%s.%s: %s field is not scalar", f.Owner, f.Name, f.Kind)
}

// sqlArg converts a Match value into a query argument comparable with
// json_extract output. json_extract returns 1 and 0 for JSON booleans.
// The second result is false when the value is absent and must be matched
// with IS NULL.
func sqlArg(f *schema.Field, v any) (any, bool, error) {
	if f.IsRef() {
		target, absent, err := refOf(f, v)
		if err != nil || absent {
			return nil, false, err
		}
		return target.EntityID(), true, nil
	}
	val, err := f.ToValue(v)
	if err != nil {
		return nil, false, err
	}
	switch x := val.(type) {
	case ir.Bool:
		if x {
			return 1, true, nil
		}
		return 0, true, nil
	case ir.Null:
		return nil, false, nil
	default:
		return jsonValue(val), true, nil
	}
}
