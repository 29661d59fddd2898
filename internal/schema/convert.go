package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/racetrack/internal/ir"
)

// ToValue converts the Go value returned by Get into an ir.Value.
// Reference fields are not scalar and are rejected.
func (f *Field) ToValue(v any) (ir.Value, error) {
	if isNil(v) {
		return ir.Null{}, nil
	}
	switch f.Kind {
	case KindString:
		if s, ok := v.(string); ok {
			return ir.String(s), nil
		}
	case KindInt:
		switch n := v.(type) {
		case int64:
			return ir.Int(n), nil
		case int:
			return ir.Int(n), nil
		case int32:
			return ir.Int(n), nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return ir.Bool(b), nil
		}
	case KindEnum:
		var s string
		switch e := v.(type) {
		case string:
			s = e
		case fmt.Stringer:
			s = e.String()
		default:
			return nil, f.conversionError(fmt.Sprint(v), fmt.Errorf("unexpected Go type %T", v))
		}
		canon, ok := f.canonicalEnum(s)
		if !ok {
			return nil, f.conversionError(s, fmt.Errorf("not one of %s", strings.Join(f.Enum, ", ")))
		}
		return ir.String(canon), nil
	case KindRef:
		return nil, f.conversionError(fmt.Sprint(v), fmt.Errorf("reference field has no scalar value"))
	}
	return nil, f.conversionError(fmt.Sprint(v), fmt.Errorf("unexpected Go type %T for %s field", v, f.Kind))
}

// FromValue converts an ir.Value into the Go value passed to Set.
// Null converts to nil.
func (f *Field) FromValue(v ir.Value) (any, error) {
	if ir.IsNull(v) {
		return nil, nil
	}
	switch f.Kind {
	case KindString:
		if s, ok := v.(ir.String); ok {
			return string(s), nil
		}
	case KindInt:
		if n, ok := v.(ir.Int); ok {
			return int64(n), nil
		}
	case KindBool:
		if b, ok := v.(ir.Bool); ok {
			return bool(b), nil
		}
	case KindEnum:
		if s, ok := v.(ir.String); ok {
			canon, found := f.canonicalEnum(string(s))
			if !found {
				return nil, f.conversionError(string(s), fmt.Errorf("not one of %s", strings.Join(f.Enum, ", ")))
			}
			return canon, nil
		}
	}
	return nil, f.conversionError(v.Text(), fmt.Errorf("value of type %T does not fit %s field", v, f.Kind))
}

// Parse converts text into a value of the field's kind. Callers decide
// whether an empty cell means null before calling Parse; Parse never returns
// Null for a string field.
func (f *Field) Parse(text string) (ir.Value, error) {
	switch f.Kind {
	case KindString:
		return ir.String(text), nil
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, f.conversionError(text, err)
		}
		return ir.Int(n), nil
	case KindBool:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true", "1", "yes":
			return ir.Bool(true), nil
		case "false", "0", "no":
			return ir.Bool(false), nil
		}
		return nil, f.conversionError(text, fmt.Errorf("not a boolean"))
	case KindEnum:
		canon, ok := f.canonicalEnum(text)
		if !ok {
			return nil, f.conversionError(text, fmt.Errorf("not one of %s", strings.Join(f.Enum, ", ")))
		}
		return ir.String(canon), nil
	default:
		return nil, f.conversionError(text, fmt.Errorf("%s field cannot be parsed from text", f.Kind))
	}
}

// canonicalEnum matches s against the declared enum spellings, ignoring case
// and surrounding space.
func (f *Field) canonicalEnum(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, e := range f.Enum {
		if strings.EqualFold(e, s) {
			return e, true
		}
	}
	return "", false
}

func (f *Field) conversionError(text string, err error) *ir.Error {
	return ir.NewConversionError(f.Owner, f.Name, text, err)
}
