package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racetrack/internal/ir"
)

type status string

func (s status) String() string { return string(s) }

func TestFieldParse(t *testing.T) {
	enum := &Field{Owner: "Driver", Name: "status", Kind: KindEnum, Enum: []string{"Active", "Retired"}}
	tests := []struct {
		name  string
		field *Field
		text  string
		want  ir.Value
	}{
		{"string", &Field{Kind: KindString}, "Yellow", ir.String("Yellow")},
		{"empty string stays a string", &Field{Kind: KindString}, "", ir.String("")},
		{"int", &Field{Kind: KindInt}, "42", ir.Int(42)},
		{"int with spaces", &Field{Kind: KindInt}, " -7 ", ir.Int(-7)},
		{"bool true", &Field{Kind: KindBool}, "TRUE", ir.Bool(true)},
		{"bool zero", &Field{Kind: KindBool}, "0", ir.Bool(false)},
		{"enum exact", enum, "Active", ir.String("Active")},
		{"enum case insensitive", enum, "retired", ir.String("Retired")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		field *Field
		text  string
	}{
		{"int", &Field{Owner: "Driver", Name: "xp", Kind: KindInt}, "lots"},
		{"bool", &Field{Owner: "Finish", Name: "finished", Kind: KindBool}, "maybe"},
		{"enum", &Field{Owner: "Driver", Name: "status", Kind: KindEnum, Enum: []string{"Active"}}, "Sleeping"},
		{"ref", &Field{Owner: "Driver", Name: "team", Kind: KindRef}, "Y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.field.Parse(tt.text)
			require.Error(t, err)
			assert.True(t, ir.IsConversionError(err))

			var e *ir.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.field.Owner, e.Type)
			assert.Equal(t, tt.field.Name, e.Field)
		})
	}
}

func TestFieldToValue(t *testing.T) {
	enum := &Field{Kind: KindEnum, Enum: []string{"Active", "Retired"}}

	v, err := (&Field{Kind: KindInt}).ToValue(3)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), v)

	v, err = enum.ToValue(status("active"))
	require.NoError(t, err)
	assert.Equal(t, ir.String("Active"), v)

	v, err = (&Field{Kind: KindString}).ToValue(nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, v)

	_, err = (&Field{Kind: KindBool}).ToValue("true")
	assert.True(t, ir.IsConversionError(err))

	_, err = enum.ToValue("Sleeping")
	assert.True(t, ir.IsConversionError(err))
}

func TestFieldFromValue(t *testing.T) {
	got, err := (&Field{Kind: KindInt}).FromValue(ir.Int(9))
	require.NoError(t, err)
	assert.Equal(t, int64(9), got)

	got, err = (&Field{Kind: KindString}).FromValue(ir.Null{})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = (&Field{Kind: KindEnum, Enum: []string{"Active"}}).FromValue(ir.String("ACTIVE"))
	require.NoError(t, err)
	assert.Equal(t, "Active", got)

	_, err = (&Field{Kind: KindInt}).FromValue(ir.String("9"))
	assert.True(t, ir.IsConversionError(err))
}
