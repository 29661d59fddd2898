package schema

import (
	"errors"
	"slices"
	"strings"

	"github.com/roach88/racetrack/internal/ir"
)

// LabelSeparator joins the segments of a flattened column label.
const LabelSeparator = ": "

// Analysis is the derived view of one type.
type Analysis struct {
	Type *Type

	// Fields holds every declared field with its final classification, in
	// declaration order.
	Fields []*Field

	identity  []*Field
	exported  []*Field
	relations []*Field
	byName    map[string]*Field

	columns         []Column
	identityColumns []Column
	columnsErr      error
}

// Name returns the type name.
func (a *Analysis) Name() string { return a.Type.Name }

// Field returns a field by name.
func (a *Analysis) Field(name string) (*Field, bool) {
	f, ok := a.byName[name]
	return f, ok
}

// HasIdentity reports whether the type has identity fields.
func (a *Analysis) HasIdentity() bool { return len(a.identity) > 0 }

// IdentityFields returns the identity fields in key order.
func (a *Analysis) IdentityFields() []*Field { return a.identity }

// IdentityNames returns the identity field names in key order.
func (a *Analysis) IdentityNames() []string { return slices.Clone(a.Type.Identity) }

// ExportedFields returns the Identity and Value fields in declaration order.
func (a *Analysis) ExportedFields() []*Field { return a.exported }

// RelationFields returns the to-many fields in declaration order.
func (a *Analysis) RelationFields() []*Field { return a.relations }

// Columns returns the flattened columns of a full record. It is empty when
// ColumnsErr is not nil.
func (a *Analysis) Columns() []Column { return a.columns }

// IdentityColumns returns the flattened columns of an identity record.
func (a *Analysis) IdentityColumns() []Column { return a.identityColumns }

// ColumnsErr returns a SchemaError when the type has no finite column
// layout, which happens when identities reference each other in a loop.
// Such types can still be walked and imported as nested records.
func (a *Analysis) ColumnsErr() error { return a.columnsErr }

// Column is one leaf of a flattened record. Path holds the field names from
// the outer record down to the scalar field; Label joins them with
// LabelSeparator, e.g. "race: season: name".
type Column struct {
	Label string
	Path  []string
	Leaf  *Field
}

// Prefixed returns a copy of the column with an extra leading label segment.
// The path is unchanged.
func (c Column) Prefixed(prefix string) Column {
	c.Label = prefix + LabelSeparator + c.Label
	return c
}

// analyze derives the analysis of a type. Caller holds r.mu.
func (r *Registry) analyze(name string) (*Analysis, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, ir.NewSchemaError(name, "", "unknown type")
	}

	a := &Analysis{
		Type:   t,
		byName: make(map[string]*Field, len(t.Fields)),
	}
	for i := range t.Fields {
		f := t.Fields[i]
		if f.Class == Value && slices.Contains(t.Identity, f.Name) {
			f.Class = Identity
		}
		fp := &f
		a.Fields = append(a.Fields, fp)
		a.byName[f.Name] = fp
		switch {
		case f.Class.IsExported():
			a.exported = append(a.exported, fp)
		case f.Class.IsRelation():
			a.relations = append(a.relations, fp)
		}
	}
	for _, n := range t.Identity {
		a.identity = append(a.identity, a.byName[n])
	}

	if len(a.relations) > 0 && !a.HasIdentity() {
		return nil, ir.NewSchemaError(name, a.relations[0].Name, "type with relation fields has no identity fields")
	}

	for _, f := range a.Fields {
		if !f.Class.IsRelation() && !f.IsRef() {
			continue
		}
		target, ok := r.types[f.Target]
		if !ok {
			return nil, ir.NewSchemaError(name, f.Name, "target type %q is not registered", f.Target)
		}
		if !target.HasIdentity() {
			return nil, ir.NewSchemaError(name, f.Name, "target type %q has no identity fields", f.Target)
		}
		if f.Inverse != "" {
			if err := checkInverse(t, f, target); err != nil {
				return nil, err
			}
		}
	}

	var err error
	a.identityColumns, err = r.flatten(t, identityOf(t), nil, map[string]bool{t.Name: true})
	if err == nil {
		a.columns, err = r.flatten(t, exportedOf(t), nil, map[string]bool{})
	}
	if errors.Is(err, errIdentityCycle) {
		a.identityColumns, a.columns = nil, nil
		a.columnsErr = err
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// errIdentityCycle marks flatten failures caused by identities that
// reference each other.
var errIdentityCycle = errors.New("identity cycle")

func checkInverse(owner *Type, f *Field, target *Type) error {
	if f.Class != OwnedRelation {
		return ir.NewSchemaError(owner.Name, f.Name, "only owned relations have an inverse")
	}
	i := slices.IndexFunc(target.Fields, func(tf Field) bool { return tf.Name == f.Inverse })
	if i < 0 {
		return ir.NewSchemaError(owner.Name, f.Name, "inverse field %s.%s is not declared", target.Name, f.Inverse)
	}
	inv := target.Fields[i]
	if inv.Class != Value || inv.Kind != KindRef || inv.Target != owner.Name {
		return ir.NewSchemaError(owner.Name, f.Name, "inverse field %s.%s must reference %s", target.Name, f.Inverse, owner.Name)
	}
	return nil
}

func identityOf(t *Type) []Field {
	out := make([]Field, 0, len(t.Identity))
	for _, n := range t.Identity {
		i := slices.IndexFunc(t.Fields, func(f Field) bool { return f.Name == n })
		f := t.Fields[i]
		f.Class = Identity
		out = append(out, f)
	}
	return out
}

func exportedOf(t *Type) []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Class == Value {
			if slices.Contains(t.Identity, f.Name) {
				f.Class = Identity
			}
			out = append(out, f)
		}
	}
	return out
}

// flatten expands fields depth first. Reference fields are replaced by the
// identity columns of their target. visiting guards against identities that
// reference each other, which would have no finite flattening.
func (r *Registry) flatten(t *Type, fields []Field, path []string, visiting map[string]bool) ([]Column, error) {
	var cols []Column
	for i := range fields {
		f := fields[i]
		p := append(slices.Clone(path), f.Name)
		if f.Kind != KindRef {
			cols = append(cols, Column{
				Label: strings.Join(p, LabelSeparator),
				Path:  p,
				Leaf:  &f,
			})
			continue
		}
		target, ok := r.types[f.Target]
		if !ok {
			return nil, ir.NewSchemaError(t.Name, f.Name, "target type %q is not registered", f.Target)
		}
		if !target.HasIdentity() {
			return nil, ir.NewSchemaError(t.Name, f.Name, "target type %q has no identity fields", f.Target)
		}
		if visiting[target.Name] {
			e := ir.NewSchemaError(t.Name, f.Name, "identity of %s refers back to itself through %s", target.Name, strings.Join(p, "."))
			e.Err = errIdentityCycle
			return nil, e
		}
		visiting[target.Name] = true
		nested, err := r.flatten(target, identityOf(target), p, visiting)
		delete(visiting, target.Name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, nested...)
	}
	return cols, nil
}

// LowerFirst lowercases the first letter of a type name, as used for the
// related-side column prefix of relation tables ("Driver" -> "driver").
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
