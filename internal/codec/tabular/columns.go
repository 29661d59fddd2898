package tabular

import (
	"errors"
	"strconv"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

// cellValue returns the value a record holds at a column path. A null
// reference on the way makes every column below it null.
func cellValue(rec *ir.Record, path []string) ir.Value {
	for _, name := range path[:len(path)-1] {
		rec = rec.Ref(name)
		if rec == nil {
			return ir.Null{}
		}
	}
	return rec.Value(path[len(path)-1])
}

// rowValues projects a record onto columns.
func rowValues(rec *ir.Record, cols []schema.Column, dst []ir.Value) []ir.Value {
	for _, c := range cols {
		dst = append(dst, cellValue(rec, c.Path))
	}
	return dst
}

// bound is a column located at a position of the header.
type bound struct {
	col   schema.Column
	index int
}

// assembler rebuilds records from rows using bound columns.
type assembler struct {
	reg   *schema.Registry
	entry string
}

// assemble builds a record of a's type from the fields listed, reading the
// columns whose path continues below depth. It reports whether any cell was
// non-null. Fields without columns are left out of the record.
func (as *assembler) assemble(a *schema.Analysis, fields []*schema.Field, cols []bound, depth int, row []cell, line int) (*ir.Record, bool, error) {
	rec := ir.NewRecord(a.Name())
	present := false
	for _, f := range fields {
		if !f.IsRef() {
			b, ok := leafColumn(cols, depth, f.Name)
			if !ok {
				continue
			}
			c := row[b.index]
			if c.isNull() {
				rec.SetValue(f.Name, ir.Null{})
				continue
			}
			v, err := b.col.Leaf.Parse(c.text)
			if err != nil {
				return nil, false, as.annotate(err, b.col.Label, line)
			}
			rec.SetValue(f.Name, v)
			present = true
			continue
		}

		sub := nestedColumns(cols, depth, f.Name)
		if len(sub) == 0 {
			continue
		}
		target, err := as.reg.Analyze(f.Target)
		if err != nil {
			return nil, false, err
		}
		nested, ok, err := as.assemble(target, target.IdentityFields(), sub, depth+1, row, line)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			rec.SetRef(f.Name, nil)
			continue
		}
		rec.SetRef(f.Name, nested)
		present = true
	}
	return rec, present, nil
}

// annotate adds the archive position to a conversion error.
func (as *assembler) annotate(err error, label string, line int) error {
	var e *ir.Error
	if errors.As(err, &e) {
		return e.WithDetail("entry", as.entry).
			WithDetail("column", label).
			WithDetail("line", strconv.Itoa(line))
	}
	return err
}

func leafColumn(cols []bound, depth int, name string) (bound, bool) {
	for _, b := range cols {
		if len(b.col.Path) == depth+1 && b.col.Path[depth] == name {
			return b, true
		}
	}
	return bound{}, false
}

func nestedColumns(cols []bound, depth int, name string) []bound {
	var out []bound
	for _, b := range cols {
		if len(b.col.Path) > depth+1 && b.col.Path[depth] == name {
			out = append(out, b)
		}
	}
	return out
}

// bindHeader maps header labels onto the known columns. Unknown and
// repeated labels are format errors, as is a missing required column.
func bindHeader(entry string, header []cell, known, required []schema.Column) ([]bound, error) {
	byLabel := make(map[string]schema.Column, len(known))
	for _, c := range known {
		if _, dup := byLabel[c.Label]; dup {
			return nil, ir.NewSchemaError("", "", "column label %q is ambiguous", c.Label).WithDetail("entry", entry)
		}
		byLabel[c.Label] = c
	}
	seen := make(map[string]bool, len(header))
	out := make([]bound, 0, len(header))
	for i, h := range header {
		c, ok := byLabel[h.text]
		if !ok {
			return nil, ir.NewFormatError("unknown column %q", h.text).WithDetail("entry", entry)
		}
		if seen[h.text] {
			return nil, ir.NewFormatError("column %q appears twice", h.text).WithDetail("entry", entry)
		}
		seen[h.text] = true
		out = append(out, bound{col: c, index: i})
	}
	for _, c := range required {
		if !seen[c.Label] {
			return nil, ir.NewFormatError("missing identity column %q", c.Label).WithDetail("entry", entry)
		}
	}
	return out, nil
}

// labels returns the column labels.
func labels(cols []schema.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Label
	}
	return out
}

// prefixed returns copies of cols with an extra leading label segment.
func prefixed(cols []schema.Column, prefix string) []schema.Column {
	out := make([]schema.Column, len(cols))
	for i, c := range cols {
		out[i] = c.Prefixed(prefix)
	}
	return out
}
