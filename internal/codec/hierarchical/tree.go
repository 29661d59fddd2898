package hierarchical

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

const listSuffix = "List"

type ownerKey struct {
	typ   string
	field string
	key   string
}

// buildTree converts a dataset into a document tree. Every relation table
// must belong to a record of the dataset, since members are nested inside
// their owner's element.
func buildTree(reg *schema.Registry, ds *ir.Dataset, docName string) (*Node, error) {
	owned := make(map[ownerKey][]*ir.RelationTable)
	for _, t := range ds.Relations {
		k := ownerKey{typ: t.OwnerType, field: t.Field, key: t.Owner.Key()}
		owned[k] = append(owned[k], t)
	}
	used := make(map[*ir.RelationTable]bool, len(ds.Relations))

	root := &Node{Name: docName, Kind: KindRecord}
	for _, sec := range ds.Sections {
		a, err := reg.Analyze(sec.Type)
		if err != nil {
			return nil, err
		}
		list := &Node{Name: sec.Type + listSuffix, Kind: KindList}
		for _, rec := range sec.Records {
			el := recordNode(sec.Type, rec)
			if a.HasIdentity() && len(a.RelationFields()) > 0 {
				key := rec.Project(a.IdentityNames()).Key()
				for _, f := range a.RelationFields() {
					tables := owned[ownerKey{typ: sec.Type, field: f.Name, key: key}]
					if rel := relationNode(f.Name, tables); rel != nil {
						el.Children = append(el.Children, rel)
					}
					for _, t := range tables {
						used[t] = true
					}
				}
			}
			list.Children = append(list.Children, el)
		}
		root.Children = append(root.Children, list)
	}

	for _, t := range ds.Relations {
		if !used[t] {
			e := ir.NewFormatError("relation %s.%s has no owner record in the document", t.OwnerType, t.Field)
			e.Type = t.OwnerType
			e.Field = t.Field
			e.Identity = t.Owner.Pairs()
			return nil, e
		}
	}
	return root, nil
}

// recordNode renders the fields of a record as an element named name.
func recordNode(name string, rec *ir.Record) *Node {
	n := &Node{Name: name, Kind: KindRecord}
	for _, f := range rec.Fields() {
		switch e := f.Entry.(type) {
		case ir.Referenced:
			n.Children = append(n.Children, recordNode(f.Name, e.Record))
		case ir.Direct:
			n.Children = append(n.Children, &Node{
				Name:  f.Name,
				Kind:  KindText,
				Text:  e.Value.Text(),
				Value: e.Value,
				Null:  ir.IsNull(e.Value),
			})
		}
	}
	return n
}

func relationNode(field string, tables []*ir.RelationTable) *Node {
	var members []*Node
	for _, t := range tables {
		for _, m := range t.Members {
			members = append(members, recordNode(t.RelatedType, m))
		}
	}
	if len(members) == 0 {
		return nil
	}
	return &Node{Name: field, Kind: KindList, Children: members}
}

// parser converts a document tree back into a dataset, checking every name
// against the schema.
type parser struct {
	reg     *schema.Registry
	docName string
}

func (p *parser) dataset(root *Node) (*ir.Dataset, error) {
	if root.Name != p.docName {
		return nil, p.errorf(root, "root element is %q, want %q", root.Name, p.docName)
	}
	if !root.blank() {
		return nil, p.errorf(root, "unexpected text in %s", root.Name)
	}

	ds := ir.NewDataset()
	for _, list := range root.Children {
		typ, ok := strings.CutSuffix(list.Name, listSuffix)
		if _, known := p.reg.Type(typ); !ok || !known {
			return nil, p.errorf(list, "unexpected element %q in %s", list.Name, root.Name)
		}
		if !list.blank() {
			return nil, p.errorf(list, "unexpected text in %s", list.Name)
		}
		a, err := p.reg.Analyze(typ)
		if err != nil {
			return nil, err
		}
		sec := ds.AddSection(typ)
		for _, el := range list.Children {
			if el.Name != typ {
				return nil, p.errorf(el, "unexpected element %q in %s, want %q", el.Name, list.Name, typ)
			}
			rec, tables, err := p.instance(a, el)
			if err != nil {
				return nil, err
			}
			sec.Records = append(sec.Records, rec)
			ds.Relations = append(ds.Relations, tables...)
		}
	}
	return ds, nil
}

// instance reads one record element with its relation fields.
func (p *parser) instance(a *schema.Analysis, el *Node) (*ir.Record, []*ir.RelationTable, error) {
	if !el.blank() {
		return nil, nil, p.errorf(el, "unexpected text in %s", el.Name)
	}
	entries := make(map[string]ir.Entry, len(el.Children))
	var relations []*Node
	for _, child := range el.Children {
		f, ok := a.Field(child.Name)
		if !ok || !(f.Class.IsExported() || f.Class.IsRelation()) {
			return nil, nil, p.errorf(child, "unknown field %q for type %s", child.Name, a.Name())
		}
		if _, dup := entries[f.Name]; dup || containsNode(relations, f.Name) {
			return nil, nil, p.errorf(child, "field %q appears twice in %s", f.Name, a.Name())
		}
		switch {
		case f.Class.IsRelation():
			relations = append(relations, child)
		case f.IsRef():
			e, err := p.reference(f, child)
			if err != nil {
				return nil, nil, err
			}
			entries[f.Name] = e
		default:
			v, err := p.scalar(f, child)
			if err != nil {
				return nil, nil, err
			}
			entries[f.Name] = ir.Direct{Value: v}
		}
	}

	rec := ir.NewRecord(a.Name())
	for _, f := range a.ExportedFields() {
		if e, ok := entries[f.Name]; ok {
			rec.Set(f.Name, e)
		}
	}
	if len(relations) == 0 {
		return rec, nil, nil
	}

	for _, f := range a.IdentityFields() {
		if e, ok := entries[f.Name]; !ok || e == ir.NullEntry {
			return nil, nil, p.errorf(el, "%s with relations is missing identity field %q", a.Name(), f.Name)
		}
	}
	owner := rec.Project(a.IdentityNames())

	var tables []*ir.RelationTable
	for _, rn := range relations {
		f, _ := a.Field(rn.Name)
		t, err := p.relation(a, f, owner, rn)
		if err != nil {
			return nil, nil, err
		}
		if t != nil {
			tables = append(tables, t)
		}
	}
	return rec, tables, nil
}

func (p *parser) relation(a *schema.Analysis, f *schema.Field, owner *ir.Record, n *Node) (*ir.RelationTable, error) {
	if !n.blank() {
		return nil, p.errorf(n, "unexpected text in %s.%s", a.Name(), f.Name)
	}
	if len(n.Children) == 0 {
		return nil, nil
	}
	target, err := p.reg.Analyze(f.Target)
	if err != nil {
		return nil, err
	}
	t := &ir.RelationTable{
		OwnerType:   a.Name(),
		Field:       f.Name,
		Kind:        f.Class.RelationKind(),
		RelatedType: f.Target,
		Owner:       owner,
	}
	for _, m := range n.Children {
		if m.Name != f.Target {
			return nil, p.errorf(m, "unexpected element %q in %s.%s, want %q", m.Name, a.Name(), f.Name, f.Target)
		}
		rec, err := p.identity(target, m)
		if err != nil {
			return nil, err
		}
		t.Members = append(t.Members, rec)
	}
	return t, nil
}

// reference reads a nested identity. An empty element is a null reference.
func (p *parser) reference(f *schema.Field, n *Node) (ir.Entry, error) {
	if n.empty() {
		return ir.NullEntry, nil
	}
	if len(n.Children) == 0 {
		return nil, p.errorf(n, "field %s.%s holds text, want the identity of %s", f.Owner, f.Name, f.Target)
	}
	target, err := p.reg.Analyze(f.Target)
	if err != nil {
		return nil, err
	}
	rec, err := p.identity(target, n)
	if err != nil {
		return nil, err
	}
	return ir.Referenced{Record: rec}, nil
}

// identity reads an element that must hold exactly the identity fields of a.
func (p *parser) identity(a *schema.Analysis, n *Node) (*ir.Record, error) {
	if !n.blank() {
		return nil, p.errorf(n, "unexpected text in %s", n.Name)
	}
	entries := make(map[string]ir.Entry, len(n.Children))
	for _, child := range n.Children {
		f, ok := a.Field(child.Name)
		if !ok || f.Class != schema.Identity {
			return nil, p.errorf(child, "unknown identity field %q for type %s", child.Name, a.Name())
		}
		if _, dup := entries[f.Name]; dup {
			return nil, p.errorf(child, "field %q appears twice in %s", f.Name, a.Name())
		}
		if f.IsRef() {
			e, err := p.reference(f, child)
			if err != nil {
				return nil, err
			}
			entries[f.Name] = e
			continue
		}
		v, err := p.scalar(f, child)
		if err != nil {
			return nil, err
		}
		entries[f.Name] = ir.Direct{Value: v}
	}

	rec := ir.NewRecord(a.Name())
	for _, f := range a.IdentityFields() {
		e, ok := entries[f.Name]
		if !ok {
			return nil, p.errorf(n, "%s identity is missing field %q", a.Name(), f.Name)
		}
		rec.Set(f.Name, e)
	}
	return rec, nil
}

func (p *parser) scalar(f *schema.Field, n *Node) (ir.Value, error) {
	if len(n.Children) > 0 {
		return nil, p.errorf(n, "field %s.%s must hold text", f.Owner, f.Name)
	}
	if n.Null {
		return ir.Null{}, nil
	}
	v, err := f.Parse(n.Text)
	if err != nil {
		var e *ir.Error
		if errors.As(err, &e) && n.Line > 0 {
			return nil, e.WithDetail("line", fmt.Sprint(n.Line))
		}
		return nil, err
	}
	return v, nil
}

func (p *parser) errorf(n *Node, format string, args ...any) error {
	e := ir.NewFormatError(format, args...)
	if n.Line > 0 {
		e = e.WithDetail("line", fmt.Sprint(n.Line))
	}
	return e
}

func containsNode(nodes []*Node, name string) bool {
	for _, n := range nodes {
		if n.Name == name {
			return true
		}
	}
	return false
}
