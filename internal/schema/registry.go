package schema

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/racetrack/internal/ir"
)

// Registry holds the declared entity types and their cached analyses.
type Registry struct {
	mu       sync.RWMutex
	types    map[string]*Type
	order    []string
	analyses map[string]*Analysis
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:    make(map[string]*Type),
		analyses: make(map[string]*Analysis),
	}
}

// Register validates and adds a type descriptor.
//
// Register checks the descriptor in isolation: unique names, identity fields
// that exist and are exported, and the accessors each class needs. Checks
// that involve other types (targets and their identity metadata) happen in
// Analyze, so types may be registered in any order.
func (r *Registry) Register(t Type) error {
	if t.Name == "" {
		return ir.NewSchemaError("", "", "type name is required")
	}
	if t.New == nil {
		return ir.NewSchemaError(t.Name, "", "constructor is required")
	}

	seen := make(map[string]bool, len(t.Fields))
	fields := make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		if f.Name == "" {
			return ir.NewSchemaError(t.Name, "", "field %d has no name", i)
		}
		if seen[f.Name] {
			return ir.NewSchemaError(t.Name, f.Name, "duplicate field")
		}
		seen[f.Name] = true
		if err := validateField(t.Name, f); err != nil {
			return err
		}
		f.Owner = t.Name
		fields[i] = f
	}

	idSeen := make(map[string]bool, len(t.Identity))
	for _, name := range t.Identity {
		if idSeen[name] {
			return ir.NewSchemaError(t.Name, name, "identity field listed twice")
		}
		idSeen[name] = true
		i := slices.IndexFunc(fields, func(f Field) bool { return f.Name == name })
		if i < 0 {
			return ir.NewSchemaError(t.Name, name, "identity field is not declared")
		}
		if fields[i].Class != Value {
			return ir.NewSchemaError(t.Name, name, "identity field must be a value field, not %s", fields[i].Class)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.Name]; exists {
		return ir.NewSchemaError(t.Name, "", "type already registered")
	}
	stored := t
	stored.Fields = fields
	stored.Identity = slices.Clone(t.Identity)
	r.types[t.Name] = &stored
	r.order = append(r.order, t.Name)
	// A new type may make a previously failing analysis succeed.
	clear(r.analyses)
	return nil
}

// MustRegister is like Register but panics on error.
// Use only for static descriptors known to be valid.
func (r *Registry) MustRegister(t Type) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

func validateField(typ string, f Field) error {
	switch f.Class {
	case Value:
		switch f.Kind {
		case KindString, KindInt, KindBool:
		case KindEnum:
			if len(f.Enum) == 0 {
				return ir.NewSchemaError(typ, f.Name, "enum field has no values")
			}
		case KindRef:
			if f.Target == "" {
				return ir.NewSchemaError(typ, f.Name, "reference field has no target")
			}
		default:
			return ir.NewSchemaError(typ, f.Name, "unknown kind %d", f.Kind)
		}
		if f.Get == nil || f.Set == nil {
			return ir.NewSchemaError(typ, f.Name, "value field needs Get and Set")
		}
	case OwnedRelation, OwningRelation:
		if f.Target == "" {
			return ir.NewSchemaError(typ, f.Name, "relation field has no target")
		}
		if f.Members == nil || f.Add == nil {
			return ir.NewSchemaError(typ, f.Name, "relation field needs Members and Add")
		}
	case Ignorable:
	case Identity:
		return ir.NewSchemaError(typ, f.Name, "identity is derived from Type.Identity, declare the field as a value")
	default:
		return ir.NewSchemaError(typ, f.Name, "unknown class %d", f.Class)
	}
	return nil
}

// Type returns a registered descriptor.
func (r *Registry) Type(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered type names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Analyze returns the cached analysis of a type, deriving it on first use.
func (r *Registry) Analyze(name string) (*Analysis, error) {
	r.mu.RLock()
	a, ok := r.analyses[name]
	r.mu.RUnlock()
	if ok {
		return a, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.analyses[name]; ok {
		return a, nil
	}
	a, err := r.analyze(name)
	if err != nil {
		return nil, err
	}
	r.analyses[name] = a
	return a, nil
}

// AnalyzeAll analyzes every registered type, returning the first failure.
func (r *Registry) AnalyzeAll() error {
	for _, name := range r.Names() {
		if _, err := r.Analyze(name); err != nil {
			return err
		}
	}
	return nil
}

// AnalysisOf returns the analysis for an entity's type.
func (r *Registry) AnalysisOf(e Entity) (*Analysis, error) {
	if isNil(e) {
		return nil, fmt.Errorf("analysis of nil entity")
	}
	return r.Analyze(e.EntityType())
}

// Closure returns the requested types plus every type reachable from them
// through relation and reference fields. Requested types come first in the
// order given; discovered types follow in breadth-first order.
func (r *Registry) Closure(names ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		if _, ok := r.Type(n); !ok {
			return nil, ir.NewSchemaError(n, "", "unknown type")
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for i := 0; i < len(out); i++ {
		t, _ := r.Type(out[i])
		for _, f := range t.Fields {
			if f.Class == Ignorable || (f.Class == Value && f.Kind != KindRef) {
				continue
			}
			if _, ok := r.Type(f.Target); !ok {
				return nil, ir.NewSchemaError(t.Name, f.Name, "target type %q is not registered", f.Target)
			}
			if !seen[f.Target] {
				seen[f.Target] = true
				out = append(out, f.Target)
			}
		}
	}
	return out, nil
}
