package schema

// mapEntity is a generic entity used to declare test types without
// hand-writing a struct per type.
type mapEntity struct {
	typ  string
	id   string
	vals map[string]any
	rels map[string][]Entity
}

func newMapEntity(typ string) *mapEntity {
	return &mapEntity{typ: typ, vals: map[string]any{}, rels: map[string][]Entity{}}
}

func (m *mapEntity) EntityType() string { return m.typ }
func (m *mapEntity) EntityID() string { return m.id }
func (m *mapEntity) SetEntityID(id string) { m.id = id }

func valueField(name string, kind Kind) Field {
	return Field{
		Name:  name,
		Class: Value,
		Kind:  kind,
		Get:   func(e Entity) any { return e.(*mapEntity).vals[name] },
		Set: func(e Entity, v any) error {
			e.(*mapEntity).vals[name] = v
			return nil
		},
	}
}

func refField(name, target string) Field {
	f := valueField(name, KindRef)
	f.Target = target
	return f
}

func relationField(name string, class Class, target string) Field {
	return Field{
		Name:   name,
		Class:  class,
		Target: target,
		Members: func(e Entity) []Entity {
			return e.(*mapEntity).rels[name]
		},
		Add: func(owner, member Entity) {
			o := owner.(*mapEntity)
			o.rels[name] = append(o.rels[name], member)
		},
	}
}

func mapType(name string, identity []string, fields ...Field) Type {
	return Type{
		Name:     name,
		Identity: identity,
		Fields:   fields,
		New:      func() Entity { return newMapEntity(name) },
	}
}

// leagueRegistry declares a small graph: Season <- Race -> Finish and a
// Team/Driver one-to-many.
func leagueRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(mapType("Team", []string{"tag"},
		Field{Name: "id", Class: Ignorable},
		valueField("tag", KindString),
		valueField("name", KindString),
		relationField("drivers", OwnedRelation, "Driver"),
	))
	r.MustRegister(mapType("Driver", []string{"tag"},
		valueField("name", KindString),
		valueField("tag", KindString),
		valueField("xp", KindInt),
		Field{Name: "status", Class: Value, Kind: KindEnum, Enum: []string{"Active", "Retired"},
			Get: func(e Entity) any { return e.(*mapEntity).vals["status"] },
			Set: func(e Entity, v any) error { e.(*mapEntity).vals["status"] = v; return nil }},
		refField("team", "Team"),
	))
	r.MustRegister(mapType("Season", []string{"name"},
		valueField("name", KindString),
		relationField("races", OwnedRelation, "Race"),
	))
	r.MustRegister(mapType("Race", []string{"season", "raceNumber"},
		refField("season", "Season"),
		valueField("raceNumber", KindInt),
		valueField("courseName", KindString),
	))
	r.MustRegister(mapType("Finish", []string{"race", "driver"},
		refField("race", "Race"),
		refField("driver", "Driver"),
		valueField("place", KindInt),
		valueField("finished", KindBool),
	))
	return r
}
