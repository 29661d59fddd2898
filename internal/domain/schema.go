package domain

import (
	"fmt"

	"github.com/roach88/racetrack/internal/schema"
)

// Register declares every entity type on reg.
func Register(reg *schema.Registry) error {
	for _, t := range Types() {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("register %s: %w", t.Name, err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding every entity type.
func NewRegistry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	if err := reg.AnalyzeAll(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Types returns the descriptors of every entity type. Seasons come first so
// that a full export lists them before the races that reference them.
func Types() []schema.Type {
	return []schema.Type{
		{
			Name:     TypeSeason,
			Identity: []string{"name"},
			New:      func() schema.Entity { return &Season{} },
			Fields: []schema.Field{
				idField(),
				stringField("name", func(s *Season) *string { return &s.Name }),
				owningField("teams", TypeTeam,
					func(s *Season) []*Team { return s.Teams }, (*Season).AddTeam),
				ownedField("races", TypeRace, "season",
					func(s *Season) []*Race { return s.Races }, (*Season).AddRace),
				intField("seasonOrder", func(s *Season) *int64 { return &s.SeasonOrder }),
			},
		},
		{
			Name:     TypeTeam,
			Identity: []string{"tag"},
			New:      func() schema.Entity { return &Team{} },
			Fields: []schema.Field{
				idField(),
				stringField("tag", func(t *Team) *string { return &t.Tag }),
				stringField("name", func(t *Team) *string { return &t.Name }),
				ownedField("drivers", TypeDriver, "team",
					func(t *Team) []*Driver { return t.Drivers }, (*Team).AddDriver),
				owningField("seasons", TypeSeason,
					func(t *Team) []*Season { return t.Seasons }, (*Team).AddSeason),
			},
		},
		{
			Name:     TypeDriver,
			Identity: []string{"tag"},
			New:      func() schema.Entity { return &Driver{} },
			Fields: []schema.Field{
				idField(),
				stringField("tag", func(d *Driver) *string { return &d.Tag }),
				stringField("name", func(d *Driver) *string { return &d.Name }),
				intField("xp", func(d *Driver) *int64 { return &d.XP }),
				intField("age", func(d *Driver) *int64 { return &d.Age }),
				intField("injuries", func(d *Driver) *int64 { return &d.Injuries }),
				statusField(),
				refField("team", TypeTeam,
					func(d *Driver) *Team { return d.Team }, (*Driver).SetTeam),
				ownedField("finishes", TypeFinish, "driver",
					func(d *Driver) []*Finish { return d.Finishes }, (*Driver).AddFinish),
			},
		},
		{
			Name:     TypeRace,
			Identity: []string{"season", "raceNumber"},
			New:      func() schema.Entity { return &Race{} },
			Fields: []schema.Field{
				idField(),
				refField("season", TypeSeason,
					func(r *Race) *Season { return r.Season }, (*Race).SetSeason),
				intField("raceNumber", func(r *Race) *int64 { return &r.RaceNumber }),
				stringField("courseName", func(r *Race) *string { return &r.CourseName }),
				intField("valueMultiplier", func(r *Race) *int64 { return &r.ValueMultiplier }),
				intField("byWeeks", func(r *Race) *int64 { return &r.ByWeeks }),
				ownedField("finishes", TypeFinish, "race",
					func(r *Race) []*Finish { return r.Finishes }, (*Race).AddFinish),
			},
		},
		{
			Name:     TypeFinish,
			Identity: []string{"race", "driver"},
			New:      func() schema.Entity { return &Finish{} },
			Fields: []schema.Field{
				idField(),
				refField("race", TypeRace,
					func(f *Finish) *Race { return f.Race }, (*Finish).SetRace),
				intField("place", func(f *Finish) *int64 { return &f.Place }),
				refField("driver", TypeDriver,
					func(f *Finish) *Driver { return f.Driver }, (*Finish).SetDriver),
				boolField("finished", func(f *Finish) *bool { return &f.Finished }),
				boolField("injured", func(f *Finish) *bool { return &f.Injured }),
				intField("weeksMissed", func(f *Finish) *int64 { return &f.WeeksMissed }),
			},
		},
	}
}

func idField() schema.Field {
	return schema.Field{Name: "id", Class: schema.Ignorable}
}

func stringField[T schema.Entity](name string, ptr func(T) *string) schema.Field {
	return schema.Field{
		Name:  name,
		Class: schema.Value,
		Kind:  schema.KindString,
		Get:   func(e schema.Entity) any { return *ptr(e.(T)) },
		Set: func(e schema.Entity, v any) error {
			switch s := v.(type) {
			case nil:
				*ptr(e.(T)) = ""
			case string:
				*ptr(e.(T)) = s
			default:
				return fmt.Errorf("%s: want string, got %T", name, v)
			}
			return nil
		},
	}
}

func intField[T schema.Entity](name string, ptr func(T) *int64) schema.Field {
	return schema.Field{
		Name:  name,
		Class: schema.Value,
		Kind:  schema.KindInt,
		Get:   func(e schema.Entity) any { return *ptr(e.(T)) },
		Set: func(e schema.Entity, v any) error {
			switch n := v.(type) {
			case nil:
				*ptr(e.(T)) = 0
			case int64:
				*ptr(e.(T)) = n
			default:
				return fmt.Errorf("%s: want int64, got %T", name, v)
			}
			return nil
		},
	}
}

func boolField[T schema.Entity](name string, ptr func(T) *bool) schema.Field {
	return schema.Field{
		Name:  name,
		Class: schema.Value,
		Kind:  schema.KindBool,
		Get:   func(e schema.Entity) any { return *ptr(e.(T)) },
		Set: func(e schema.Entity, v any) error {
			switch b := v.(type) {
			case nil:
				*ptr(e.(T)) = false
			case bool:
				*ptr(e.(T)) = b
			default:
				return fmt.Errorf("%s: want bool, got %T", name, v)
			}
			return nil
		},
	}
}

func statusField() schema.Field {
	return schema.Field{
		Name:  "status",
		Class: schema.Value,
		Kind:  schema.KindEnum,
		Enum:  []string{string(StatusActive), string(StatusRetired)},
		Get: func(e schema.Entity) any {
			if s := e.(*Driver).Status; s != "" {
				return s
			}
			return nil
		},
		Set: func(e schema.Entity, v any) error {
			switch s := v.(type) {
			case nil:
				e.(*Driver).Status = ""
			case string:
				e.(*Driver).Status = DriverStatus(s)
			default:
				return fmt.Errorf("status: want string, got %T", v)
			}
			return nil
		},
	}
}

func refField[T, R schema.Entity](name, target string, get func(T) R, set func(T, R)) schema.Field {
	return schema.Field{
		Name:   name,
		Class:  schema.Value,
		Kind:   schema.KindRef,
		Target: target,
		Get: func(e schema.Entity) any {
			r := get(e.(T))
			if schema.IsNil(r) {
				return nil
			}
			return r
		},
		Set: func(e schema.Entity, v any) error {
			if v == nil {
				var zero R
				set(e.(T), zero)
				return nil
			}
			r, ok := v.(R)
			if !ok {
				return fmt.Errorf("%s: want %s, got %T", name, target, v)
			}
			set(e.(T), r)
			return nil
		},
	}
}

func ownedField[T, M schema.Entity](name, target, inverse string, members func(T) []M, add func(T, M)) schema.Field {
	f := relationField(name, schema.OwnedRelation, target, members, add)
	f.Inverse = inverse
	return f
}

func owningField[T, M schema.Entity](name, target string, members func(T) []M, add func(T, M)) schema.Field {
	return relationField(name, schema.OwningRelation, target, members, add)
}

func relationField[T, M schema.Entity](name string, class schema.Class, target string, members func(T) []M, add func(T, M)) schema.Field {
	return schema.Field{
		Name:   name,
		Class:  class,
		Target: target,
		Members: func(e schema.Entity) []schema.Entity {
			ms := members(e.(T))
			out := make([]schema.Entity, len(ms))
			for i, m := range ms {
				out[i] = m
			}
			return out
		},
		Add: func(owner, member schema.Entity) {
			add(owner.(T), member.(M))
		},
	}
}
