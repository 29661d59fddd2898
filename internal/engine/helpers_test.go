package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/racetrack/internal/codec"
	"github.com/roach88/racetrack/internal/codec/hierarchical"
	"github.com/roach88/racetrack/internal/codec/tabular"
	"github.com/roach88/racetrack/internal/domain"
	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
	"github.com/roach88/racetrack/internal/testutil"
	"github.com/roach88/racetrack/internal/walker"
)

func newRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := domain.NewRegistry()
	require.NoError(t, err)
	return reg
}

func newEngine(t *testing.T, reg *schema.Registry, st store.Store, opts ...Option) *Engine {
	t.Helper()
	return New(reg, st, append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)...)
}

func walk(t *testing.T, reg *schema.Registry, st store.Store) *ir.Dataset {
	t.Helper()
	ds, err := walker.New(reg, st, walker.WithLogger(testutil.NewTestLogger(t))).Walk(t.Context())
	require.NoError(t, err)
	return ds
}

func leagueDataset(t *testing.T, reg *schema.Registry) *ir.Dataset {
	t.Helper()
	st := store.NewMemory(reg)
	testutil.SaveLeague(t, st)
	return walk(t, reg, st)
}

func codecs(reg *schema.Registry) []codec.Codec {
	return []codec.Codec{
		tabular.New(reg),
		hierarchical.NewXML(reg),
		hierarchical.NewYAML(reg),
	}
}

// throughCodec encodes ds and decodes the result.
func throughCodec(t *testing.T, c codec.Codec, ds *ir.Dataset) *ir.Dataset {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Encode(ds, &buf))
	out, err := c.Decode(&buf)
	require.NoError(t, err)
	return out
}

func count(t *testing.T, st store.Store, typ string) int {
	t.Helper()
	all, err := st.FetchAll(t.Context(), typ)
	require.NoError(t, err)
	return len(all)
}

func fetchOne(t *testing.T, st store.Store, typ, field string, value any) schema.Entity {
	t.Helper()
	found, err := st.FetchByField(t.Context(), typ, field, value)
	require.NoError(t, err)
	require.Len(t, found, 1, "%s with %s=%v", typ, field, value)
	return found[0]
}

func team(tag, name string) *ir.Record {
	return ir.NewRecord(domain.TypeTeam).
		SetValue("tag", ir.String(tag)).
		SetValue("name", ir.String(name))
}

func teamID(tag string) *ir.Record {
	return ir.NewRecord(domain.TypeTeam).SetValue("tag", ir.String(tag))
}

func driver(tag, name string, teamRef *ir.Record) *ir.Record {
	return ir.NewRecord(domain.TypeDriver).
		SetValue("tag", ir.String(tag)).
		SetValue("name", ir.String(name)).
		SetRef("team", teamRef)
}

func driverID(tag string) *ir.Record {
	return ir.NewRecord(domain.TypeDriver).SetValue("tag", ir.String(tag))
}

func seasonID(name string) *ir.Record {
	return ir.NewRecord(domain.TypeSeason).SetValue("name", ir.String(name))
}

func raceID(season string, number int64) *ir.Record {
	return ir.NewRecord(domain.TypeRace).
		SetRef("season", seasonID(season)).
		SetValue("raceNumber", ir.Int(number))
}

func dataset(sections ...*ir.Section) *ir.Dataset {
	ds := ir.NewDataset()
	ds.Sections = sections
	return ds
}

func section(typ string, recs ...*ir.Record) *ir.Section {
	return &ir.Section{Type: typ, Records: recs}
}

// node is a minimal entity for registries the domain cannot express.
type node struct {
	id   string
	typ  string
	peer *node
}

func (n *node) EntityType() string    { return n.typ }
func (n *node) EntityID() string      { return n.id }
func (n *node) SetEntityID(id string) { n.id = id }

// cyclicRegistry declares A identified by a reference to B and B
// identified by a reference to A.
func cyclicRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	for _, pair := range [][2]string{{"A", "B"}, {"B", "A"}} {
		typ, target := pair[0], pair[1]
		reg.MustRegister(schema.Type{
			Name:     typ,
			Identity: []string{"peer"},
			New:      func() schema.Entity { return &node{typ: typ} },
			Fields: []schema.Field{
				{Name: "id", Class: schema.Ignorable},
				{
					Name: "peer", Class: schema.Value, Kind: schema.KindRef, Target: target,
					Get: func(e schema.Entity) any {
						if p := e.(*node).peer; p != nil {
							return p
						}
						return nil
					},
					Set: func(e schema.Entity, v any) error {
						if v == nil {
							e.(*node).peer = nil
							return nil
						}
						e.(*node).peer = v.(*node)
						return nil
					},
				},
			},
		})
	}
	return reg
}
