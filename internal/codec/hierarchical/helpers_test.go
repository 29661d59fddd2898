package hierarchical

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/racetrack/internal/codec"
	"github.com/roach88/racetrack/internal/domain"
	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
	"github.com/roach88/racetrack/internal/testutil"
	"github.com/roach88/racetrack/internal/walker"
)

var (
	_ codec.Codec = (*XML)(nil)
	_ codec.Codec = (*YAML)(nil)
)

func newRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := domain.NewRegistry()
	require.NoError(t, err)
	return reg
}

func leagueDataset(t *testing.T, reg *schema.Registry) *ir.Dataset {
	t.Helper()
	st := store.NewMemory(reg)
	testutil.SaveLeague(t, st)
	ds, err := walker.New(reg, st).Walk(t.Context())
	require.NoError(t, err)
	return ds
}

func encode(t *testing.T, c codec.Encoder, ds *ir.Dataset) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Encode(ds, &buf))
	return buf.Bytes()
}

// freeAgent is a driver without team or status.
func freeAgent() *ir.Dataset {
	ds := ir.NewDataset()
	ds.AddSection(domain.TypeDriver).Records = []*ir.Record{
		ir.NewRecord(domain.TypeDriver).
			SetValue("tag", ir.String("FA")).
			SetValue("name", ir.String("")).
			SetValue("xp", ir.Int(0)).
			SetValue("age", ir.Int(40)).
			SetValue("injuries", ir.Int(2)).
			SetValue("status", ir.Null{}).
			SetRef("team", nil),
	}
	return ds
}
