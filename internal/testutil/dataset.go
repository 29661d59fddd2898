package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racetrack/internal/ir"
)

// AssertDatasetsEqual compares two datasets. Sections and their records
// must match in order. Relation tables are compared per owner type, field
// and owner identity, because codecs may regroup them.
func AssertDatasetsEqual(t testing.TB, want, got *ir.Dataset) {
	t.Helper()

	require.Len(t, got.Sections, len(want.Sections), "sections")
	for i, ws := range want.Sections {
		gs := got.Sections[i]
		require.Equal(t, ws.Type, gs.Type, "section %d", i)
		require.Len(t, gs.Records, len(ws.Records), "records of %s", ws.Type)
		for j, wr := range ws.Records {
			assert.Truef(t, wr.Equal(gs.Records[j]), "%s record %d:\nwant %s\ngot  %s", ws.Type, j, wr, gs.Records[j])
		}
	}

	assert.Equal(t, relationIndex(want), relationIndex(got), "relations")
}

// relationIndex renders relation members keyed by owner type, field and
// owner identity.
func relationIndex(ds *ir.Dataset) map[string][]string {
	out := make(map[string][]string)
	for _, tbl := range ds.Relations {
		key := tbl.OwnerType + "." + tbl.Field + " " + tbl.Kind.String() + " " + tbl.Owner.String()
		for _, m := range tbl.Members {
			out[key] = append(out[key], m.String())
		}
	}
	return out
}
