package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

func TestNewRegistryAnalyzesEveryType(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	assert.Equal(t, []string{TypeSeason, TypeTeam, TypeDriver, TypeRace, TypeFinish}, reg.Names())
}

func TestColumnLabels(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		typ  string
		want []string
	}{
		{TypeTeam, []string{"tag", "name"}},
		{TypeDriver, []string{"tag", "name", "xp", "age", "injuries", "status", "team: tag"}},
		{TypeSeason, []string{"name", "seasonOrder"}},
		{TypeRace, []string{"season: name", "raceNumber", "courseName", "valueMultiplier", "byWeeks"}},
		{TypeFinish, []string{"race: season: name", "race: raceNumber", "place", "driver: tag", "finished", "injured", "weeksMissed"}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			a, err := reg.Analyze(tt.typ)
			require.NoError(t, err)
			var got []string
			for _, c := range a.Columns() {
				got = append(got, c.Label)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelationClasses(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	a, err := reg.Analyze(TypeTeam)
	require.NoError(t, err)

	drivers, ok := a.Field("drivers")
	require.True(t, ok)
	assert.Equal(t, schema.OwnedRelation, drivers.Class)

	seasons, ok := a.Field("seasons")
	require.True(t, ok)
	assert.Equal(t, schema.OwningRelation, seasons.Class)
}

func TestAccessorsRoundTrip(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	team := &Team{Tag: "Y", Name: "Johnson"}
	d := &Driver{Tag: "YE", Name: "Dawn Matroi", XP: 4, Status: StatusRetired}
	team.AddDriver(d)

	rec, err := reg.FullRecord(d)
	require.NoError(t, err)
	assert.Equal(t, ir.String("Retired"), rec.Value("status"))
	assert.Equal(t, ir.Int(4), rec.Value("xp"))
	require.NotNil(t, rec.Ref("team"))
	assert.Equal(t, ir.String("Y"), rec.Ref("team").Value("tag"))

	a, err := reg.Analyze(TypeDriver)
	require.NoError(t, err)
	status, _ := a.Field("status")
	require.NoError(t, status.Set(d, "Active"))
	assert.Equal(t, StatusActive, d.Status)

	teamField, _ := a.Field("team")
	require.NoError(t, teamField.Set(d, nil))
	assert.Nil(t, d.Team)
	assert.Empty(t, team.Drivers)
	assert.Nil(t, teamField.Get(d))

	assert.Error(t, teamField.Set(d, &Season{}))
}

func TestEmptyStatusIsNull(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	rec, err := reg.FullRecord(&Driver{Tag: "YA"})
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, rec.Value("status"))
	assert.Equal(t, ir.NullEntry, mustGet(t, rec, "team"))
}

func mustGet(t *testing.T, r *ir.Record, name string) ir.Entry {
	t.Helper()
	e, ok := r.Get(name)
	require.True(t, ok)
	return e
}
