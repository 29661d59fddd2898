package engine

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racetrack/internal/codec/tabular"
	"github.com/roach88/racetrack/internal/domain"
	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
	"github.com/roach88/racetrack/internal/testutil"
)

func TestImportRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	want := leagueDataset(t, reg)

	for _, c := range codecs(reg) {
		t.Run(c.Format(), func(t *testing.T) {
			st := store.NewMemory(reg)
			report, err := newEngine(t, reg, st).Import(t.Context(), throughCodec(t, c, want))
			require.NoError(t, err)

			assert.Equal(t, 12, report.Created)
			assert.Zero(t, report.Skipped)
			assert.Zero(t, report.Deferred)
			assert.Zero(t, report.Passes)
			assert.Equal(t, 2, report.LinksAdded, "season teams are the only links not implied by references")
			assert.Equal(t, 15, report.LinksPresent)
			assert.Equal(t, []TypeCounts{
				{Type: domain.TypeSeason, Created: 1},
				{Type: domain.TypeTeam, Created: 2},
				{Type: domain.TypeDriver, Created: 3},
				{Type: domain.TypeRace, Created: 2},
				{Type: domain.TypeFinish, Created: 4},
			}, report.Types)

			testutil.AssertDatasetsEqual(t, want, walk(t, reg, st))
		})
	}
}

func TestImportRoundTripSQLite(t *testing.T) {
	reg := newRegistry(t)
	want := leagueDataset(t, reg)

	st, err := store.Open(filepath.Join(t.TempDir(), "racetrack.db"), reg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = newEngine(t, reg, st).Import(t.Context(), throughCodec(t, tabular.New(reg), want))
	require.NoError(t, err)
	testutil.AssertDatasetsEqual(t, want, walk(t, reg, st))
}

func TestImportKeepsCanonicallyEquivalentTags(t *testing.T) {
	reg := newRegistry(t)
	src := store.NewMemory(reg)
	composed := &domain.Team{Tag: "\u00e9", Name: "Composed"}
	decomposed := &domain.Team{Tag: "e\u0301", Name: "Decomposed"}
	d1 := &domain.Driver{Tag: "D1"}
	d2 := &domain.Driver{Tag: "D2"}
	composed.AddDriver(d1)
	decomposed.AddDriver(d2)
	for _, e := range []schema.Entity{composed, decomposed, d1, d2} {
		require.NoError(t, src.Save(t.Context(), e))
	}
	want := walk(t, reg, src)

	for _, c := range codecs(reg) {
		t.Run(c.Format(), func(t *testing.T) {
			st := store.NewMemory(reg)
			report, err := newEngine(t, reg, st).Import(t.Context(), throughCodec(t, c, want))
			require.NoError(t, err)
			assert.Equal(t, 4, report.Created)
			assert.Zero(t, report.Skipped)
			assert.Equal(t, 2, count(t, st, domain.TypeTeam))

			got := fetchOne(t, st, domain.TypeDriver, "tag", "D2").(*domain.Driver)
			require.NotNil(t, got.Team)
			assert.Equal(t, "e\u0301", got.Team.Tag)
			testutil.AssertDatasetsEqual(t, want, walk(t, reg, st))
		})
	}
}

func TestImportIsIdempotent(t *testing.T) {
	reg := newRegistry(t)
	ds := leagueDataset(t, reg)
	st := store.NewMemory(reg)
	e := newEngine(t, reg, st)

	_, err := e.Import(t.Context(), ds)
	require.NoError(t, err)
	after := walk(t, reg, st)

	report, err := e.Import(t.Context(), ds)
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Equal(t, 12, report.Skipped)
	assert.Zero(t, report.LinksAdded)
	assert.Equal(t, 17, report.LinksPresent)

	testutil.AssertDatasetsEqual(t, after, walk(t, reg, st))
}

func TestImportTeamScenarioTwice(t *testing.T) {
	reg := newRegistry(t)
	src := store.NewMemory(reg)
	testutil.SaveTeamScenario(t, src)

	c := tabular.New(reg)
	var archive bytes.Buffer
	require.NoError(t, c.Encode(walk(t, reg, src), &archive))

	st := store.NewMemory(reg)
	e := newEngine(t, reg, st)
	for run := 1; run <= 2; run++ {
		ds, err := c.Decode(bytes.NewReader(archive.Bytes()))
		require.NoError(t, err)
		report, err := e.Import(t.Context(), ds)
		require.NoError(t, err, "run %d", run)
		if run == 1 {
			assert.Equal(t, 3, report.Created)
			assert.Equal(t, 2, report.LinksPresent)
		} else {
			assert.Zero(t, report.Created)
			assert.Equal(t, 3, report.Skipped)
		}
	}

	assert.Equal(t, 1, count(t, st, domain.TypeTeam))
	assert.Equal(t, 2, count(t, st, domain.TypeDriver))
	team := fetchOne(t, st, domain.TypeTeam, "tag", "Y").(*domain.Team)
	assert.Equal(t, "Johnson", team.Name)
	require.Len(t, team.Drivers, 2)
	assert.Equal(t, "YE", team.Drivers[0].Tag)
	assert.Equal(t, "YA", team.Drivers[1].Tag)
}

func TestImportIdentityCycle(t *testing.T) {
	reg := cyclicRegistry()
	st := store.NewMemory(reg)

	// Each record ends in a null identity reference, the only finite way to
	// write an identity that loops through both types.
	a := ir.NewRecord("A").SetRef("peer",
		ir.NewRecord("B").SetRef("peer", ir.NewRecord("A").SetRef("peer", nil)))
	b := ir.NewRecord("B").SetRef("peer",
		ir.NewRecord("A").SetRef("peer", ir.NewRecord("B").SetRef("peer", nil)))

	report, err := newEngine(t, reg, st).Import(t.Context(), dataset(section("A", a), section("B", b)))
	require.Error(t, err)
	assert.True(t, ir.IsRelationCycleError(err))

	var ie *ir.Error
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []string{
		"A(peer=B(peer=A(peer=null))) awaits its identity",
		"B(peer=A(peer=B(peer=null))) awaits its identity",
	}, ie.Pending)

	assert.Equal(t, 2, report.Deferred)
	assert.Equal(t, 1, report.Passes)
	assert.Zero(t, report.Created)
	assert.Zero(t, count(t, st, "A"), "no partial writes of the cyclic types")
	assert.Zero(t, count(t, st, "B"))
}

func TestImportDanglingReference(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)

	_, err := newEngine(t, reg, st).Import(t.Context(),
		dataset(section(domain.TypeDriver, driver("ZZ", "Zed", teamID("Z")))))
	require.Error(t, err)
	assert.True(t, ir.IsRelationCycleError(err))
	assert.Contains(t, err.Error(), "Driver(tag=ZZ).team -> Team(tag=Z)")

	// The driver was persisted before its reference was found missing.
	assert.Equal(t, 1, count(t, st, domain.TypeDriver))
}

func TestImportLateAssignment(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)

	report, err := newEngine(t, reg, st).Import(t.Context(), dataset(
		section(domain.TypeDriver, driver("YE", "Dawn Matroi", teamID("Y"))),
		section(domain.TypeTeam, team("Y", "Johnson")),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.LateAssigned)
	assert.Equal(t, 1, report.Passes)

	d := fetchOne(t, st, domain.TypeDriver, "tag", "YE").(*domain.Driver)
	tm := fetchOne(t, st, domain.TypeTeam, "tag", "Y").(*domain.Team)
	assert.Same(t, tm, d.Team)
	assert.Equal(t, []*domain.Driver{d}, tm.Drivers)
}

func TestImportDefersUnresolvedIdentity(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)

	race := raceID("S1", 1).SetValue("courseName", ir.String("Ridge Run"))
	season := seasonID("S1").SetValue("seasonOrder", ir.Int(1))

	report, err := newEngine(t, reg, st).Import(t.Context(), dataset(
		section(domain.TypeRace, race),
		section(domain.TypeSeason, season),
	))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deferred)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Passes)

	s := fetchOne(t, st, domain.TypeSeason, "name", "S1").(*domain.Season)
	require.Len(t, s.Races, 1)
	assert.Equal(t, "Ridge Run", s.Races[0].CourseName)
	assert.Same(t, s, s.Races[0].Season)
}

func finishChain() *ir.Dataset {
	finish := ir.NewRecord(domain.TypeFinish).
		SetRef("race", raceID("S1", 1)).
		SetValue("place", ir.Int(1)).
		SetRef("driver", driverID("D1"))
	return dataset(
		section(domain.TypeFinish, finish),
		section(domain.TypeRace, raceID("S1", 1)),
		section(domain.TypeSeason, seasonID("S1")),
		section(domain.TypeDriver, driverID("D1")),
	)
}

func TestImportStablePasses(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)

	report, err := newEngine(t, reg, st).Import(t.Context(), finishChain())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deferred)
	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 2, report.Passes, "the finish waits one pass for its race")
	assert.Equal(t, 1, count(t, st, domain.TypeFinish))
}

func TestImportMaxPasses(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)

	_, err := newEngine(t, reg, st, WithMaxPasses(1)).Import(t.Context(), finishChain())
	require.Error(t, err)
	assert.True(t, ir.IsRelationCycleError(err))
	assert.Contains(t, err.Error(), "after 1 passes")
	assert.Contains(t, err.Error(), "Finish(race=Race(season=Season(name=S1), raceNumber=1), driver=Driver(tag=D1)) awaits its identity")
}

func TestImportRelationSetSemantics(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)
	l := testutil.SaveLeague(t, st)

	ds := ir.NewDataset()
	ds.AddRelation(&ir.RelationTable{
		OwnerType:   domain.TypeSeason,
		Field:       "teams",
		Kind:        ir.Owning,
		RelatedType: domain.TypeTeam,
		Owner:       seasonID("2024 Spring"),
		Members:     []*ir.Record{teamID("Y")},
	})

	report, err := newEngine(t, reg, st).Import(t.Context(), ds)
	require.NoError(t, err)
	assert.Zero(t, report.LinksAdded)
	assert.Equal(t, 1, report.LinksPresent)
	assert.Len(t, l.Season.Teams, 2)
	assert.Len(t, l.Yellow.Seasons, 1)
}

func TestImportLinksExistingInstances(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)
	l := testutil.SaveLeague(t, st)
	blue := &domain.Team{Tag: "B", Name: "Blue"}
	require.NoError(t, st.Save(t.Context(), blue))

	ds := ir.NewDataset()
	ds.AddRelation(&ir.RelationTable{
		OwnerType: domain.TypeSeason,
		Field:     "teams",
		Kind:      ir.Owning,
		Owner:     seasonID("2024 Spring"),
		Members:   []*ir.Record{teamID("B")},
	})
	e := newEngine(t, reg, st)

	report, err := e.Import(t.Context(), ds)
	require.NoError(t, err)
	assert.Equal(t, 1, report.LinksAdded)
	assert.Len(t, l.Season.Teams, 3)
	assert.Equal(t, []*domain.Season{l.Season}, blue.Seasons)

	report, err = e.Import(t.Context(), ds)
	require.NoError(t, err)
	assert.Zero(t, report.LinksAdded)
	assert.Equal(t, 1, report.LinksPresent)
	assert.Len(t, l.Season.Teams, 3)
}

func TestImportOwningMemberMustExist(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)
	testutil.SaveLeague(t, st)

	ds := ir.NewDataset()
	ds.AddRelation(&ir.RelationTable{
		OwnerType: domain.TypeSeason,
		Field:     "teams",
		Kind:      ir.Owning,
		Owner:     seasonID("2024 Spring"),
		Members:   []*ir.Record{teamID("NOPE")},
	})

	_, err := newEngine(t, reg, st).Import(t.Context(), ds)
	require.Error(t, err)
	assert.True(t, ir.IsRelationCycleError(err))
	assert.Contains(t, err.Error(), "member Team(tag=NOPE) of Season.teams does not exist")
	assert.Equal(t, 2, count(t, st, domain.TypeTeam), "owning relations never create members")
}

func TestImportCreatesOwnedMembers(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)

	ds := dataset(section(domain.TypeTeam, team("Y", "Johnson")))
	ds.AddRelation(&ir.RelationTable{
		OwnerType: domain.TypeTeam,
		Field:     "drivers",
		Kind:      ir.Owned,
		Owner:     teamID("Y"),
		Members:   []*ir.Record{driverID("NEW")},
	})

	report, err := newEngine(t, reg, st).Import(t.Context(), ds)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.LinksAdded)
	assert.Equal(t, []TypeCounts{
		{Type: domain.TypeTeam, Created: 1},
		{Type: domain.TypeDriver, Created: 1},
	}, report.Types)

	d := fetchOne(t, st, domain.TypeDriver, "tag", "NEW").(*domain.Driver)
	require.NotNil(t, d.Team)
	assert.Equal(t, "Y", d.Team.Tag)
}

func TestImportMissingOwner(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)

	ds := ir.NewDataset()
	ds.AddRelation(&ir.RelationTable{
		OwnerType: domain.TypeTeam,
		Field:     "drivers",
		Owner:     teamID("Q"),
		Members:   []*ir.Record{driverID("X")},
	})

	_, err := newEngine(t, reg, st).Import(t.Context(), ds)
	require.Error(t, err)
	assert.True(t, ir.IsRelationCycleError(err))
	assert.Contains(t, err.Error(), "owner of relation Team.drivers does not exist")
	assert.Contains(t, err.Error(), "identity=tag=Q")
	assert.Zero(t, count(t, st, domain.TypeDriver))
}

func TestImportAmbiguousIdentity(t *testing.T) {
	reg := newRegistry(t)
	st := store.NewMemory(reg)
	require.NoError(t, st.Save(t.Context(), &domain.Team{Tag: "Y", Name: "one"}))
	require.NoError(t, st.Save(t.Context(), &domain.Team{Tag: "Y", Name: "two"}))

	_, err := newEngine(t, reg, st).Import(t.Context(), dataset(section(domain.TypeTeam, team("Y", "three"))))
	require.Error(t, err)
	assert.True(t, ir.IsStoreError(err))
	assert.Contains(t, err.Error(), "identity matches 2 instances")
}

func TestImportRejectsBeforeWriting(t *testing.T) {
	reg := newRegistry(t)
	reg.MustRegister(schema.Type{Name: "Nameless", New: func() schema.Entity { return &domain.Team{} }})

	tests := []struct {
		name    string
		bad     *ir.Section
		isKind  func(error) bool
		message string
	}{
		{
			name:    "type without identity",
			bad:     section("Nameless", ir.NewRecord("Nameless")),
			isKind:  ir.IsSchemaError,
			message: "no identity fields",
		},
		{
			name:    "unknown type",
			bad:     section("Ghost", ir.NewRecord("Ghost")),
			isKind:  ir.IsSchemaError,
			message: "unknown type",
		},
		{
			name:    "unconvertible value",
			bad:     section(domain.TypeDriver, driverID("BAD").SetValue("status", ir.String("Sleeping"))),
			isKind:  ir.IsConversionError,
			message: "identity=tag=BAD",
		},
		{
			name:    "unknown field",
			bad:     section(domain.TypeTeam, team("R", "Red").SetValue("color", ir.String("red"))),
			isKind:  ir.IsFormatError,
			message: `unknown field "color" for type Team`,
		},
		{
			name:    "missing identity field",
			bad:     section(domain.TypeTeam, ir.NewRecord(domain.TypeTeam).SetValue("name", ir.String("Red"))),
			isKind:  ir.IsFormatError,
			message: `Team identity is missing field "tag"`,
		},
		{
			name:    "reference holding text",
			bad:     section(domain.TypeDriver, driverID("RO").SetValue("team", ir.String("R"))),
			isKind:  ir.IsFormatError,
			message: "want the identity of Team",
		},
		{
			name:    "nested identity of the wrong type",
			bad:     section(domain.TypeDriver, driverID("RO").SetRef("team", seasonID("S1"))),
			isKind:  ir.IsFormatError,
			message: "identity of Season given where Team is expected",
		},
		{
			name:    "record in the wrong section",
			bad:     section(domain.TypeDriver, teamID("R")),
			isKind:  ir.IsFormatError,
			message: "Driver section holds a record of another type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory(reg)
			ds := dataset(section(domain.TypeTeam, team("Y", "Johnson")), tt.bad)

			_, err := newEngine(t, reg, st).Import(t.Context(), ds)
			require.Error(t, err)
			assert.True(t, tt.isKind(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
			assert.Zero(t, count(t, st, domain.TypeTeam), "nothing is written")
		})
	}
}

func TestImportRejectsMalformedRelations(t *testing.T) {
	reg := newRegistry(t)

	tests := []struct {
		name    string
		table   *ir.RelationTable
		message string
	}{
		{
			name:    "not a relation field",
			table:   &ir.RelationTable{OwnerType: domain.TypeTeam, Field: "name", Owner: teamID("Y")},
			message: "unknown relation field Team.name",
		},
		{
			name: "wrong member type",
			table: &ir.RelationTable{
				OwnerType: domain.TypeTeam, Field: "drivers", RelatedType: domain.TypeSeason,
				Owner: teamID("Y"),
			},
			message: "relation Team.drivers holds Season members, want Driver",
		},
		{
			name: "member with extra fields",
			table: &ir.RelationTable{
				OwnerType: domain.TypeTeam, Field: "drivers",
				Owner:   teamID("Y"),
				Members: []*ir.Record{driverID("YE").SetValue("xp", ir.Int(1))},
			},
			message: `field "xp" is not part of the Driver identity`,
		},
		{
			name:    "missing owner identity",
			table:   &ir.RelationTable{OwnerType: domain.TypeTeam, Field: "drivers"},
			message: "missing Team identity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := ir.NewDataset()
			ds.AddRelation(tt.table)
			_, err := newEngine(t, reg, store.NewMemory(reg)).Import(t.Context(), ds)
			require.Error(t, err)
			assert.True(t, ir.IsFormatError(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestImportCancelled(t *testing.T) {
	reg := newRegistry(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newEngine(t, reg, store.NewMemory(reg)).Import(ctx, leagueDataset(t, reg))
	assert.ErrorIs(t, err, context.Canceled)
}
