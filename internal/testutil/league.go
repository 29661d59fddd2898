package testutil

import (
	"context"
	"testing"

	"github.com/roach88/racetrack/internal/domain"
	"github.com/roach88/racetrack/internal/schema"
)

// Saver is the part of a store the fixtures need.
type Saver interface {
	Save(ctx context.Context, e schema.Entity) error
}

// League is the sample league graph used across package tests.
type League = domain.Sample

// NewLeague builds the league graph without saving it.
func NewLeague() *League {
	return domain.NewSample()
}

// SaveLeague builds the league and saves it, then saves the entities that
// own relations again so their memberships are stored.
func SaveLeague(t testing.TB, s Saver) *League {
	t.Helper()
	l := NewLeague()
	ctx := context.Background()
	for _, e := range l.Entities() {
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("save %s: %v", e.EntityType(), err)
		}
	}
	for _, e := range l.Owners() {
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("save %s: %v", e.EntityType(), err)
		}
	}
	return l
}

// TeamScenario returns team Y ("Johnson") with drivers YE and YA, the
// smallest graph with a one-to-many relation.
func TeamScenario() (*domain.Team, *domain.Driver, *domain.Driver) {
	team := &domain.Team{Tag: "Y", Name: "Johnson"}
	ye := &domain.Driver{Tag: "YE", Name: "Dawn Matroi"}
	ya := &domain.Driver{Tag: "YA", Name: "Nolan Sage"}
	team.AddDriver(ye)
	team.AddDriver(ya)
	return team, ye, ya
}

// SaveTeamScenario saves TeamScenario's entities, team first.
func SaveTeamScenario(t testing.TB, s Saver) (*domain.Team, *domain.Driver, *domain.Driver) {
	t.Helper()
	team, ye, ya := TeamScenario()
	ctx := context.Background()
	for _, e := range []schema.Entity{team, ye, ya} {
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("save %s: %v", e.EntityType(), err)
		}
	}
	return team, ye, ya
}
