package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/racetrack/internal/domain"
	"github.com/roach88/racetrack/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := domain.NewRegistry()
	require.NoError(t, err)
	return reg
}

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T, reg *schema.Registry, opts ...Option) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, reg, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// storeFactories lists every Store implementation under test.
func storeFactories() map[string]func(t *testing.T, reg *schema.Registry) Store {
	return map[string]func(t *testing.T, reg *schema.Registry) Store{
		"memory": func(t *testing.T, reg *schema.Registry) Store {
			return NewMemory(reg)
		},
		"sqlite-cgo": func(t *testing.T, reg *schema.Registry) Store {
			return createTestStore(t, reg, WithDriver(DriverCGO))
		},
		"sqlite-pure": func(t *testing.T, reg *schema.Registry) Store {
			return createTestStore(t, reg, WithDriver(DriverPure))
		},
	}
}

// forEachStore runs fn once per Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t, testRegistry(t)))
		})
	}
}

// seedTeam saves team Y with drivers YE and YA.
func seedTeam(t *testing.T, s Store) (*domain.Team, *domain.Driver, *domain.Driver) {
	t.Helper()
	ctx := t.Context()
	team := &domain.Team{Tag: "Y", Name: "Johnson"}
	ye := &domain.Driver{Tag: "YE", Name: "Dawn Matroi", Status: domain.StatusActive}
	ya := &domain.Driver{Tag: "YA", Name: "Nolan Sage", XP: 2}
	require.NoError(t, s.Save(ctx, team))
	team.AddDriver(ye)
	team.AddDriver(ya)
	require.NoError(t, s.Save(ctx, ye))
	require.NoError(t, s.Save(ctx, ya))
	require.NoError(t, s.Save(ctx, team))
	return team, ye, ya
}
