// Package domain defines the race tracker's entities: seasons, teams,
// drivers, races and finishes.
//
// Two-sided relations are maintained by explicit helper methods
// (Team.AddDriver, Driver.SetTeam, Season.AddTeam, ...). The helpers are
// idempotent, so the importer can replay links without creating duplicates.
//
// Register declares every entity type on a schema.Registry.
package domain
