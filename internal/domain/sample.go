package domain

import "github.com/roach88/racetrack/internal/schema"

// Sample is a small but complete league: one season with two teams, three
// drivers, two races and four finishes. Values include characters that
// need quoting or escaping, an empty string and a numeric-looking string.
type Sample struct {
	Season *Season
	Yellow *Team
	Red    *Team

	YE *Driver
	YA *Driver
	RO *Driver

	Race1 *Race
	Race2 *Race

	Finishes []*Finish
}

// NewSample builds the sample league in memory.
func NewSample() *Sample {
	s := &Sample{
		Season: &Season{Name: "2024 Spring", SeasonOrder: 1},
		Yellow: &Team{Tag: "Y", Name: "Johnson"},
		Red:    &Team{Tag: "R", Name: `Rossi, "Fast" & Sons`},
		YE:     &Driver{Tag: "YE", Name: "Dawn Matroi", XP: 3, Age: 24, Status: StatusActive},
		YA:     &Driver{Tag: "YA", Name: "Nolan Sage", XP: 1, Age: 31, Injuries: 1, Status: StatusRetired},
		RO:     &Driver{Tag: "RO", Name: "", XP: 0, Age: 19, Status: StatusActive},
		Race1:  &Race{RaceNumber: 1, CourseName: "Ridge Run", ValueMultiplier: 1, ByWeeks: 0},
		Race2:  &Race{RaceNumber: 2, CourseName: "66", ValueMultiplier: 2, ByWeeks: 1},
	}
	s.Yellow.AddDriver(s.YE)
	s.Yellow.AddDriver(s.YA)
	s.Red.AddDriver(s.RO)
	s.Season.AddTeam(s.Yellow)
	s.Season.AddTeam(s.Red)
	s.Season.AddRace(s.Race1)
	s.Season.AddRace(s.Race2)

	finish := func(r *Race, d *Driver, place int64, finished, injured bool, weeks int64) {
		f := &Finish{Place: place, Finished: finished, Injured: injured, WeeksMissed: weeks}
		r.AddFinish(f)
		d.AddFinish(f)
		s.Finishes = append(s.Finishes, f)
	}
	finish(s.Race1, s.YE, 1, true, false, 0)
	finish(s.Race1, s.RO, 2, true, false, 0)
	finish(s.Race2, s.RO, 1, true, false, 0)
	finish(s.Race2, s.YA, 2, false, true, 3)
	return s
}

// Entities returns every entity in a save order where references point at
// entities saved earlier.
func (s *Sample) Entities() []schema.Entity {
	out := []schema.Entity{s.Season, s.Yellow, s.Red, s.YE, s.YA, s.RO, s.Race1, s.Race2}
	for _, f := range s.Finishes {
		out = append(out, f)
	}
	return out
}

// Owners returns the entities holding relations to members saved after
// them. Saving them again stores those memberships.
func (s *Sample) Owners() []schema.Entity {
	return []schema.Entity{s.Season, s.Yellow, s.Red}
}
