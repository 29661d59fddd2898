package domain

import "slices"

// addUnique appends v unless it is already present (by pointer).
func addUnique[T comparable](list []T, v T) []T {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

// remove deletes v from list, keeping order.
func remove[T comparable](list []T, v T) []T {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

// AddDriver makes d a member of t, moving it from any previous team.
func (t *Team) AddDriver(d *Driver) {
	if d == nil {
		return
	}
	d.SetTeam(t)
}

// SetTeam moves d to team t. A nil team detaches the driver.
func (d *Driver) SetTeam(t *Team) {
	if d.Team == t {
		if t != nil {
			t.Drivers = addUnique(t.Drivers, d)
		}
		return
	}
	if d.Team != nil {
		d.Team.Drivers = remove(d.Team.Drivers, d)
	}
	d.Team = t
	if t != nil {
		t.Drivers = addUnique(t.Drivers, d)
	}
}

// AddSeason links t and s in both directions.
func (t *Team) AddSeason(s *Season) {
	if s == nil {
		return
	}
	t.Seasons = addUnique(t.Seasons, s)
	s.Teams = addUnique(s.Teams, t)
}

// AddTeam links s and t in both directions.
func (s *Season) AddTeam(t *Team) {
	if t == nil {
		return
	}
	t.AddSeason(s)
}

// AddRace makes r part of s.
func (s *Season) AddRace(r *Race) {
	if r == nil {
		return
	}
	r.SetSeason(s)
}

// SetSeason moves r to season s.
func (r *Race) SetSeason(s *Season) {
	if r.Season != s && r.Season != nil {
		r.Season.Races = remove(r.Season.Races, r)
	}
	r.Season = s
	if s != nil {
		s.Races = addUnique(s.Races, r)
	}
}

// AddFinish records f as a result of r.
func (r *Race) AddFinish(f *Finish) {
	if f == nil {
		return
	}
	f.SetRace(r)
}

// SetRace moves f to race r.
func (f *Finish) SetRace(r *Race) {
	if f.Race != r && f.Race != nil {
		f.Race.Finishes = remove(f.Race.Finishes, f)
	}
	f.Race = r
	if r != nil {
		r.Finishes = addUnique(r.Finishes, f)
	}
}

// AddFinish records f as a result of d.
func (d *Driver) AddFinish(f *Finish) {
	if f == nil {
		return
	}
	f.SetDriver(d)
}

// SetDriver moves f to driver d.
func (f *Finish) SetDriver(d *Driver) {
	if f.Driver != d && f.Driver != nil {
		f.Driver.Finishes = remove(f.Driver.Finishes, f)
	}
	f.Driver = d
	if d != nil {
		d.Finishes = addUnique(d.Finishes, f)
	}
}
