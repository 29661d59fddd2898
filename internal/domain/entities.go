package domain

// Type names as they appear in archives and documents.
const (
	TypeSeason = "Season"
	TypeTeam   = "Team"
	TypeDriver = "Driver"
	TypeRace   = "Race"
	TypeFinish = "Finish"
)

// Base holds the store-assigned surrogate ID.
type Base struct {
	ID string
}

// EntityID returns the surrogate ID.
func (b *Base) EntityID() string { return b.ID }

// SetEntityID sets the surrogate ID.
func (b *Base) SetEntityID(id string) { b.ID = id }

// DriverStatus is a driver's career state.
type DriverStatus string

const (
	StatusActive  DriverStatus = "Active"
	StatusRetired DriverStatus = "Retired"
)

// String implements fmt.Stringer.
func (s DriverStatus) String() string { return string(s) }

// Season is one championship season. Seasons are identified by name.
type Season struct {
	Base
	Name        string
	SeasonOrder int64
	Teams       []*Team
	Races       []*Race
}

// EntityType implements schema.Entity.
func (*Season) EntityType() string { return TypeSeason }

// Team is a racing team. Teams are identified by tag.
type Team struct {
	Base
	Tag     string
	Name    string
	Drivers []*Driver
	Seasons []*Season
}

// EntityType implements schema.Entity.
func (*Team) EntityType() string { return TypeTeam }

// Driver races for at most one team. Drivers are identified by tag.
type Driver struct {
	Base
	Name     string
	Tag      string
	XP       int64
	Age      int64
	Injuries int64
	Status   DriverStatus
	Team     *Team
	Finishes []*Finish
}

// EntityType implements schema.Entity.
func (*Driver) EntityType() string { return TypeDriver }

// Race is one numbered race within a season.
type Race struct {
	Base
	Season          *Season
	RaceNumber      int64
	CourseName      string
	ValueMultiplier int64
	ByWeeks         int64
	Finishes        []*Finish
}

// EntityType implements schema.Entity.
func (*Race) EntityType() string { return TypeRace }

// Finish is a driver's result in a race.
type Finish struct {
	Base
	Race        *Race
	Driver      *Driver
	Place       int64
	Finished    bool
	Injured     bool
	WeeksMissed int64
}

// EntityType implements schema.Entity.
func (*Finish) EntityType() string { return TypeFinish }
