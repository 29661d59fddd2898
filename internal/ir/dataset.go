package ir

// RelationKind distinguishes the two to-many relation classes.
type RelationKind int

const (
	// Owned marks the inverse side of a one-to-many relation. The related
	// entity holds the canonical back-reference.
	Owned RelationKind = iota + 1
	// Owning marks the side of a many-to-many relation that is exported and
	// imported on behalf of both sides.
	Owning
)

// String returns the lowercase name of the kind.
func (k RelationKind) String() string {
	switch k {
	case Owned:
		return "owned"
	case Owning:
		return "owning"
	default:
		return "unknown"
	}
}

// RelationTable describes the members of one to-many field of one owner.
// Owner and Members hold identity records only.
type RelationTable struct {
	OwnerType   string
	Field       string
	Kind        RelationKind
	RelatedType string
	Owner       *Record
	Members     []*Record
}

// Section holds the full records of one type, in store enumeration order.
type Section struct {
	Type    string
	Records []*Record
}

// Dataset is the in-memory exchange format between the walker, the codecs
// and the importer.
type Dataset struct {
	Sections  []*Section
	Relations []*RelationTable

	// Warnings lists objects skipped during export.
	Warnings []string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{}
}

// Section returns the section for typ, or nil.
func (d *Dataset) Section(typ string) *Section {
	for _, s := range d.Sections {
		if s.Type == typ {
			return s
		}
	}
	return nil
}

// AddSection returns the section for typ, creating it at the end when absent.
func (d *Dataset) AddSection(typ string) *Section {
	if s := d.Section(typ); s != nil {
		return s
	}
	s := &Section{Type: typ}
	d.Sections = append(d.Sections, s)
	return s
}

// AddRelation appends a relation table.
func (d *Dataset) AddRelation(t *RelationTable) {
	d.Relations = append(d.Relations, t)
}

// RelationsFor returns the tables of one owner type and field, in order.
func (d *Dataset) RelationsFor(ownerType, field string) []*RelationTable {
	var out []*RelationTable
	for _, t := range d.Relations {
		if t.OwnerType == ownerType && t.Field == field {
			out = append(out, t)
		}
	}
	return out
}

// RecordCount returns the total number of full records.
func (d *Dataset) RecordCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Records)
	}
	return n
}

// LinkCount returns the total number of relation members.
func (d *Dataset) LinkCount() int {
	n := 0
	for _, t := range d.Relations {
		n += len(t.Members)
	}
	return n
}
