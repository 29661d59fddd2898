package tabular

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

// Format is the format name of the tabular codec.
const Format = "csv"

const entrySuffix = ".csv"

// Codec reads and writes tabular archives.
type Codec struct {
	reg    *schema.Registry
	logger *slog.Logger
	level  int
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = l
	}
}

// WithCompressionLevel sets the deflate level of written entries, from
// flate.HuffmanOnly to flate.BestCompression.
func WithCompressionLevel(level int) Option {
	return func(c *Codec) {
		c.level = level
	}
}

// New creates a tabular codec for the registry's types.
func New(reg *schema.Registry, opts ...Option) *Codec {
	c := &Codec{
		reg:    reg,
		logger: slog.Default(),
		level:  flate.DefaultCompression,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Format returns "csv".
func (c *Codec) Format() string { return Format }

// TypeEntry returns the archive entry name of a type section.
func TypeEntry(typ string) string {
	return typ + entrySuffix
}

// RelationEntry returns the archive entry name of a relation field.
func RelationEntry(ownerType, field string) string {
	return ownerType + "." + field + entrySuffix
}

type relationKey struct {
	owner string
	field string
}

// Encode writes ds as a zip archive. Type sections come first in dataset
// order. They are followed by one entry per relation field of every
// written type, including fields without members, then by entries for any
// remaining relation tables in first-seen order.
func (c *Codec) Encode(ds *ir.Dataset, w io.Writer) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, c.level)
	})

	var relations []relationKey
	seen := make(map[relationKey]bool)
	addRelation := func(k relationKey) {
		if !seen[k] {
			seen[k] = true
			relations = append(relations, k)
		}
	}

	for _, sec := range ds.Sections {
		a, err := c.analyze(sec.Type)
		if err != nil {
			return err
		}
		if err := c.writeSection(zw, a, sec); err != nil {
			return err
		}
		for _, f := range a.RelationFields() {
			addRelation(relationKey{owner: sec.Type, field: f.Name})
		}
	}
	for _, t := range ds.Relations {
		addRelation(relationKey{owner: t.OwnerType, field: t.Field})
	}

	for _, k := range relations {
		if err := c.writeRelation(zw, k, ds.RelationsFor(k.owner, k.field)); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func (c *Codec) writeSection(zw *zip.Writer, a *schema.Analysis, sec *ir.Section) error {
	name := TypeEntry(sec.Type)
	out, err := createEntry(zw, name)
	if err != nil {
		return err
	}
	cols := a.Columns()
	cw := newCSVWriter(out)
	cw.writeHeader(labels(cols))
	row := make([]ir.Value, 0, len(cols))
	for _, rec := range sec.Records {
		cw.writeRow(rowValues(rec, cols, row[:0]))
	}
	if err := cw.flush(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	c.logger.Debug("csv entry written", "entry", name, "rows", len(sec.Records))
	return nil
}

func (c *Codec) writeRelation(zw *zip.Writer, k relationKey, tables []*ir.RelationTable) error {
	ownerCols, memberCols, err := c.relationColumns(k)
	if err != nil {
		return err
	}
	name := RelationEntry(k.owner, k.field)
	out, err := createEntry(zw, name)
	if err != nil {
		return err
	}

	cw := newCSVWriter(out)
	cw.writeHeader(append(labels(ownerCols), labels(memberCols)...))
	rows := 0
	row := make([]ir.Value, 0, len(ownerCols)+len(memberCols))
	for _, t := range tables {
		for _, m := range t.Members {
			row = rowValues(t.Owner, ownerCols, row[:0])
			row = rowValues(m, memberCols, row)
			cw.writeRow(row)
			rows++
		}
	}
	if err := cw.flush(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	c.logger.Debug("csv entry written", "entry", name, "rows", rows)
	return nil
}

// relationColumns returns the owner and member columns of a relation entry.
// Member columns carry the related type prefix in their labels only.
func (c *Codec) relationColumns(k relationKey) ([]schema.Column, []schema.Column, error) {
	owner, err := c.analyze(k.owner)
	if err != nil {
		return nil, nil, err
	}
	f, ok := owner.Field(k.field)
	if !ok || !f.Class.IsRelation() {
		return nil, nil, ir.NewSchemaError(k.owner, k.field, "not a relation field")
	}
	target, err := c.analyze(f.Target)
	if err != nil {
		return nil, nil, err
	}
	return owner.IdentityColumns(), prefixed(target.IdentityColumns(), schema.LowerFirst(f.Target)), nil
}

// analyze returns the analysis of a type that has a flat column layout.
func (c *Codec) analyze(typ string) (*schema.Analysis, error) {
	a, err := c.reg.Analyze(typ)
	if err != nil {
		return nil, err
	}
	if err := a.ColumnsErr(); err != nil {
		return nil, err
	}
	return a, nil
}

func createEntry(zw *zip.Writer, name string) (io.Writer, error) {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return w, nil
}

// Decode reads a tabular archive. Entries may appear in any order; type
// sections keep archive order and relation tables are grouped by owner in
// first-seen order within each entry.
func (c *Codec) Decode(r io.Reader) (*ir.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e := ir.NewFormatError("not a zip archive")
		e.Err = err
		return nil, e
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	ds := ir.NewDataset()
	seen := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if seen[f.Name] {
			return nil, ir.NewFormatError("duplicate entry %q", f.Name)
		}
		seen[f.Name] = true
		if err := c.decodeEntry(ds, f); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("csv archive decoded",
		"entries", len(seen),
		"records", ds.RecordCount(),
		"links", ds.LinkCount())
	return ds, nil
}

func (c *Codec) decodeEntry(ds *ir.Dataset, f *zip.File) error {
	base, ok := strings.CutSuffix(f.Name, entrySuffix)
	if !ok || base == "" {
		return ir.NewFormatError("unexpected entry %q", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		e := ir.NewFormatError("cannot open entry %q", f.Name)
		e.Err = err
		return e
	}
	defer rc.Close()

	cr := newCSVReader(rc)
	header, _, err := cr.read()
	if errors.Is(err, io.EOF) {
		return ir.NewFormatError("missing header").WithDetail("entry", f.Name)
	}
	if err != nil {
		return entryError(f.Name, err)
	}

	if owner, field, isRelation := strings.Cut(base, "."); isRelation {
		return c.decodeRelation(ds, f.Name, relationKey{owner: owner, field: field}, header, cr)
	}
	return c.decodeSection(ds, f.Name, base, header, cr)
}

func (c *Codec) decodeSection(ds *ir.Dataset, entry, typ string, header []cell, cr *csvReader) error {
	if _, ok := c.reg.Type(typ); !ok {
		return ir.NewFormatError("entry %q names unknown type %q", entry, typ)
	}
	a, err := c.analyze(typ)
	if err != nil {
		return err
	}
	cols, err := bindHeader(entry, header, a.Columns(), a.IdentityColumns())
	if err != nil {
		return err
	}

	as := &assembler{reg: c.reg, entry: entry}
	sec := ds.AddSection(typ)
	for {
		row, line, err := cr.read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return entryError(entry, err)
		}
		if len(row) != len(header) {
			return widthError(entry, line, len(row), len(header))
		}
		rec, _, err := as.assemble(a, a.ExportedFields(), cols, 0, row, line)
		if err != nil {
			return err
		}
		sec.Records = append(sec.Records, rec)
	}
	return nil
}

func (c *Codec) decodeRelation(ds *ir.Dataset, entry string, k relationKey, header []cell, cr *csvReader) error {
	if _, ok := c.reg.Type(k.owner); !ok {
		return ir.NewFormatError("entry %q names unknown type %q", entry, k.owner)
	}
	owner, err := c.analyze(k.owner)
	if err != nil {
		return err
	}
	f, ok := owner.Field(k.field)
	if !ok || !f.Class.IsRelation() {
		return ir.NewFormatError("entry %q names unknown relation field %s.%s", entry, k.owner, k.field)
	}
	target, err := c.analyze(f.Target)
	if err != nil {
		return err
	}

	ownerCols, memberCols, err := c.relationColumns(k)
	if err != nil {
		return err
	}
	all := append(append([]schema.Column{}, ownerCols...), memberCols...)
	cols, err := bindHeader(entry, header, all, all)
	if err != nil {
		return err
	}
	ownerLabels := make(map[string]bool, len(ownerCols))
	for _, col := range ownerCols {
		ownerLabels[col.Label] = true
	}
	var ownerBound, memberBound []bound
	for _, b := range cols {
		if ownerLabels[b.col.Label] {
			ownerBound = append(ownerBound, b)
		} else {
			memberBound = append(memberBound, b)
		}
	}

	as := &assembler{reg: c.reg, entry: entry}
	tables := make(map[string]*ir.RelationTable)
	for {
		row, line, err := cr.read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return entryError(entry, err)
		}
		if len(row) != len(header) {
			return widthError(entry, line, len(row), len(header))
		}

		ownerRec, ok, err := as.assemble(owner, owner.IdentityFields(), ownerBound, 0, row, line)
		if err != nil {
			return err
		}
		if !ok {
			return ir.NewFormatError("relation row has no owner identity").WithDetail("entry", entry).WithDetail("line", fmt.Sprint(line))
		}
		member, ok, err := as.assemble(target, target.IdentityFields(), memberBound, 0, row, line)
		if err != nil {
			return err
		}
		if !ok {
			return ir.NewFormatError("relation row has no member identity").WithDetail("entry", entry).WithDetail("line", fmt.Sprint(line))
		}

		key := ownerRec.Key()
		t, ok := tables[key]
		if !ok {
			t = &ir.RelationTable{
				OwnerType:   k.owner,
				Field:       k.field,
				Kind:        f.Class.RelationKind(),
				RelatedType: f.Target,
				Owner:       ownerRec,
			}
			tables[key] = t
			ds.AddRelation(t)
		}
		t.Members = append(t.Members, member)
	}
	return nil
}

func entryError(entry string, err error) error {
	if errors.Is(err, errSyntax) {
		e := ir.NewFormatError("malformed csv").WithDetail("entry", entry)
		e.Err = err
		return e
	}
	return fmt.Errorf("read %s: %w", entry, err)
}

func widthError(entry string, line, got, want int) error {
	return ir.NewFormatError("row has %d cells, header has %d", got, want).
		WithDetail("entry", entry).
		WithDetail("line", fmt.Sprint(line))
}
