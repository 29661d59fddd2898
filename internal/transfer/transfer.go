// Package transfer wires the walker, the codecs and the import engine into
// export and import operations over one store.
package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/racetrack/internal/codec"
	"github.com/roach88/racetrack/internal/codec/hierarchical"
	"github.com/roach88/racetrack/internal/codec/tabular"
	"github.com/roach88/racetrack/internal/domain"
	"github.com/roach88/racetrack/internal/engine"
	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
	"github.com/roach88/racetrack/internal/walker"
)

// Service exports and imports the entity graph of one store.
type Service struct {
	reg    *schema.Registry
	store  store.Store
	codecs *codec.Registry
	logger *slog.Logger

	docName         string
	allowIncomplete bool
	parallelism     int
	maxPasses       int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger passed to every component. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithDocumentName sets the root element name of hierarchical documents.
func WithDocumentName(name string) Option {
	return func(s *Service) {
		s.docName = name
	}
}

// WithAllowIncomplete exports only the requested types instead of their
// closure.
func WithAllowIncomplete(allow bool) Option {
	return func(s *Service) {
		s.allowIncomplete = allow
	}
}

// WithParallelism sets how many types are walked concurrently on export.
func WithParallelism(n int) Option {
	return func(s *Service) {
		s.parallelism = n
	}
}

// WithMaxPasses bounds the fixpoint passes of an import.
func WithMaxPasses(n int) Option {
	return func(s *Service) {
		s.maxPasses = n
	}
}

// New creates a service with the csv, xml and yaml codecs registered.
func New(reg *schema.Registry, st store.Store, opts ...Option) *Service {
	s := &Service{
		reg:         reg,
		store:       st,
		logger:      slog.Default(),
		docName:     hierarchical.DefaultDocumentName,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.codecs = codec.NewRegistry(
		tabular.New(reg, tabular.WithLogger(s.logger)),
		hierarchical.NewXML(reg,
			hierarchical.WithDocumentName(s.docName),
			hierarchical.WithLogger(s.logger)),
		hierarchical.NewYAML(reg,
			hierarchical.WithDocumentName(s.docName),
			hierarchical.WithLogger(s.logger)),
	)
	return s
}

// Formats returns the supported format names.
func (s *Service) Formats() []string {
	return s.codecs.Formats()
}

// Export walks the requested types, every type when none are given, and
// writes them to w in the named format. The returned dataset carries the
// warnings of skipped objects.
func (s *Service) Export(ctx context.Context, w io.Writer, format string, types ...string) (*ir.Dataset, error) {
	c, err := s.codecs.Lookup(format)
	if err != nil {
		return nil, err
	}
	wk := walker.New(s.reg, s.store,
		walker.WithLogger(s.logger),
		walker.WithAllowIncomplete(s.allowIncomplete),
		walker.WithParallelism(s.parallelism))
	ds, err := wk.Walk(ctx, types...)
	if err != nil {
		return nil, err
	}
	if err := c.Encode(ds, w); err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Format(), err)
	}
	s.logger.Info("export complete",
		"format", c.Format(),
		"records", ds.RecordCount(),
		"links", ds.LinkCount(),
		"warnings", len(ds.Warnings))
	return ds, nil
}

// Import decodes r in the named format and reconciles it with the store.
func (s *Service) Import(ctx context.Context, r io.Reader, format string) (*engine.Report, error) {
	c, err := s.codecs.Lookup(format)
	if err != nil {
		return nil, err
	}
	ds, err := c.Decode(r)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("document decoded",
		"format", c.Format(),
		"records", ds.RecordCount(),
		"links", ds.LinkCount())

	return s.importer().Import(ctx, ds)
}

// Seed imports the sample league of package domain. The registry must
// declare the domain types. Seeding an already seeded store creates
// nothing.
func (s *Service) Seed(ctx context.Context) (*engine.Report, error) {
	src := store.NewMemory(s.reg, store.WithLogger(s.logger))
	sample := domain.NewSample()
	for _, e := range append(sample.Entities(), sample.Owners()...) {
		if err := src.Save(ctx, e); err != nil {
			return nil, fmt.Errorf("stage sample %s: %w", e.EntityType(), err)
		}
	}
	ds, err := walker.New(s.reg, src, walker.WithLogger(s.logger)).Walk(ctx)
	if err != nil {
		return nil, err
	}
	return s.importer().Import(ctx, ds)
}

func (s *Service) importer() *engine.Engine {
	return engine.New(s.reg, s.store,
		engine.WithLogger(s.logger),
		engine.WithMaxPasses(s.maxPasses))
}

// FormatForPath guesses the format from a file extension: .zip and .csv
// mean csv, .xml means xml, .yaml and .yml mean yaml.
func FormatForPath(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".csv":
		return tabular.Format, true
	case ".xml":
		return hierarchical.FormatXML, true
	case ".yaml", ".yml":
		return hierarchical.FormatYAML, true
	}
	return "", false
}
