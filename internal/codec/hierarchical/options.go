package hierarchical

import (
	"log/slog"

	"github.com/roach88/racetrack/internal/schema"
)

// DefaultDocumentName is the root element name used when none is configured.
const DefaultDocumentName = "racetrack"

type options struct {
	docName string
	logger  *slog.Logger
}

// Option configures the XML and YAML codecs.
type Option func(*options)

// WithDocumentName sets the root element name. Decoding rejects documents
// with a different root.
func WithDocumentName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.docName = name
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{
		docName: DefaultDocumentName,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// base holds what both renderings share.
type base struct {
	reg *schema.Registry
	options
}

func (b *base) parser() *parser {
	return &parser{reg: b.reg, docName: b.docName}
}

// DocumentName returns the root element name.
func (b *base) DocumentName() string {
	return b.docName
}
