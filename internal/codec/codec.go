// Package codec defines the wire-format interfaces shared by the tabular and
// hierarchical codecs, and a registry that looks codecs up by format name.
package codec

import (
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/racetrack/internal/ir"
)

// Encoder writes a Dataset in one wire format.
type Encoder interface {
	// Format returns the format name, e.g. "csv".
	Format() string
	Encode(ds *ir.Dataset, w io.Writer) error
}

// Decoder reads a Dataset from one wire format.
type Decoder interface {
	Format() string
	Decode(r io.Reader) (*ir.Dataset, error)
}

// Codec both encodes and decodes one format.
type Codec interface {
	Encoder
	Decoder
}

// Registry maps format names to codecs. Names are case-insensitive.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	order  []string
}

// NewRegistry creates a registry holding the given codecs.
// It panics if two codecs share a format name.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	for _, c := range codecs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a codec.
func (r *Registry) Register(c Codec) error {
	name := strings.ToLower(c.Format())
	if name == "" {
		return ir.NewFormatError("codec has no format name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codecs[name]; exists {
		return ir.NewFormatError("format %q registered twice", name)
	}
	r.codecs[name] = c
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the codec for a format name.
func (r *Registry) Lookup(format string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[strings.ToLower(format)]
	if !ok {
		return nil, ir.NewFormatError("unknown format %q (known: %s)", format, strings.Join(r.order, ", "))
	}
	return c, nil
}

// Formats returns the registered format names in registration order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
