package tabular

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/roach88/racetrack/internal/ir"
)

// lineEnd terminates every written record.
const lineEnd = "\r\n"

// cell is one parsed CSV field. A cell is null when it is empty and was not
// quoted.
type cell struct {
	text   string
	quoted bool
}

func (c cell) isNull() bool {
	return !c.quoted && c.text == ""
}

// csvWriter writes records with the quoting rules of the archive format.
// encoding/csv cannot be used because it never quotes an empty field, which
// would make null and "" indistinguishable.
type csvWriter struct {
	w   *bufio.Writer
	err error
}

func newCSVWriter(w io.Writer) *csvWriter {
	return &csvWriter{w: bufio.NewWriter(w)}
}

// writeHeader writes column labels, quoting only labels that need it.
func (cw *csvWriter) writeHeader(labels []string) {
	for i, l := range labels {
		if i > 0 {
			cw.writeString(",")
		}
		if strings.ContainsAny(l, ",\"\r\n") {
			cw.writeQuoted(l)
		} else {
			cw.writeString(l)
		}
	}
	cw.writeString(lineEnd)
}

// writeRow writes one record of values.
func (cw *csvWriter) writeRow(values []ir.Value) {
	for i, v := range values {
		if i > 0 {
			cw.writeString(",")
		}
		cw.writeValue(v)
	}
	cw.writeString(lineEnd)
}

func (cw *csvWriter) writeValue(v ir.Value) {
	if ir.IsNull(v) {
		return
	}
	text := v.Text()
	if isNumeric(text) {
		cw.writeString(text)
		return
	}
	cw.writeQuoted(text)
}

func (cw *csvWriter) writeQuoted(s string) {
	cw.writeString(`"`)
	cw.writeString(strings.ReplaceAll(s, `"`, `""`))
	cw.writeString(`"`)
}

func (cw *csvWriter) writeString(s string) {
	if cw.err != nil {
		return
	}
	_, cw.err = cw.w.WriteString(s)
}

func (cw *csvWriter) flush() error {
	if cw.err != nil {
		return cw.err
	}
	return cw.w.Flush()
}

// isNumeric reports whether s matches -?[0-9]+(\.[0-9]+)?.
func isNumeric(s string) bool {
	s = strings.TrimPrefix(s, "-")
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if !allDigits(intPart) {
		return false
	}
	return !hasFrac || allDigits(frac)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// errSyntax is wrapped by every parse failure of csvReader.
var errSyntax = errors.New("csv syntax error")

// csvReader parses records while keeping track of which fields were quoted.
// Both CRLF and LF line endings are accepted.
type csvReader struct {
	r    *bufio.Reader
	line int
}

// newCSVReader strips a leading byte order mark, as spreadsheets write one.
// A UTF-16 mark switches decoding to UTF-16; other input passes through
// unchanged.
func newCSVReader(r io.Reader) *csvReader {
	dec := unicode.BOMOverride(encoding.Nop.NewDecoder())
	return &csvReader{r: bufio.NewReader(transform.NewReader(r, dec)), line: 1}
}

// read returns the next record and the line it starts on. It returns io.EOF
// when no input is left.
func (cr *csvReader) read() ([]cell, int, error) {
	start := cr.line
	if _, err := cr.r.Peek(1); err == io.EOF {
		return nil, start, io.EOF
	}

	var rec []cell
	for {
		c, end, err := cr.field()
		if err != nil {
			return nil, start, err
		}
		rec = append(rec, c)
		if end {
			return rec, start, nil
		}
	}
}

// field reads one field and reports whether it ended the record.
func (cr *csvReader) field() (cell, bool, error) {
	b, err := cr.r.ReadByte()
	if err == io.EOF {
		return cell{}, true, nil
	}
	if err != nil {
		return cell{}, false, err
	}
	if b == '"' {
		return cr.quotedField()
	}
	_ = cr.r.UnreadByte()

	var sb strings.Builder
	for {
		b, err := cr.r.ReadByte()
		if err == io.EOF {
			return cell{text: sb.String()}, true, nil
		}
		if err != nil {
			return cell{}, false, err
		}
		switch b {
		case ',':
			return cell{text: sb.String()}, false, nil
		case '\r', '\n':
			cr.endLine(b)
			return cell{text: sb.String()}, true, nil
		case '"':
			return cell{}, false, fmt.Errorf("%w: line %d: bare quote in unquoted field", errSyntax, cr.line)
		default:
			sb.WriteByte(b)
		}
	}
}

func (cr *csvReader) quotedField() (cell, bool, error) {
	open := cr.line
	var sb strings.Builder
	for {
		b, err := cr.r.ReadByte()
		if err == io.EOF {
			return cell{}, false, fmt.Errorf("%w: line %d: unterminated quoted field", errSyntax, open)
		}
		if err != nil {
			return cell{}, false, err
		}
		if b == '\n' {
			cr.line++
		}
		if b != '"' {
			sb.WriteByte(b)
			continue
		}

		next, err := cr.r.ReadByte()
		if err == io.EOF {
			return cell{text: sb.String(), quoted: true}, true, nil
		}
		if err != nil {
			return cell{}, false, err
		}
		switch next {
		case '"':
			sb.WriteByte('"')
		case ',':
			return cell{text: sb.String(), quoted: true}, false, nil
		case '\r', '\n':
			cr.endLine(next)
			return cell{text: sb.String(), quoted: true}, true, nil
		default:
			return cell{}, false, fmt.Errorf("%w: line %d: unexpected %q after closing quote", errSyntax, cr.line, next)
		}
	}
}

// endLine consumes the rest of a line ending whose first byte was b.
func (cr *csvReader) endLine(b byte) {
	if b == '\r' {
		if next, err := cr.r.Peek(1); err == nil && next[0] == '\n' {
			_, _ = cr.r.ReadByte()
		}
	}
	cr.line++
}
