package ir

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"unicode/utf16"
)

// MarshalCanonical produces RFC 8785 style canonical JSON for a record:
//
//	{"fields":{...},"type":"Team"}
//
// Keys are sorted by UTF-16 code units and HTML characters are not escaped.
// Strings are kept byte for byte, so canonically equivalent spellings stay
// distinct the way stores compare them. Null values are written as JSON null. Nested
// references become nested objects of the same shape.
func MarshalCanonical(r *Record) []byte {
	var buf bytes.Buffer
	writeCanonicalRecord(&buf, r)
	return buf.Bytes()
}

func writeCanonicalRecord(buf *bytes.Buffer, r *Record) {
	if r == nil {
		buf.WriteString("null")
		return
	}
	buf.WriteString(`{"fields":{`)
	names := r.Names()
	slices.SortFunc(names, compareKeysRFC8785)
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCanonicalString(buf, name)
		buf.WriteByte(':')
		e, _ := r.Get(name)
		switch v := e.(type) {
		case Referenced:
			writeCanonicalRecord(buf, v.Record)
		case Direct:
			writeCanonicalValue(buf, v.Value)
		default:
			buf.WriteString("null")
		}
	}
	buf.WriteString(`},"type":`)
	writeCanonicalString(buf, r.Type)
	buf.WriteByte('}')
}

func writeCanonicalValue(buf *bytes.Buffer, v Value) {
	switch val := v.(type) {
	case String:
		writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	default:
		buf.WriteString("null")
	}
}

// writeCanonicalString writes a JSON string.
// Only control characters, backslash and quote are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
}

// unescapeLineSeparators undoes json.Encoder's escaping of U+2028 and U+2029,
// which RFC 8785 leaves literal. An escaped backslash followed by "u2028" is
// left untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) {
			switch string(data[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// Copy the escape pair so an escaped backslash is never re-read.
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785. Go's default string comparison uses UTF-8 which
// produces a different order for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
