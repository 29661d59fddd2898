package ir

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrorCode categorizes export and import failures.
type ErrorCode string

const (
	// CodeSchema indicates a type's metadata is unusable: a relation or
	// reference target without identity metadata, or an inconsistent
	// descriptor. Detected before any data is processed.
	CodeSchema ErrorCode = "SCHEMA"

	// CodeConversion indicates a value could not be converted between its
	// field type and its textual form.
	CodeConversion ErrorCode = "CONVERSION"

	// CodeFormat indicates a malformed input document or archive.
	CodeFormat ErrorCode = "FORMAT"

	// CodeRelationCycle indicates import could not make progress on pending
	// references, or a relation endpoint could not be resolved.
	CodeRelationCycle ErrorCode = "RELATION_CYCLE"

	// CodeStore indicates the backing store failed.
	CodeStore ErrorCode = "STORE"
)

// Error is the single error type surfaced by the schema model, the walker,
// the codecs and the importer.
//
// Error includes structured fields for diagnostics. Callers match on the
// code with the Is*Error helpers, which use errors.As and therefore see
// through fmt.Errorf wrapping.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Type is the affected entity type, if any.
	Type string

	// Field is the affected field, if any.
	Field string

	// Identity renders the affected entity's identity, if known.
	Identity string

	// Pending lists unresolved worklist entries for relation cycle errors.
	Pending []string

	// Details contains additional context such as archive entry and line.
	Details map[string]string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)

	var ctx []string
	if e.Type != "" {
		ctx = append(ctx, "type="+e.Type)
	}
	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}
	if e.Identity != "" {
		ctx = append(ctx, "identity="+e.Identity)
	}
	for _, k := range sortedDetailKeys(e.Details) {
		ctx = append(ctx, k+"="+e.Details[k])
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}
	if len(e.Pending) > 0 {
		b.WriteString(": pending ")
		b.WriteString(strings.Join(e.Pending, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail returns e after setting a detail key. Used to attach location
// information such as the archive entry and line number.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func sortedDetailKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsSchemaError returns true if the error is a schema error.
func IsSchemaError(err error) bool { return CodeOf(err) == CodeSchema }

// IsConversionError returns true if the error is a conversion error.
func IsConversionError(err error) bool { return CodeOf(err) == CodeConversion }

// IsFormatError returns true if the error is a format error.
func IsFormatError(err error) bool { return CodeOf(err) == CodeFormat }

// IsRelationCycleError returns true if the error is a relation cycle error.
func IsRelationCycleError(err error) bool { return CodeOf(err) == CodeRelationCycle }

// IsStoreError returns true if the error is a store error.
func IsStoreError(err error) bool { return CodeOf(err) == CodeStore }

// NewSchemaError creates an Error for unusable type metadata.
func NewSchemaError(typ, field, format string, args ...any) *Error {
	return &Error{
		Code:    CodeSchema,
		Message: fmt.Sprintf(format, args...),
		Type:    typ,
		Field:   field,
	}
}

// NewConversionError creates an Error for a value that failed to convert.
func NewConversionError(typ, field, text string, err error) *Error {
	return &Error{
		Code:    CodeConversion,
		Message: fmt.Sprintf("cannot convert %q", text),
		Type:    typ,
		Field:   field,
		Err:     err,
	}
}

// NewFormatError creates an Error for malformed input.
func NewFormatError(format string, args ...any) *Error {
	return &Error{
		Code:    CodeFormat,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewRelationCycleError creates an Error listing the worklist entries that
// could not be resolved.
func NewRelationCycleError(message string, pending []string) *Error {
	return &Error{
		Code:    CodeRelationCycle,
		Message: message,
		Pending: pending,
	}
}

// NewStoreError creates an Error wrapping a store failure.
func NewStoreError(op, typ string, err error) *Error {
	return &Error{
		Code:    CodeStore,
		Message: op + " failed",
		Type:    typ,
		Err:     err,
	}
}
