package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates a point lookup miss in a repository.
var ErrNotFound = errors.New("not found")

// Kind classifies a failure of the ingestion pipeline or the analytics engine.
type Kind string

const (
	KindValidationFailed    Kind = "ValidationFailed"
	KindDuplicateInvoice    Kind = "DuplicateInvoice"
	KindReferenceNotFound   Kind = "ReferenceNotFound"
	KindSupplierNotFound    Kind = "SupplierNotFound"
	KindStorageFailure      Kind = "StorageFailure"
	KindUnsupportedFileType Kind = "UnsupportedFileType"
	KindIngestionInProgress Kind = "IngestionInProgress"
)

// Sentinels usable with errors.Is; any *Error of the same kind matches.
var (
	ErrValidationFailed    = &Error{Kind: KindValidationFailed}
	ErrDuplicateInvoice    = &Error{Kind: KindDuplicateInvoice}
	ErrReferenceNotFound   = &Error{Kind: KindReferenceNotFound}
	ErrSupplierNotFound    = &Error{Kind: KindSupplierNotFound}
	ErrStorageFailure      = &Error{Kind: KindStorageFailure}
	ErrUnsupportedFileType = &Error{Kind: KindUnsupportedFileType}
	ErrIngestionInProgress = &Error{Kind: KindIngestionInProgress}
)

// FieldError describes one violated constraint of a row.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error is the tagged error carried through every stage. Row is the 1-based
// data row number (0 when the failure is not tied to a row).
type Error struct {
	Kind   Kind
	Op     string
	Row    int
	Key    string
	Fields []FieldError
	Err    error
}

// E builds an *Error of the given kind.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " [%s]", e.Key)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches bare sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil || t.Row != 0 || t.Key != "" || len(t.Fields) != 0 {
		return false
	}
	return t.Kind == e.Kind
}

// WithRow returns a copy of e pinned to the given row number.
func (e *Error) WithRow(row int) *Error {
	cp := *e
	cp.Row = row
	return &cp
}

// KindOf extracts the outermost error kind, or "" when err is not tagged.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ""
}
