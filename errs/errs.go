// Package errs holds the error kinds shared by every layer of the image stack.
package errs

import "fmt"

// FormatError reports a magic or signature that does not match.
type FormatError struct {
	Structure string
	Expected  string
	Found     string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: expected signature %s found %s", e.Structure, e.Expected, e.Found)
}

// ShortReadError reports a medium that returned fewer bytes than requested.
type ShortReadError struct {
	Offset    int64
	Requested int
	Read      int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read at offset %d: requested %d bytes got %d", e.Offset, e.Requested, e.Read)
}

// IntegrityError reports a structurally valid layout that cannot be interpreted.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string {
	return e.Msg
}

// UnsupportedFeatureError reports a recognised layout variant that is not implemented.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s not supported", e.Feature)
}

func NewIntegrityError(format string, args ...any) error {
	return &IntegrityError{Msg: fmt.Sprintf(format, args...)}
}

func NewUnsupported(format string, args ...any) error {
	return &UnsupportedFeatureError{Feature: fmt.Sprintf(format, args...)}
}
