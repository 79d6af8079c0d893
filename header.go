package volley

import (
	"fmt"
	"strings"
)

// Header is a single request header. Jobs keep headers in order and allow
// repeated names.
type Header struct {
	Name  string
	Value string
}

// String returns the header as "Name: Value".
func (h Header) String() string {
	return h.Name + ": " + h.Value
}

// ParseHeader parses one "Name:Value" or "Name=Value" header. It splits at
// the first ':' or '=', so values may contain either character. Name and
// value are trimmed; an empty value is allowed.
//
// Returns an error wrapping [ErrInvalidHeader] if there is no delimiter or
// the name is empty.
func ParseHeader(s string) (Header, error) {
	idx := strings.IndexAny(s, ":=")
	if idx < 0 {
		return Header{}, fmt.Errorf("%w: %q has no ':' or '=' between name and value", ErrInvalidHeader, s)
	}

	name := strings.TrimSpace(s[:idx])
	if name == "" {
		return Header{}, fmt.Errorf("%w: name cannot be empty in %q", ErrInvalidHeader, s)
	}
	return Header{Name: name, Value: strings.TrimSpace(s[idx+1:])}, nil
}
