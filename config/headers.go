package config

import (
	"strings"

	"github.com/jpalmerr/volley"
)

// ParseHeaders splits a header list into headers.
//
// Entries are separated by ',' or ';' and each is parsed with
// [volley.ParseHeader]. Empty entries are skipped.
//
// Returns an error wrapping [ErrInvalidHeader] for the first entry that does
// not parse.
func ParseHeaders(s string) ([]volley.Header, error) {
	var headers []volley.Header
	for _, part := range splitHeaderList(s) {
		h, err := volley.ParseHeader(part)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// splitHeaderList returns the trimmed, non-empty entries of a header list.
func splitHeaderList(s string) []string {
	var parts []string
	for _, part := range strings.FieldsFunc(s, isHeaderSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// blankHeaders reports whether raw holds no header entries at all.
func blankHeaders(raw []string) bool {
	for _, s := range raw {
		if len(splitHeaderList(s)) > 0 {
			return false
		}
	}
	return true
}

func isHeaderSeparator(r rune) bool {
	return r == ',' || r == ';'
}
