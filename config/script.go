package config

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// fieldCount is the number of fields in a delimited or CSV entry:
// ITERATIONS, METHOD, ENDPOINT, HEADERS, SLEEP_MS.
const fieldCount = 5

const delimiter = "|"

// ParseDelimited parses a pipe-delimited script.
//
// Each non-blank line that does not start with '#' must have exactly five
// '|'-separated fields. A first line whose first field is "iterations" is
// treated as a header row and skipped.
func ParseDelimited(r io.Reader, d Defaults) ([]Descriptor, error) {
	var descs []Descriptor

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, delimiter)
		if len(descs) == 0 && isHeaderRow(fields) {
			continue
		}
		if len(fields) != fieldCount {
			return nil, &ScriptError{
				Line: lineNo,
				Err:  fmt.Errorf("expected %d '%s'-separated fields, got %d", fieldCount, delimiter, len(fields)),
			}
		}

		desc, err := parseFields(fields, d)
		if err != nil {
			return nil, &ScriptError{Line: lineNo, Err: err}
		}
		desc.Line = lineNo
		descs = append(descs, desc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	if len(descs) == 0 {
		return nil, &ScriptError{Err: errors.New("script contains no requests")}
	}
	return descs, nil
}

// ParseCSV parses a comma-separated script with the same five columns as
// [ParseDelimited]. Quoted fields may contain commas, so header lists can
// use either separator. Lines starting with '#' are skipped, as is an
// optional header row.
func ParseCSV(r io.Reader, d Defaults) ([]Descriptor, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = fieldCount
	reader.TrimLeadingSpace = true

	var descs []Descriptor
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &ScriptError{Line: pe.StartLine, Err: pe.Err}
			}
			return nil, fmt.Errorf("failed to read script: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if len(descs) == 0 && isHeaderRow(record) {
			continue
		}

		desc, err := parseFields(record, d)
		if err != nil {
			return nil, &ScriptError{Line: line, Err: err}
		}
		desc.Line = line
		descs = append(descs, desc)
	}

	if len(descs) == 0 {
		return nil, &ScriptError{Err: errors.New("script contains no requests")}
	}
	return descs, nil
}

func isHeaderRow(fields []string) bool {
	return len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), "iterations")
}

// parseFields turns five raw fields into a descriptor.
func parseFields(fields []string, d Defaults) (Descriptor, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	iterations, err := parseCount(fields[0], "iterations")
	if err != nil {
		return Descriptor{}, err
	}
	sleepMs, err := parseCount(fields[4], "sleep")
	if err != nil {
		return Descriptor{}, err
	}

	e := entry{
		iterations: iterations,
		method:     fields[1],
		endpoint:   fields[2],
		sleep:      time.Duration(sleepMs) * time.Millisecond,
	}
	if fields[3] != "" {
		e.headers = []string{fields[3]}
	}
	return apply(d, e)
}

// parseCount parses a non-negative integer field. Empty means zero.
func parseCount(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number, got %q", name, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s cannot be negative, got %d", name, n)
	}
	return n, nil
}
