package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// scriptEntry is the JSON and YAML shape of one request.
type scriptEntry struct {
	Iterations int        `json:"iterations" yaml:"iterations"`
	Method     string     `json:"method" yaml:"method"`
	Endpoint   string     `json:"endpoint" yaml:"endpoint"`
	Headers    headerList `json:"headers" yaml:"headers"`
	Sleep      Sleep      `json:"sleep" yaml:"sleep"`
	Randomize  *bool      `json:"randomize" yaml:"randomize"`
}

func (s scriptEntry) entry() entry {
	return entry{
		iterations: s.Iterations,
		method:     s.Method,
		endpoint:   s.Endpoint,
		headers:    s.Headers,
		sleep:      s.Sleep.Duration(),
		randomize:  s.Randomize,
	}
}

// headerList accepts either a single header string or a list of them.
type headerList []string

func (h *headerList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*h = nil
			return nil
		}
		*h = headerList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*h = list
		return nil
	default:
		return fmt.Errorf("line %d: headers must be a string or a list of strings", node.Line)
	}
}

func (h *headerList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*h = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*h = headerList{s}
		return nil
	default:
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return errors.New("headers must be a string or a list of strings")
		}
		*h = list
		return nil
	}
}

// Sleep is a delay given either as a number of milliseconds or as a Go
// duration string such as "250ms" or "1.5s".
type Sleep time.Duration

// Duration returns the underlying time.Duration value.
func (s Sleep) Duration() time.Duration {
	return time.Duration(s)
}

func (s *Sleep) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: sleep must be a number or a duration", node.Line)
	}
	d, err := parseSleep(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = Sleep(d)
	return nil
}

func (s *Sleep) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	d, err := parseSleep(raw)
	if err != nil {
		return err
	}
	*s = Sleep(d)
	return nil
}

// parseSleep reads a bare number as milliseconds and anything else as a
// duration string.
func parseSleep(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid sleep %q: want milliseconds or a duration like 250ms", s)
	}
	return d, nil
}

// ParseJSON parses a JSON script: an array of request objects. Errors name
// the 1-based entry index.
func ParseJSON(data []byte, d Defaults) ([]Descriptor, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &ScriptError{Err: fmt.Errorf("script must be a JSON array of objects: %w", err)}
	}

	descs := make([]Descriptor, 0, len(raws))
	for i, raw := range raws {
		var se scriptEntry
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&se); err != nil {
			return nil, &ScriptError{Entry: i + 1, Err: err}
		}

		desc, err := apply(d, se.entry())
		if err != nil {
			return nil, &ScriptError{Entry: i + 1, Err: err}
		}
		descs = append(descs, desc)
	}

	if len(descs) == 0 {
		return nil, &ScriptError{Err: errors.New("script contains no requests")}
	}
	return descs, nil
}

// ParseYAML parses a YAML script: a sequence of request mappings. Errors
// name the source line of the offending entry.
func ParseYAML(data []byte, d Defaults) ([]Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ScriptError{Err: err}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, &ScriptError{Err: errors.New("script contains no requests")}
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, &ScriptError{Line: root.Line, Err: errors.New("script must be a YAML sequence of mappings")}
	}

	descs := make([]Descriptor, 0, len(root.Content))
	for _, node := range root.Content {
		if node.Kind != yaml.MappingNode {
			return nil, &ScriptError{Line: node.Line, Err: errors.New("entry must be a mapping")}
		}
		var se scriptEntry
		if err := node.Decode(&se); err != nil {
			return nil, &ScriptError{Line: node.Line, Err: err}
		}

		desc, err := apply(d, se.entry())
		if err != nil {
			return nil, &ScriptError{Line: node.Line, Err: err}
		}
		desc.Line = node.Line
		descs = append(descs, desc)
	}

	if len(descs) == 0 {
		return nil, &ScriptError{Err: errors.New("script contains no requests")}
	}
	return descs, nil
}
