// Package report renders aggregate run statistics.
//
// Rendering works on a [state.Snapshot], so it is safe to render while
// workers are still recording outcomes: the snapshot is copied under the
// state's lock and formatted afterwards.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/volley/internal/state"
)

// ErrRender wraps any failure to serialize or write a report.
var ErrRender = errors.New("render report")

// Format selects the report layout.
type Format string

const (
	// FormatText is a single human-readable key=value line.
	FormatText Format = "text"

	// FormatSummary is a multi-line table, optionally colored.
	FormatSummary Format = "summary"

	// FormatJSON is a single JSON object.
	FormatJSON Format = "json"

	// FormatCSV is a header row followed by one data row.
	FormatCSV Format = "csv"

	// FormatYAML is a YAML mapping with the same keys as JSON.
	FormatYAML Format = "yaml"
)

// Formats lists every supported format in help-text order.
var Formats = []Format{FormatText, FormatSummary, FormatJSON, FormatCSV, FormatYAML}

// ParseFormat parses a format name. "default" and "" are aliases for text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "default":
		return FormatText, nil
	case FormatText, FormatSummary, FormatJSON, FormatCSV, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected one of %s)", s, formatList())
	}
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// record is the serialized shape shared by json, yaml and csv.
type record struct {
	Requested int   `json:"requested" yaml:"requested"`
	Processed int   `json:"processed" yaml:"processed"`
	Success   int   `json:"success" yaml:"success"`
	Fail      int   `json:"fail" yaml:"fail"`
	Error     int   `json:"error" yaml:"error"`
	TookMs    int64 `json:"took_ms" yaml:"took_ms"`
}

var csvHeader = []string{"requested", "processed", "success", "fail", "error", "took_ms"}

func toRecord(s state.Snapshot) record {
	return record{
		Requested: s.Requested,
		Processed: s.Processed,
		Success:   s.Success,
		Fail:      s.Fail,
		Error:     s.Error,
		TookMs:    s.Elapsed.Milliseconds(),
	}
}

// Renderer writes snapshots in one format.
type Renderer struct {
	format Format
	color  bool
}

// NewRenderer creates a [Renderer]. Color only affects [FormatSummary].
func NewRenderer(format Format, colored bool) *Renderer {
	if format == "" {
		format = FormatText
	}
	return &Renderer{format: format, color: colored}
}

// Format returns the renderer's format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes s to w. Every error wraps [ErrRender].
func (r *Renderer) Render(w io.Writer, s state.Snapshot) error {
	var err error
	switch r.format {
	case FormatText:
		err = renderText(w, s)
	case FormatSummary:
		err = r.renderSummary(w, s)
	case FormatJSON:
		err = renderJSON(w, s)
	case FormatCSV:
		err = renderCSV(w, s)
	case FormatYAML:
		err = renderYAML(w, s)
	default:
		err = fmt.Errorf("unknown format %q", r.format)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

// Text returns the single-line form of s. It never fails.
func Text(s state.Snapshot) string {
	return fmt.Sprintf("requested=%d processed=%d success=%d fail=%d error=%d duration=%s",
		s.Requested, s.Processed, s.Success, s.Fail, s.Error, s.Elapsed)
}

func renderText(w io.Writer, s state.Snapshot) error {
	_, err := fmt.Fprintln(w, Text(s))
	return err
}

func renderJSON(w io.Writer, s state.Snapshot) error {
	return json.NewEncoder(w).Encode(toRecord(s))
}

func renderYAML(w io.Writer, s state.Snapshot) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(toRecord(s)); err != nil {
		return err
	}
	return enc.Close()
}

func renderCSV(w io.Writer, s state.Snapshot) error {
	rec := toRecord(s)
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	row := []string{
		strconv.Itoa(rec.Requested),
		strconv.Itoa(rec.Processed),
		strconv.Itoa(rec.Success),
		strconv.Itoa(rec.Fail),
		strconv.Itoa(rec.Error),
		strconv.FormatInt(rec.TookMs, 10),
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (r *Renderer) renderSummary(w io.Writer, s state.Snapshot) error {
	paint := func(attr color.Attribute, n int) string {
		c := color.New(attr)
		if r.color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.Sprint(n)
	}

	status := "completed"
	if s.Killed {
		status = "killed"
	} else if !s.Done() {
		status = "running"
	}

	lines := []string{
		"-------------------------",
		fmt.Sprintf("  Requests sent: %d/%d", s.Processed, s.Requested),
		"-------------------------",
		fmt.Sprintf("        success: %s", paint(color.FgGreen, s.Success)),
		fmt.Sprintf("        failure: %s", paint(color.FgYellow, s.Fail)),
		fmt.Sprintf("         errors: %s", paint(color.FgRed, s.Error)),
		"-------------------------",
		fmt.Sprintf("         status: %s", status),
		fmt.Sprintf("       run took: %s", s.Elapsed),
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
