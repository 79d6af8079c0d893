package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/volley"
)

func writeScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestParseDelimited_FullEntry(t *testing.T) {
	descs, err := ParseDelimited(strings.NewReader("3|GET|http://x|Foo:bar|100\n"), Defaults{})
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}
	if len(descs) != 1 {
		t.Fatalf("len(descs) = %d, want 1", len(descs))
	}

	d := descs[0]
	if d.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", d.Iterations)
	}
	if d.Method != "GET" {
		t.Errorf("Method = %q, want GET", d.Method)
	}
	if d.Endpoint != "http://x" {
		t.Errorf("Endpoint = %q, want http://x", d.Endpoint)
	}
	if len(d.Headers) != 1 || d.Headers[0] != (volley.Header{Name: "Foo", Value: "bar"}) {
		t.Errorf("Headers = %v, want [Foo: bar]", d.Headers)
	}
	if d.Sleep != 100*time.Millisecond {
		t.Errorf("Sleep = %v, want 100ms", d.Sleep)
	}
	if d.Line != 1 {
		t.Errorf("Line = %d, want 1", d.Line)
	}
}

func TestParseDelimited_DefaultsFillEmptyFields(t *testing.T) {
	defaults := Defaults{
		Iterations: 4,
		Method:     "post",
		Endpoint:   "http://default",
		Headers:    []string{"X-Default: yes"},
		Sleep:      50 * time.Millisecond,
		Randomize:  true,
	}

	descs, err := ParseDelimited(strings.NewReader("||||\n"), defaults)
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}

	d := descs[0]
	if d.Iterations != 4 || d.Method != "POST" || d.Endpoint != "http://default" {
		t.Errorf("got %d %s %s, want 4 POST http://default", d.Iterations, d.Method, d.Endpoint)
	}
	if len(d.Headers) != 1 || d.Headers[0].Name != "X-Default" {
		t.Errorf("Headers = %v, want default header", d.Headers)
	}
	if d.Sleep != 50*time.Millisecond {
		t.Errorf("Sleep = %v, want 50ms", d.Sleep)
	}
	if !d.Randomize {
		t.Error("Randomize = false, want true from defaults")
	}
}

func TestParseDelimited_SkipsCommentsBlanksAndHeaderRow(t *testing.T) {
	script := `# ITERATIONS|METHOD|ENDPOINT|HEADERS|SLEEP_MS
iterations|method|endpoint|headers|sleep

1|GET|http://a||

2|DELETE|http://b||
`
	descs, err := ParseDelimited(strings.NewReader(script), Defaults{})
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("len(descs) = %d, want 2", len(descs))
	}
	if descs[0].Line != 4 || descs[1].Line != 6 {
		t.Errorf("lines = %d, %d, want 4, 6", descs[0].Line, descs[1].Line)
	}
	if Requests(descs) != 3 {
		t.Errorf("Requests() = %d, want 3", Requests(descs))
	}
}

func TestParseDelimited_Errors(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantLine int
		wantErr  error
	}{
		{"too few fields", "GET|http://x\n", 1, nil},
		{"too many fields", "1|GET|http://x|||\n", 1, nil},
		{"non-numeric iterations", "lots|GET|http://x||\n", 1, nil},
		{"negative sleep", "1|GET|http://x||-5\n", 1, nil},
		{"no endpoint anywhere", "1|GET|||\n", 1, nil},
		{"empty script", "# only a comment\n\n", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDelimited(strings.NewReader(tt.script), Defaults{})
			if err == nil {
				t.Fatal("ParseDelimited() expected error, got nil")
			}

			var se *ScriptError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a *ScriptError: %v", err, err)
			}
			if se.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", se.Line, tt.wantLine)
			}
			if !errors.Is(err, ErrInvalidScript) {
				t.Errorf("errors.Is(err, ErrInvalidScript) = false for %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(err, %v) = false for %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseCSV(t *testing.T) {
	script := `iterations,method,endpoint,headers,sleep
# comment
2,put,http://x/items,"Accept: application/json, X-Trace=abc",25
,,http://y,,
`
	descs, err := ParseCSV(strings.NewReader(script), Defaults{Iterations: 7})
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("len(descs) = %d, want 2", len(descs))
	}

	first := descs[0]
	if first.Iterations != 2 || first.Method != "PUT" || first.Endpoint != "http://x/items" {
		t.Errorf("first = %+v", first)
	}
	wantHeaders := []volley.Header{
		{Name: "Accept", Value: "application/json"},
		{Name: "X-Trace", Value: "abc"},
	}
	if len(first.Headers) != len(wantHeaders) {
		t.Fatalf("Headers = %v, want %v", first.Headers, wantHeaders)
	}
	for i, h := range wantHeaders {
		if first.Headers[i] != h {
			t.Errorf("Headers[%d] = %v, want %v", i, first.Headers[i], h)
		}
	}
	if first.Sleep != 25*time.Millisecond {
		t.Errorf("Sleep = %v, want 25ms", first.Sleep)
	}
	if first.Line != 3 {
		t.Errorf("Line = %d, want 3", first.Line)
	}

	second := descs[1]
	if second.Iterations != 7 || second.Method != "GET" {
		t.Errorf("second = %+v, want defaults applied", second)
	}
}

func TestParseCSV_WrongFieldCount(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("1,GET,http://x,,\n1,GET\n"), Defaults{})

	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *ScriptError", err)
	}
	if se.Line != 2 {
		t.Errorf("Line = %d, want 2", se.Line)
	}
}

func TestParseJSON(t *testing.T) {
	script := `[
  {"iterations": 5, "method": "post", "endpoint": "http://x", "headers": "A:1; B=2", "sleep": 10},
  {"endpoint": "http://y", "headers": ["C: 3"], "sleep": "1.5s", "randomize": true}
]`
	descs, err := ParseJSON([]byte(script), Defaults{})
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("len(descs) = %d, want 2", len(descs))
	}

	if descs[0].Iterations != 5 || descs[0].Method != "POST" || len(descs[0].Headers) != 2 {
		t.Errorf("descs[0] = %+v", descs[0])
	}
	if descs[0].Sleep != 10*time.Millisecond {
		t.Errorf("descs[0].Sleep = %v, want 10ms", descs[0].Sleep)
	}
	if descs[1].Sleep != 1500*time.Millisecond {
		t.Errorf("descs[1].Sleep = %v, want 1.5s", descs[1].Sleep)
	}
	if !descs[1].Randomize {
		t.Error("descs[1].Randomize = false, want true")
	}
	if descs[1].Headers[0] != (volley.Header{Name: "C", Value: "3"}) {
		t.Errorf("descs[1].Headers = %v", descs[1].Headers)
	}
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		wantEntry int
	}{
		{"not an array", `{"endpoint": "http://x"}`, 0},
		{"unknown field", `[{"endpoint": "http://x"}, {"url": "http://y"}]`, 2},
		{"bad sleep", `[{"endpoint": "http://x", "sleep": "soon"}]`, 1},
		{"empty array", `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.script), Defaults{})
			var se *ScriptError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *ScriptError", err)
			}
			if se.Entry != tt.wantEntry {
				t.Errorf("Entry = %d, want %d", se.Entry, tt.wantEntry)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	script := `
- iterations: 2
  endpoint: http://x
  headers: ["Accept: text/plain", "X-Id=7"]
  sleep: 250ms
- endpoint: http://y
  method: head
  headers: "Authorization: Bearer t"
  randomize: false
`
	descs, err := ParseYAML([]byte(script), Defaults{Randomize: true})
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("len(descs) = %d, want 2", len(descs))
	}

	if descs[0].Line != 2 || descs[1].Line != 6 {
		t.Errorf("lines = %d, %d, want 2, 6", descs[0].Line, descs[1].Line)
	}
	if descs[0].Sleep != 250*time.Millisecond || len(descs[0].Headers) != 2 {
		t.Errorf("descs[0] = %+v", descs[0])
	}
	if !descs[0].Randomize {
		t.Error("descs[0].Randomize = false, want default true")
	}
	if descs[1].Method != "HEAD" || descs[1].Randomize {
		t.Errorf("descs[1] = %+v, want HEAD without randomize", descs[1])
	}
}

func TestParseYAML_ErrorLine(t *testing.T) {
	script := `
- endpoint: http://x
- endpoint: http://y
  iterations: -1
`
	_, err := ParseYAML([]byte(script), Defaults{})
	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *ScriptError", err)
	}
	if se.Line != 3 {
		t.Errorf("Line = %d, want 3", se.Line)
	}
}

func TestParseYAML_NotASequence(t *testing.T) {
	_, err := ParseYAML([]byte("endpoint: http://x\n"), Defaults{})
	if !errors.Is(err, ErrInvalidScript) {
		t.Errorf("error = %v, want ErrInvalidScript", err)
	}
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []volley.Header
		wantErr bool
	}{
		{"colon", "Name:Value", []volley.Header{{Name: "Name", Value: "Value"}}, false},
		{"equals", "Name=Value", []volley.Header{{Name: "Name", Value: "Value"}}, false},
		{"trimmed", "  Name :  Value ", []volley.Header{{Name: "Name", Value: "Value"}}, false},
		{"empty value", "Name:", []volley.Header{{Name: "Name", Value: ""}}, false},
		{"first delimiter wins", "Auth=a:b", []volley.Header{{Name: "Auth", Value: "a:b"}}, false},
		{"url value", "Referer: http://x", []volley.Header{{Name: "Referer", Value: "http://x"}}, false},
		{"mixed separators", "A:1, B=2; C:3", []volley.Header{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}, {Name: "C", Value: "3"}}, false},
		{"empty entries skipped", ";A:1,,", []volley.Header{{Name: "A", Value: "1"}}, false},
		{"empty string", "", nil, false},
		{"empty name", "=Value", nil, true},
		{"no delimiter", "JustAName", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeaders(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHeader) {
					t.Fatalf("ParseHeaders() error = %v, want ErrInvalidHeader", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeaders() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseHeaders() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ParseHeaders()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolve_CommandLineOnly(t *testing.T) {
	descs, err := Resolve(Defaults{Endpoint: "http://x", Iterations: 10, Headers: []string{"A:1", "B:2"}}, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(descs) != 1 {
		t.Fatalf("len(descs) = %d, want 1", len(descs))
	}
	if descs[0].Iterations != 10 || descs[0].Method != "GET" || len(descs[0].Headers) != 2 {
		t.Errorf("descs[0] = %+v", descs[0])
	}
	if descs[0].Line != 0 {
		t.Errorf("Line = %d, want 0", descs[0].Line)
	}
}

func TestResolve_NoEndpoint(t *testing.T) {
	_, err := Resolve(Defaults{Iterations: 3}, "")
	if !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("Resolve() error = %v, want ErrNoEndpoint", err)
	}
}

func TestResolve_InvalidHeaderKept(t *testing.T) {
	descs, err := Resolve(Defaults{Endpoint: "http://x", Headers: []string{"A:1; broken", "=nameless"}}, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v, bad headers fail per request", err)
	}

	d := descs[0]
	if len(d.Headers) != 1 || d.Headers[0] != (volley.Header{Name: "A", Value: "1"}) {
		t.Errorf("Headers = %v, want [A: 1]", d.Headers)
	}
	if len(d.InvalidHeaders) != 2 || d.InvalidHeaders[0] != "broken" || d.InvalidHeaders[1] != "=nameless" {
		t.Errorf("InvalidHeaders = %q, want [broken =nameless]", d.InvalidHeaders)
	}
}

func TestStructured_BlankHeadersUseDefaults(t *testing.T) {
	defaults := Defaults{Headers: []string{"X-Default: 1"}}
	want := volley.Header{Name: "X-Default", Value: "1"}

	tests := []struct {
		name  string
		parse func() ([]Descriptor, error)
	}{
		{"yaml empty string", func() ([]Descriptor, error) {
			return ParseYAML([]byte("- endpoint: http://x\n  headers: \"\"\n"), defaults)
		}},
		{"yaml empty list", func() ([]Descriptor, error) {
			return ParseYAML([]byte("- endpoint: http://x\n  headers: []\n"), defaults)
		}},
		{"json blank string", func() ([]Descriptor, error) {
			return ParseJSON([]byte(`[{"endpoint": "http://x", "headers": " ; "}]`), defaults)
		}},
		{"json list of blanks", func() ([]Descriptor, error) {
			return ParseJSON([]byte(`[{"endpoint": "http://x", "headers": ["", " "]}]`), defaults)
		}},
		{"delimited empty field", func() ([]Descriptor, error) {
			return ParseDelimited(strings.NewReader("1|GET|http://x||0\n"), defaults)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descs, err := tt.parse()
			if err != nil {
				t.Fatalf("parse error = %v", err)
			}
			if got := descs[0].Headers; len(got) != 1 || got[0] != want {
				t.Errorf("Headers = %v, want [%v]", got, want)
			}
		})
	}
}

func TestParseDelimited_InvalidHeaderKept(t *testing.T) {
	descs, err := ParseDelimited(strings.NewReader("1|GET|http://x||\n1|GET|http://x|NoDelimiter|\n"), Defaults{})
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}
	if len(descs[1].InvalidHeaders) != 1 || descs[1].InvalidHeaders[0] != "NoDelimiter" {
		t.Errorf("InvalidHeaders = %q, want [NoDelimiter]", descs[1].InvalidHeaders)
	}
	if len(descs[0].InvalidHeaders) != 0 {
		t.Errorf("descs[0].InvalidHeaders = %q, want none", descs[0].InvalidHeaders)
	}
}

func TestLoad_ChoosesFormatByExtension(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"delimited", "script.txt", "2|GET|http://x||\n1|GET|http://y||\n"},
		{"csv", "script.csv", "2,GET,http://x,,\n1,GET,http://y,,\n"},
		{"json", "script.json", `[{"iterations": 2, "endpoint": "http://x"}, {"endpoint": "http://y"}]`},
		{"yaml", "script.yaml", "- {iterations: 2, endpoint: 'http://x'}\n- {endpoint: 'http://y'}\n"},
		{"yml", "script.YML", "- {iterations: 2, endpoint: 'http://x'}\n- {endpoint: 'http://y'}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, tt.file, tt.content)

			descs, err := Resolve(Defaults{}, path)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if len(descs) != 2 {
				t.Fatalf("len(descs) = %d, want 2", len(descs))
			}
			if Requests(descs) != 3 {
				t.Errorf("Requests() = %d, want 3", Requests(descs))
			}
			if descs[1].Endpoint != "http://y" {
				t.Errorf("descs[1].Endpoint = %q, want http://y", descs[1].Endpoint)
			}
		})
	}
}

func TestLoad_ErrorIncludesPath(t *testing.T) {
	path := writeScript(t, "bad.txt", "1|GET|http://x||\nGET|http://y\n")

	_, err := Load(path, Defaults{})
	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("Load() error = %v, want *ScriptError", err)
	}
	if se.Path != path {
		t.Errorf("Path = %q, want %q", se.Path, path)
	}
	if !strings.HasPrefix(err.Error(), path+":2: ") {
		t.Errorf("Error() = %q, want prefix %q", err.Error(), path+":2: ")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"), Defaults{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestScriptError_Message(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  *ScriptError
		want string
	}{
		{"line", &ScriptError{Path: "s.txt", Line: 4, Err: base}, "s.txt:4: boom"},
		{"entry", &ScriptError{Path: "s.json", Entry: 2, Err: base}, "s.json: entry 2: boom"},
		{"no location", &ScriptError{Err: base}, "script: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, base) || !errors.Is(tt.err, ErrInvalidScript) {
				t.Error("ScriptError should match both its cause and ErrInvalidScript")
			}
		})
	}
}

func TestApply_EnvVarSubstitution(t *testing.T) {
	t.Setenv("VOLLEY_TEST_HOST", "api.internal")
	t.Setenv("VOLLEY_TEST_TOKEN", "secret")

	descs, err := ParseDelimited(strings.NewReader(
		"1|GET|http://${VOLLEY_TEST_HOST}/items|Authorization: Bearer ${VOLLEY_TEST_TOKEN}|\n"+
			"1|GET|http://${VOLLEY_TEST_UNSET:-localhost}/||\n",
	), Defaults{})
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}

	if descs[0].Endpoint != "http://api.internal/items" {
		t.Errorf("Endpoint = %q, want expanded host", descs[0].Endpoint)
	}
	if descs[0].Headers[0].Value != "Bearer secret" {
		t.Errorf("header value = %q, want %q", descs[0].Headers[0].Value, "Bearer secret")
	}
	if descs[1].Endpoint != "http://localhost/" {
		t.Errorf("Endpoint = %q, want default applied", descs[1].Endpoint)
	}
}

func TestApply_EnvVarMissing(t *testing.T) {
	_, err := ParseDelimited(strings.NewReader("1|GET|http://${VOLLEY_TEST_MISSING}/||\n"), Defaults{})
	if !errors.Is(err, ErrInvalidScript) {
		t.Errorf("error = %v, want ErrInvalidScript", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
		{"placeholders untouched", "/items/RANDOM?t=TIMESTAMP", "/items/RANDOM?t=TIMESTAMP", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
