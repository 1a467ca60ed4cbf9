package dag

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/dagflow/decision"
)

const releaseYAML = `
name: release
policy: continue_on
continue_on: [unknown_executor]
tasks:
  - id: build
    executor: shell
    params:
      command: make
    decision:
      kind: mechanical
      max_retries: 2
  - id: notify
    executor: slack
    depends_on: [build]
    decision:
      kind: recommended
      timeout: 30s
      default_action: email
  - id: approve
    executor: noop
    depends_on: [build]
    decision:
      kind: confirmed
  - id: deploy
    executor: shell
    depends_on: [approve, notify]
    decision:
      kind: arbitrated
      stakeholders: [alice, bob, carol]
      quorum: 2
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseDocument_YAML(t *testing.T) {
	doc, err := ParseDocument([]byte(releaseYAML), FormatYAML)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	vg, err := doc.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	g := vg.Graph()
	if g.Policy.Kind != PolicyContinueOn || !reflect.DeepEqual(g.Policy.Kinds, []FailureKind{FailureUnknownExecutor}) {
		t.Errorf("Policy = %+v", g.Policy)
	}
	if got := g.Tasks["build"].Decision; got.Kind != decision.KindMechanical || got.MaxRetries != 2 {
		t.Errorf("build decision = %+v", got)
	}
	if got := g.Tasks["notify"].Decision; got.Timeout != 30*time.Second || got.DefaultAction != "email" {
		t.Errorf("notify decision = %+v", got)
	}
	if got := g.Tasks["deploy"].Decision; got.Quorum != 2 || len(got.Stakeholders) != 3 {
		t.Errorf("deploy decision = %+v", got)
	}
	if got := g.Tasks["build"].Executor.Params["command"]; got != "make" {
		t.Errorf("build params command = %v", got)
	}
	want := [][]string{{"build"}, {"approve", "notify"}, {"deploy"}}
	if got := vg.Layers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Layers() = %v, want %v", got, want)
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	doc, err := ParseDocument([]byte(releaseYAML), FormatYAML)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	g, err := doc.ToGraph()
	if err != nil {
		t.Fatalf("ToGraph() error = %v", err)
	}

	back := FromGraph(g)
	g2, err := back.ToGraph()
	if err != nil {
		t.Fatalf("ToGraph() of round-tripped document error = %v", err)
	}
	if !reflect.DeepEqual(g, g2) {
		t.Errorf("graph changed through a round trip:\n got %+v\nwant %+v", g2, g)
	}

	var ids []string
	for _, td := range back.Tasks {
		ids = append(ids, td.ID)
	}
	if want := []string{"build", "approve", "notify", "deploy"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("FromGraph task order = %v, want %v", ids, want)
	}
}

func TestDocument_EncodeDecodeAllFormats(t *testing.T) {
	doc, err := ParseDocument([]byte(releaseYAML), FormatYAML)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	want, err := doc.ToGraph()
	if err != nil {
		t.Fatalf("ToGraph() error = %v", err)
	}
	// Numbers decode differently per format; compare without params.
	strip := func(g *Graph) {
		for id, tk := range g.Tasks {
			tk.Executor.Params = nil
			g.Tasks[id] = tk
		}
	}
	strip(want)

	for _, f := range []Format{FormatYAML, FormatJSON, FormatTOML} {
		t.Run(string(f), func(t *testing.T) {
			data, err := FromGraph(want).Marshal(f)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			parsed, err := ParseDocument(data, f)
			if err != nil {
				t.Fatalf("ParseDocument() error = %v\n%s", err, data)
			}
			got, err := parsed.ToGraph()
			if err != nil {
				t.Fatalf("ToGraph() error = %v", err)
			}
			strip(got)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("decoded graph differs:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestParseDocument_JSONAndTOML(t *testing.T) {
	jsonDoc := `{"name":"j","tasks":[{"id":"a","executor":"noop","decision":{"kind":"confirmed"}}]}`
	doc, err := ParseDocument([]byte(jsonDoc), FormatJSON)
	if err != nil {
		t.Fatalf("ParseDocument(json) error = %v", err)
	}
	if doc.Tasks[0].Decision.Kind != "confirmed" {
		t.Errorf("json decision kind = %q", doc.Tasks[0].Decision.Kind)
	}

	tomlDoc := `
name = "t"
policy = "best_effort"

[[tasks]]
id = "a"
executor = "noop"

[[tasks]]
id = "b"
executor = "noop"
depends_on = ["a"]
`
	doc, err = ParseDocument([]byte(tomlDoc), FormatTOML)
	if err != nil {
		t.Fatalf("ParseDocument(toml) error = %v", err)
	}
	vg, err := doc.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if vg.Layer("b") != 1 {
		t.Errorf("Layer(b) = %d, want 1", vg.Layer("b"))
	}
	if got, _ := vg.Task("a"); got.Decision.Kind != decision.KindMechanical {
		t.Errorf("default decision kind = %q, want mechanical", got.Decision.Kind)
	}
}

func TestParseDocument_RejectsUnknownFields(t *testing.T) {
	cases := map[Format]string{
		FormatYAML: "name: x\nbogus: 1\ntasks: []\n",
		FormatJSON: `{"name":"x","bogus":1,"tasks":[]}`,
		FormatTOML: "name = \"x\"\nbogus = 1\ntasks = []\n",
	}
	for f, data := range cases {
		if _, err := ParseDocument([]byte(data), f); err == nil {
			t.Errorf("%s: expected error for unknown field", f)
		}
	}
	if _, err := ParseDocument(nil, FormatYAML); err == nil {
		t.Error("expected error for empty yaml document")
	}
}

func TestDocument_ToGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "tasks:\n  - {id: a, executor: noop}\n", "name"},
		{"bad task id", "name: x\ntasks:\n  - {id: 'a b', executor: noop}\n", "tasks[0].id"},
		{"bad timeout", "name: x\ntasks:\n  - {id: a, executor: noop, decision: {kind: recommended, timeout: soon}}\n", "tasks[0].decision.timeout"},
		{"misplaced field", "name: x\ntasks:\n  - {id: a, executor: noop, decision: {kind: confirmed, quorum: 1}}\n", "does not apply"},
		{"continue_on without policy", "name: x\ncontinue_on: [executor]\ntasks:\n  - {id: a, executor: noop}\n", "continue_on"},
		{"duplicate id", "name: x\ntasks:\n  - {id: a, executor: noop}\n  - {id: a, executor: noop}\n", "defined twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.yaml), FormatYAML)
			if err != nil {
				t.Fatalf("ParseDocument() error = %v", err)
			}
			_, err = doc.ToGraph()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestDocument_CompileRejectsCycle(t *testing.T) {
	doc := &Document{Name: "c", Tasks: []TaskDoc{
		{ID: "a", Executor: "noop", DependsOn: []string{"b"}},
		{ID: "b", Executor: "noop", DependsOn: []string{"a"}},
	}}
	if _, err := doc.Compile(); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Compile() error = %v, want %v", err, ErrCycleDetected)
	}
}

func TestLoadDocument_Includes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.yaml", `
name: common
tasks:
  - id: checkout
    executor: noop
`)
	writeFile(t, dir, "build.toml", `
name = "build"
includes = ["common.yaml"]

[[tasks]]
id = "compile"
executor = "noop"
depends_on = ["checkout"]
`)
	root := writeFile(t, dir, "main.yml", `
name: main
includes: [build.toml, common.yaml]
tasks:
  - id: ship
    executor: noop
    depends_on: [compile]
`)

	doc, err := LoadDocument(root)
	if err != nil {
		t.Fatalf("LoadDocument() error = %v", err)
	}
	if doc.Name != "main" || len(doc.Includes) != 0 {
		t.Errorf("doc = %q includes=%v", doc.Name, doc.Includes)
	}
	var ids []string
	for _, td := range doc.Tasks {
		ids = append(ids, td.ID)
	}
	if want := []string{"checkout", "compile", "ship"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("tasks = %v, want %v", ids, want)
	}
	if _, err := doc.Compile(); err != nil {
		t.Errorf("Compile() error = %v", err)
	}
}

func TestLoadDocument_CircularInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: a\nincludes: [b.yaml]\ntasks: []\n")
	writeFile(t, dir, "b.yaml", "name: b\nincludes: [a.yaml]\ntasks: []\n")

	_, err := LoadDocument(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "circular include") {
		t.Errorf("LoadDocument() error = %v, want circular include", err)
	}
}

func TestLoadDocument_ConflictingRedefinition(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.yaml", "name: lib\ntasks:\n  - {id: a, executor: noop}\n")
	root := writeFile(t, dir, "main.yaml", "name: main\nincludes: [lib.yaml]\ntasks:\n  - {id: a, executor: shell}\n")

	_, err := LoadDocument(root)
	if err == nil || !strings.Contains(err.Error(), "redefined") {
		t.Errorf("LoadDocument() error = %v, want redefinition error", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.yaml": FormatYAML, "a.YML": FormatYAML, "a.json": FormatJSON, "a.toml": FormatTOML,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	if _, err := FormatFromPath("a.xml"); err == nil {
		t.Error("expected error for .xml")
	}
	if got := FormatFromContentType("application/x-yaml"); got != FormatYAML {
		t.Errorf("FormatFromContentType(yaml) = %q", got)
	}
	if got := FormatFromContentType(""); got != FormatJSON {
		t.Errorf("FormatFromContentType(\"\") = %q", got)
	}
}
