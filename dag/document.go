package dag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"

	"github.com/kbukum/dagflow/decision"
	"github.com/kbukum/dagflow/validation"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("dag: unsupported document extension %q", filepath.Ext(path))
	}
}

// FormatFromContentType picks the format from an HTTP content type.
// Anything that is not YAML or TOML is treated as JSON.
func FormatFromContentType(ct string) Format {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "yaml"):
		return FormatYAML
	case strings.Contains(ct, "toml"):
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Document is the submission format of a graph.
type Document struct {
	Name        string    `json:"name" yaml:"name" toml:"name" validate:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Policy      string    `json:"policy,omitempty" yaml:"policy,omitempty" toml:"policy,omitempty" validate:"omitempty,oneof=all_success best_effort continue_on"`
	ContinueOn  []string  `json:"continue_on,omitempty" yaml:"continue_on,omitempty" toml:"continue_on,omitempty" validate:"omitempty,dive,oneof=executor insufficient_votes cancelled unknown_executor orphaned timeout"`
	Schedule    string    `json:"schedule,omitempty" yaml:"schedule,omitempty" toml:"schedule,omitempty"`
	Includes    []string  `json:"includes,omitempty" yaml:"includes,omitempty" toml:"includes,omitempty"`
	Tasks       []TaskDoc `json:"tasks" yaml:"tasks" toml:"tasks" validate:"dive"`
}

// TaskDoc is one task of a Document.
type TaskDoc struct {
	ID        string         `json:"id" yaml:"id" toml:"id" validate:"required,taskid"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Executor  string         `json:"executor" yaml:"executor" toml:"executor" validate:"required"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
	Decision  DecisionDoc    `json:"decision" yaml:"decision" toml:"decision"`
	DependsOn []string       `json:"depends_on,omitempty" yaml:"depends_on,omitempty" toml:"depends_on,omitempty" validate:"omitempty,dive,required"`
}

// DecisionDoc is the decision level of a TaskDoc. Kind defaults to
// mechanical. Only the fields of the chosen kind may be set.
type DecisionDoc struct {
	Kind          string   `json:"kind" yaml:"kind" toml:"kind" validate:"omitempty,oneof=mechanical recommended confirmed arbitrated"`
	MaxRetries    int      `json:"max_retries,omitempty" yaml:"max_retries,omitempty" toml:"max_retries,omitempty" validate:"gte=0"`
	Timeout       string   `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty" validate:"duration"`
	DefaultAction string   `json:"default_action,omitempty" yaml:"default_action,omitempty" toml:"default_action,omitempty"`
	Stakeholders  []string `json:"stakeholders,omitempty" yaml:"stakeholders,omitempty" toml:"stakeholders,omitempty" validate:"omitempty,unique,dive,required"`
	Quorum        int      `json:"quorum,omitempty" yaml:"quorum,omitempty" toml:"quorum,omitempty" validate:"gte=0"`
}

// ParseDocument decodes a document. Unknown fields are rejected.
// Includes are left unresolved; see LoadDocument.
func ParseDocument(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatTOML:
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&doc)
	default:
		return nil, fmt.Errorf("dag: unsupported document format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("dag: parsing %s document: %w", format, err)
	}
	return &doc, nil
}

// LoadDocument reads a document from disk and resolves its includes.
// Include paths are relative to the including file. Tasks of included
// documents come first; the same task id may appear more than once only
// with an identical definition.
func LoadDocument(path string) (*Document, error) {
	stack := make(map[string]bool)
	return loadDocument(path, stack)
}

func loadDocument(path string, stack map[string]bool) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if stack[abs] {
		return nil, fmt.Errorf("dag: circular include detected for %s", path)
	}
	stack[abs] = true
	defer delete(stack, abs)

	format, err := FormatFromPath(abs)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("dag: reading document: %w", err)
	}
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}

	if len(doc.Includes) == 0 {
		return doc, nil
	}

	var tasks []TaskDoc
	index := make(map[string]int)
	add := func(t TaskDoc, from string) error {
		if i, ok := index[t.ID]; ok {
			if reflect.DeepEqual(tasks[i], t) {
				return nil
			}
			return fmt.Errorf("dag: task %q redefined in %s", t.ID, from)
		}
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
		return nil
	}

	dir := filepath.Dir(abs)
	for _, inc := range doc.Includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, inc)
		}
		sub, err := loadDocument(incPath, stack)
		if err != nil {
			return nil, fmt.Errorf("dag: loading include %q: %w", inc, err)
		}
		for _, t := range sub.Tasks {
			if err := add(t, inc); err != nil {
				return nil, err
			}
		}
	}
	for _, t := range doc.Tasks {
		if err := add(t, path); err != nil {
			return nil, err
		}
	}

	doc.Tasks = tasks
	doc.Includes = nil
	return doc, nil
}

// Marshal encodes the document.
func (d *Document) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatTOML:
		return toml.Marshal(d)
	default:
		return nil, fmt.Errorf("dag: unsupported document format %q", format)
	}
}

// Validate runs the structural checks of the document.
func (d *Document) Validate() error {
	return validation.Validate(d)
}

// ToGraph converts the document to a Graph. Graph-level checks such as
// cycles are left to Validate.
func (d *Document) ToGraph() (*Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(d.Includes) > 0 {
		return nil, invalidf("", "document %q has unresolved includes", d.Name)
	}

	policy := ExecutionPolicy{Kind: PolicyKind(d.Policy)}
	if policy.Kind == "" {
		policy.Kind = PolicyAllSuccess
	}
	if len(d.ContinueOn) > 0 && policy.Kind != PolicyContinueOn {
		return nil, invalidf("", "continue_on requires policy continue_on")
	}
	for _, k := range d.ContinueOn {
		policy.Kinds = append(policy.Kinds, FailureKind(k))
	}

	g := &Graph{Name: d.Name, Tasks: make(map[string]Task, len(d.Tasks)), Policy: policy}
	for _, td := range d.Tasks {
		if _, dup := g.Tasks[td.ID]; dup {
			return nil, invalidf(td.ID, "task %q defined twice", td.ID)
		}
		level, err := td.Decision.level()
		if err != nil {
			return nil, invalidf(td.ID, "task %q decision: %v", td.ID, err)
		}
		g.Tasks[td.ID] = Task{
			ID:        td.ID,
			Name:      td.Name,
			Executor:  ExecutorRef{Type: td.Executor, Params: td.Params},
			Decision:  level,
			DependsOn: td.DependsOn,
		}
	}
	return g.Clone(), nil
}

// Compile converts and validates the document in one step.
func (d *Document) Compile() (*ValidatedGraph, error) {
	g, err := d.ToGraph()
	if err != nil {
		return nil, err
	}
	return Validate(g)
}

func (dd DecisionDoc) level() (decision.Level, error) {
	kind := decision.Kind(dd.Kind)
	if kind == "" {
		kind = decision.KindMechanical
	}

	var timeout time.Duration
	if dd.Timeout != "" {
		d, err := time.ParseDuration(dd.Timeout)
		if err != nil {
			return decision.Level{}, fmt.Errorf("timeout: %w", err)
		}
		timeout = d
	}

	misplaced := func(field string) error {
		return fmt.Errorf("%s does not apply to %s decisions", field, kind)
	}
	if kind != decision.KindMechanical && dd.MaxRetries != 0 {
		return decision.Level{}, misplaced("max_retries")
	}
	if kind != decision.KindRecommended && (dd.Timeout != "" || dd.DefaultAction != "") {
		return decision.Level{}, misplaced("timeout and default_action")
	}
	if kind != decision.KindArbitrated && (len(dd.Stakeholders) > 0 || dd.Quorum != 0) {
		return decision.Level{}, misplaced("stakeholders and quorum")
	}

	var level decision.Level
	switch kind {
	case decision.KindMechanical:
		level = decision.Mechanical(dd.MaxRetries)
	case decision.KindRecommended:
		level = decision.Recommended(timeout, dd.DefaultAction)
	case decision.KindConfirmed:
		level = decision.Confirmed()
	case decision.KindArbitrated:
		level = decision.Arbitrated(dd.Stakeholders, dd.Quorum)
	default:
		return decision.Level{}, fmt.Errorf("unknown decision kind %q", kind)
	}
	return level, level.Validate()
}

// FromGraph converts a graph back to a document. Tasks are ordered by
// layer, then id, when the graph is valid, and by id otherwise.
func FromGraph(g *Graph) *Document {
	doc := &Document{Name: g.Name, Policy: string(g.Policy.Kind)}
	if doc.Policy == "" {
		doc.Policy = string(PolicyAllSuccess)
	}
	for _, k := range g.Policy.Kinds {
		doc.ContinueOn = append(doc.ContinueOn, string(k))
	}

	ids := sortedIDs(g.Tasks)
	if vg, err := Validate(g); err == nil {
		ids = vg.IDs()
	}
	for _, id := range ids {
		t := g.Tasks[id].clone()
		doc.Tasks = append(doc.Tasks, TaskDoc{
			ID:        t.ID,
			Name:      t.Name,
			Executor:  t.Executor.Type,
			Params:    t.Executor.Params,
			Decision:  decisionDoc(t.Decision),
			DependsOn: t.DependsOn,
		})
	}
	return doc
}

func decisionDoc(l decision.Level) DecisionDoc {
	dd := DecisionDoc{Kind: string(l.Kind)}
	switch l.Kind {
	case decision.KindMechanical:
		dd.MaxRetries = l.MaxRetries
	case decision.KindRecommended:
		dd.Timeout = l.Timeout.String()
		dd.DefaultAction = l.DefaultAction
	case decision.KindArbitrated:
		dd.Stakeholders = l.Stakeholders
		dd.Quorum = l.Quorum
	}
	return dd
}
