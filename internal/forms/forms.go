// Package forms loads the form definitions that say which stages a form has,
// where each stage gets its options and how they are ordered.
package forms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jask/cropform/internal/chain"
	"github.com/jask/cropform/internal/lookup"
)

// file is the top-level document.
type file struct {
	Form []Form `toml:"form" yaml:"forms"`
}

// Form is one dependent-selection form.
type Form struct {
	Name   string      `toml:"name" yaml:"name"`
	Title  string      `toml:"title" yaml:"title"`
	Stages []StageSpec `toml:"stage" yaml:"stages"`
}

// StageSpec defines a stage. Exactly one of Endpoint or Options is set.
type StageSpec struct {
	Key       string   `toml:"key" yaml:"key"`
	Label     string   `toml:"label" yaml:"label"`
	DependsOn []string `toml:"depends_on" yaml:"depends_on"`
	Endpoint  string   `toml:"endpoint" yaml:"endpoint"`

	// Field is the list member of an object body. Defaults to key+"s".
	Field string `toml:"field" yaml:"field"`

	// Params is path (default), query or none.
	Params string `toml:"params" yaml:"params"`

	// QueryKeys defaults to DependsOn.
	QueryKeys []string `toml:"query_keys" yaml:"query_keys"`

	// Options lists static options; no backend call is made.
	Options []string `toml:"options" yaml:"options"`

	// Sort is none (default), label, label_desc or value.
	Sort     string `toml:"sort" yaml:"sort"`
	Required bool   `toml:"required" yaml:"required"`
}

var comparators = map[string]func(a, b chain.Option) bool{
	"label":      func(a, b chain.Option) bool { return strings.ToLower(a.Label) < strings.ToLower(b.Label) },
	"label_desc": func(a, b chain.Option) bool { return strings.ToLower(a.Label) > strings.ToLower(b.Label) },
	"value":      func(a, b chain.Option) bool { return a.Value < b.Value },
}

// Load reads form definitions from path, as YAML when the extension says so
// and TOML otherwise. A missing TOML file is created with the default forms.
func Load(path string) ([]Form, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !isYAML(path) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create forms dir: %w", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(DefaultTOML), 0o644); wErr != nil {
			return nil, fmt.Errorf("write default forms: %w", wErr)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read forms: %w", err)
	}
	if isYAML(path) {
		return ParseYAML(data)
	}
	return Parse(data)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Defaults returns the built-in forms.
func Defaults() []Form {
	forms, err := Parse([]byte(DefaultTOML))
	if err != nil {
		panic(fmt.Sprintf("forms: default definitions invalid: %v", err))
	}
	return forms
}

// Parse parses and validates TOML form definitions.
func Parse(data []byte) ([]Form, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse forms.toml: %w", err)
	}
	return f.validate()
}

// ParseYAML parses and validates YAML form definitions:
//
//	forms:
//	  - name: location
//	    stages:
//	      - key: state
//	        endpoint: /get-states
func ParseYAML(data []byte) ([]Form, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse forms yaml: %w", err)
	}
	return f.validate()
}

func (f file) validate() ([]Form, error) {
	if len(f.Form) == 0 {
		return nil, fmt.Errorf("no forms defined")
	}
	names := make(map[string]bool, len(f.Form))
	for i, form := range f.Form {
		if strings.TrimSpace(form.Name) == "" {
			return nil, fmt.Errorf("form[%d]: name is required", i)
		}
		if names[form.Name] {
			return nil, fmt.Errorf("form %q defined twice", form.Name)
		}
		names[form.Name] = true
		if len(form.Stages) == 0 {
			return nil, fmt.Errorf("form %q: no stages", form.Name)
		}
		for j, st := range form.Stages {
			if err := st.validate(); err != nil {
				return nil, fmt.Errorf("form %q stage[%d]: %w", form.Name, j, err)
			}
		}
	}
	return f.Form, nil
}

func (s StageSpec) validate() error {
	if strings.TrimSpace(s.Key) == "" {
		return fmt.Errorf("key is required")
	}
	hasEndpoint := strings.TrimSpace(s.Endpoint) != ""
	if hasEndpoint == (len(s.Options) > 0) {
		return fmt.Errorf("%s: exactly one of endpoint or options is required", s.Key)
	}
	if _, ok := comparators[s.Sort]; s.Sort != "" && s.Sort != "none" && !ok {
		return fmt.Errorf("%s: unknown sort %q", s.Key, s.Sort)
	}
	switch lookup.Params(s.Params) {
	case "", lookup.ParamsPath, lookup.ParamsNone:
	case lookup.ParamsQuery:
		if len(s.QueryKeys) > 0 && len(s.QueryKeys) != len(s.DependsOn) {
			return fmt.Errorf("%s: query_keys must name every dependency", s.Key)
		}
	default:
		return fmt.Errorf("%s: unknown params %q", s.Key, s.Params)
	}
	return nil
}

// Find returns the form called name.
func Find(forms []Form, name string) (Form, bool) {
	for _, f := range forms {
		if f.Name == name {
			return f, true
		}
	}
	return Form{}, false
}

// DisplayTitle returns Title, falling back to Name.
func (f Form) DisplayTitle() string {
	if t := strings.TrimSpace(f.Title); t != "" {
		return t
	}
	return f.Name
}

// Bind turns the form into chain stages backed by client. client may be nil
// when every stage has static options.
func (f Form) Bind(client *lookup.Client) ([]chain.Stage, error) {
	out := make([]chain.Stage, 0, len(f.Stages))
	for _, ss := range f.Stages {
		st := chain.Stage{
			Key:       ss.Key,
			Label:     ss.Label,
			DependsOn: append([]string(nil), ss.DependsOn...),
			Less:      comparators[ss.Sort],
			Required:  ss.Required,
		}
		if len(ss.Options) > 0 {
			st.Fetch = static(ss.Options)
		} else {
			if client == nil {
				return nil, fmt.Errorf("form %q: stage %s needs a lookup client", f.Name, ss.Key)
			}
			st.Fetch = client.Fetcher(ss.endpoint())
		}
		out = append(out, st)
	}
	return out, nil
}

func (s StageSpec) endpoint() lookup.Endpoint {
	ep := lookup.Endpoint{
		Path:   s.Endpoint,
		Field:  s.Field,
		Params: lookup.Params(s.Params),
	}
	if ep.Field == "" {
		ep.Field = s.Key + "s"
	}
	if ep.Params == lookup.ParamsQuery {
		ep.QueryKeys = s.QueryKeys
		if len(ep.QueryKeys) == 0 {
			ep.QueryKeys = s.DependsOn
		}
	}
	return ep
}

func static(values []string) chain.Fetcher {
	opts := make([]chain.Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, chain.Option{Value: v, Label: v})
	}
	return chain.FetcherFunc(func(context.Context, []string) ([]chain.Option, error) {
		return append([]chain.Option(nil), opts...), nil
	})
}
