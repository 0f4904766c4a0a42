package resources

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"wedge.io/wedge/lib/logger"
)

// Resources is a flat key-value store loaded from a YAML file.
//
// Nested mappings are flattened into dotted keys, so
//
//	rest:
//	  echo: sample.Echo
//
// is available under the key "rest.echo". It is safe for concurrent use.
type Resources struct {
	path string

	mu       sync.RWMutex
	values   map[string]string
	onReload []func()

	// compiled message templates keyed by template text
	templates sync.Map
}

// New returns Resources holding a copy of values
func New(values map[string]string) *Resources {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &Resources{values: m}
}

// Load reads and parses the resources file at path
func Load(path string) (*Resources, error) {
	values, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &Resources{path: path, values: values}, nil
}

// Parse parses resources from data
func Parse(data []byte) (*Resources, error) {
	values, err := parse("inline", data)
	if err != nil {
		return nil, err
	}
	return &Resources{values: values}, nil
}

// Reload re-reads the file the Resources were loaded from and notifies OnReload callbacks.
// The previous values are kept if the file cannot be read or parsed.
func (r *Resources) Reload() error {
	if r.path == "" {
		return fmt.Errorf("resources were not loaded from a file")
	}
	values, err := readFile(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.values = values
	callbacks := append([]func(){}, r.onReload...)
	r.mu.Unlock()

	r.templates.Clear()
	for _, f := range callbacks {
		f()
	}
	logger.Infof("reloaded %d resources from %q", len(values), r.path)
	return nil
}

// OnReload registers f to be called after every successful Reload
func (r *Resources) OnReload(f func()) {
	r.mu.Lock()
	r.onReload = append(r.onReload, f)
	r.mu.Unlock()
}

// Lookup returns the value stored under key
func (r *Resources) Lookup(key string) (string, bool) {
	r.mu.RLock()
	v, ok := r.values[key]
	r.mu.RUnlock()
	return v, ok
}

// Get returns the value stored under key or an empty string
func (r *Resources) Get(key string) string {
	v, _ := r.Lookup(key)
	return v
}

// WithPrefix returns all the values whose key starts with prefix + ".", keyed by the remaining suffix
func (r *Resources) WithPrefix(prefix string) map[string]string {
	prefix += "."
	m := make(map[string]string)
	r.mu.RLock()
	for k, v := range r.values {
		if suffix, ok := strings.CutPrefix(k, prefix); ok {
			m[suffix] = v
		}
	}
	r.mu.RUnlock()
	return m
}

// Keys returns the sorted list of all the keys
func (r *Resources) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read resources file: %w", err)
	}
	return parse(path, data)
}

// parse renders data as a template with sprig functions and flattens the resulting YAML document
func parse(name string, data []byte) (map[string]string, error) {
	t, err := template.New(name).Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("cannot parse resources template %q: %w", name, err)
	}
	var bb bytes.Buffer
	if err := t.Execute(&bb, nil); err != nil {
		return nil, fmt.Errorf("cannot render resources template %q: %w", name, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(bb.Bytes(), &doc); err != nil {
		return nil, fmt.Errorf("cannot parse resources %q: %w", name, err)
	}
	values := make(map[string]string)
	if len(doc.Content) == 0 {
		return values, nil
	}
	if err := flatten(values, "", doc.Content[0]); err != nil {
		return nil, fmt.Errorf("invalid resources %q: %w", name, err)
	}
	return values, nil
}

func flatten(dst map[string]string, prefix string, n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: keys must be scalars", k.Line)
			}
			key := k.Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(dst, key, n.Content[i+1]); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: %q may contain only scalar items", item.Line, prefix)
			}
			items = append(items, item.Value)
		}
		dst[prefix] = strings.Join(items, ",")
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("line %d: the document must be a mapping", n.Line)
		}
		dst[prefix] = n.Value
	case yaml.AliasNode:
		return flatten(dst, prefix, n.Alias)
	default:
		return fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
	return nil
}
