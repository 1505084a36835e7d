package importer

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_mapping.yaml
var defaultMappingYAML []byte

// Mapping tells the importer which header names feed which item field
type Mapping struct {
	Version  int                 `yaml:"version"`
	Required []string            `yaml:"required"`
	Aliases  map[string][]string `yaml:"aliases"`
}

// Fields the importer understands. Anything else in a file is ignored.
var knownFields = []string{
	"make", "model", "part_number", "serial_number", "bin_location", "category",
	"quantity", "code_type", "purchase_price", "repair_cost", "sale_price", "notes",
}

// DefaultMapping returns the built-in header aliases
func DefaultMapping() *Mapping {
	m, err := parseMapping(defaultMappingYAML)
	if err != nil {
		panic(fmt.Sprintf("importer: bad default mapping: %v", err))
	}
	return m
}

// LoadMapping reads a mapping file and layers it over the defaults. An empty
// path returns the defaults.
func LoadMapping(path string) (*Mapping, error) {
	m := DefaultMapping()
	if path == "" {
		return m, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping %s: %w", path, err)
	}
	override, err := parseMapping(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing mapping %s: %w", path, err)
	}
	if len(override.Required) > 0 {
		m.Required = override.Required
	}
	for field, aliases := range override.Aliases {
		m.Aliases[field] = append(m.Aliases[field], aliases...)
	}
	return m, nil
}

func parseMapping(raw []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m.Aliases == nil {
		m.Aliases = map[string][]string{}
	}
	for field := range m.Aliases {
		if !slices.Contains(knownFields, field) {
			return nil, fmt.Errorf("unknown field %q", field)
		}
	}
	for _, field := range m.Required {
		if !slices.Contains(knownFields, field) {
			return nil, fmt.Errorf("unknown required field %q", field)
		}
	}
	return &m, nil
}

// resolve maps each header position to the item field it feeds. Later
// duplicates of a field are ignored.
func (m *Mapping) resolve(headers []string) map[string]int {
	lookup := make(map[string]string)
	for _, field := range knownFields {
		lookup[normalize(field)] = field
	}
	for field, aliases := range m.Aliases {
		for _, a := range aliases {
			lookup[normalize(a)] = field
		}
	}

	cols := make(map[string]int)
	for i, h := range headers {
		field, ok := lookup[normalize(h)]
		if !ok {
			continue
		}
		if _, seen := cols[field]; !seen {
			cols[field] = i
		}
	}
	return cols
}

func normalize(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}
