// Package catalog serves the read-only template, industry and form field
// catalogs compiled into the binary.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/omnicore/omniaudit/internal/domain"
)

//go:embed templates.yaml
var templatesYAML []byte

// Field describes one audit form field
type Field struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type document struct {
	Industries []domain.Industry `yaml:"industries"`
	Fields     []Field           `yaml:"fields"`
	Templates  []domain.Template `yaml:"templates"`
}

// Catalog is immutable after Load
type Catalog struct {
	templates  []domain.Template
	byID       map[string]domain.Template
	industries []domain.Industry
	fields     map[string]Field
	fieldOrder []string
}

// Load parses the embedded catalog
func Load() (*Catalog, error) {
	return Parse(templatesYAML)
}

// Parse builds a catalog from YAML
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	c := &Catalog{
		templates:  doc.Templates,
		byID:       make(map[string]domain.Template, len(doc.Templates)),
		industries: doc.Industries,
		fields:     make(map[string]Field, len(doc.Fields)),
	}

	known := make(map[string]bool, len(doc.Industries))
	for _, ind := range doc.Industries {
		known[ind.ID] = true
	}
	for _, t := range doc.Templates {
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate template id %q", t.ID)
		}
		if !known[t.Industry] {
			return nil, fmt.Errorf("catalog: template %q references unknown industry %q", t.ID, t.Industry)
		}
		c.byID[t.ID] = t
	}
	for _, f := range doc.Fields {
		c.fields[f.Name] = f
		c.fieldOrder = append(c.fieldOrder, f.Name)
	}
	return c, nil
}

// Templates returns every template
func (c *Catalog) Templates() []domain.Template {
	out := make([]domain.Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Template returns a template by id
func (c *Catalog) Template(id string) (domain.Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// ByIndustry returns the templates for an industry. ok is false for an unknown industry.
func (c *Catalog) ByIndustry(industry string) ([]domain.Template, bool) {
	found := false
	for _, ind := range c.industries {
		if ind.ID == industry {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	out := []domain.Template{}
	for _, t := range c.templates {
		if t.Industry == industry {
			out = append(out, t)
		}
	}
	return out, true
}

// Industries returns the industry list sorted by name
func (c *Catalog) Industries() []domain.Industry {
	out := make([]domain.Industry, len(c.industries))
	copy(out, c.industries)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Field returns the description of a known form field
func (c *Catalog) Field(name string) (Field, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// Fields returns every known form field in catalog order
func (c *Catalog) Fields() []Field {
	out := make([]Field, 0, len(c.fieldOrder))
	for _, name := range c.fieldOrder {
		out = append(out, c.fields[name])
	}
	return out
}
