// Package export writes the database workbook, the ER diagram and its PDF snapshot.
package export

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var schemaYAML []byte

// Schema is the fixed description of the database shipped with every export.
type Schema struct {
	Tables        []TableSpec    `yaml:"tables"`
	Relationships []Relationship `yaml:"relationships"`
	Diagram       Diagram        `yaml:"diagram"`
}

// TableSpec documents one table.
type TableSpec struct {
	Name    string       `yaml:"name"`
	Columns []ColumnSpec `yaml:"columns"`
}

// ColumnSpec documents one column.
type ColumnSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Nullable    bool   `yaml:"nullable"`
	Default     string `yaml:"default"`
	Description string `yaml:"description"`
}

// Relationship is a foreign key or logical reference between two tables.
type Relationship struct {
	From       string `yaml:"from"`
	FromColumn string `yaml:"from_column"`
	To         string `yaml:"to"`
	ToColumn   string `yaml:"to_column"`
	Kind       string `yaml:"kind"`
}

// Diagram lays out the ER diagram.
type Diagram struct {
	Title         string          `yaml:"title"`
	Subtitle      string          `yaml:"subtitle"`
	Groups        []DiagramGroup  `yaml:"groups"`
	Entities      []DiagramEntity `yaml:"entities"`
	Links         []DiagramLink   `yaml:"links"`
	Cardinalities []string        `yaml:"cardinalities"`
}

// DiagramGroup is a legend entry and the default colours of its entities.
type DiagramGroup struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Fill   string `yaml:"fill"`
	Stroke string `yaml:"stroke"`
}

// DiagramEntity is one box. Fill and Stroke override the group colours.
type DiagramEntity struct {
	Name   string   `yaml:"name"`
	Group  string   `yaml:"group"`
	X      float64  `yaml:"x"`
	Y      float64  `yaml:"y"`
	Fill   string   `yaml:"fill"`
	Stroke string   `yaml:"stroke"`
	Fields []string `yaml:"fields"`
}

// DiagramLink is an arrow between two boxes with its cardinality label.
type DiagramLink struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Label  string  `yaml:"label"`
	X1     float64 `yaml:"x1"`
	Y1     float64 `yaml:"y1"`
	X2     float64 `yaml:"x2"`
	Y2     float64 `yaml:"y2"`
	LX     float64 `yaml:"lx"`
	LY     float64 `yaml:"ly"`
	Anchor string  `yaml:"anchor"`
}

var (
	schemaOnce sync.Once
	schema     Schema
	schemaErr  error
)

// LoadSchema parses the embedded schema description once.
func LoadSchema() (Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = ParseSchema(schemaYAML)
	})
	return schema, schemaErr
}

// ParseSchema decodes a schema description and checks that links name known entities.
func ParseSchema(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("export: parse schema: %w", err)
	}
	if len(s.Tables) == 0 {
		return Schema{}, fmt.Errorf("export: schema has no tables")
	}
	groups := make(map[string]bool, len(s.Diagram.Groups))
	for _, g := range s.Diagram.Groups {
		groups[g.Name] = true
	}
	entities := make(map[string]bool, len(s.Diagram.Entities))
	for _, e := range s.Diagram.Entities {
		if !groups[e.Group] {
			return Schema{}, fmt.Errorf("export: entity %s has unknown group %q", e.Name, e.Group)
		}
		entities[e.Name] = true
	}
	for _, l := range s.Diagram.Links {
		if !entities[l.From] || !entities[l.To] {
			return Schema{}, fmt.Errorf("export: link %s -> %s names an unknown entity", l.From, l.To)
		}
	}
	return s, nil
}

func (d Diagram) group(name string) DiagramGroup {
	for _, g := range d.Groups {
		if g.Name == name {
			return g
		}
	}
	return DiagramGroup{}
}
