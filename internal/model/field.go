package model

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldType declares how a raw extracted value is normalized.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeDate     FieldType = "date"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeInteger  FieldType = "integer"
	FieldTypeEnum     FieldType = "enum"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypePercent  FieldType = "percent"
	FieldTypeList     FieldType = "list"
)

// FieldDefinition is the static configuration for one extractable field
// within a (industry, document type) pair.
type FieldDefinition struct {
	Type          FieldType `yaml:"type" json:"type"`
	Required      bool      `yaml:"required" json:"required"`
	Weight        float64   `yaml:"weight" json:"weight"`
	AllowedValues []string  `yaml:"allowed_values,omitempty" json:"allowed_values,omitempty"`
	Aliases       []string  `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	// Skepticism is a downward confidence multiplier (<= 1.0) for fields whose
	// stated values are marketing claims rather than audited figures.
	Skepticism float64 `yaml:"skepticism,omitempty" json:"skepticism,omitempty"`
}

// EffectiveWeight returns the configured weight, defaulting to 1.0.
func (d FieldDefinition) EffectiveWeight() float64 {
	if d.Weight <= 0 {
		return 1.0
	}
	return d.Weight
}

// EffectiveSkepticism returns the configured skepticism multiplier, clamped
// to (0, 1.0]. Zero means "not configured" and is treated as 1.0.
func (d FieldDefinition) EffectiveSkepticism() float64 {
	if d.Skepticism <= 0 || d.Skepticism > 1.0 {
		return 1.0
	}
	return d.Skepticism
}

// FieldSet is the full field configuration for one document type.
type FieldSet struct {
	Fields map[string]FieldDefinition `yaml:"fields"`
	// Critical lists fields whose absence degrades document-level confidence
	// for offering memoranda.
	Critical []string `yaml:"critical,omitempty"`
}

// FieldCatalog indexes field sets by industry and document type. It is
// immutable after load.
type FieldCatalog struct {
	Industries map[string]map[string]FieldSet `yaml:"industries"`
}

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// DefaultFieldCatalog loads the catalog embedded in the binary.
func DefaultFieldCatalog() (*FieldCatalog, error) {
	return LoadFieldCatalog(defaultCatalogYAML)
}

// LoadFieldCatalog parses a catalog from YAML.
func LoadFieldCatalog(data []byte) (*FieldCatalog, error) {
	var c FieldCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "model: parse field catalog")
	}
	if len(c.Industries) == 0 {
		return nil, eris.New("model: field catalog has no industries")
	}
	return &c, nil
}

// FieldSet returns the field set for (industry, documentType). Unknown
// document types fall back to the industry's "other" set when present.
func (c *FieldCatalog) FieldSet(industry, documentType string) (FieldSet, bool) {
	docs, ok := c.Industries[industry]
	if !ok {
		return FieldSet{}, false
	}
	if fs, ok := docs[documentType]; ok {
		return fs, true
	}
	fs, ok := docs["other"]
	return fs, ok
}

// DocumentTypes returns the known document types for an industry.
func (c *FieldCatalog) DocumentTypes(industry string) []string {
	docs, ok := c.Industries[industry]
	if !ok {
		return nil
	}
	types := make([]string, 0, len(docs))
	for t := range docs {
		types = append(types, t)
	}
	return types
}
