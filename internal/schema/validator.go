// Package schema validates rendered page documents against JSON schemas
// before they are written out. The schemas ship embedded so a deployed
// binary needs no schema directory.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/contentsmith/pipewright/internal/fault"
)

//go:embed schemas/*.schema.yaml
var schemaFS embed.FS

// Validator holds the compiled output schemas.
type Validator struct {
	faqSchema        *jsonschema.Schema
	productSchema    *jsonschema.Schema
	comparisonSchema *jsonschema.Schema
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	v := &Validator{}

	faqSchema, err := loadSchema("schemas/faq.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load faq schema: %w", err)
	}
	v.faqSchema = faqSchema

	productSchema, err := loadSchema("schemas/product_page.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load product page schema: %w", err)
	}
	v.productSchema = productSchema

	comparisonSchema, err := loadSchema("schemas/comparison_page.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load comparison page schema: %w", err)
	}
	v.comparisonSchema = comparisonSchema

	return v, nil
}

// ValidateFAQ validates a rendered FAQ document.
func (v *Validator) ValidateFAQ(doc any) error {
	return v.validate(v.faqSchema, "faq", doc)
}

// ValidateProductPage validates a rendered product page document.
func (v *Validator) ValidateProductPage(doc any) error {
	return v.validate(v.productSchema, "product page", doc)
}

// ValidateComparisonPage validates a rendered comparison document.
func (v *Validator) ValidateComparisonPage(doc any) error {
	return v.validate(v.comparisonSchema, "comparison page", doc)
}

func (v *Validator) validate(s *jsonschema.Schema, name string, doc any) error {
	// Round-trip through JSON so typed structs validate the same as the
	// decoded documents the schema compiler expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", name, err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to decode %s document: %w", name, err)
	}
	if err := s.Validate(generic); err != nil {
		return fault.Validationf("%s document failed schema validation: %v", name, err)
	}
	return nil
}

// loadSchema reads and compiles an embedded schema file (YAML or JSON).
func loadSchema(path string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var schemaData any
	if err := yaml.Unmarshal(data, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	schema, err := jsonschema.CompileString(path, string(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
}
