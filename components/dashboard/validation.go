package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrValidation wraps every chart/dashboard input validation failure.
var ErrValidation = errors.New("dashboard: validation failed")

// ChartValidator validates chart records before they reach the store.
type ChartValidator interface {
	ValidateChart(chart Chart) error
}

// JSONSchemaValidator compiles the chart schema once and validates chart payloads.
type JSONSchemaValidator struct {
	schema map[string]any

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewJSONSchemaValidator builds a validator for ChartSchema.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{schema: ChartSchema()}
}

// ChartSchema returns the JSON schema chart records must satisfy.
func ChartSchema() map[string]any {
	types := make([]string, 0, len(allChartTypes))
	for _, t := range allChartTypes {
		types = append(types, string(t))
	}
	return map[string]any{
		"type":     "object",
		"required": []string{"dashboardId", "type", "title", "dataEndpoint"},
		"properties": map[string]any{
			"dashboardId":  map[string]any{"type": "string", "minLength": 1},
			"type":         map[string]any{"type": "string", "enum": types},
			"title":        map[string]any{"type": "string", "minLength": 1, "maxLength": 200},
			"dataEndpoint": map[string]any{"type": "string", "minLength": 1},
			"color":        map[string]any{"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
			"x":            map[string]any{"type": "integer", "minimum": 0},
			"y":            map[string]any{"type": "integer", "minimum": 0},
			"w":            map[string]any{"type": "integer", "minimum": 1},
			"h":            map[string]any{"type": "integer", "minimum": 1},
		},
	}
}

// ValidateChart ensures the chart satisfies the schema.
func (v *JSONSchemaValidator) ValidateChart(chart Chart) error {
	schema, err := v.compile()
	if err != nil {
		return err
	}
	data, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("dashboard: marshal chart: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("dashboard: normalize chart: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: chart %q: %v", ErrValidation, chart.Title, err)
	}
	return nil
}

func (v *JSONSchemaValidator) compile() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		data, err := json.Marshal(v.schema)
		if err != nil {
			v.err = fmt.Errorf("dashboard: marshal chart schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("chart.json", bytes.NewReader(data)); err != nil {
			v.err = fmt.Errorf("dashboard: load chart schema: %w", err)
			return
		}
		v.compiled, v.err = compiler.Compile("chart.json")
		if v.err != nil {
			v.err = fmt.Errorf("dashboard: compile chart schema: %w", v.err)
		}
	})
	return v.compiled, v.err
}
