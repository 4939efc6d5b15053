package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Shape names the payload structure a data endpoint returned.
type Shape string

const (
	ShapeUnknown     Shape = ""
	ShapeScalar      Shape = "scalar"
	ShapeCategorical Shape = "categorical"
	ShapeSeries      Shape = "series"
)

var categoricalTypes = []ChartType{
	ChartBar,
	ChartLine,
	ChartPie,
	ChartDoughnut,
	ChartRadar,
	ChartPolarArea,
	ChartArea,
}

// Classification is the set of chart types a payload can legally render as.
// An empty DefaultType means no preselection should change.
type Classification struct {
	Shape        Shape       `json:"shape,omitempty"`
	AllowedTypes []ChartType `json:"allowedTypes"`
	DefaultType  ChartType   `json:"defaultType,omitempty"`
}

// Unavailable is the classification used when no preview could be obtained.
func Unavailable() Classification {
	return Classification{AllowedTypes: AllChartTypes()}
}

// Allows reports whether t is part of the allowed set.
func (c Classification) Allows(t ChartType) bool {
	for _, allowed := range c.AllowedTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// Resolve returns requested when it is allowed, otherwise the default type.
// When neither applies the requested type is returned unchanged.
func (c Classification) Resolve(requested ChartType) ChartType {
	if requested != "" && c.Allows(requested) {
		return requested
	}
	if c.DefaultType != "" {
		return c.DefaultType
	}
	return requested
}

// Classify infers the valid chart types from a decoded JSON payload.
func Classify(payload any) Classification {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Classification{Shape: ShapeSeries, AllowedTypes: AllChartTypes(), DefaultType: ChartBar}
	}
	if isNumber(obj["value"]) {
		return Classification{
			Shape:        ShapeScalar,
			AllowedTypes: []ChartType{ChartNumber},
			DefaultType:  ChartNumber,
		}
	}
	labels, labelsOK := obj["labels"].([]any)
	values, valuesOK := obj["values"].([]any)
	if labelsOK && valuesOK && len(labels) == len(values) && allStrings(labels) {
		return Classification{
			Shape:        ShapeCategorical,
			AllowedTypes: append([]ChartType(nil), categoricalTypes...),
			DefaultType:  ChartBar,
		}
	}
	return Classification{Shape: ShapeSeries, AllowedTypes: AllChartTypes(), DefaultType: ChartBar}
}

// ClassifyJSON decodes raw bytes and classifies them. Bodies that are not
// valid JSON yield Unavailable.
func ClassifyJSON(raw []byte) (Classification, any) {
	payload, err := decodePayload(raw)
	if err != nil {
		return Unavailable(), nil
	}
	return Classify(payload), payload
}

func decodePayload(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("dashboard: unexpected data after JSON payload")
	}
	return payload, nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	default:
		return false
	}
}

func allStrings(items []any) bool {
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}
