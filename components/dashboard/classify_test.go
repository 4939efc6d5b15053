package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyScalar(t *testing.T) {
	class, payload := ClassifyJSON([]byte(`{"value": 125000, "label": "Total Revenue", "currency": "USD"}`))
	require.NotNil(t, payload)
	assert.Equal(t, ShapeScalar, class.Shape)
	assert.Equal(t, []ChartType{ChartNumber}, class.AllowedTypes)
	assert.Equal(t, ChartNumber, class.DefaultType)
}

func TestClassifyCategorical(t *testing.T) {
	class, _ := ClassifyJSON([]byte(`{"labels": ["Jan", "Feb"], "values": [1, "2"]}`))
	assert.Equal(t, ShapeCategorical, class.Shape)
	assert.Equal(t, ChartBar, class.DefaultType)
	assert.False(t, class.Allows(ChartNumber))
	assert.True(t, class.Allows(ChartPolarArea))
	assert.Len(t, class.AllowedTypes, 7)
}

func TestClassifyFallsBackToSeries(t *testing.T) {
	cases := map[string]string{
		"length mismatch":   `{"labels": ["a", "b"], "values": [1]}`,
		"non-string labels": `{"labels": [1, 2], "values": [1, 2]}`,
		"string value":      `{"value": "12"}`,
		"datasets":          `{"labels": ["a"], "datasets": [{"label": "x", "data": [1]}]}`,
		"array":             `[1, 2, 3]`,
		"scalar json":       `42`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			class, _ := ClassifyJSON([]byte(raw))
			assert.Equal(t, ShapeSeries, class.Shape)
			assert.Equal(t, ChartBar, class.DefaultType)
			assert.Len(t, class.AllowedTypes, len(AllChartTypes()))
		})
	}
}

func TestClassifyJSONUnavailable(t *testing.T) {
	class, payload := ClassifyJSON([]byte(`not json`))
	assert.Nil(t, payload)
	assert.Equal(t, ShapeUnknown, class.Shape)
	assert.Empty(t, class.DefaultType)
	assert.Len(t, class.AllowedTypes, len(AllChartTypes()))
}

func TestClassifyJSONRejectsTrailingData(t *testing.T) {
	for _, raw := range []string{`{"value": 1} trailing`, `{"value": 1}{"value": 2}`, `[1, 2] ]`} {
		class, payload := ClassifyJSON([]byte(raw))
		assert.Nil(t, payload, raw)
		assert.Equal(t, ShapeUnknown, class.Shape, raw)
		assert.Empty(t, class.DefaultType, raw)
		assert.Len(t, class.AllowedTypes, len(AllChartTypes()), raw)
	}

	class, payload := ClassifyJSON([]byte("{\"value\": 1}\n"))
	require.NotNil(t, payload)
	assert.Equal(t, ShapeScalar, class.Shape)
}

func TestClassificationResolve(t *testing.T) {
	scalar := Classify(map[string]any{"value": 1.0})
	assert.Equal(t, ChartNumber, scalar.Resolve(ChartBar))
	assert.Equal(t, ChartNumber, scalar.Resolve(""))

	categorical := Classify(map[string]any{"labels": []any{"a"}, "values": []any{1.0}})
	assert.Equal(t, ChartRadar, categorical.Resolve(ChartRadar))
	assert.Equal(t, ChartBar, categorical.Resolve(ChartNumber))

	assert.Equal(t, ChartLine, Unavailable().Resolve(ChartLine))
	assert.Equal(t, ChartType(""), Unavailable().Resolve(""))
}
