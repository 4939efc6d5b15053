package dashboard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ChartSeries is one named run of values plotted against ChartData.Labels.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ChartData is the normalized form of the three payload shapes a data
// endpoint can return: {value,label}, {labels,values} and
// {labels,datasets:[{label,data}]}.
type ChartData struct {
	Shape      Shape         `json:"shape"`
	Value      *float64      `json:"value,omitempty"`
	ValueLabel string        `json:"valueLabel,omitempty"`
	Labels     []string      `json:"labels,omitempty"`
	Series     []ChartSeries `json:"series,omitempty"`
}

// ExtractChartData normalizes a decoded payload. Non-numeric entries are read
// as zero.
func ExtractChartData(payload any) ChartData {
	obj, ok := payload.(map[string]any)
	if !ok {
		if values, ok := payload.([]any); ok {
			return ChartData{
				Shape:  ShapeSeries,
				Labels: indexLabels(len(values)),
				Series: []ChartSeries{{Name: "Series 1", Values: floatSlice(values)}},
			}
		}
		return ChartData{Shape: ShapeUnknown}
	}
	if isNumber(obj["value"]) {
		value := float64Value(obj["value"])
		return ChartData{
			Shape:      ShapeScalar,
			Value:      &value,
			ValueLabel: stringValue(obj["label"], "Value"),
		}
	}

	labels := stringSlice(obj["labels"])
	if values, ok := obj["values"].([]any); ok {
		if labels == nil {
			labels = indexLabels(len(values))
		}
		return ChartData{
			Shape:  ShapeCategorical,
			Labels: labels,
			Series: []ChartSeries{{Name: stringValue(obj["label"], "Value"), Values: floatSlice(values)}},
		}
	}

	datasets, _ := obj["datasets"].([]any)
	data := ChartData{Shape: ShapeSeries, Labels: labels}
	for idx, item := range datasets {
		ds, ok := item.(map[string]any)
		if !ok {
			continue
		}
		values, _ := ds["data"].([]any)
		data.Series = append(data.Series, ChartSeries{
			Name:   stringValue(ds["label"], fmt.Sprintf("Series %d", idx+1)),
			Values: floatSlice(values),
		})
	}
	if data.Labels == nil && len(data.Series) > 0 {
		data.Labels = indexLabels(len(data.Series[0].Values))
	}
	return data
}

// TopWithOthers keeps the n largest slices of the first series and folds the
// remainder into an "Others" slice. Circular charts use it to stay legible.
func (d ChartData) TopWithOthers(n int) ChartData {
	if n < 1 || len(d.Series) == 0 || len(d.Labels) <= n {
		return d
	}
	values := d.Series[0].Values
	idx := make([]int, len(d.Labels))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return valueAt(values, idx[a]) > valueAt(values, idx[b])
	})

	labels := make([]string, 0, n+1)
	kept := make([]float64, 0, n+1)
	others := 0.0
	for rank, i := range idx {
		if rank < n {
			labels = append(labels, d.Labels[i])
			kept = append(kept, valueAt(values, i))
			continue
		}
		others += valueAt(values, i)
	}
	labels = append(labels, "Others")
	kept = append(kept, others)

	out := d
	out.Labels = labels
	out.Series = []ChartSeries{{Name: d.Series[0].Name, Values: kept}}
	return out
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func indexLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return labels
}

func floatSlice(items []any) []float64 {
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = float64Value(item)
	}
	return out
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprint(item)
	}
	return out
}

func stringValue(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func float64Value(v any) float64 {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
