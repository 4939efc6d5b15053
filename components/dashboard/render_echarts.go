package dashboard

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	defaultChartHeight = "360px"
	circularSliceLimit = 3
)

var sharedChartCache = NewChartCache(5 * time.Minute)

// ChartRenderer turns a chart and its decoded payload into embeddable HTML.
type ChartRenderer interface {
	RenderChart(chart Chart, payload any) (string, error)
}

// EChartsRenderer renders server-side chart HTML through go-echarts.
type EChartsRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
	height     string
}

// EChartsOption customizes renderer behavior.
type EChartsOption func(*EChartsRenderer)

// WithChartCache injects a render cache. Nil disables caching.
func WithChartCache(cache RenderCache) EChartsOption {
	return func(r *EChartsRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the chart theme (defaults to Westeros).
func WithChartTheme(theme string) EChartsOption {
	return func(r *EChartsRenderer) {
		r.theme = theme
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) EChartsOption {
	return func(r *EChartsRenderer) {
		r.assetsHost = host
	}
}

// WithChartHeight overrides the canvas height.
func WithChartHeight(height string) EChartsOption {
	return func(r *EChartsRenderer) {
		r.height = height
	}
}

// NewEChartsRenderer builds a renderer backed by the shared chart cache.
func NewEChartsRenderer(opts ...EChartsOption) *EChartsRenderer {
	r := &EChartsRenderer{
		cache:  sharedChartCache,
		theme:  types.ThemeWesteros,
		height: defaultChartHeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderChart renders chart with the given payload. Cached output is keyed by
// chart id, presentation fields and a payload hash.
func (r *EChartsRenderer) RenderChart(chart Chart, payload any) (string, error) {
	renderFn := func() (string, error) {
		return r.render(chart, ExtractChartData(payload))
	}
	if r.cache == nil {
		return renderFn()
	}
	key := fmt.Sprintf("%s:%s:%s:%s:%s", chart.ID, chart.Type, chart.Color, chart.Title, payloadHash(payload))
	return r.cache.GetOrRender(key, renderFn)
}

func (r *EChartsRenderer) render(chart Chart, data ChartData) (string, error) {
	switch chart.Type {
	case ChartNumber:
		return renderNumber(chart, data), nil
	case ChartBar:
		return r.renderBar(chart, data)
	case ChartLine:
		return r.renderLine(chart, data, false)
	case ChartArea:
		return r.renderLine(chart, data, true)
	case ChartPie:
		return r.renderPie(chart, data, opts.PieChart{Radius: "70%"})
	case ChartDoughnut:
		return r.renderPie(chart, data, opts.PieChart{Radius: []string{"40%", "70%"}})
	case ChartPolarArea:
		return r.renderPie(chart, data, opts.PieChart{Radius: []string{"15%", "70%"}, RoseType: "area"})
	case ChartRadar:
		return r.renderRadar(chart, data)
	default:
		return "", fmt.Errorf("dashboard: unsupported chart type: %s", chart.Type)
	}
}

func (r *EChartsRenderer) renderBar(chart Chart, data ChartData) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(r.globalChartOptions(chart)...)
	bar.SetXAxis(data.Labels)
	for i, s := range data.Series {
		bar.AddSeries(s.Name, toBarData(data.Labels, s.Values), seriesColor(chart, i)...)
	}
	return renderChart(bar)
}

func (r *EChartsRenderer) renderLine(chart Chart, data ChartData, filled bool) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(r.globalChartOptions(chart)...)
	line.SetXAxis(data.Labels)
	for i, s := range data.Series {
		seriesOpts := seriesColor(chart, i)
		if filled {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.35}))
		}
		line.AddSeries(s.Name, toLineData(data.Labels, s.Values), seriesOpts...)
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return renderChart(line)
}

func (r *EChartsRenderer) renderPie(chart Chart, data ChartData, shape opts.PieChart) (string, error) {
	data = data.TopWithOthers(circularSliceLimit)
	pie := charts.NewPie()
	pie.SetGlobalOptions(r.globalChartOptions(chart)...)
	if len(data.Series) > 0 {
		pie.AddSeries(data.Series[0].Name, toPieData(data.Labels, data.Series[0].Values), charts.WithPieChartOpts(shape))
	}
	return renderChart(pie)
}

func (r *EChartsRenderer) renderRadar(chart Chart, data ChartData) (string, error) {
	peak := 0.0
	for _, s := range data.Series {
		for _, v := range s.Values {
			peak = math.Max(peak, v)
		}
	}
	indicators := make([]*opts.Indicator, len(data.Labels))
	for i, label := range data.Labels {
		indicators[i] = &opts.Indicator{Name: label, Max: float32(niceCeil(peak))}
	}

	radar := charts.NewRadar()
	radar.SetGlobalOptions(append(r.globalChartOptions(chart),
		charts.WithRadarComponentOpts(opts.RadarComponent{Indicator: indicators}),
	)...)
	for i, s := range data.Series {
		radar.AddSeries(s.Name, []opts.RadarData{{Name: s.Name, Value: s.Values}}, seriesColor(chart, i)...)
	}
	return renderChart(radar)
}

func renderNumber(chart Chart, data ChartData) string {
	value := 0.0
	if data.Value != nil {
		value = *data.Value
	} else if len(data.Series) > 0 && len(data.Series[0].Values) > 0 {
		value = data.Series[0].Values[0]
	}
	label := data.ValueLabel
	if label == "" {
		label = chart.Title
	}
	color := chart.Color
	if color == "" {
		color = DefaultChartColor
	}
	return fmt.Sprintf(`<div class="chart-number"><span class="chart-number__value" style="color:%s">%s</span><span class="chart-number__label">%s</span></div>`,
		html.EscapeString(color), html.EscapeString(FormatNumber(value)), html.EscapeString(label))
}

// FormatNumber prints a value with thousands separators and at most two decimals.
func FormatNumber(value float64) string {
	cents := int64(math.Round(math.Abs(value) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	if value < 0 && cents > 0 {
		b.WriteByte('-')
	}
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if frac := cents % 100; frac > 0 {
		b.WriteString(strings.TrimRight(fmt.Sprintf(".%02d", frac), "0"))
	}
	return b.String()
}

func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	magnitude := math.Pow(10, math.Floor(math.Log10(v)))
	return math.Ceil(v/magnitude) * magnitude
}

func seriesColor(chart Chart, index int) []charts.SeriesOpts {
	if index > 0 || chart.Color == "" {
		return nil
	}
	return []charts.SeriesOpts{charts.WithItemStyleOpts(opts.ItemStyle{Color: chart.Color})}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *EChartsRenderer) globalChartOptions(chart Chart) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: r.height,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: chart.Title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func toBarData(labels []string, values []float64) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Name: labelAt(labels, i), Value: v}
	}
	return data
}

func toLineData(labels []string, values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Name: labelAt(labels, i), Value: v}
	}
	return data
}

func toPieData(labels []string, values []float64) []opts.PieData {
	data := make([]opts.PieData, len(values))
	for i, v := range values {
		name := labelAt(labels, i)
		if name == "" {
			name = fmt.Sprintf("Slice %d", i+1)
		}
		data[i] = opts.PieData{Name: name, Value: v}
	}
	return data
}

func labelAt(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return ""
}
