package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-chartboard/components/dashboard"
	"github.com/goliatone/go-chartboard/pkg/datasource"
)

type cli struct {
	Place    placeCmd    `cmd:"" help:"Find the first free grid slot for a new chart."`
	Classify classifyCmd `cmd:"" help:"Classify a data endpoint payload and list the chart types it supports."`
	Catalog  catalogCmd  `cmd:"" help:"Manage static data source catalogs."`
}

type catalogCmd struct {
	Add catalogAddCmd `cmd:"" help:"Add a data source to a catalog file."`
}

type placeCmd struct {
	Layout  string `type:"path" help:"JSON file with the existing rectangles ([{\"x\":0,\"y\":0,\"w\":6,\"h\":4}]). Empty means an empty grid."`
	Width   int    `default:"6" help:"Width of the new chart in columns."`
	Height  int    `default:"4" help:"Height of the new chart in rows."`
	Columns int    `default:"12" help:"Grid width in columns."`
	Format  string `default:"json" enum:"json,yaml" help:"Output format (json, yaml)."`

	out io.Writer
}

type classifyCmd struct {
	Source string              `arg:"" help:"Data endpoint URL or path to a JSON file."`
	Type   dashboard.ChartType `help:"Requested chart type to resolve against the classification."`
	APIKey string              `name:"api-key" env:"CHARTBOARD_DATA_API_KEY" help:"Bearer token sent to URL sources."`

	out io.Writer
}

type catalogAddCmd struct {
	Catalog     string    `required:"" type:"path" help:"Catalog YAML file to update (created when missing)."`
	Label       string    `required:"" help:"Display label for the source."`
	Name        string    `help:"Source name used in /api/data/<name> (defaults to the snake-cased label)."`
	Description string    `help:"One-line description."`
	Value       *float64  `help:"Scalar value for number charts."`
	Labels      []string  `help:"Category labels (comma separated)."`
	Values      []float64 `help:"Category values (comma separated)."`
	Overwrite   bool      `help:"Replace an existing source with the same name."`

	out io.Writer
}

func main() {
	ctx := kong.Parse(&cli{},
		kong.Description("Command line helpers for go-chartboard layouts and data catalogs."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background())
	ctx.FatalIfErrorf(err)
}

func (cmd *placeCmd) Run(_ context.Context) error {
	existing, err := readRects(cmd.Layout)
	if err != nil {
		return err
	}
	if cmd.Columns < 1 {
		return fmt.Errorf("chartctl: columns must be at least 1")
	}
	rect := dashboard.FindPlacement(existing, cmd.Columns, cmd.Width, cmd.Height)
	if cmd.Format == "yaml" {
		encoder := yaml.NewEncoder(writer(cmd.out))
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(rect)
	}
	return writeJSON(writer(cmd.out), rect)
}

func readRects(path string) ([]dashboard.Rect, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("chartctl: read layout: %w", err)
	}
	var rects []dashboard.Rect
	if err := json.Unmarshal(data, &rects); err != nil {
		return nil, fmt.Errorf("chartctl: parse layout: %w", err)
	}
	return rects, nil
}

// classification is the classify command output.
type classification struct {
	dashboard.Classification
	Resolved dashboard.ChartType `json:"resolved,omitempty"`
}

func (cmd *classifyCmd) Run(ctx context.Context) error {
	raw, err := cmd.load(ctx)
	if err != nil {
		return err
	}
	result, _ := dashboard.ClassifyJSON(raw)
	out := classification{Classification: result}
	if cmd.Type != "" {
		out.Resolved = result.Resolve(cmd.Type)
	}
	return writeJSON(writer(cmd.out), out)
}

func (cmd *classifyCmd) load(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(cmd.Source, "http://") || strings.HasPrefix(cmd.Source, "https://") {
		source, err := url.Parse(cmd.Source)
		if err != nil {
			return nil, fmt.Errorf("chartctl: parse source url: %w", err)
		}
		fetcher, err := datasource.NewHTTPFetcher(datasource.HTTPConfig{
			BaseURL: source.Scheme + "://" + source.Host,
			APIKey:  cmd.APIKey,
		})
		if err != nil {
			return nil, err
		}
		return fetcher.Fetch(ctx, cmd.Source)
	}
	data, err := os.ReadFile(cmd.Source) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("chartctl: read payload: %w", err)
	}
	return data, nil
}

func (cmd *catalogAddCmd) Run(_ context.Context) error {
	source, err := cmd.source()
	if err != nil {
		return err
	}
	path, err := filepath.Abs(cmd.Catalog)
	if err != nil {
		return fmt.Errorf("chartctl: resolve catalog path: %w", err)
	}
	doc, err := loadOrInitCatalog(path)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range doc.Sources {
		if existing.Name != source.Name {
			continue
		}
		if !cmd.Overwrite {
			return fmt.Errorf("chartctl: catalog already defines source %s (use --overwrite to replace)", source.Name)
		}
		doc.Sources[i] = source
		replaced = true
	}
	if !replaced {
		doc.Sources = append(doc.Sources, source)
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := writeCatalog(path, doc); err != nil {
		return err
	}
	fmt.Fprintf(writer(cmd.out), "source %s available at %s%s\n", source.Name, dashboard.DataPathPrefix, source.Name)
	return nil
}

func (cmd *catalogAddCmd) source() (dashboard.CatalogSource, error) {
	if cmd.Value != nil && (len(cmd.Labels) > 0 || len(cmd.Values) > 0) {
		return dashboard.CatalogSource{}, errors.New("chartctl: --value cannot be combined with --labels/--values")
	}
	if len(cmd.Labels) != len(cmd.Values) {
		return dashboard.CatalogSource{}, fmt.Errorf("chartctl: %d labels but %d values", len(cmd.Labels), len(cmd.Values))
	}
	name := cmd.Name
	if name == "" {
		name = strcase.ToSnake(cmd.Label)
	}
	if name == "" {
		return dashboard.CatalogSource{}, errors.New("chartctl: source name is required")
	}
	return dashboard.CatalogSource{
		Name:        name,
		Label:       cmd.Label,
		Description: cmd.Description,
		Value:       cmd.Value,
		Labels:      cmd.Labels,
		Values:      cmd.Values,
	}, nil
}

func loadOrInitCatalog(path string) (*dashboard.CatalogDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &dashboard.CatalogDocument{
				Version: dashboard.CatalogVersion,
				Sources: []dashboard.CatalogSource{},
				Path:    path,
			}, nil
		}
		return nil, fmt.Errorf("chartctl: stat catalog: %w", err)
	}
	return dashboard.ReadCatalog(path)
}

func writeCatalog(path string, doc *dashboard.CatalogDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("chartctl: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("chartctl: create catalog %s: %w", path, err)
	}
	defer file.Close()
	return dashboard.WriteCatalog(file, doc)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
