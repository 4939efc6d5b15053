// Package export writes dashboards as Excel workbooks: one summary sheet with
// the chart grid and one data sheet per chart.
package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/goliatone/go-chartboard/components/dashboard"
)

const (
	summarySheet  = "Summary"
	maxSheetName  = 31
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	fileExtension = ".xlsx"
)

var summaryHeader = []any{"Title", "Type", "Data endpoint", "X", "Y", "W", "H", "Color", "Status", "Sheet"}

// Options tunes workbook generation.
type Options struct {
	Fetcher dashboard.DataFetcher
	Timeout time.Duration
}

// Filename returns a download name for the dashboard workbook.
func Filename(d dashboard.Dashboard) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, d.Name)
	if name == "" {
		name = "dashboard"
	}
	return name + fileExtension
}

// Workbook renders layout as an .xlsx document. Charts whose endpoint cannot
// be fetched are listed in the summary as unavailable and get no data sheet.
func Workbook(ctx context.Context, layout dashboard.Layout, opts Options) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("export: rename summary sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]any{layout.Dashboard.Name, layout.Dashboard.Description}); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(summarySheet, "A3", &summaryHeader); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(summarySheet, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(summarySheet, 3, 3, bold); err != nil {
		return nil, err
	}

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for i, chart := range dashboard.SortRowMajor(layout.Charts) {
		status, sheet := "unavailable", ""
		preview := dashboard.FetchPreview(ctx, opts.Fetcher, chart.DataEndpoint, opts.Timeout)
		if preview.Available {
			sheet = uniqueSheetName(chart.Title, i+1, used)
			if err := writeDataSheet(f, sheet, dashboard.ExtractChartData(preview.Payload), bold); err != nil {
				return nil, err
			}
			status = "ok"
		}
		row := []any{chart.Title, string(chart.Type), chart.DataEndpoint, chart.X, chart.Y, chart.W, chart.H, chart.Color, status, sheet}
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "C", 28); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf, nil
}

func writeDataSheet(f *excelize.File, sheet string, data dashboard.ChartData, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: sheet %s: %w", sheet, err)
	}
	if data.Value != nil {
		if err := f.SetSheetRow(sheet, "A1", &[]any{"Label", "Value"}); err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, "A2", &[]any{data.ValueLabel, *data.Value}); err != nil {
			return err
		}
		return f.SetRowStyle(sheet, 1, 1, headerStyle)
	}

	header := []any{"Label"}
	for _, s := range data.Series {
		header = append(header, s.Name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, label := range data.Labels {
		row := []any{label}
		for _, s := range data.Series {
			if i < len(s.Values) {
				row = append(row, s.Values[i])
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetRowStyle(sheet, 1, 1, headerStyle)
}

// uniqueSheetName strips characters Excel rejects in sheet names, truncates to
// the 31 character limit and suffixes duplicates.
func uniqueSheetName(title string, n int, used map[string]bool) string {
	base := strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\'`, r) {
			return ' '
		}
		return r
	}, title)), " ")
	if base == "" {
		base = fmt.Sprintf("Chart %d", n)
	}
	base = truncateRunes(base, maxSheetName)
	name := base
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
