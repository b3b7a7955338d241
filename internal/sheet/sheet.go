// Package sheet renders JSON data as an xlsx workbook.
package sheet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	OverviewSheet = "Overview"
	SkillsSheet   = "Skills_Details"
	DataSheet     = "Data"
)

// MaxColumnWidth caps auto-sized columns.
const MaxColumnWidth = 50

// Options controls workbook layout.
type Options struct {
	// Formatting styles header and cells, sizes columns and freezes the header row.
	Formatting bool
	// SingleSheet writes everything to one "Data" sheet.
	SingleSheet bool
	// ListField is the list-valued field expanded into the Skills_Details sheet.
	ListField string
	// TitleField and ImpactField are copied onto each Skills_Details row.
	TitleField  string
	ImpactField string
	// Columns lists columns to place first, in order.
	Columns []string
}

// DefaultOptions matches the layout of prediction exports.
func DefaultOptions() Options {
	return Options{
		Formatting:  true,
		ListField:   "skills",
		TitleField:  "job_title",
		ImpactField: "genai_impact",
		Columns:     []string{"job_title", "genai_impact", "skills", "explanation", "job"},
	}
}

// Build creates a workbook from data. A non-empty list gets an Overview sheet
// plus a Skills_Details sheet when any element carries list items under
// ListField; any other input, or SingleSheet, gets one Data sheet.
// The caller must Close the returned file.
func Build(data any, opts Options) (*excelize.File, error) {
	f := excelize.NewFile()
	first := f.GetSheetName(0)

	records, isList := asRecords(data)
	if opts.SingleSheet || !isList || len(records) == 0 {
		if err := f.SetSheetName(first, DataSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
		if err := writeTable(f, DataSheet, Normalize(data, opts.Columns...), opts.Formatting); err != nil {
			f.Close()
			return nil, err
		}
		return f, nil
	}

	if err := f.SetSheetName(first, OverviewSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeTable(f, OverviewSheet, Normalize(data, opts.Columns...), opts.Formatting); err != nil {
		f.Close()
		return nil, err
	}

	if details := skillsTable(records, opts); len(details.Rows) > 0 {
		if _, err := f.NewSheet(SkillsSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", SkillsSheet, err)
		}
		if err := writeTable(f, SkillsSheet, details, opts.Formatting); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteFile builds a workbook from data and saves it at path.
func WriteFile(path string, data any, opts Options) error {
	f, err := Build(data, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// Convert reads the JSON file at in and writes a workbook to out. An empty
// out derives the path from in. It returns the path written.
func Convert(in, out string, opts Options) (string, error) {
	raw, err := os.ReadFile(in)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", in, err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("parse %s: %w", in, err)
	}
	if out == "" {
		out = OutputPath(in)
	}
	if err := WriteFile(out, data, opts); err != nil {
		return "", err
	}
	return out, nil
}

// OutputPath swaps the extension of in for .xlsx.
func OutputPath(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".xlsx"
}

func asRecords(data any) ([]map[string]any, bool) {
	switch v := data.(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out, true
	}
	return nil, false
}

func skillsTable(records []map[string]any, opts Options) Table {
	t := Table{Columns: []string{opts.TitleField, "skill", opts.ImpactField}}
	if opts.ListField == "" {
		return t
	}
	for i, rec := range records {
		items := listItems(rec[opts.ListField])
		if len(items) == 0 {
			continue
		}
		title, ok := rec[opts.TitleField].(string)
		if !ok || title == "" {
			title = fmt.Sprintf("Job_%d", i)
		}
		impact := cell(rec[opts.ImpactField])
		for _, item := range items {
			t.Rows = append(t.Rows, []any{title, item, impact})
		}
	}
	return t
}

func writeTable(f *excelize.File, sheet string, t Table, formatting bool) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header on %s: %w", sheet, err)
	}
	for r, row := range t.Rows {
		addr, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("write row %d on %s: %w", r+2, sheet, err)
		}
	}
	if !formatting || len(t.Columns) == 0 {
		return nil
	}
	return format(f, sheet, t)
}

func format(f *excelize.File, sheet string, t Table) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	last := len(t.Columns)
	end, err := excelize.CoordinatesToCellName(last, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, st.header); err != nil {
		return fmt.Errorf("style header on %s: %w", sheet, err)
	}

	for r, row := range t.Rows {
		for c, v := range row {
			addr, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			style := st.cell
			if _, ok := v.(bool); ok {
				style = st.boolean
			}
			if err := f.SetCellStyle(sheet, addr, addr, style); err != nil {
				return fmt.Errorf("style %s on %s: %w", addr, sheet, err)
			}
		}
	}

	for c, name := range t.Columns {
		width := utf8.RuneCountInString(name)
		for _, row := range t.Rows {
			if n := utf8.RuneCountInString(fmt.Sprint(row[c])); n > width {
				width = n
			}
		}
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(ColumnWidth(width))); err != nil {
			return fmt.Errorf("size column %s on %s: %w", col, sheet, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// ColumnWidth pads the longest value in a column and applies the cap.
func ColumnWidth(maxLen int) int {
	return min(maxLen+2, MaxColumnWidth)
}

type styles struct {
	header, cell, boolean int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	var st styles
	var err error
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Border:    border,
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	st.cell, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return st, fmt.Errorf("cell style: %w", err)
	}
	st.boolean, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("boolean style: %w", err)
	}
	return st, nil
}
