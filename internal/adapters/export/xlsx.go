// Package export writes the scholarship pool as a spreadsheet report.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/scholarsync/internal/domain/model"
)

const (
	recordsSheet = "Scholarships"
	summarySheet = "Summary"
	pageSize     = 500
	timeLayout   = "2006-01-02 15:04:05"
)

var headers = []string{
	"ID", "Title", "Provider", "Deadline", "Country", "Level of Study",
	"Field of Study", "Eligibility", "Academic Requirements", "CGPA Requirements",
	"Benefits", "Application Link", "Contact Email", "Keywords",
	"Source URL", "Source Website", "Extracted Date", "Created At", "Updated At",
}

var columnWidths = map[string]float64{
	"Title": 50, "Eligibility": 60, "Benefits": 50, "Application Link": 40,
	"Source URL": 50, "Academic Requirements": 40,
}

// Lister pages through the record pool.
type Lister interface {
	List(ctx context.Context, offset, limit int) ([]model.Scholarship, error)
}

// FromStore reads every record from l and writes the report to w.
func FromStore(ctx context.Context, l Lister, w io.Writer, now time.Time) (int, error) {
	var all []model.Scholarship
	for offset := 0; ; offset += pageSize {
		page, err := l.List(ctx, offset, pageSize)
		if err != nil {
			return 0, fmt.Errorf("list scholarships: %w", err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
	}
	return len(all), Write(w, all, now)
}

// Write renders records into a workbook with a records sheet and a
// summary sheet.
func Write(w io.Writer, records []model.Scholarship, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return err
	}
	if err := writeRecords(f, records); err != nil {
		return err
	}
	if err := writeSummary(f, records, now); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	return f.Write(w)
}

func writeRecords(f *excelize.File, records []model.Scholarship) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(recordsSheet, "A1", last, bold); err != nil {
		return err
	}

	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.ID, r.Title, r.Provider, r.Deadline, r.Country, r.LevelOfStudy,
			r.FieldOfStudy, r.Eligibility, strings.Join(r.AcademicRequirements, "; "),
			strings.Join(r.CGPARequirements, "; "), r.Benefits, r.ApplicationLink,
			r.ContactEmail, strings.Join(r.Keywords, ", "), r.SourceURL, r.SourceWebsite,
			r.ExtractedDate, stamp(r.CreatedAt), stamp(r.UpdatedAt),
		}
		if err := f.SetSheetRow(recordsSheet, cell, &row); err != nil {
			return err
		}
	}

	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width, ok := columnWidths[h]
		if !ok {
			width = 20
		}
		if err := f.SetColWidth(recordsSheet, col, col, width); err != nil {
			return err
		}
	}

	if err := f.SetPanes(recordsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	return f.AutoFilter(recordsSheet, "A1:"+last, nil)
}

func writeSummary(f *excelize.File, records []model.Scholarship, now time.Time) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Report Generated", now.UTC().Format(timeLayout)},
		{"Total Records", len(records)},
		{},
		{"Level of Study", "Records"},
	}
	rows = append(rows, tally(records, func(r model.Scholarship) string { return r.LevelOfStudy })...)
	rows = append(rows, []interface{}{}, []interface{}{"Source Website", "Records"})
	rows = append(rows, tally(records, func(r model.Scholarship) string { return r.SourceWebsite })...)

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "A", 24)
}

// tally counts records per key, largest first; empty keys are reported as
// "Unspecified".
func tally(records []model.Scholarship, key func(model.Scholarship) string) [][]interface{} {
	counts := map[string]int{}
	for _, r := range records {
		k := key(r)
		if k == "" {
			k = "Unspecified"
		}
		counts[k]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	out := make([][]interface{}, len(keys))
	for i, k := range keys {
		out[i] = []interface{}{k, counts[k]}
	}
	return out
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
