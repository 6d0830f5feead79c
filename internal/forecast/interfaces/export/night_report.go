package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	forecast "venue-pulse/internal/forecast/domain"
	"venue-pulse/internal/forecast/money"
	"venue-pulse/internal/observability/metrics"
)

const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"

	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrUnknownFormat is returned for export formats other than pdf and xlsx.
var ErrUnknownFormat = errors.New("export: unknown format")

// Render builds a night report in the requested format and returns it with its content type.
func Render(format string, snap forecast.LiveSnapshot) ([]byte, string, error) {
	started := time.Now()
	format = strings.ToLower(strings.TrimSpace(format))
	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatPDF:
		data, err = BuildNightPDF(snap)
		contentType = ContentTypePDF
	case FormatXLSX:
		data, err = BuildNightXLSX(snap)
		contentType = ContentTypeXLSX
	default:
		return nil, "", ErrUnknownFormat
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport(format, result, time.Since(started))
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// Filename returns the attachment name of a night report.
func Filename(snap forecast.LiveSnapshot, format string) string {
	name := strings.ToLower(strings.Join(strings.Fields(snap.VenueName), "-"))
	if name == "" {
		name = "venue"
	}
	return fmt.Sprintf("%s-%s-night.%s", name, snap.BusinessDate, format)
}

type summaryRow struct {
	label string
	value string
}

func summaryRows(snap forecast.LiveSnapshot) []summaryRow {
	rows := []summaryRow{
		{"Venue", snap.VenueName},
		{"Business date", fmt.Sprintf("%s (%s)", snap.BusinessDate, snap.DayKey)},
		{"Mode", string(snap.Mode)},
		{"Generated", snap.GeneratedAtISO},
	}
	if snap.IsClosed {
		return append(rows, summaryRow{"Status", forecast.ClosedLabel})
	}
	return append(rows,
		summaryRow{"Window", snap.WindowStartISO + " - " + snap.WindowEndISO},
		summaryRow{"Revenue so far", money.FormatCents(snap.Totals.RevenueCents)},
		summaryRow{"Open orders", money.FormatCents(snap.Totals.OpenOrdersCents)},
		summaryRow{"Labor so far", money.FormatCents(snap.Totals.LaborCents)},
		summaryRow{"Wage %", money.FormatPercent(snap.Totals.WagePercent)},
		summaryRow{"Target revenue", money.FormatCents(snap.Totals.TargetRevenueCents)},
		summaryRow{"Projected revenue", money.FormatCents(snap.Projection.RampedProjectedTotalCents)},
		summaryRow{"Projected labor", money.FormatCents(snap.Projection.ProjectedLaborCents)},
		summaryRow{"Projected wage %", money.FormatPercent(snap.Projection.ProjectedWagePercent)},
		summaryRow{"Rolling average", money.FormatCents(snap.Comparison.RollingAverageRevenueCents)},
		summaryRow{"Week wage %", money.FormatPercent(snap.Weekly.WagePercent)},
		summaryRow{"Point of no return", pointOfNoReturnText(snap.PointOfNoReturn)},
	)
}

func pointOfNoReturnText(ponr forecast.PointOfNoReturnSnapshot) string {
	text := string(ponr.Status)
	if ponr.PointTimeISO != nil {
		text += " at " + *ponr.PointTimeISO
	}
	return text
}

// BuildNightPDF renders a one-page night report.
func BuildNightPDF(snap forecast.LiveSnapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Night Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, row := range summaryRows(snap) {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %s", row.label, row.value))
		pdf.Ln(5)
	}

	if !snap.IsClosed {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(25, 6, "Bucket", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "Revenue", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "Cumulative", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "Expected", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Labor", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Wage %", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		tl := snap.Timeline
		for i, label := range tl.Labels {
			pdf.CellFormat(25, 5, label, "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 5, money.FormatCents(at(tl.BucketRevenueCents, i)), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 5, money.FormatCents(at(tl.CumulativeRevenueCents, i)), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 5, money.FormatCents(at(tl.ExpectedCumulativeRevenueCents, i)), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 5, money.FormatCents(at(tl.BucketLaborCents, i)), "1", 0, "R", false, 0, "")
			wage := "-"
			if i < len(tl.WagePoints) {
				wage = money.FormatPercent(tl.WagePoints[i].CurrentPercent)
			}
			pdf.CellFormat(20, 5, wage, "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildNightXLSX renders a workbook with summary, timeline and history sheets.
func BuildNightXLSX(snap forecast.LiveSnapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	timelineSheet := "timeline"
	historySheet := "history"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(timelineSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(historySheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Night Report")
	for i, row := range summaryRows(snap) {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+3), row.label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+3), row.value)
	}

	headers := []string{"Bucket", "Revenue", "Cumulative revenue", "Expected cumulative", "Labor", "Cumulative labor", "Wage %", "Target wage %", "Historical wage %"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(timelineSheet, cell, header)
	}
	tl := snap.Timeline
	for i, label := range tl.Labels {
		row := i + 2
		_ = f.SetCellValue(timelineSheet, fmt.Sprintf("A%d", row), label)
		_ = f.SetCellValue(timelineSheet, fmt.Sprintf("B%d", row), money.Float(at(tl.BucketRevenueCents, i)))
		_ = f.SetCellValue(timelineSheet, fmt.Sprintf("C%d", row), money.Float(at(tl.CumulativeRevenueCents, i)))
		_ = f.SetCellValue(timelineSheet, fmt.Sprintf("D%d", row), money.Float(at(tl.ExpectedCumulativeRevenueCents, i)))
		_ = f.SetCellValue(timelineSheet, fmt.Sprintf("E%d", row), money.Float(at(tl.BucketLaborCents, i)))
		_ = f.SetCellValue(timelineSheet, fmt.Sprintf("F%d", row), money.Float(at(tl.CumulativeLaborCents, i)))
		if i < len(tl.WagePoints) {
			point := tl.WagePoints[i]
			if point.CurrentPercent != nil {
				_ = f.SetCellValue(timelineSheet, fmt.Sprintf("G%d", row), *point.CurrentPercent)
			}
			_ = f.SetCellValue(timelineSheet, fmt.Sprintf("H%d", row), point.TargetPercent)
			_ = f.SetCellValue(timelineSheet, fmt.Sprintf("I%d", row), point.HistoricalPercent)
		}
	}

	_ = f.SetCellValue(historySheet, "A1", "Date")
	_ = f.SetCellValue(historySheet, "B1", "Revenue")
	_ = f.SetCellValue(historySheet, "C1", "Labor")
	for i, night := range snap.Comparison.ComparableNights {
		row := i + 2
		_ = f.SetCellValue(historySheet, fmt.Sprintf("A%d", row), night.DateISO)
		_ = f.SetCellValue(historySheet, fmt.Sprintf("B%d", row), money.Float(night.TotalRevenueCents))
		_ = f.SetCellValue(historySheet, fmt.Sprintf("C%d", row), money.Float(night.TotalLaborCents))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func at(series []int64, i int) int64 {
	if i < 0 || i >= len(series) {
		return 0
	}
	return series[i]
}
