package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"kcmc/services/kcmc-svc/internal/service"
)

const (
	summarySheet = "Summary"
	runsSheet    = "Runs"
)

// ExcelGenerator генератор Excel отчётов
type ExcelGenerator struct {
	BaseGenerator
}

// NewExcelGenerator создаёт новый генератор
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// Format возвращает формат генератора
func (g *ExcelGenerator) Format() Format {
	return FormatXLSX
}

type excelStyles struct {
	header  int
	title   int
	invalid int
	percent int
}

// Generate генерирует книгу с листами Summary и Runs
func (g *ExcelGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := g.styles(f)
	if err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(runsSheet); err != nil {
		return nil, err
	}
	// Удаляем дефолтный лист
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	if err := g.writeSummary(f, data, styles); err != nil {
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	if err := g.writeRuns(f, data, styles); err != nil {
		return nil, fmt.Errorf("runs sheet: %w", err)
	}

	if idx, err := f.GetSheetIndex(summarySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	// Записываем в буфер
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *ExcelGenerator) styles(f *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return s, err
	}

	s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return s, err
	}

	s.invalid, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "C0392B"},
	})
	if err != nil {
		return s, err
	}

	s.percent, err = f.NewStyle(&excelize.Style{NumFmt: 10})
	return s, err
}

func (g *ExcelGenerator) writeSummary(f *excelize.File, data *Data, st excelStyles) error {
	sw := sheetWriter{f: f, sheet: summarySheet}
	row := 1

	sw.set(Cell("A", row), g.GetTitle(data))
	sw.style(Cell("A", row), Cell("A", row), st.title)
	sw.merge(Cell("A", row), Cell("D", row))
	row++
	sw.set(Cell("A", row), "Generated")
	sw.set(Cell("B", row), g.FormatTimestamp(data.GeneratedAt))
	row++
	sw.set(Cell("A", row), "Author")
	sw.set(Cell("B", row), g.GetAuthor(data))
	row += 2

	headers := []string{"Key", "K", "M", "POIs", "Sensors", "Excluded", "Runs", "Best", "Active", "Compression", "Run ID"}
	for i, h := range headers {
		sw.set(CellByIndex(i, row), h)
	}
	sw.style(CellByIndex(0, row), CellByIndex(len(headers)-1, row), st.header)
	row++

	for _, suite := range data.Suites {
		values := []any{suite.Key, suite.K, suite.M, suite.POIs, suite.Sensors, suite.Excluded, len(suite.Runs)}
		if best := suite.Best(); best != nil {
			values = append(values, best.Operation, best.ActiveCount, best.Compression)
		} else {
			values = append(values, "-", "-", "-")
		}
		values = append(values, suite.RunID)

		for i, v := range values {
			sw.set(CellByIndex(i, row), v)
		}
		sw.style(CellByIndex(9, row), CellByIndex(9, row), st.percent)
		row++
	}

	sw.width("A", "A", 28)
	sw.width("H", "H", 18)
	sw.width("K", "K", 38)
	return sw.err
}

func (g *ExcelGenerator) writeRuns(f *excelize.File, data *Data, st excelStyles) error {
	sw := sheetWriter{f: f, sheet: runsSheet}
	row := 1

	headers := []string{"Key", "K", "M", "Method", "Operation", "Runtime (us)", "Status",
		"Active", "Added", "Paths", "Compression", "Cached", "Bitmap", "Error"}
	for i, h := range headers {
		sw.set(CellByIndex(i, row), h)
	}
	sw.style(CellByIndex(0, row), CellByIndex(len(headers)-1, row), st.header)
	row++

	for _, suite := range data.Suites {
		for _, run := range suite.Runs {
			g.writeRun(&sw, row, suite, run, st)
			row++
		}
	}

	if err := f.SetPanes(runsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil && sw.err == nil {
		sw.err = err
	}

	sw.width("A", "A", 28)
	sw.width("D", "E", 16)
	sw.width("M", "M", 32)
	return sw.err
}

func (g *ExcelGenerator) writeRun(sw *sheetWriter, row int, suite *service.Suite, run *service.Run, st excelStyles) {
	values := []any{
		suite.Key, suite.K, suite.M,
		run.Method, run.Operation, run.RuntimeUs, Status(run),
		run.ActiveCount, run.Added, run.Paths, run.Compression,
		run.Cached, run.Bitmap, run.Error,
	}
	for i, v := range values {
		sw.set(CellByIndex(i, row), v)
	}

	sw.style(CellByIndex(10, row), CellByIndex(10, row), st.percent)
	if Status(run) != "OK" {
		sw.style(CellByIndex(6, row), CellByIndex(6, row), st.invalid)
	}
}

// sheetWriter запоминает первую ошибку excelize
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (sw *sheetWriter) set(cell string, value any) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetCellValue(sw.sheet, cell, value)
}

func (sw *sheetWriter) style(from, to string, style int) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetCellStyle(sw.sheet, from, to, style)
}

func (sw *sheetWriter) merge(from, to string) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.MergeCell(sw.sheet, from, to)
}

func (sw *sheetWriter) width(from, to string, width float64) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetColWidth(sw.sheet, from, to, width)
}
