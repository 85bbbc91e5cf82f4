package report

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"kcmc/services/kcmc-svc/internal/service"
)

// maxBitmapWidth обрезает битовую маску в таблице
const maxBitmapWidth = 48

// PDFGenerator генератор PDF отчётов
type PDFGenerator struct {
	BaseGenerator
}

// NewPDFGenerator создаёт новый генератор
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

// Format возвращает формат генератора
func (g *PDFGenerator) Format() Format {
	return FormatPDF
}

// Стили
var (
	// Цвета
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}  // #3498db
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	successColor   = &props.Color{Red: 39, Green: 174, Blue: 96}   // #27ae60
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	titleStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	h2Style = props.Text{
		Size:  13,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   4,
	}

	smallStyle = props.Text{
		Size:  8,
		Color: darkGrayColor,
	}

	metricValueStyle = props.Text{
		Size:  14,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  8,
		Align: align.Center,
		Color: darkGrayColor,
		Top:   8,
	}

	tableHeaderStyle = &props.Cell{
		BackgroundColor: primaryColor,
	}

	tableHeaderTextStyle = props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{
		Size:  8,
		Align: align.Center,
	}
)

type metricCard struct {
	Label string
	Value string
}

// Generate генерирует PDF отчёт, по разделу на набор прогонов
func (g *PDFGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	g.addHeader(m, data)
	for _, suite := range data.Suites {
		g.addSuite(m, suite)
	}
	g.addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *PDFGenerator) addHeader(m core.Maroto, data *Data) {
	m.AddRow(15,
		text.NewCol(12, g.GetTitle(data), titleStyle),
	)
	m.AddRow(5,
		line.NewCol(12),
	)
	m.AddRow(6,
		text.NewCol(6, fmt.Sprintf("Author: %s", g.GetAuthor(data)), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", g.FormatTimestamp(data.GeneratedAt)),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)
	m.AddRow(8)
}

func (g *PDFGenerator) addSuite(m core.Maroto, suite *service.Suite) {
	g.addSection(m, fmt.Sprintf("%s  K%dM%d", suite.Key, suite.K, suite.M))

	best := "-"
	compression := "-"
	if b := suite.Best(); b != nil {
		best = fmt.Sprintf("%d", b.ActiveCount)
		compression = g.FormatPercent(b.Compression)
	}
	g.addMetricCards(m, []metricCard{
		{Label: "POIs", Value: fmt.Sprintf("%d", suite.POIs)},
		{Label: "Sensors", Value: fmt.Sprintf("%d", suite.Sensors)},
		{Label: "Excluded", Value: fmt.Sprintf("%d", suite.Excluded)},
		{Label: "Best active", Value: best},
		{Label: "Best compression", Value: compression},
	})
	m.AddRow(4)

	g.addRunsTable(m, suite.Runs)
	m.AddRow(4,
		text.NewCol(12, fmt.Sprintf("Run %s", suite.RunID), smallStyle),
	)
}

func (g *PDFGenerator) addRunsTable(m core.Maroto, runs []*service.Run) {
	// Заголовок
	m.AddRow(8,
		text.NewCol(3, "Operation", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Runtime", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(1, "Status", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(1, "Active", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Compression", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Bitmap", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, run := range runs {
		status := Status(run)
		statusStyle := tableCellTextStyle
		if status == "OK" {
			statusStyle.Color = successColor
		} else {
			statusStyle.Color = dangerColor
		}

		m.AddRow(6,
			text.NewCol(3, run.Operation, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatRuntime(run.RuntimeUs), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(1, status, statusStyle).WithStyle(tableCellStyle),
			text.NewCol(1, fmt.Sprintf("%d", run.ActiveCount), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatFloat(run.Compression, 5), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, truncate(run.Bitmap, maxBitmapWidth), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
}

func (g *PDFGenerator) addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}

	colSize := 12 / len(cards)
	if colSize < 2 {
		colSize = 2
	}

	var cols []core.Col
	for _, card := range cards {
		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, metricValueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}
	m.AddRow(16, cols...)
}

func (g *PDFGenerator) addSection(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, h2Style),
	)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: primaryColor}),
	)
	m.AddRow(4)
}

func (g *PDFGenerator) addFooter(m core.Maroto, data *Data) {
	footer := "Generated by kcmc-svc"
	if data.Version != "" {
		footer += " " + data.Version
	}

	m.AddRow(10)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: lightGrayColor}),
	)
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("%s | %s", footer, g.FormatTimestamp(data.GeneratedAt)),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Center},
		),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
