package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"kcmc/services/kcmc-svc/internal/service"
)

// =============================================================================
// TSV
// =============================================================================

// TSVGenerator генератор строк времени выполнения, по строке на прогон
type TSVGenerator struct {
	BaseGenerator
}

// NewTSVGenerator создаёт новый генератор
func NewTSVGenerator() *TSVGenerator {
	return &TSVGenerator{}
}

// Format возвращает формат генератора
func (g *TSVGenerator) Format() Format {
	return FormatTSV
}

// tsvWriter обёртка для отслеживания ошибок
type tsvWriter struct {
	w   *csv.Writer
	err error
}

func newTSVWriter(buf *bytes.Buffer) *tsvWriter {
	w := csv.NewWriter(buf)
	w.Comma = '\t'
	return &tsvWriter{w: w}
}

func (tw *tsvWriter) Write(record []string) {
	if tw.err != nil {
		return
	}
	tw.err = tw.w.Write(record)
}

func (tw *tsvWriter) Flush() {
	if tw.err != nil {
		return
	}
	tw.w.Flush()
	tw.err = tw.w.Error()
}

// Generate генерирует TSV без заголовка
func (g *TSVGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer
	tw := newTSVWriter(&buf)

	for _, suite := range data.Suites {
		for _, run := range suite.Runs {
			tw.Write(Record(suite, run))
		}
	}

	tw.Flush()
	if tw.err != nil {
		return nil, fmt.Errorf("tsv write error: %w", tw.err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// JSON
// =============================================================================

// JSONGenerator генератор JSON отчётов
type JSONGenerator struct {
	BaseGenerator
}

// NewJSONGenerator создаёт новый генератор
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// Format возвращает формат генератора
func (g *JSONGenerator) Format() Format {
	return FormatJSON
}

// JSONReport структура JSON отчёта
type JSONReport struct {
	Metadata JSONMetadata     `json:"metadata"`
	Suites   []*service.Suite `json:"suites"`
	Lines    []string         `json:"lines"`
}

type JSONMetadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Version     string `json:"version,omitempty"`
	GeneratedAt string `json:"generatedAt"`
	Runs        int    `json:"runs"`
}

// Generate генерирует JSON отчёт
func (g *JSONGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	rep := JSONReport{
		Metadata: JSONMetadata{
			Title:       g.GetTitle(data),
			Author:      g.GetAuthor(data),
			Version:     data.Version,
			GeneratedAt: g.FormatTimestamp(data.GeneratedAt),
		},
		Suites: data.Suites,
		Lines:  []string{},
	}
	if rep.Suites == nil {
		rep.Suites = []*service.Suite{}
	}

	for _, suite := range data.Suites {
		for _, run := range suite.Runs {
			rep.Lines = append(rep.Lines, Line(suite, run))
		}
	}
	rep.Metadata.Runs = len(rep.Lines)

	return json.MarshalIndent(rep, "", "  ")
}

// =============================================================================
// Markdown
// =============================================================================

// MarkdownGenerator генератор Markdown отчётов
type MarkdownGenerator struct {
	BaseGenerator
}

// NewMarkdownGenerator создаёт новый генератор
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// Format возвращает формат генератора
func (g *MarkdownGenerator) Format() Format {
	return FormatMarkdown
}

// Generate генерирует Markdown отчёт
func (g *MarkdownGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", g.GetTitle(data))
	fmt.Fprintf(&buf, "- **Generated:** %s\n", g.FormatTimestamp(data.GeneratedAt))
	fmt.Fprintf(&buf, "- **Author:** %s\n", g.GetAuthor(data))
	if data.Version != "" {
		fmt.Fprintf(&buf, "- **Version:** %s\n", data.Version)
	}
	buf.WriteString("\n---\n\n")

	for _, suite := range data.Suites {
		g.writeSuite(&buf, suite)
	}
	return buf.Bytes(), nil
}

func (g *MarkdownGenerator) writeSuite(buf *bytes.Buffer, suite *service.Suite) {
	fmt.Fprintf(buf, "## `%s` K%dM%d\n\n", suite.Key, suite.K, suite.M)
	fmt.Fprintf(buf, "- **POIs:** %d\n", suite.POIs)
	fmt.Fprintf(buf, "- **Sensors:** %d\n", suite.Sensors)
	fmt.Fprintf(buf, "- **Excluded:** %d\n", suite.Excluded)
	if best := suite.Best(); best != nil {
		fmt.Fprintf(buf, "- **Best:** %s (%d active, %s off)\n",
			best.Operation, best.ActiveCount, g.FormatPercent(best.Compression))
	}
	buf.WriteString("\n")

	buf.WriteString("| Operation | Runtime | Status | Active | Compression |\n")
	buf.WriteString("|-----------|---------|--------|--------|-------------|\n")
	for _, run := range suite.Runs {
		fmt.Fprintf(buf, "| %s | %s | %s | %d | %s |\n",
			run.Operation,
			g.FormatRuntime(run.RuntimeUs),
			Status(run),
			run.ActiveCount,
			g.FormatFloat(run.Compression, 5),
		)
	}
	buf.WriteString("\n")
}
