// Package report renders minimizer suite runs as TSV runtime lines, JSON,
// Markdown, XLSX workbooks and PDF documents.
package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kcmc/pkg/apperror"
	"kcmc/services/kcmc-svc/internal/service"
)

// Format формат отчёта
type Format string

const (
	FormatTSV      Format = "tsv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatXLSX     Format = "xlsx"
	FormatPDF      Format = "pdf"
)

// Formats все поддерживаемые форматы
var Formats = []Format{FormatTSV, FormatJSON, FormatMarkdown, FormatXLSX, FormatPDF}

// ParseFormat разбирает имя формата
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")))
	if f == "markdown" {
		return FormatMarkdown, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", apperror.NewWithField(apperror.CodeInvalidArgument,
		fmt.Sprintf("unknown report format %q", name), "format")
}

// Extension расширение файла
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType MIME тип для HTTP ответа
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/tab-separated-values; charset=utf-8"
	}
}

// Data данные для генерации отчёта
type Data struct {
	Title       string
	Author      string
	Version     string
	GeneratedAt time.Time
	Suites      []*service.Suite
}

// Generator интерфейс генератора отчётов
type Generator interface {
	Generate(ctx context.Context, data *Data) ([]byte, error)
	Format() Format
}

// New возвращает генератор для формата
func New(format Format) (Generator, error) {
	switch format {
	case FormatTSV:
		return NewTSVGenerator(), nil
	case FormatJSON:
		return NewJSONGenerator(), nil
	case FormatMarkdown:
		return NewMarkdownGenerator(), nil
	case FormatXLSX:
		return NewExcelGenerator(), nil
	case FormatPDF:
		return NewPDFGenerator(), nil
	default:
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("unknown report format %q", format), "format")
	}
}

// Render генерирует отчёт и оборачивает ошибку генератора в REPORT_ERROR
func Render(ctx context.Context, format Format, data *Data) ([]byte, error) {
	g, err := New(format)
	if err != nil {
		return nil, err
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}

	out, err := g.Generate(ctx, data)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeReportError, fmt.Sprintf("failed to render %s report", format))
	}
	return out, nil
}

// =============================================================================
// Runtime lines
// =============================================================================

// Status возвращает OK для валидного прогона и INVALID для остальных
func Status(run *service.Run) string {
	if run.Error == "" && run.Valid {
		return "OK"
	}
	return "INVALID"
}

// Record возвращает поля строки времени выполнения:
// key, k, m, operation, runtime_us, status, active_count, compression, bitmap.
func Record(suite *service.Suite, run *service.Run) []string {
	return []string{
		suite.Key,
		strconv.Itoa(suite.K),
		strconv.Itoa(suite.M),
		run.Operation,
		strconv.FormatInt(run.RuntimeUs, 10),
		Status(run),
		strconv.Itoa(run.ActiveCount),
		fmt.Sprintf("%.5f", run.Compression),
		run.Bitmap,
	}
}

// Line строка времени выполнения, разделённая табуляцией
func Line(suite *service.Suite, run *service.Run) string {
	return strings.Join(Record(suite, run), "\t")
}

// Header заголовки колонок строки времени выполнения
var Header = []string{"key", "k", "m", "operation", "runtime_us", "status", "active", "compression", "bitmap"}

// =============================================================================
// Base
// =============================================================================

// BaseGenerator базовые утилиты для генераторов
type BaseGenerator struct{}

// GetTitle возвращает заголовок отчёта
func (b *BaseGenerator) GetTitle(data *Data) string {
	if data.Title != "" {
		return data.Title
	}
	return "KCMC Optimizer Runtime"
}

// GetAuthor возвращает автора отчёта
func (b *BaseGenerator) GetAuthor(data *Data) string {
	if data.Author != "" {
		return data.Author
	}
	return "kcmc-svc"
}

// FormatFloat форматирует число с заданной точностью
func (b *BaseGenerator) FormatFloat(v float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, v)
}

// FormatPercent форматирует процент
func (b *BaseGenerator) FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatRuntime форматирует время прогона в микросекундах
func (b *BaseGenerator) FormatRuntime(us int64) string {
	switch {
	case us < 1000:
		return fmt.Sprintf("%d us", us)
	case us < 1000000:
		return fmt.Sprintf("%.2f ms", float64(us)/1000)
	default:
		return fmt.Sprintf("%.2f s", float64(us)/1000000)
	}
}

// FormatTimestamp форматирует время
func (b *BaseGenerator) FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// ColName преобразует индекс колонки в буквенное обозначение (0 -> A, 25 -> Z, 26 -> AA)
func ColName(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}

// Cell возвращает адрес ячейки
func Cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// CellByIndex возвращает адрес ячейки по индексам
func CellByIndex(colIndex, rowIndex int) string {
	return fmt.Sprintf("%s%d", ColName(colIndex), rowIndex)
}
