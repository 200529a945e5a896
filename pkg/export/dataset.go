// Package export renders timetable datasets into downloadable documents.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned by RendererFor for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Dataset defines tabular export content. Every row is expected to carry one
// value per header; shorter rows are padded with empty cells.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Renderer converts a Dataset into a document of a specific format.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// RendererFor returns the tabular renderer registered for format.
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(), nil
	case "xlsx":
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (d Dataset) validate(kind string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	return nil
}

func (d Dataset) cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
