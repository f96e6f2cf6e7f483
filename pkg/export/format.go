package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/kilianp07/prodplan/core/planner"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatHTML = "html"
)

// ParseFormat normalizes name. An empty name selects JSON.
func ParseFormat(name string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(name)); f {
	case "":
		return FormatJSON, nil
	case FormatCSV, FormatJSON, FormatYAML, FormatHTML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", name)
	}
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatYAML:
		return "application/yaml"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Write renders res in format. YAML carries the summary only.
func Write(w io.Writer, format string, res *planner.Result) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, res.Records)
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatYAML:
		return WriteSummaryYAML(w, res.Summary)
	case FormatHTML:
		return WriteHTMLChart(w, res)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}
