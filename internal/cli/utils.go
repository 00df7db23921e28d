package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/vecsearch/internal/agent"
	"github.com/hyperjump/vecsearch/internal/ingest"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" and "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// searchOutput is the JSON shape of a search outcome, with the error rendered as text.
type searchOutput struct {
	models.SearchOutcome
	Error string `json:"error,omitempty"`
}

// WriteSearchResults writes a search outcome to w in the given format.
func WriteSearchResults(w io.Writer, out models.SearchOutcome, format OutputFormat) error {
	if format == OutputJSON {
		so := searchOutput{SearchOutcome: out}
		if out.Err != nil {
			so.Error = out.Err.Error()
		}
		return writeJSON(w, so)
	}
	writeSearchResultsText(w, out)
	return nil
}

func writeSearchResultsText(w io.Writer, out models.SearchOutcome) {
	if out.Err != nil {
		fmt.Fprintf(w, "Search failed [%s]: %v\n", out.Kind, out.Err)
		return
	}
	fmt.Fprintf(w, "\nFound %d matches for %q\n\n", len(out.Matches), out.Query)
	for i, m := range out.Matches {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, m.Score)
		fmt.Fprintf(w, "%s\n\n", utils.Truncate(m.Text, 200))
	}
}

// WriteInsertOutcome writes the result of an add to w in the given format.
func WriteInsertOutcome(w io.Writer, out models.InsertOutcome, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	if out.Success {
		fmt.Fprintln(w, out.Message)
		return nil
	}
	fmt.Fprintf(w, "Add failed [%s]: %s\n", out.Kind, out.Message)
	return nil
}

// WriteIngestResults writes per-file ingest results to w in the given format.
func WriteIngestResults(w io.Writer, results []ingest.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	var added int
	for _, r := range results {
		fmt.Fprintf(w, "%s: %d sentences, %d added, %d skipped\n", r.Path, r.Sentences, r.Added, r.Skipped)
		added += r.Added
	}
	fmt.Fprintf(w, "Ingested %d file(s), %d sentences added\n", len(results), added)
	return nil
}

// WriteReport writes an agent run report to w in the given format.
func WriteReport(w io.Writer, report *agent.Report, format OutputFormat) error {
	if format == OutputJSON {
		out := struct {
			*agent.Report
			Search *searchOutput `json:"search,omitempty"`
		}{Report: report}
		if report.Search != nil {
			so := &searchOutput{SearchOutcome: *report.Search}
			if report.Search.Err != nil {
				so.Error = report.Search.Err.Error()
			}
			out.Search = so
		}
		return writeJSON(w, out)
	}
	if report.Plan != nil {
		fmt.Fprintf(w, "Action: %s\n", report.Plan.Action)
	}
	if report.Add != nil {
		_ = WriteInsertOutcome(w, *report.Add, OutputText)
	}
	if report.Search != nil {
		writeSearchResultsText(w, *report.Search)
	}
	return nil
}

// WriteStats writes collection statistics to w in the given format.
func WriteStats(w io.Writer, stats models.CollectionStats, diskBytes int64, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			models.CollectionStats
			DiskUsageBytes int64 `json:"disk_usage_bytes"`
		}{stats, diskBytes})
	}
	fmt.Fprintf(w, "Collection:      %s\n", stats.Schema.Name)
	fmt.Fprintf(w, "Dimension:       %d\n", stats.Schema.Dimension)
	fmt.Fprintf(w, "Max text length: %d\n", stats.Schema.MaxTextLength)
	fmt.Fprintf(w, "Records:         %d\n", stats.Records)
	fmt.Fprintf(w, "Index state:     %s\n", stats.IndexState)
	if stats.Index != nil {
		fmt.Fprintf(w, "Index:           %s %s", stats.Index.IndexType, stats.Index.Metric)
		if stats.Index.IndexType == models.IndexIVFFlat {
			fmt.Fprintf(w, " (nlist=%d)", stats.Index.NList)
		}
		fmt.Fprintln(w)
		if stats.Index.IndexType == models.IndexIVFFlat {
			fmt.Fprintf(w, "Partitions:      %d trained\n", stats.Partitions)
		}
	}
	fmt.Fprintf(w, "Disk usage:      %s\n", formatBytes(diskBytes))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
