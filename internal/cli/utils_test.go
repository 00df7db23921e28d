package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/vecsearch/internal/agent"
	"github.com/hyperjump/vecsearch/internal/ingest"
	"github.com/hyperjump/vecsearch/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"compact", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	out := models.SearchOutcome{
		Query:   "test query",
		Matches: []models.Match{{Text: "first hit", Score: 0.9}, {Text: "second hit", Score: 0.5}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, out, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded struct {
		Query   string         `json:"query"`
		Matches []models.Match `json:"best_matches"`
		Error   string         `json:"error"`
	}
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "test query" || len(decoded.Matches) != 2 || decoded.Matches[0].Text != "first hit" {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Error != "" {
		t.Errorf("unexpected error field %q", decoded.Error)
	}
}

func TestWriteSearchResults_JSONFailure(t *testing.T) {
	out := models.SearchOutcome{Query: "q", Kind: models.KindIndexNotReady, Err: models.ErrIndexNotReady}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, out, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["kind"] != "index_not_ready" || decoded["error"] != "index not ready" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	out := models.SearchOutcome{
		Query:   "foo",
		Matches: []models.Match{{Text: "Short content", Score: 0.5}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, out, OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	got := buf.String()
	for _, sub := range []string{"Found 1 matches", `"foo"`, "Rank: 1", "Score: 0.5000", "Short content"} {
		if !strings.Contains(got, sub) {
			t.Errorf("text output missing %q:\n%s", sub, got)
		}
	}
}

func TestWriteSearchResults_textFailure(t *testing.T) {
	out := models.SearchOutcome{Query: "foo", Kind: models.KindTimeout, Err: errors.New("deadline")}
	var buf bytes.Buffer
	_ = WriteSearchResults(&buf, out, OutputText)
	if !strings.Contains(buf.String(), "Search failed [timeout]") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteInsertOutcome(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteInsertOutcome(&buf, models.InsertOutcome{Success: true, Count: 2, Message: "2 sentences inserted"}, OutputText)
	if strings.TrimSpace(buf.String()) != "2 sentences inserted" {
		t.Errorf("success text = %q", buf.String())
	}

	buf.Reset()
	_ = WriteInsertOutcome(&buf, models.InsertOutcome{Kind: models.KindPayloadTooLarge, Message: "too long"}, OutputText)
	if !strings.Contains(buf.String(), "[payload_too_large]") {
		t.Errorf("failure text = %q", buf.String())
	}

	buf.Reset()
	_ = WriteInsertOutcome(&buf, models.InsertOutcome{Success: true, Count: 1, Message: "1 sentences inserted"}, OutputJSON)
	var decoded models.InsertOutcome
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || !decoded.Success || decoded.Count != 1 {
		t.Errorf("json = %s (%v)", buf.String(), err)
	}
}

func TestWriteIngestResults(t *testing.T) {
	results := []ingest.Result{
		{Path: "/a.txt", Sentences: 3, Added: 3},
		{Path: "/b.md", Sentences: 2, Added: 1, Skipped: 1},
	}
	var buf bytes.Buffer
	_ = WriteIngestResults(&buf, results, OutputText)
	if !strings.Contains(buf.String(), "Ingested 2 file(s), 4 sentences added") {
		t.Errorf("text = %q", buf.String())
	}
}

func TestWriteReport(t *testing.T) {
	report := &agent.Report{
		Plan:   &agent.Plan{Action: agent.ActionBoth, Sentences: []string{"x"}, Query: "y"},
		Add:    &models.InsertOutcome{Success: true, Count: 1, Message: "1 sentences inserted"},
		Search: &models.SearchOutcome{Query: "y", Matches: []models.Match{{Text: "x", Score: 1}}},
	}
	var buf bytes.Buffer
	_ = WriteReport(&buf, report, OutputText)
	for _, sub := range []string{"Action: both", "1 sentences inserted", "Found 1 matches"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("report text missing %q:\n%s", sub, buf.String())
		}
	}

	buf.Reset()
	_ = WriteReport(&buf, report, OutputJSON)
	var decoded struct {
		Search struct {
			Matches []models.Match `json:"best_matches"`
		} `json:"search"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded.Search.Matches) != 1 {
		t.Errorf("report json = %s (%v)", buf.String(), err)
	}
}

func TestWriteStats(t *testing.T) {
	stats := models.CollectionStats{
		Schema:     models.CollectionSchema{Name: "new_collection", Dimension: 384, MaxTextLength: 512},
		Records:    7,
		IndexState: models.IndexReady,
		Index:      &models.IndexParams{Metric: models.MetricCosine, IndexType: models.IndexIVFFlat, NList: 128},
		Partitions: 128,
	}
	var buf bytes.Buffer
	_ = WriteStats(&buf, stats, 2048, OutputText)
	for _, sub := range []string{"new_collection", "Records:         7", "IVF_FLAT COSINE (nlist=128)", "Partitions:      128 trained", "2.0 KiB"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("stats text missing %q:\n%s", sub, buf.String())
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1024:        "1.0 KiB",
		1536:        "1.5 KiB",
		1024 * 1024: "1.0 MiB",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestBuildSearchQuery(t *testing.T) {
	if got := buildSearchQuery([]string{" machine", "learning "}); got != "machine learning" {
		t.Errorf("got %q", got)
	}
	if got := buildSearchQuery(nil); got != "" {
		t.Errorf("got %q", got)
	}
}
