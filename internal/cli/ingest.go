package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hyperjump/vecsearch/internal/extract"
	"github.com/hyperjump/vecsearch/internal/ingest"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		output    string
		batchSize int
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <file|dir>...",
		Short: "Store every sentence of documents",
		Long: `Extract text from documents, split it into sentences and store them in batches.
Directories are walked recursively; only supported formats are read.

Supported formats: .txt .md .rst .pdf .rtf .docx .pptx .xlsx .odt .odp .ods

Examples:
  vecsearch ingest notes.md
  vecsearch ingest ~/Documents/papers`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, _, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			files, err := collectFiles(args, extract.NewExtractor())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no supported documents found")
			}

			components, err := initializeComponents(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer components.Close()

			ingestor := ingest.New(components.svc,
				ingest.WithLogger(logger),
				ingest.WithMaxTextLength(cfg.Collection.MaxTextLength),
				ingest.WithBatchSize(batchSize))

			results := make([]ingest.Result, 0, len(files))
			for _, path := range files {
				var (
					progress func(int)
					bar      *progressbar.ProgressBar
				)
				if !quiet && format == OutputText {
					sentences, err := ingestor.ReadSentences(path)
					if err != nil {
						return fmt.Errorf("read %s: %w", path, err)
					}
					if len(sentences) > 0 {
						bar = newProgressBar(len(sentences), filepath.Base(path), cmd.ErrOrStderr())
						progress = func(added int) { _ = bar.Add(added) }
					}
				}
				res, err := ingestor.IngestFile(cmd.Context(), path, progress)
				if bar != nil {
					_ = bar.Finish()
				}
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			return WriteIngestResults(cmd.OutOrStdout(), results, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	cmd.Flags().IntVar(&batchSize, "batch-size", 64, "sentences stored per batch")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

func newProgressBar(total int, name string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]"+name+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// collectFiles expands directories into the supported files under them, sorted by path
// within each directory.
func collectFiles(args []string, extractor *extract.Extractor) ([]string, error) {
	var files []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path does not exist: %w", err)
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if extractor.Supports(filepath.Ext(path)) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
