// Package cli implements the vecsearch command line.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/config"
	"github.com/hyperjump/vecsearch/pkg/utils"
)

// DefaultConfigPath is where the config is read from when --config is not given.
const DefaultConfigPath = "/usr/local/etc/vecsearch/config.yaml"

type rootOptions struct {
	configPath string
	debug      bool
}

// NewRootCommand builds the vecsearch command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "vecsearch",
		Short: "Semantic sentence search over a local vector store",
		Long: `vecsearch embeds sentences, stores them in a vector collection and answers
top-k similarity queries over HTTP, from the command line or through an LLM agent.

Example usage:
  vecsearch server                              # Start the HTTP API
  vecsearch add "Go has goroutines"             # Store a sentence
  vecsearch search "concurrency in Go"          # Find similar sentences
  vecsearch ingest notes.md report.pdf          # Store every sentence of a file
  vecsearch agent "remember that Paris is the capital of France"`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", DefaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServerCmd(opts),
		newAddCmd(opts),
		newSearchCmd(opts),
		newIngestCmd(opts),
		newAgentCmd(opts),
		newStatusCmd(opts),
		newIndexCmd(opts),
		newDropCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(version),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute(version string) {
	if err := NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}

// load reads the config and creates the logger.
func (o *rootOptions) load() (*config.Config, string, *zap.Logger, error) {
	cfg, path, err := loadConfig(o.configPath)
	if err != nil {
		return nil, "", nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug || o.debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, path, logger, nil
}

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory is preferred, and built-in defaults are used when neither file exists. Returns the
// path actually loaded, empty for built-in defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path == DefaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vecsearch version %s\n", version)
		},
	}
}
