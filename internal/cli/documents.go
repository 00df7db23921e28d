package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/agent"
	"github.com/hyperjump/vecsearch/internal/config"
	"github.com/hyperjump/vecsearch/internal/models"
)

// storeFor returns the service client for serverURL, or the local service when serverURL is
// empty. The returned close function releases local resources.
func storeFor(ctx context.Context, cfg *config.Config, logger *zap.Logger, serverURL string, ensureIndex bool) (agent.Store, func(), error) {
	if serverURL != "" {
		return agent.NewServiceClient(serverURL, cfg.Agent.Timeout), func() {}, nil
	}
	c, err := initializeComponents(ctx, cfg, logger, ensureIndex)
	if err != nil {
		return nil, nil, err
	}
	return agent.NewLocalStore(c.svc), c.Close, nil
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var serverURL, output string
	cmd := &cobra.Command{
		Use:   "add <sentence>...",
		Short: "Store sentences",
		Long: `Embed and store each argument as one sentence. All sentences are stored or none.

Examples:
  vecsearch add "Milvus is a vector database" "Go has goroutines"
  vecsearch add --server http://127.0.0.1:4000 "sent through a running server"`,
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
			store, closeFn, err := storeFor(cmd.Context(), cfg, logger, serverURL, false)
			if err != nil {
				return err
			}
			defer closeFn()
			out, err := store.Add(cmd.Context(), args)
			if err != nil {
				return err
			}
			if err := WriteInsertOutcome(cmd.OutOrStdout(), out, format); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("add failed: %s", out.Kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "server URL (empty = open the store directly)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		serverURL, output string
		k                 int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the sentences most similar to a query",
		Long: `Search the collection. The query is all arguments joined by spaces, so multi-word
queries work with or without quotes.

Examples:
  vecsearch search machine learning
  vecsearch search -k 5 --output json "machine learning"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			query := buildSearchQuery(args)
			if query == "" {
				return fmt.Errorf("%w: query is empty", models.ErrValidation)
			}
			cfg, _, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			store, closeFn, err := storeFor(cmd.Context(), cfg, logger, serverURL, true)
			if err != nil {
				return err
			}
			defer closeFn()
			started := time.Now()
			out, err := store.Search(cmd.Context(), query, k)
			if err != nil {
				return err
			}
			if err := WriteSearchResults(cmd.OutOrStdout(), out, format); err != nil {
				return err
			}
			if !out.OK() {
				return fmt.Errorf("search failed: %s", out.Kind)
			}
			if format == OutputText {
				fmt.Fprintf(cmd.OutOrStdout(), "(%dms)\n", time.Since(started).Milliseconds())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "server URL (empty = open the store directly)")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of matches (0 = configured default)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
