package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/agent"
)

func newAgentCmd(opts *rootOptions) *cobra.Command {
	var (
		local     bool
		serverURL string
		output    string
		k         int
	)
	cmd := &cobra.Command{
		Use:   "agent [instruction]",
		Short: "Let the LLM decide whether to add, search, or both",
		Long: `Send a natural-language instruction to the configured chat model, which classifies
it as an add, a search or both. The resulting calls go to the running server, or straight to the
store with --local. Without an instruction a built-in example is used.

The API key is read from the environment variable named by agent.api_key_env (GROQ_API_KEY by default).

Examples:
  vecsearch agent "Store that the Eiffel Tower is in Paris, then find facts about Paris"
  vecsearch agent --local "what do we know about vector databases?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, _, logger, err := opts.load()
			if err != nil {
				return err
			}
			apiKey := cfg.Agent.APIKey()
			if apiKey == "" {
				return fmt.Errorf("%w: set %s", agent.ErrNoAPIKey, cfg.Agent.APIKeyEnv)
			}
			defer logger.Sync()

			target := serverURL
			if target == "" && !local {
				target = cfg.Agent.ServiceURL
			}
			store, closeFn, err := storeFor(cmd.Context(), cfg, logger, target, true)
			if err != nil {
				return err
			}
			defer closeFn()

			llm := agent.NewChatClient(cfg.Agent.BaseURL, apiKey, cfg.Agent.Model, cfg.Agent.Temperature, cfg.Agent.Timeout)
			a := agent.New(llm, store, agent.WithLogger(logger), agent.WithK(k))
			logger.Debug("agent run", zap.String("model", cfg.Agent.Model), zap.Bool("local", target == ""))
			report, err := a.Run(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return WriteReport(cmd.OutOrStdout(), report, format)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "open the store directly instead of calling the server")
	cmd.Flags().StringVar(&serverURL, "server", "", "server URL (default agent.service_url)")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "matches per search (0 = configured default)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}
