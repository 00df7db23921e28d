package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/storage"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var serverURL, output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show collection, index and storage status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			if serverURL != "" {
				return statusViaHTTP(cmd.OutOrStdout(), serverURL)
			}
			cfg, _, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			components, err := initializeComponents(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer components.Close()

			stats, err := components.svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			disk, err := storage.DiskUsageBytes(cfg.Storage.Backend, cfg.Storage.DatabasePath)
			if err != nil {
				logger.Debug("disk usage unavailable", zap.Error(err))
			}
			return WriteStats(cmd.OutOrStdout(), stats, disk, format)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "server URL (empty = open the store directly)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

// statusViaHTTP prints the server's /status response as indented JSON.
func statusViaHTTP(w io.Writer, serverURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + "/status")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status failed (%d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(w)
	return err
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	index := &cobra.Command{
		Use:   "index",
		Short: "Manage the collection index",
	}
	var (
		metric, indexType string
		nlist             int
	)
	build := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the index and wait until it is ready",
		Long: `Rebuild the collection index. Flags left unset take their value from the config.

Examples:
  vecsearch index build
  vecsearch index build --metric L2 --type FLAT
  vecsearch index build --type IVF_FLAT --nlist 256`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			components, err := initializeComponents(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer components.Close()

			params := indexParams(cfg)
			if metric != "" {
				params.Metric = models.Metric(metric)
			}
			if indexType != "" {
				params.IndexType = models.IndexType(indexType)
			}
			if nlist > 0 {
				params.NList = nlist
			}
			started := time.Now()
			task, err := components.svc.BuildIndex(cmd.Context(), params, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index ready: %s %s", task.Params.IndexType, task.Params.Metric)
			if task.Params.IndexType == models.IndexIVFFlat {
				fmt.Fprintf(cmd.OutOrStdout(), " (nlist=%d)", task.Params.NList)
			}
			fmt.Fprintf(cmd.OutOrStdout(), " in %s\n", time.Since(started).Round(time.Millisecond))
			return nil
		},
	}
	build.Flags().StringVar(&metric, "metric", "", "COSINE, IP or L2")
	build.Flags().StringVar(&indexType, "type", "", "FLAT or IVF_FLAT")
	build.Flags().IntVar(&nlist, "nlist", 0, "IVF partitions")
	index.AddCommand(build)
	return index
}

func newDropCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the configured collection and all its sentences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop without --yes")
			}
			cfg, _, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			components, err := initializeComponents(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer components.Close()
			if err := components.svc.Drop(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collection dropped: %s\n", cfg.Collection.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}
