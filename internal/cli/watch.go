package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

const defaultServerURL = "http://127.0.0.1:4000"

func newWatchCmd(_ *rootOptions) *cobra.Command {
	var serverURL string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Manage the inbox directories of a running server",
	}
	watch.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "server URL")
	client := func() *http.Client { return &http.Client{Timeout: 30 * time.Second} }

	watch.AddCommand(&cobra.Command{
		Use:   "add <path>",
		Short: "Add directory to watch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
			resp, err := client().Post(serverURL+"/watch/directories", "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("add failed (%d): %s", resp.StatusCode, bytes.TrimSpace(b))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", path)
			return nil
		},
	}, &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove directory from watch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodDelete,
				serverURL+"/watch/directories?path="+url.QueryEscape(path), nil)
			if err != nil {
				return err
			}
			resp, err := client().Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("remove failed (%d): %s", resp.StatusCode, bytes.TrimSpace(b))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", path)
			return nil
		},
	}, &cobra.Command{
		Use:   "list",
		Short: "List watched directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := client().Get(serverURL + "/watch/directories")
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("list failed (%d): %s", resp.StatusCode, bytes.TrimSpace(b))
			}
			var out struct {
				Directories []string `json:"directories"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("parse failed: %w", err)
			}
			for _, d := range out.Directories {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	})
	return watch
}
