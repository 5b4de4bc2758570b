// Package purgecmder provides the purge command for deleting indexed records.
package purgecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/api"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
)

type purgeCommander struct {
	apiTarget string
	yes       bool
}

const purgeLongDesc string = `Delete indexed records via the Stacks API.

Without arguments, every record in the index is deleted. With a document
name, only that document's records are deleted. The source documents in
the blob store are not touched; re-run stacks ingest to re-index.

Examples:
  stacks purge --yes
  stacks purge handbook.docx
  stacks purge handbook.docx --api-target http://localhost:8080`

const purgeShortDesc string = "Delete indexed records"

func NewPurgeCmd() *cobra.Command {
	cmder := &purgeCommander{}

	cmd := &cobra.Command{
		Use:   "purge [document]",
		Short: purgeShortDesc,
		Long:  purgeLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			document := ""
			if len(args) == 1 {
				document = args[0]
			}
			return cmder.run(cmd.Context(), document)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Stacks API server URL")
	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Skip the confirmation prompt when purging all records")

	return cmd
}

func (c *purgeCommander) run(ctx context.Context, document string) error {
	if document == "" && !c.yes {
		fmt.Print("Delete ALL indexed records? [y/N]: ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted, err := deleteRecords(ctx, c.apiTarget, document)
	if err != nil {
		return err
	}

	if document != "" {
		fmt.Printf("  %s Deleted %d record(s) for %s\n",
			cliui.SuccessMark, deleted, cliui.KeyStyle.Render(document))
	} else {
		fmt.Printf("  %s Deleted %d record(s)\n", cliui.SuccessMark, deleted)
	}

	return nil
}

func deleteRecords(ctx context.Context, apiTarget, document string) (int, error) {
	deleteURL, err := url.Parse(apiTarget)
	if err != nil {
		return 0, fmt.Errorf("invalid API target URL: %w", err)
	}
	deleteURL.Path = "/v1/records"
	if document != "" {
		q := deleteURL.Query()
		q.Set("file_name", document)
		deleteURL.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("creating delete request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to Stacks API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("delete request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.DeleteResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return 0, fmt.Errorf("failed to parse delete response: %w", err)
	}

	return output.RecordsDeleted, nil
}
