package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	statusadapter "github.com/bnema/wns-cli/internal/adapters/render/status"
	"github.com/bnema/wns-cli/internal/application"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var flags runFlags
	var asJSON bool
	var staleAfter time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a run's progress from its checkpoint records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.stateStore(flags.runID, flags.workDir)
			if err != nil {
				return err
			}

			status, err := application.NewStatusQuery(store, flags.runID).RunStatus(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{
				Now:        app.now(),
				StaleAfter: staleAfter,
			})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output status as JSON")
	cmd.Flags().DurationVar(&staleAfter, "stale-after", time.Hour, "Flag the run as stale when no checkpoint landed within this window")

	return cmd
}
