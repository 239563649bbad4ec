package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(app *app) *cobra.Command {
	var flags runFlags
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard a run's checkpoint records so it starts over",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("reset discards all progress of run %s; pass --force to confirm", flags.runID)
			}

			store, err := app.stateStore(flags.runID, flags.workDir)
			if err != nil {
				return err
			}
			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s reset\n", flags.runID)
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&force, "force", false, "Confirm discarding all checkpoint records")

	return cmd
}
