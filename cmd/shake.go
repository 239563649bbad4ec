package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newShakeCmd(app *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "shake",
		Short: "Shake a wrapped monolayer and select the surviving poses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := app.buildParams(flags)
			if err != nil {
				return err
			}
			pipeline, err := app.buildPipeline(params)
			if err != nil {
				return err
			}

			result, err := pipeline.Shake(cmd.Context())
			if err != nil {
				if errors.Is(err, domain.ErrAllLigandsRemoved) {
					fmt.Fprintln(cmd.OutOrStdout(), "no ligand survived shaking; the run is complete with an empty result")
				}
				return err
			}

			return writeRunResult(cmd, result)
		},
	}

	flags.register(cmd, true)

	return cmd
}
