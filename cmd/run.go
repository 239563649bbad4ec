package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/wns-cli/internal/application"
	"github.com/bnema/wns-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full workflow: wrap, shake, and select survivors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := app.buildParams(flags)
			if err != nil {
				return err
			}
			pipeline, err := app.buildPipeline(params)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(cmd.Context())
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

func writeRunResult(cmd *cobra.Command, result application.RunResult) error {
	out := cmd.OutOrStdout()

	if result.WrapperState == domain.WrapperExhausted {
		fmt.Fprintln(out, "note: wrapping stopped on its iteration budget before full coverage")
	}
	fmt.Fprintf(out, "cycles run: %d\n", result.Cycles)
	fmt.Fprintf(out, "survivors:  %d\n", len(result.Survivors.Ligands))
	for _, report := range result.Reports {
		if report.Survived {
			fmt.Fprintf(out, "  ligand %d: %d hydrogen bond(s)\n", report.ResidueID, report.HBonds)
		}
	}
	return nil
}
