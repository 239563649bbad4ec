package cmd

import (
	"fmt"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newWrapCmd(app *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "wrap",
		Short: "Build the ligand monolayer by repeated docking and masking",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := app.buildParams(flags)
			if err != nil {
				return err
			}
			pipeline, err := app.buildPipeline(params)
			if err != nil {
				return err
			}

			result, err := pipeline.Wrap(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.WrapperState == domain.WrapperExhausted {
				fmt.Fprintln(out, "note: wrapping stopped on its iteration budget before full coverage")
			}
			fmt.Fprintf(out, "monolayer ligands: %d\n", len(result.Survivors.Ligands))
			return nil
		},
	}

	flags.register(cmd, true)

	return cmd
}
