package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wns",
		Short:         "Wrap 'n' Shake: blind docking by receptor wrapping and MD shaking",
		Long:          "wns wraps a receptor in a ligand monolayer through repeated docking and masking, shakes weak binders off with annealing simulations and washing, and keeps the poses still hydrogen-bonded after the final run.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	_ = app.cfg.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// The flag value is only known after parsing, so the logger picks its
	// level here rather than in wireApp.
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		log, err := newLogger(app.cfg.GetBool("verbose"))
		if err != nil {
			return fmt.Errorf("wire logger: %w", err)
		}
		app.log = log
		return nil
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newWrapCmd(app),
		newShakeCmd(app),
		newStatusCmd(app),
		newResetCmd(app),
	)

	return rootCmd
}
