package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/wns-cli/internal/ports"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

// runFlags are the per-invocation inputs shared by run, wrap, and shake.
type runFlags struct {
	runID    string
	workDir  string
	receptor string
	ligand   string
	topology string
	center   string
	size     string
	spacing  float64
}

func (f *runFlags) register(cmd *cobra.Command, needInputs bool) {
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run identifier")
	cmd.Flags().StringVar(&f.workDir, "workdir", "", "Run working directory (default runs/<run-id>)")
	_ = cmd.MarkFlagRequired("run-id")

	if !needInputs {
		return
	}
	cmd.Flags().StringVar(&f.receptor, "receptor", "", "Receptor structure file")
	cmd.Flags().StringVar(&f.ligand, "ligand", "", "Prepared ligand file")
	cmd.Flags().StringVar(&f.topology, "topology", "", "Simulation topology file")
	cmd.Flags().StringVar(&f.center, "center", "0,0,0", "Docking box center as x,y,z")
	cmd.Flags().StringVar(&f.size, "size", "30,30,30", "Docking box size as x,y,z")
	cmd.Flags().Float64Var(&f.spacing, "spacing", 0, "Docking grid spacing")
	_ = cmd.MarkFlagRequired("receptor")
	_ = cmd.MarkFlagRequired("ligand")
}

func (f *runFlags) grid() (ports.GridSpec, error) {
	center, err := parseVec(f.center)
	if err != nil {
		return ports.GridSpec{}, fmt.Errorf("parse --center: %w", err)
	}
	size, err := parseVec(f.size)
	if err != nil {
		return ports.GridSpec{}, fmt.Errorf("parse --size: %w", err)
	}
	return ports.GridSpec{Center: center, Size: size, Spacing: f.spacing}, nil
}

func parseVec(value string) (r3.Vec, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("expected x,y,z, got %q", value)
	}
	coords := make([]float64, 3)
	for i, part := range parts {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("component %d of %q: %w", i+1, value, err)
		}
		coords[i] = parsed
	}
	return r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
