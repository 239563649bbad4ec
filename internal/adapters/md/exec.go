// Package md drives a GROMACS style simulation engine. Each stage is a
// preprocess step that compiles a run input from a generated parameter file,
// followed by the actual simulation and an optional energy extraction pass.
package md

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bnema/wns-cli/internal/adapters/pdbqt"
	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
	"go.uber.org/zap"
)

const timeStepPS = 0.002

// GromacsEngine shells out to a gmx-style binary. The topology file is
// maintained by the caller between washing cycles; the engine only consumes
// it.
type GromacsEngine struct {
	binary       string
	topologyPath string
	workDir      string
	log          *zap.Logger
}

func NewGromacsEngine(binary, topologyPath, workDir string, log *zap.Logger) *GromacsEngine {
	return &GromacsEngine{binary: binary, topologyPath: topologyPath, workDir: workDir, log: log}
}

func (e *GromacsEngine) Run(ctx context.Context, req ports.MDRequest) (ports.MDResult, error) {
	structurePath := e.path(req.Label + ".pdb")
	mdpPath := e.path(req.Label + ".mdp")
	tprPath := e.path(req.Label + ".tpr")
	finalPath := e.path(req.Label + "-final.pdb")

	result := ports.MDResult{
		StructurePath:  finalPath,
		TrajectoryPath: e.path(req.Label + ".xtc"),
		EnergyLogPath:  e.path(req.Label + "-energy.xvg"),
		CheckpointPath: e.path(req.Label + ".cpt"),
		LigandEnergies: map[int]float64{},
	}

	if err := writeStructureFile(structurePath, req.Structure); err != nil {
		return ports.MDResult{}, err
	}
	if err := os.WriteFile(mdpPath, []byte(renderMDP(req)), 0o600); err != nil {
		return ports.MDResult{}, fmt.Errorf("write simulation parameters: %w", err)
	}

	gromppArgs := []string{"grompp", "-f", mdpPath, "-c", structurePath, "-p", e.topologyPath, "-o", tprPath, "-maxwarn", "1"}
	if req.Restrained {
		gromppArgs = append(gromppArgs, "-r", structurePath)
	}
	if err := e.invoke(ctx, req.Label, gromppArgs); err != nil {
		return ports.MDResult{}, err
	}

	mdrunArgs := []string{"mdrun", "-s", tprPath,
		"-o", result.TrajectoryPath,
		"-e", e.path(req.Label + ".edr"),
		"-cpo", result.CheckpointPath,
		"-c", finalPath,
	}
	if req.ResumeFrom != "" {
		mdrunArgs = append(mdrunArgs, "-cpi", req.ResumeFrom)
	}
	if err := e.invoke(ctx, req.Label, mdrunArgs); err != nil {
		return ports.MDResult{}, err
	}

	final, err := readStructureFile(finalPath)
	if err != nil {
		return ports.MDResult{}, err
	}
	result.FinalStructure = final

	// Per-ligand interaction energies are a best-effort extra; stages that
	// do not feed the washing filter work fine without them.
	energyArgs := []string{"energy", "-f", e.path(req.Label + ".edr"), "-o", result.EnergyLogPath}
	if err := e.invoke(ctx, req.Label, energyArgs); err != nil {
		if ctx.Err() != nil {
			return ports.MDResult{}, err
		}
		e.log.Warn("energy extraction failed", zap.String("stage", req.Label), zap.Error(err))
		return result, nil
	}
	energies, err := parseLigandEnergies(result.EnergyLogPath, final.Ligands)
	if err != nil {
		e.log.Warn("energy log unreadable", zap.String("stage", req.Label), zap.Error(err))
		return result, nil
	}
	result.LigandEnergies = energies

	return result, nil
}

func (e *GromacsEngine) invoke(ctx context.Context, label string, args []string) error {
	e.log.Debug("invoking simulation engine", zap.String("stage", label), zap.Strings("args", args))

	var stderr bytes.Buffer
	child := exec.CommandContext(ctx, e.binary, args...)
	child.Dir = e.workDir
	child.Stderr = &stderr

	if err := child.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("run simulation engine: %w", ctx.Err())
		}
		e.log.Warn("simulation engine failed",
			zap.String("stage", label),
			zap.String("subcommand", args[0]),
			zap.String("stderr", stderr.String()),
			zap.Error(err),
		)
		return fmt.Errorf("run simulation engine (%s %s): %w: %v", label, args[0], domain.ErrToolTransient, err)
	}
	return nil
}

func (e *GromacsEngine) path(name string) string {
	return filepath.Join(e.workDir, name)
}

// renderMDP generates the run parameter file. The temperature schedule maps
// onto simulated annealing points; a single point becomes a constant
// reference temperature.
func renderMDP(req ports.MDRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "integrator = md\n")
	fmt.Fprintf(&b, "dt = %.3f\n", timeStepPS)
	fmt.Fprintf(&b, "nsteps = %d\n", int64(req.DurationPS/timeStepPS))
	fmt.Fprintf(&b, "tcoupl = v-rescale\n")
	fmt.Fprintf(&b, "tc-grps = System\n")
	fmt.Fprintf(&b, "tau-t = 0.1\n")

	refT := 300.0
	if len(req.Schedule) > 0 {
		refT = req.Schedule[0].Kelvin
	}
	fmt.Fprintf(&b, "ref-t = %.1f\n", refT)

	if req.Restrained {
		fmt.Fprintf(&b, "define = -DPOSRES\n")
	}

	if len(req.Schedule) > 1 {
		times := make([]string, len(req.Schedule))
		temps := make([]string, len(req.Schedule))
		for i, point := range req.Schedule {
			times[i] = fmt.Sprintf("%.1f", point.TimePS)
			temps[i] = fmt.Sprintf("%.1f", point.Kelvin)
		}
		fmt.Fprintf(&b, "annealing = single\n")
		fmt.Fprintf(&b, "annealing-npoints = %d\n", len(req.Schedule))
		fmt.Fprintf(&b, "annealing-time = %s\n", strings.Join(times, " "))
		fmt.Fprintf(&b, "annealing-temp = %s\n", strings.Join(temps, " "))
	}

	return b.String()
}

// parseLigandEnergies reads the last data row of an xvg energy log. Columns
// after the time column are assigned to ligands in structure order.
func parseLigandEnergies(path string, ligands []domain.LigandPose) (map[int]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open energy log: %w", err)
	}
	defer f.Close()

	var last []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@") {
			continue
		}
		last = strings.Fields(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan energy log: %w", err)
	}
	if len(last) < 2 {
		return nil, fmt.Errorf("energy log has no data rows")
	}

	energies := make(map[int]float64, len(ligands))
	for i, pose := range ligands {
		col := i + 1
		if col >= len(last) {
			break
		}
		value, err := strconv.ParseFloat(last[col], 64)
		if err != nil {
			return nil, fmt.Errorf("parse energy column %d: %w", col, err)
		}
		energies[pose.ResidueID] = value
	}
	return energies, nil
}

func writeStructureFile(path string, structure domain.Structure) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create structure file: %w", err)
	}
	defer f.Close()

	if err := pdbqt.WriteStructure(f, structure); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close structure file: %w", err)
	}
	return nil
}

func readStructureFile(path string) (domain.Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Structure{}, fmt.Errorf("open final structure: %w: %v", domain.ErrToolTransient, err)
	}
	defer f.Close()

	return pdbqt.ReadStructure(f)
}
