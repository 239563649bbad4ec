// Package dock runs an external AutoDock Vina style docking binary and
// parses its pose output.
package dock

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bnema/wns-cli/internal/adapters/pdbqt"
	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
	"go.uber.org/zap"
)

// ExecEngine shells out to a docking binary once per seed. The ligand input
// file is fixed for the whole run; the receptor changes between iterations as
// masking accumulates, so it is rewritten before every invocation.
type ExecEngine struct {
	binary     string
	ligandPath string
	workDir    string
	log        *zap.Logger
}

func NewExecEngine(binary, ligandPath, workDir string, log *zap.Logger) *ExecEngine {
	return &ExecEngine{binary: binary, ligandPath: ligandPath, workDir: workDir, log: log}
}

func (e *ExecEngine) Dock(ctx context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
	receptorPath := filepath.Join(e.workDir, fmt.Sprintf("receptor-seed%d.pdbqt", req.Seed))
	outPath := filepath.Join(e.workDir, fmt.Sprintf("poses-seed%d.pdbqt", req.Seed))

	if err := writeReceptorFile(receptorPath, req.Receptor); err != nil {
		return domain.LigandPose{}, err
	}

	args := []string{
		"--receptor", receptorPath,
		"--ligand", e.ligandPath,
		"--out", outPath,
		"--seed", fmt.Sprintf("%d", req.Seed),
		"--exhaustiveness", fmt.Sprintf("%d", req.Exhaustiveness),
		"--center_x", fmt.Sprintf("%.3f", req.Grid.Center.X),
		"--center_y", fmt.Sprintf("%.3f", req.Grid.Center.Y),
		"--center_z", fmt.Sprintf("%.3f", req.Grid.Center.Z),
		"--size_x", fmt.Sprintf("%.3f", req.Grid.Size.X),
		"--size_y", fmt.Sprintf("%.3f", req.Grid.Size.Y),
		"--size_z", fmt.Sprintf("%.3f", req.Grid.Size.Z),
	}
	if req.Grid.Spacing > 0 {
		args = append(args, "--spacing", fmt.Sprintf("%.3f", req.Grid.Spacing))
	}

	e.log.Debug("invoking docking engine",
		zap.Int64("seed", req.Seed),
		zap.Int("exhaustiveness", req.Exhaustiveness),
	)

	var stderr bytes.Buffer
	child := exec.CommandContext(ctx, e.binary, args...)
	child.Dir = e.workDir
	child.Stderr = &stderr

	if err := child.Run(); err != nil {
		if ctx.Err() != nil {
			return domain.LigandPose{}, fmt.Errorf("run docking engine: %w", ctx.Err())
		}
		e.log.Warn("docking engine failed",
			zap.Int64("seed", req.Seed),
			zap.String("stderr", stderr.String()),
			zap.Error(err),
		)
		return domain.LigandPose{}, fmt.Errorf("run docking engine (seed %d): %w: %v", req.Seed, domain.ErrToolTransient, err)
	}

	pose, err := readBestPose(outPath)
	if err != nil {
		return domain.LigandPose{}, err
	}
	pose.Seed = req.Seed
	return pose, nil
}

func writeReceptorFile(path string, receptor domain.Receptor) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create receptor file: %w", err)
	}
	defer f.Close()

	if err := pdbqt.WriteReceptor(f, receptor); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close receptor file: %w", err)
	}
	return nil
}

// readBestPose takes the first model of the output file. Docking engines
// order models best score first.
func readBestPose(path string) (domain.LigandPose, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.LigandPose{}, fmt.Errorf("open docking output: %w: %v", domain.ErrToolTransient, err)
	}
	defer f.Close()

	poses, err := pdbqt.ReadDockedPoses(f)
	if err != nil {
		return domain.LigandPose{}, fmt.Errorf("parse docking output: %w: %v", domain.ErrToolTransient, err)
	}
	if len(poses) == 0 {
		return domain.LigandPose{}, fmt.Errorf("parse docking output: %w: no poses produced", domain.ErrToolTransient)
	}
	return poses[0], nil
}
