package ports

import (
	"context"

	"github.com/bnema/wns-cli/internal/domain"
)

// TemperaturePoint is one node of a simulation temperature schedule.
type TemperaturePoint struct {
	TimePS float64
	Kelvin float64
}

// MDRequest describes one simulation invocation. Restrained selects backbone
// positional restraints; ResumeFrom names a native engine checkpoint to
// continue from when the engine (and configuration) supports it.
type MDRequest struct {
	Label      string
	Structure  domain.Structure
	Restrained bool
	Schedule   []TemperaturePoint
	DurationPS float64
	ResumeFrom string
}

// MDResult is what a finished simulation leaves behind. LigandEnergies maps
// ligand residue identifiers to their last-known interaction energy; engines
// that do not report per-ligand energies return an empty map.
type MDResult struct {
	FinalStructure domain.Structure
	StructurePath  string
	TrajectoryPath string
	EnergyLogPath  string
	CheckpointPath string
	LigandEnergies map[int]float64
}

// MDEngine runs one simulation stage as an opaque external concern; it may
// parallelize internally but the caller treats each Run as a single blocking
// invocation.
type MDEngine interface {
	Run(ctx context.Context, req MDRequest) (MDResult, error)
}
