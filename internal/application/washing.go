package application

import (
	"github.com/bnema/wns-cli/internal/domain"
	"gonum.org/v1/gonum/spatial/r3"
)

// CycleReference captures where each ligand sat, and how strongly it bound,
// when an annealing cycle started. Washing measures the cycle's outcome
// against it.
type CycleReference struct {
	Centroids map[int]r3.Vec
	Energies  map[int]float64
}

// WashingFilter decides, after each annealing cycle, which ligands are still
// bound. A ligand is removed when its centroid drifted strictly farther than
// the displacement cutoff since the cycle started, or when its interaction
// energy weakened past the margin. Ligands with no recorded energy are judged
// on displacement alone.
type WashingFilter struct {
	displacementCutoff float64
	energyMargin       float64
}

func NewWashingFilter(displacementCutoff, energyMargin float64) *WashingFilter {
	return &WashingFilter{displacementCutoff: displacementCutoff, energyMargin: energyMargin}
}

// Begin snapshots the cycle-start reference for every ligand of the
// structure.
func (f *WashingFilter) Begin(structure domain.Structure, energies map[int]float64) CycleReference {
	ref := CycleReference{
		Centroids: make(map[int]r3.Vec, len(structure.Ligands)),
		Energies:  make(map[int]float64, len(structure.Ligands)),
	}
	for _, pose := range structure.Ligands {
		ref.Centroids[pose.ResidueID] = pose.Centroid()
		if energy, ok := energies[pose.ResidueID]; ok {
			ref.Energies[pose.ResidueID] = energy
		}
	}
	return ref
}

// Wash evaluates the post-cycle structure against the cycle-start reference
// and returns one record per ligand plus the set of removed residues.
// Removal is final: callers excise removed ligands before the next cycle and
// never reconsider them.
func (f *WashingFilter) Wash(cycle int, ref CycleReference, after domain.Structure, energies map[int]float64) ([]domain.SurvivalRecord, map[int]bool) {
	records := make([]domain.SurvivalRecord, 0, len(after.Ligands))
	removed := make(map[int]bool)

	for _, pose := range after.Ligands {
		record := domain.SurvivalRecord{
			ResidueID: pose.ResidueID,
			Cycle:     cycle,
			Reason:    domain.RemovalNone,
		}

		if start, ok := ref.Centroids[pose.ResidueID]; ok {
			record.Displacement = r3.Norm(r3.Sub(pose.Centroid(), start))
		}

		energy, hasEnergy := energies[pose.ResidueID]
		if hasEnergy {
			record.Energy = energy
		}

		switch {
		case record.Displacement > f.displacementCutoff:
			record.Removed = true
			record.Reason = domain.RemovalDisplacement
		case hasEnergy && f.energyWeakened(ref, pose.ResidueID, energy):
			record.Removed = true
			record.Reason = domain.RemovalEnergyWeak
		}

		if record.Removed {
			removed[pose.ResidueID] = true
		}
		records = append(records, record)
	}

	return records, removed
}

// energyWeakened compares against the cycle-start energy when one exists.
// Energies are interaction energies, so weakening means moving up.
func (f *WashingFilter) energyWeakened(ref CycleReference, residueID int, energy float64) bool {
	start, ok := ref.Energies[residueID]
	if !ok {
		return false
	}
	return energy > start+f.energyMargin
}
