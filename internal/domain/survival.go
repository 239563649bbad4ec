package domain

type RemovalReason string

const (
	RemovalNone         RemovalReason = "none"
	RemovalDisplacement RemovalReason = "displacement-exceeded"
	RemovalEnergyWeak   RemovalReason = "energy-weak"
)

// SurvivalRecord is the per-ligand outcome of one washing pass: how far the
// ligand's centroid drifted since the cycle started, its last-known
// interaction energy, and whether (and why) it was removed. Removal is final
// within a run.
type SurvivalRecord struct {
	ResidueID    int
	Cycle        int
	Displacement float64
	Energy       float64
	Removed      bool
	Reason       RemovalReason
}
