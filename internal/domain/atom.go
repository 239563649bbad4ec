package domain

import "gonum.org/v1/gonum/spatial/r3"

// LennardJones holds the well depth and minimum-energy radius assigned
// to an atom for short-range repulsion.
type LennardJones struct {
	Epsilon float64
	RMin    float64
}

type Atom struct {
	Serial    int
	Name      string
	Element   string
	Residue   string
	ResidueID int
	Position  r3.Vec
	Charge    float64
	LJ        LennardJones
	Masked    bool
}

// Receptor is one snapshot of the receptor atom set with its current mask
// flags. Snapshots are value types: masking produces a new snapshot and the
// latest one is authoritative. Atoms are never deleted.
type Receptor struct {
	Atoms []Atom
}

func (r Receptor) Clone() Receptor {
	atoms := make([]Atom, len(r.Atoms))
	copy(atoms, r.Atoms)
	return Receptor{Atoms: atoms}
}

func (r Receptor) MaskedCount() int {
	count := 0
	for _, atom := range r.Atoms {
		if atom.Masked {
			count++
		}
	}
	return count
}

func (r Receptor) Coverage() Coverage {
	return Coverage{Total: len(r.Atoms), Masked: r.MaskedCount()}
}

// Coverage tracks how much of the receptor surface is already masked by
// placed ligands.
type Coverage struct {
	Total  int
	Masked int
}

// UnmaskedFraction returns the fraction of receptor atoms still available
// for docking. An empty receptor counts as fully covered.
func (c Coverage) UnmaskedFraction() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Total-c.Masked) / float64(c.Total)
}

// Converged reports whether the unmasked fraction has dropped below the
// configured threshold.
func (c Coverage) Converged(threshold float64) bool {
	return c.UnmaskedFraction() < threshold
}
