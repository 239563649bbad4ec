package domain

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type PoseID string

type PoseAtom struct {
	Name     string
	Element  string
	Position r3.Vec
}

// LigandPose is one docked placement of the ligand. It is created by a
// docking invocation and immutable once scored; later stages reference it
// but never change it.
type LigandPose struct {
	ID        PoseID
	ResidueID int
	Seed      int64
	Energy    float64
	Atoms     []PoseAtom
}

// Centroid returns the unweighted geometric center of the pose.
func (p LigandPose) Centroid() r3.Vec {
	if len(p.Atoms) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, atom := range p.Atoms {
		sum = r3.Add(sum, atom.Position)
	}
	return r3.Scale(1/float64(len(p.Atoms)), sum)
}

// MolecularWeight sums standard atomic masses over the pose atoms. Unknown
// elements count as carbon.
func (p LigandPose) MolecularWeight() float64 {
	weight := 0.0
	for _, atom := range p.Atoms {
		mass, ok := atomicMass[atom.Element]
		if !ok {
			mass = atomicMass["C"]
		}
		weight += mass
	}
	return weight
}

// MinDistanceTo returns the smallest atom-atom distance between two poses,
// or +Inf when either pose has no atoms.
func (p LigandPose) MinDistanceTo(other LigandPose) float64 {
	min := math.Inf(1)
	for _, a := range p.Atoms {
		for _, b := range other.Atoms {
			if d := r3.Norm(r3.Sub(a.Position, b.Position)); d < min {
				min = d
			}
		}
	}
	return min
}

var atomicMass = map[string]float64{
	"H":  1.008,
	"C":  12.011,
	"N":  14.007,
	"O":  15.999,
	"F":  18.998,
	"P":  30.974,
	"S":  32.06,
	"Cl": 35.45,
	"Br": 79.904,
	"I":  126.904,
}
