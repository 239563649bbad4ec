package domain

import "gonum.org/v1/gonum/spatial/r3"

const (
	// InertAtomType marks a masked receptor atom. Masked atoms keep their
	// coordinates but no longer compete for ligand binding.
	InertAtomType = "X"

	maskedEpsilon = 1e-4
	maskedRMin    = 3.6
)

// MaskReceptor returns a new receptor snapshot in which every atom lying
// strictly closer than radius to any atom of pose is marked inert: its
// element becomes InertAtomType, its charge is zeroed and it is assigned a
// fixed weak Lennard-Jones well so it exerts only short-range repulsion.
// Masking is monotone: atoms already masked stay masked. Distances are plain
// Euclidean, no periodic wraparound. The pose is not modified. The second
// return value is the number of atoms newly masked by this call.
func MaskReceptor(receptor Receptor, pose LigandPose, radius float64) (Receptor, int) {
	masked := receptor.Clone()
	newly := 0
	for i := range masked.Atoms {
		if masked.Atoms[i].Masked {
			continue
		}
		if !withinRadius(masked.Atoms[i].Position, pose, radius) {
			continue
		}
		masked.Atoms[i].Masked = true
		masked.Atoms[i].Element = InertAtomType
		masked.Atoms[i].Charge = 0
		masked.Atoms[i].LJ = LennardJones{Epsilon: maskedEpsilon, RMin: maskedRMin}
		newly++
	}
	return masked, newly
}

func withinRadius(p r3.Vec, pose LigandPose, radius float64) bool {
	for _, atom := range pose.Atoms {
		if r3.Norm(r3.Sub(p, atom.Position)) < radius {
			return true
		}
	}
	return false
}
