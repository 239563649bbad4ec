package domain

// HBond is one detected hydrogen bond in a structure frame. Donor and
// Acceptor index into the flattened atom order of the evaluated structure
// (receptor atoms first, then ligand atoms pose by pose).
type HBond struct {
	Donor           int
	Acceptor        int
	Frame           int
	Distance        float64
	Angle           float64
	LigandResidueID int
}

// HBondCriteria are the geometric thresholds a donor/hydrogen/acceptor
// triple must meet: donor-acceptor distance strictly below MaxDistance and
// donor-hydrogen-acceptor angle strictly above MinAngle (degrees).
type HBondCriteria struct {
	MaxDistance float64
	MinAngle    float64
}

const (
	DefaultHBondMaxDistance = 3.5
	DefaultHBondMinAngle    = 120.0
)

func DefaultHBondCriteria() HBondCriteria {
	return HBondCriteria{MaxDistance: DefaultHBondMaxDistance, MinAngle: DefaultHBondMinAngle}
}
