// Package hbond detects hydrogen bonds between a receptor and its docked
// ligands from plain geometry. An atom is a donor when it is nitrogen or
// oxygen with a covalently bound hydrogen, an acceptor when it is nitrogen or
// oxygen. A bond is reported when the donor-acceptor distance is strictly
// below the cutoff and the donor-hydrogen-acceptor angle strictly above the
// minimum.
package hbond

import (
	"context"
	"fmt"
	"math"

	"github.com/bnema/wns-cli/internal/domain"
	"gonum.org/v1/gonum/spatial/r3"
)

// covalentHydrogenCutoff is the bond length below which a hydrogen is
// considered attached to a heavy atom.
const covalentHydrogenCutoff = 1.2

type GeometricEvaluator struct{}

func NewGeometricEvaluator() *GeometricEvaluator {
	return &GeometricEvaluator{}
}

type siteAtom struct {
	index     int
	element   string
	position  r3.Vec
	ligandID  int
	isLigand  bool
	hydrogens []r3.Vec
}

// Evaluate reports every receptor-ligand hydrogen bond in the structure,
// both directions (ligand donating and ligand accepting). Masked receptor
// atoms never participate.
func (e *GeometricEvaluator) Evaluate(ctx context.Context, structure domain.Structure, criteria domain.HBondCriteria) ([]domain.HBond, error) {
	if criteria.MaxDistance <= 0 || criteria.MinAngle <= 0 {
		return nil, fmt.Errorf("evaluate hydrogen bonds: invalid criteria %+v", criteria)
	}

	receptor, ligands := collectSites(structure)

	var bonds []domain.HBond
	for _, lig := range ligands {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluate hydrogen bonds: %w", err)
		}
		for _, rec := range receptor {
			if bond, ok := matchPair(lig, rec, criteria); ok {
				bonds = append(bonds, bond)
			}
			if bond, ok := matchPair(rec, lig, criteria); ok {
				bonds = append(bonds, bond)
			}
		}
	}
	return bonds, nil
}

// matchPair tests donor -> acceptor and returns the bond on success. The
// ligand residue is taken from whichever side of the pair is the ligand.
func matchPair(donor, acceptor siteAtom, criteria domain.HBondCriteria) (domain.HBond, bool) {
	if len(donor.hydrogens) == 0 {
		return domain.HBond{}, false
	}

	distance := r3.Norm(r3.Sub(acceptor.position, donor.position))
	if distance >= criteria.MaxDistance {
		return domain.HBond{}, false
	}

	best := 0.0
	found := false
	for _, h := range donor.hydrogens {
		angle := angleDeg(donor.position, h, acceptor.position)
		if angle > criteria.MinAngle && angle > best {
			best = angle
			found = true
		}
	}
	if !found {
		return domain.HBond{}, false
	}

	ligandID := donor.ligandID
	if !donor.isLigand {
		ligandID = acceptor.ligandID
	}
	return domain.HBond{
		Donor:           donor.index,
		Acceptor:        acceptor.index,
		Distance:        distance,
		Angle:           best,
		LigandResidueID: ligandID,
	}, true
}

// collectSites flattens the structure (receptor atoms first, then ligand
// atoms pose by pose) and gathers the polar heavy atoms on each side with
// their covalently bound hydrogens.
func collectSites(structure domain.Structure) (receptor, ligands []siteAtom) {
	type flatAtom struct {
		element  string
		position r3.Vec
		masked   bool
		ligandID int
		isLigand bool
	}

	flat := make([]flatAtom, 0, len(structure.Receptor.Atoms))
	for _, atom := range structure.Receptor.Atoms {
		flat = append(flat, flatAtom{element: atom.Element, position: atom.Position, masked: atom.Masked})
	}
	for _, pose := range structure.Ligands {
		for _, atom := range pose.Atoms {
			flat = append(flat, flatAtom{element: atom.Element, position: atom.Position, ligandID: pose.ResidueID, isLigand: true})
		}
	}

	for i, atom := range flat {
		if atom.masked || !isPolar(atom.element) {
			continue
		}
		site := siteAtom{
			index:    i,
			element:  atom.element,
			position: atom.position,
			ligandID: atom.ligandID,
			isLigand: atom.isLigand,
		}
		for j, other := range flat {
			if i == j || other.element != "H" || other.isLigand != atom.isLigand {
				continue
			}
			if r3.Norm(r3.Sub(other.position, atom.position)) < covalentHydrogenCutoff {
				site.hydrogens = append(site.hydrogens, other.position)
			}
		}
		if atom.isLigand {
			ligands = append(ligands, site)
		} else {
			receptor = append(receptor, site)
		}
	}
	return receptor, ligands
}

func isPolar(element string) bool {
	return element == "N" || element == "O"
}

func angleDeg(donor, hydrogen, acceptor r3.Vec) float64 {
	a := r3.Sub(donor, hydrogen)
	b := r3.Sub(acceptor, hydrogen)
	na, nb := r3.Norm(a), r3.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	cos := r3.Dot(a, b) / (na * nb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
