package domain

// Structure is a receptor snapshot together with the ligand poses currently
// bound to it. The Wrapper produces the initial monolayer structure; the
// Shaker regenerates it after every washing pass.
type Structure struct {
	Receptor Receptor
	Ligands  []LigandPose
}

func (s Structure) Ligand(residueID int) (LigandPose, bool) {
	for _, pose := range s.Ligands {
		if pose.ResidueID == residueID {
			return pose, true
		}
	}
	return LigandPose{}, false
}

// WithoutLigands returns a copy of the structure with the listed ligand
// residues excised. Residue identifiers of the survivors are preserved so
// removal records stay meaningful across cycles; the topology entries of
// removed ligands are never reintroduced.
func (s Structure) WithoutLigands(removed map[int]bool) Structure {
	kept := make([]LigandPose, 0, len(s.Ligands))
	for _, pose := range s.Ligands {
		if removed[pose.ResidueID] {
			continue
		}
		kept = append(kept, pose)
	}
	return Structure{Receptor: s.Receptor, Ligands: kept}
}
