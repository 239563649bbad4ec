package ports

import "github.com/bnema/wns-cli/internal/domain"

// StructureCodec persists structure snapshots as checkpoint artifacts and
// loads them back on resume.
type StructureCodec interface {
	WriteStructure(path string, structure domain.Structure) error
	ReadStructure(path string) (domain.Structure, error)
	ReadReceptor(path string) (domain.Receptor, error)
}

// TopologyEditor keeps the simulation topology consistent with the set of
// ligands that survived washing.
type TopologyEditor interface {
	SetMoleculeCount(molecule string, count int) error
}
