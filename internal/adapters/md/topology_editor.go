package md

// FileTopologyEditor updates one topology file in place.
type FileTopologyEditor struct {
	path string
}

func NewFileTopologyEditor(path string) *FileTopologyEditor {
	return &FileTopologyEditor{path: path}
}

func (e *FileTopologyEditor) SetMoleculeCount(molecule string, count int) error {
	return UpdateMoleculeCount(e.path, molecule, count)
}
