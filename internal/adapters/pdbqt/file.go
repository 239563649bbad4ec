package pdbqt

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/wns-cli/internal/domain"
)

// FileCodec reads and writes structure snapshots on disk. Writes go through
// a temp file and rename so a crash mid-write never leaves a half-written
// artifact that a later resume would trust.
type FileCodec struct{}

func NewFileCodec() FileCodec {
	return FileCodec{}
}

func (FileCodec) WriteStructure(path string, structure domain.Structure) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".wns-structure-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp structure: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := WriteStructure(tmp, structure); err != nil {
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("chmod temp structure: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp structure: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp structure: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace structure artifact: %w", err)
	}
	tmpName = ""
	return nil
}

func (FileCodec) ReadStructure(path string) (domain.Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Structure{}, fmt.Errorf("open structure artifact: %w", err)
	}
	defer f.Close()

	return ReadStructure(f)
}

func (FileCodec) ReadReceptor(path string) (domain.Receptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Receptor{}, fmt.Errorf("open receptor: %w", err)
	}
	defer f.Close()

	return ReadReceptor(f)
}
