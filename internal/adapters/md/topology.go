package md

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UpdateMoleculeCount rewrites the [ molecules ] section of a topology file
// so the named molecule's copy count matches the ligands that survived
// washing. The rest of the file passes through unchanged. The rewrite is
// atomic so a crash mid-write cannot leave a truncated topology behind.
func UpdateMoleculeCount(path, molecule string, count int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read topology: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	inMolecules := false
	replaced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inMolecules = strings.EqualFold(strings.Trim(trimmed, "[] \t"), "molecules")
			continue
		}
		if !inMolecules || trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) >= 2 && fields[0] == molecule {
			lines[i] = fmt.Sprintf("%-20s %d", molecule, count)
			replaced = true
		}
	}
	if !replaced {
		return fmt.Errorf("topology has no molecule entry %q", molecule)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".wns-topol-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp topology: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write temp topology: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp topology: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp topology: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace topology: %w", err)
	}
	tmpName = ""
	return nil
}
