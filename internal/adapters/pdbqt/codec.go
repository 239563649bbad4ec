// Package pdbqt reads and writes the fixed-column PDBQT records exchanged
// with the external docking and simulation engines. Only ATOM/HETATM lines,
// pose MODEL blocks and the docking score remark are interpreted; everything
// else passes through untouched.
package pdbqt

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/bnema/wns-cli/internal/domain"
	"gonum.org/v1/gonum/spatial/r3"
)

// LigandResidueName tags ligand atoms in mixed receptor/ligand files.
const LigandResidueName = "LIG"

const scoreRemarkPrefix = "REMARK VINA RESULT:"

func WriteReceptor(w io.Writer, receptor domain.Receptor) error {
	for _, atom := range receptor.Atoms {
		if _, err := fmt.Fprintln(w, formatAtomLine("ATOM", atom.Serial, atom.Name, atom.Residue, atom.ResidueID, atom.Position, atom.Charge, atom.Element)); err != nil {
			return fmt.Errorf("write receptor atom: %w", err)
		}
	}
	return nil
}

func WriteStructure(w io.Writer, structure domain.Structure) error {
	if err := WriteReceptor(w, structure.Receptor); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "TER"); err != nil {
		return fmt.Errorf("write structure: %w", err)
	}

	serial := len(structure.Receptor.Atoms)
	for _, pose := range structure.Ligands {
		for _, atom := range pose.Atoms {
			serial++
			if _, err := fmt.Fprintln(w, formatAtomLine("HETATM", serial, atom.Name, LigandResidueName, pose.ResidueID, atom.Position, 0, atom.Element)); err != nil {
				return fmt.Errorf("write ligand atom: %w", err)
			}
		}
		if _, err := fmt.Fprintln(w, "TER"); err != nil {
			return fmt.Errorf("write structure: %w", err)
		}
	}

	_, err := fmt.Fprintln(w, "END")
	if err != nil {
		return fmt.Errorf("write structure: %w", err)
	}
	return nil
}

// ReadStructure splits a mixed file back into a receptor snapshot and ligand
// poses. Atoms with residue name LIG are grouped into poses by residue
// identifier; all other ATOM/HETATM records belong to the receptor. Masked
// receptor atoms are recognized by the inert atom type.
func ReadStructure(r io.Reader) (domain.Structure, error) {
	receptor := domain.Receptor{}
	ligandAtoms := map[int][]domain.PoseAtom{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		atom, err := parseAtomLine(line)
		if err != nil {
			return domain.Structure{}, err
		}
		if atom.Residue == LigandResidueName {
			ligandAtoms[atom.ResidueID] = append(ligandAtoms[atom.ResidueID], domain.PoseAtom{
				Name:     atom.Name,
				Element:  atom.Element,
				Position: atom.Position,
			})
			continue
		}
		receptor.Atoms = append(receptor.Atoms, atom)
	}
	if err := scanner.Err(); err != nil {
		return domain.Structure{}, fmt.Errorf("scan structure: %w", err)
	}

	residueIDs := make([]int, 0, len(ligandAtoms))
	for id := range ligandAtoms {
		residueIDs = append(residueIDs, id)
	}
	sort.Ints(residueIDs)

	ligands := make([]domain.LigandPose, 0, len(residueIDs))
	for _, id := range residueIDs {
		ligands = append(ligands, domain.LigandPose{
			ID:        domain.PoseID(fmt.Sprintf("lig-%d", id)),
			ResidueID: id,
			Atoms:     ligandAtoms[id],
		})
	}

	return domain.Structure{Receptor: receptor, Ligands: ligands}, nil
}

func ReadReceptor(r io.Reader) (domain.Receptor, error) {
	structure, err := ReadStructure(r)
	if err != nil {
		return domain.Receptor{}, err
	}
	return structure.Receptor, nil
}

// ReadDockedPoses parses the MODEL blocks of a docking output file. Each
// block's score remark becomes the pose's interaction energy. Files without
// MODEL records are treated as a single pose.
func ReadDockedPoses(r io.Reader) ([]domain.LigandPose, error) {
	var poses []domain.LigandPose
	current := domain.LigandPose{}

	flush := func() {
		if len(current.Atoms) > 0 {
			poses = append(poses, current)
		}
		current = domain.LigandPose{}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MODEL"):
			flush()
		case strings.HasPrefix(line, "ENDMDL"):
			flush()
		case strings.HasPrefix(line, scoreRemarkPrefix):
			fields := strings.Fields(strings.TrimPrefix(line, scoreRemarkPrefix))
			if len(fields) > 0 {
				energy, err := strconv.ParseFloat(fields[0], 64)
				if err != nil {
					return nil, fmt.Errorf("parse docking score %q: %w", fields[0], err)
				}
				current.Energy = energy
			}
		case strings.HasPrefix(line, "ATOM"), strings.HasPrefix(line, "HETATM"):
			atom, err := parseAtomLine(line)
			if err != nil {
				return nil, err
			}
			current.Atoms = append(current.Atoms, domain.PoseAtom{
				Name:     atom.Name,
				Element:  atom.Element,
				Position: atom.Position,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan docked poses: %w", err)
	}
	flush()

	return poses, nil
}

// PDBQT fixed columns: serial 7-11, name 13-16, residue 18-20, residue id
// 23-26, coordinates 31-54, charge 71-76, atom type 78-79.
func formatAtomLine(record string, serial int, name, residue string, residueID int, pos r3.Vec, charge float64, atomType string) string {
	return fmt.Sprintf("%-6s%5d %-4s %-3s A%4d    %8.3f%8.3f%8.3f%6.2f%6.2f    %6.3f %-2s",
		record, serial, name, residue, residueID, pos.X, pos.Y, pos.Z, 1.0, 0.0, charge, atomType)
}

func parseAtomLine(line string) (domain.Atom, error) {
	if len(line) < 54 {
		return domain.Atom{}, fmt.Errorf("atom record too short: %q", line)
	}

	x, err := parseCoord(line[30:38])
	if err != nil {
		return domain.Atom{}, err
	}
	y, err := parseCoord(line[38:46])
	if err != nil {
		return domain.Atom{}, err
	}
	z, err := parseCoord(line[46:54])
	if err != nil {
		return domain.Atom{}, err
	}

	serial, _ := strconv.Atoi(strings.TrimSpace(line[6:11]))
	residueID, _ := strconv.Atoi(strings.TrimSpace(line[22:26]))

	charge := 0.0
	if len(line) >= 76 {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(line[70:76]), 64); err == nil {
			charge = parsed
		}
	}

	atomType := ""
	if len(line) >= 79 {
		atomType = strings.TrimSpace(line[77:79])
	}

	atom := domain.Atom{
		Serial:    serial,
		Name:      strings.TrimSpace(line[12:16]),
		Element:   atomType,
		Residue:   strings.TrimSpace(line[17:20]),
		ResidueID: residueID,
		Position:  r3.Vec{X: x, Y: y, Z: z},
		Charge:    charge,
		Masked:    atomType == domain.InertAtomType,
	}
	if atom.Element == "" {
		atom.Element = elementFromName(atom.Name)
	}
	return atom, nil
}

func parseCoord(field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, fmt.Errorf("parse coordinate %q: %w", field, err)
	}
	return value, nil
}

func elementFromName(name string) string {
	trimmed := strings.TrimLeft(name, "0123456789")
	if trimmed == "" {
		return ""
	}
	if len(trimmed) >= 2 {
		two := trimmed[:2]
		if two == "Cl" || two == "Br" {
			return two
		}
	}
	return trimmed[:1]
}
