package pdbqt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestStructureRoundTrip(t *testing.T) {
	structure := domain.Structure{
		Receptor: domain.Receptor{Atoms: []domain.Atom{
			{Serial: 1, Name: "N", Element: "N", Residue: "ALA", ResidueID: 1, Position: r3.Vec{X: 1.5, Y: -2.25, Z: 0.125}, Charge: -0.35},
			{Serial: 2, Name: "CA", Element: "X", Residue: "ALA", ResidueID: 1, Position: r3.Vec{X: 2.5, Y: -1.0, Z: 0.5}, Masked: true},
		}},
		Ligands: []domain.LigandPose{
			{ID: "lig-3", ResidueID: 3, Atoms: []domain.PoseAtom{
				{Name: "C1", Element: "C", Position: r3.Vec{X: 10, Y: 10, Z: 10}},
				{Name: "O1", Element: "O", Position: r3.Vec{X: 11, Y: 10, Z: 10}},
			}},
			{ID: "lig-7", ResidueID: 7, Atoms: []domain.PoseAtom{
				{Name: "N1", Element: "N", Position: r3.Vec{X: -4, Y: 2, Z: 6.375}},
			}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStructure(&buf, structure))

	parsed, err := ReadStructure(&buf)
	require.NoError(t, err)

	require.Len(t, parsed.Receptor.Atoms, 2)
	assert.Equal(t, "N", parsed.Receptor.Atoms[0].Name)
	assert.InDelta(t, -0.35, parsed.Receptor.Atoms[0].Charge, 1e-9)
	assert.False(t, parsed.Receptor.Atoms[0].Masked)
	assert.True(t, parsed.Receptor.Atoms[1].Masked)
	assert.Equal(t, domain.InertAtomType, parsed.Receptor.Atoms[1].Element)

	require.Len(t, parsed.Ligands, 2)
	assert.Equal(t, 3, parsed.Ligands[0].ResidueID)
	assert.Equal(t, 7, parsed.Ligands[1].ResidueID)
	require.Len(t, parsed.Ligands[0].Atoms, 2)
	assert.InDelta(t, 10.0, parsed.Ligands[0].Atoms[0].Position.X, 1e-3)
	assert.InDelta(t, 6.375, parsed.Ligands[1].Atoms[0].Position.Z, 1e-3)
}

func TestReadDockedPoses(t *testing.T) {
	input := strings.Join([]string{
		"MODEL 1",
		"REMARK VINA RESULT:      -9.2      0.000      0.000",
		"HETATM    1  C1  LIG A   1      10.000  10.000  10.000  1.00  0.00     0.000 C ",
		"HETATM    2  O1  LIG A   1      11.000  10.000  10.000  1.00  0.00     0.000 OA",
		"ENDMDL",
		"MODEL 2",
		"REMARK VINA RESULT:      -7.1      1.250      3.400",
		"HETATM    1  C1  LIG A   1      14.000  10.000  10.000  1.00  0.00     0.000 C ",
		"ENDMDL",
	}, "\n")

	poses, err := ReadDockedPoses(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, poses, 2)
	assert.InDelta(t, -9.2, poses[0].Energy, 1e-9)
	assert.Len(t, poses[0].Atoms, 2)
	assert.InDelta(t, -7.1, poses[1].Energy, 1e-9)
	assert.Len(t, poses[1].Atoms, 1)
}

func TestReadDockedPosesBadScore(t *testing.T) {
	input := strings.Join([]string{
		"MODEL 1",
		"REMARK VINA RESULT:      n/a",
		"ENDMDL",
	}, "\n")

	_, err := ReadDockedPoses(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse docking score")
}

func TestParseAtomLineTooShort(t *testing.T) {
	_, err := ReadStructure(strings.NewReader("ATOM      1  N\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
