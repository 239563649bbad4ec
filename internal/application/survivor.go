package application

import (
	"context"
	"fmt"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
	"go.uber.org/zap"
)

// SurvivorReport is the per-ligand outcome of the final selection: how many
// hydrogen bonds anchor the ligand in the last frame and whether that was
// enough to keep it.
type SurvivorReport struct {
	ResidueID int
	HBonds    int
	Survived  bool
}

// SurvivorSelector keeps the ligands that still hydrogen-bond to the
// receptor after the final simulation. A ligand needs at least one bond in
// the final frame; everything else is discarded from the result.
type SurvivorSelector struct {
	evaluator ports.HBondEvaluator
	criteria  domain.HBondCriteria
	log       *zap.Logger
}

func NewSurvivorSelector(evaluator ports.HBondEvaluator, criteria domain.HBondCriteria, log *zap.Logger) *SurvivorSelector {
	return &SurvivorSelector{evaluator: evaluator, criteria: criteria, log: log}
}

func (s *SurvivorSelector) Select(ctx context.Context, structure domain.Structure) (domain.Structure, []SurvivorReport, error) {
	bonds, err := s.evaluator.Evaluate(ctx, structure, s.criteria)
	if err != nil {
		return domain.Structure{}, nil, fmt.Errorf("select survivors: %w", err)
	}

	counts := make(map[int]int)
	for _, bond := range bonds {
		counts[bond.LigandResidueID]++
	}

	reports := make([]SurvivorReport, 0, len(structure.Ligands))
	discarded := make(map[int]bool)
	for _, pose := range structure.Ligands {
		n := counts[pose.ResidueID]
		survived := n > 0
		if !survived {
			discarded[pose.ResidueID] = true
		}
		reports = append(reports, SurvivorReport{ResidueID: pose.ResidueID, HBonds: n, Survived: survived})
	}

	survivors := structure.WithoutLigands(discarded)
	s.log.Info("survivor selection complete",
		zap.Int("candidates", len(structure.Ligands)),
		zap.Int("survivors", len(survivors.Ligands)),
	)
	return survivors, reports, nil
}
