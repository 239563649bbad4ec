package ports

import (
	"context"

	"github.com/bnema/wns-cli/internal/domain"
)

// HBondEvaluator finds hydrogen bonds between receptor and ligands in a
// single structure frame. Given the same structure and criteria the result
// is deterministic.
type HBondEvaluator interface {
	Evaluate(ctx context.Context, structure domain.Structure, criteria domain.HBondCriteria) ([]domain.HBond, error)
}
