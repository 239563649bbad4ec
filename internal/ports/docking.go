package ports

import (
	"context"

	"github.com/bnema/wns-cli/internal/domain"
	"gonum.org/v1/gonum/spatial/r3"
)

// GridSpec describes the docking search box.
type GridSpec struct {
	Center  r3.Vec
	Size    r3.Vec
	Spacing float64
}

// DockingRequest carries everything one seeded docking invocation needs.
// Exhaustiveness is the knob the retry fallback ladder adjusts between
// attempts.
type DockingRequest struct {
	Receptor       domain.Receptor
	Grid           GridSpec
	Seed           int64
	Exhaustiveness int
}

// DockingEngine places the ligand against the given masked receptor and
// returns the best-scoring pose with its interaction energy. Invocations may
// fail and must be retryable with adjusted parameters.
type DockingEngine interface {
	Dock(ctx context.Context, req DockingRequest) (domain.LigandPose, error)
}
