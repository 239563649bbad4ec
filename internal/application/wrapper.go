package application

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WrapperCheckpoint commits one completed iteration: the caller persists the
// structure artifact and appends the checkpoint record before the loop moves
// on. Cancellation is only honored between iterations, so an interrupted run
// resumes exactly at the first uncommitted one.
type WrapperCheckpoint func(ctx context.Context, iteration int, structure domain.Structure) error

// WrapperResume positions the loop after a restart: the next iteration to
// run and the poses accepted so far. A fresh run starts at iteration zero
// with no poses.
type WrapperResume struct {
	Iteration int
	Ligands   []domain.LigandPose
}

type WrapperResult struct {
	Structure  domain.Structure
	State      domain.WrapperState
	Iterations int
}

// Wrapper covers the receptor with a ligand monolayer: each iteration docks
// the ligand against the current masked receptor, keeps the best
// non-clashing pose, and masks the surface underneath it. The loop ends when
// the unmasked fraction drops below the coverage threshold or the iteration
// budget runs out.
type Wrapper struct {
	engine ports.DockingEngine
	params WrapperParams
	log    *zap.Logger
}

func NewWrapper(engine ports.DockingEngine, params WrapperParams, log *zap.Logger) *Wrapper {
	return &Wrapper{engine: engine, params: params, log: log}
}

func (w *Wrapper) Run(ctx context.Context, receptor domain.Receptor, resume WrapperResume, save WrapperCheckpoint) (WrapperResult, error) {
	structure := domain.Structure{Receptor: receptor, Ligands: resume.Ligands}

	for iteration := resume.Iteration; iteration < w.params.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return WrapperResult{}, fmt.Errorf("wrapper interrupted: %w", err)
		}

		if result, ok := w.convergedResult(structure, iteration); ok {
			return result, nil
		}

		pose, ok, err := w.dockIteration(ctx, structure, iteration)
		if err != nil {
			return WrapperResult{}, err
		}
		if !ok {
			// Nothing usable this iteration; the budget still shrinks.
			if err := save(ctx, iteration, structure); err != nil {
				return WrapperResult{}, fmt.Errorf("checkpoint iteration %d: %w", iteration, err)
			}
			continue
		}

		masked, newly := domain.MaskReceptor(structure.Receptor, pose, w.params.MaskRadius)
		structure.Receptor = masked
		structure.Ligands = append(structure.Ligands, pose)

		w.log.Info("pose accepted",
			zap.Int("iteration", iteration),
			zap.Int("residue", pose.ResidueID),
			zap.Float64("energy", pose.Energy),
			zap.Int("newly_masked", newly),
			zap.Float64("unmasked_fraction", structure.Receptor.Coverage().UnmaskedFraction()),
		)

		if err := save(ctx, iteration, structure); err != nil {
			return WrapperResult{}, fmt.Errorf("checkpoint iteration %d: %w", iteration, err)
		}
	}

	if len(structure.Ligands) == 0 {
		return WrapperResult{}, domain.ErrNoLigandsDocked
	}

	// The last budgeted iteration may itself have pushed coverage past the
	// threshold; convergence takes precedence over the spent budget.
	if result, ok := w.convergedResult(structure, w.params.MaxIterations); ok {
		return result, nil
	}

	// Budget spent without reaching the threshold. The monolayer built so
	// far is still a usable partial result.
	w.log.Warn("iteration budget exhausted before coverage convergence",
		zap.Int("ligands", len(structure.Ligands)),
		zap.Float64("unmasked_fraction", structure.Receptor.Coverage().UnmaskedFraction()),
	)
	return WrapperResult{Structure: structure, State: domain.WrapperExhausted, Iterations: w.params.MaxIterations}, nil
}

// convergedResult reports whether the masked fraction already satisfies the
// coverage threshold, logging and packaging the terminal result when it does.
func (w *Wrapper) convergedResult(structure domain.Structure, iterations int) (WrapperResult, bool) {
	coverage := structure.Receptor.Coverage()
	if !coverage.Converged(w.params.CoverageThreshold) {
		return WrapperResult{}, false
	}
	w.log.Info("receptor coverage converged",
		zap.Int("iterations", iterations),
		zap.Int("ligands", len(structure.Ligands)),
		zap.Float64("unmasked_fraction", coverage.UnmaskedFraction()),
	)
	return WrapperResult{Structure: structure, State: domain.WrapperConverged, Iterations: iterations}, true
}

// dockIteration fans the iteration's seeds out in parallel and picks the
// best-scoring pose that does not clash with an already placed ligand. The
// second return value is false when the iteration produced nothing usable.
func (w *Wrapper) dockIteration(ctx context.Context, structure domain.Structure, iteration int) (domain.LigandPose, bool, error) {
	poses := make([]*domain.LigandPose, w.params.SeedsPerIteration)

	g, gctx := errgroup.WithContext(ctx)
	for k := 0; k < w.params.SeedsPerIteration; k++ {
		g.Go(func() error {
			seed := w.params.BaseSeed + int64(iteration)*int64(w.params.SeedsPerIteration) + int64(k)
			pose, err := w.dockWithRetry(gctx, structure.Receptor, seed)
			if err != nil {
				if w.params.OnDockFailure == OnDockFailureAbort || !errors.Is(err, domain.ErrToolTransient) {
					return err
				}
				w.log.Warn("seed skipped after exhausting retries", zap.Int64("seed", seed), zap.Error(err))
				return nil
			}
			poses[k] = &pose
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrToolTransient) {
			return domain.LigandPose{}, false, fmt.Errorf("iteration %d: %w: %v", iteration, domain.ErrDockingExhausted, err)
		}
		return domain.LigandPose{}, false, err
	}

	best := domain.LigandPose{Energy: math.Inf(1)}
	found := false
	for _, pose := range poses {
		if pose == nil || pose.Energy >= best.Energy {
			continue
		}
		if w.clashes(*pose, structure.Ligands) {
			w.log.Debug("pose rejected for steric clash", zap.Int64("seed", pose.Seed))
			continue
		}
		best = *pose
		found = true
	}
	if !found {
		return domain.LigandPose{}, false, nil
	}

	best.ID = domain.PoseID(uuid.NewString())
	best.ResidueID = len(structure.Ligands) + 1
	return best, true, nil
}

// dockWithRetry walks the exhaustiveness ladder until an invocation
// succeeds. Only transient tool failures are retried.
func (w *Wrapper) dockWithRetry(ctx context.Context, receptor domain.Receptor, seed int64) (domain.LigandPose, error) {
	var lastErr error
	for attempt, exhaustiveness := range w.params.ExhaustivenessLadder {
		pose, err := w.engine.Dock(ctx, ports.DockingRequest{
			Receptor:       receptor,
			Grid:           w.params.Grid,
			Seed:           seed,
			Exhaustiveness: exhaustiveness,
		})
		if err == nil {
			return pose, nil
		}
		if !errors.Is(err, domain.ErrToolTransient) {
			return domain.LigandPose{}, err
		}
		w.log.Warn("docking attempt failed",
			zap.Int64("seed", seed),
			zap.Int("attempt", attempt+1),
			zap.Int("exhaustiveness", exhaustiveness),
			zap.Error(err),
		)
		lastErr = err
	}
	return domain.LigandPose{}, lastErr
}

func (w *Wrapper) clashes(pose domain.LigandPose, placed []domain.LigandPose) bool {
	for _, other := range placed {
		if pose.MinDistanceTo(other) < w.params.ClashDistance {
			return true
		}
	}
	return false
}
