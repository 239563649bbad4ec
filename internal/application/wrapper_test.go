package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/spatial/r3"
)

func testWrapperParams() WrapperParams {
	return WrapperParams{
		MaskRadius:           3.5,
		CoverageThreshold:    0.01,
		MaxIterations:        10,
		SeedsPerIteration:    2,
		ClashDistance:        2.0,
		ExhaustivenessLadder: []int{8, 16, 32},
		OnDockFailure:        OnDockFailureSkip,
		BaseSeed:             1,
	}
}

// Receptor with atoms clustered so a single pose near the origin masks
// everything at once.
func smallReceptor() domain.Receptor {
	return domain.Receptor{Atoms: []domain.Atom{
		{Serial: 1, Element: "N", Position: r3.Vec{X: 0.5}},
		{Serial: 2, Element: "C", Position: r3.Vec{X: 1.0}},
		{Serial: 3, Element: "O", Position: r3.Vec{X: 1.5}},
	}}
}

func dockedPose(center r3.Vec, energy float64, seed int64) domain.LigandPose {
	return domain.LigandPose{
		Seed:   seed,
		Energy: energy,
		Atoms:  []domain.PoseAtom{{Name: "C1", Element: "C", Position: center}},
	}
}

func noopCheckpoint(context.Context, int, domain.Structure) error { return nil }

func TestWrapperConvergesAfterFullMask(t *testing.T) {
	engine := &fakeDockingEngine{
		dockFn: func(_ context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
			return dockedPose(r3.Vec{}, -9.0, req.Seed), nil
		},
	}
	wrapper := NewWrapper(engine, testWrapperParams(), zaptest.NewLogger(t))

	var saved []int
	save := func(_ context.Context, iteration int, _ domain.Structure) error {
		saved = append(saved, iteration)
		return nil
	}

	result, err := wrapper.Run(context.Background(), smallReceptor(), WrapperResume{}, save)
	require.NoError(t, err)

	assert.Equal(t, domain.WrapperConverged, result.State)
	require.Len(t, result.Structure.Ligands, 1)
	assert.Equal(t, 1, result.Structure.Ligands[0].ResidueID)
	assert.NotEmpty(t, result.Structure.Ligands[0].ID)
	assert.Equal(t, 3, result.Structure.Receptor.MaskedCount())
	assert.Equal(t, []int{0}, saved)
}

func TestWrapperConvergenceOnFinalBudgetedIteration(t *testing.T) {
	params := testWrapperParams()
	params.MaxIterations = 1
	params.SeedsPerIteration = 1

	engine := &fakeDockingEngine{
		dockFn: func(_ context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
			return dockedPose(r3.Vec{}, -9.0, req.Seed), nil
		},
	}
	wrapper := NewWrapper(engine, params, zaptest.NewLogger(t))

	result, err := wrapper.Run(context.Background(), smallReceptor(), WrapperResume{}, noopCheckpoint)
	require.NoError(t, err)

	// The only budgeted iteration masked the whole receptor; reaching the
	// threshold outranks the spent budget.
	assert.Equal(t, domain.WrapperConverged, result.State)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 3, result.Structure.Receptor.MaskedCount())
	assert.InDelta(t, 0.0, result.Structure.Receptor.Coverage().UnmaskedFraction(), 1e-12)
}

func TestWrapperPicksBestEnergyAcrossSeeds(t *testing.T) {
	engine := &fakeDockingEngine{
		dockFn: func(_ context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
			// Even seeds score better.
			energy := -5.0
			if req.Seed%2 == 0 {
				energy = -9.0
			}
			return dockedPose(r3.Vec{}, energy, req.Seed), nil
		},
	}
	wrapper := NewWrapper(engine, testWrapperParams(), zaptest.NewLogger(t))

	result, err := wrapper.Run(context.Background(), smallReceptor(), WrapperResume{}, noopCheckpoint)
	require.NoError(t, err)

	require.Len(t, result.Structure.Ligands, 1)
	assert.InDelta(t, -9.0, result.Structure.Ligands[0].Energy, 1e-9)
}

func TestWrapperRejectsClashingPoses(t *testing.T) {
	params := testWrapperParams()
	params.MaxIterations = 2
	params.SeedsPerIteration = 1

	// Receptor large enough that one pose cannot converge coverage.
	receptor := domain.Receptor{Atoms: []domain.Atom{
		{Serial: 1, Element: "N", Position: r3.Vec{X: 0.5}},
		{Serial: 2, Element: "C", Position: r3.Vec{X: 100}},
	}}

	engine := &fakeDockingEngine{
		dockFn: func(_ context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
			// Every invocation returns the same placement.
			return dockedPose(r3.Vec{}, -9.0, req.Seed), nil
		},
	}
	wrapper := NewWrapper(engine, params, zaptest.NewLogger(t))

	result, err := wrapper.Run(context.Background(), receptor, WrapperResume{}, noopCheckpoint)
	require.NoError(t, err)

	// The second iteration's pose clashed with the first, so only one
	// ligand was placed before the budget ran out.
	assert.Equal(t, domain.WrapperExhausted, result.State)
	assert.Len(t, result.Structure.Ligands, 1)
}

func TestWrapperRetriesUpTheLadder(t *testing.T) {
	params := testWrapperParams()
	params.SeedsPerIteration = 1

	attempts := 0
	engine := &fakeDockingEngine{
		dockFn: func(_ context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
			attempts++
			if req.Exhaustiveness < 32 {
				return domain.LigandPose{}, fmt.Errorf("boom: %w", domain.ErrToolTransient)
			}
			return dockedPose(r3.Vec{}, -9.0, req.Seed), nil
		},
	}
	wrapper := NewWrapper(engine, params, zaptest.NewLogger(t))

	result, err := wrapper.Run(context.Background(), smallReceptor(), WrapperResume{}, noopCheckpoint)
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, domain.WrapperConverged, result.State)
	assert.Len(t, result.Structure.Ligands, 1)
}

func TestWrapperSkipPolicyConsumesIteration(t *testing.T) {
	params := testWrapperParams()
	params.MaxIterations = 2
	params.SeedsPerIteration = 1

	engine := &fakeDockingEngine{
		dockFn: func(context.Context, ports.DockingRequest) (domain.LigandPose, error) {
			return domain.LigandPose{}, fmt.Errorf("boom: %w", domain.ErrToolTransient)
		},
	}
	wrapper := NewWrapper(engine, params, zaptest.NewLogger(t))

	_, err := wrapper.Run(context.Background(), smallReceptor(), WrapperResume{}, noopCheckpoint)
	require.ErrorIs(t, err, domain.ErrNoLigandsDocked)

	// Two iterations, three ladder rungs each.
	assert.Len(t, engine.calls, 6)
}

func TestWrapperAbortPolicyStopsImmediately(t *testing.T) {
	params := testWrapperParams()
	params.OnDockFailure = OnDockFailureAbort
	params.SeedsPerIteration = 1

	engine := &fakeDockingEngine{
		dockFn: func(context.Context, ports.DockingRequest) (domain.LigandPose, error) {
			return domain.LigandPose{}, fmt.Errorf("boom: %w", domain.ErrToolTransient)
		},
	}
	wrapper := NewWrapper(engine, params, zaptest.NewLogger(t))

	_, err := wrapper.Run(context.Background(), smallReceptor(), WrapperResume{}, noopCheckpoint)
	require.ErrorIs(t, err, domain.ErrDockingExhausted)
	assert.Len(t, engine.calls, 3)
}

func TestWrapperResumeContinuesNumbering(t *testing.T) {
	engine := &fakeDockingEngine{
		dockFn: func(_ context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
			return dockedPose(r3.Vec{X: 100}, -9.0, req.Seed), nil
		},
	}
	params := testWrapperParams()
	params.SeedsPerIteration = 1
	wrapper := NewWrapper(engine, params, zaptest.NewLogger(t))

	receptor := domain.Receptor{Atoms: []domain.Atom{
		{Serial: 1, Element: "N", Position: r3.Vec{X: 0.5}, Masked: true},
		{Serial: 2, Element: "C", Position: r3.Vec{X: 100}},
	}}
	resume := WrapperResume{
		Iteration: 3,
		Ligands:   []domain.LigandPose{{ID: "lig-a", ResidueID: 1, Atoms: []domain.PoseAtom{{Position: r3.Vec{X: 0.5}}}}},
	}

	result, err := wrapper.Run(context.Background(), receptor, resume, noopCheckpoint)
	require.NoError(t, err)

	require.Len(t, result.Structure.Ligands, 2)
	assert.Equal(t, 2, result.Structure.Ligands[1].ResidueID)
	// Seeds derive from the resumed iteration counter, not from zero.
	assert.Equal(t, int64(4), engine.calls[0].Seed)
}

func TestWrapperHonorsCancellationAtBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fakeDockingEngine{
		dockFn: func(_ context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
			return dockedPose(r3.Vec{}, -9.0, req.Seed), nil
		},
	}
	wrapper := NewWrapper(engine, testWrapperParams(), zaptest.NewLogger(t))

	_, err := wrapper.Run(ctx, smallReceptor(), WrapperResume{}, noopCheckpoint)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, engine.calls)
}
