package application

import (
	"fmt"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
)

// Failure policy when every retry of a docking seed fails.
const (
	OnDockFailureSkip  = "skip"
	OnDockFailureAbort = "abort"
)

// WrapperParams controls the docking and masking loop.
type WrapperParams struct {
	Grid              ports.GridSpec
	MaskRadius        float64
	CoverageThreshold float64
	MaxIterations     int
	SeedsPerIteration int
	ClashDistance     float64
	// ExhaustivenessLadder is tried in order when a seed's docking
	// invocation keeps failing; its length bounds the retries.
	ExhaustivenessLadder []int
	OnDockFailure        string
	BaseSeed             int64
}

// ShakerParams controls the simulation stages and the washing filter.
type ShakerParams struct {
	PreMDDurationPS    float64
	AnnealDurationPS   float64
	FinalMDDurationPS  float64
	MaxCycles          int
	SurvivalTarget     float64
	DisplacementCutoff float64
	// EnergyMargin is how far a ligand's interaction energy may weaken
	// relative to its value at the cycle start before washing removes it.
	EnergyMargin float64
	// Annealing peaks by ligand size. Runs whose heaviest remaining ligand
	// is below WeightThreshold use PeakSmallKelvin, heavier ones
	// PeakLargeKelvin.
	WeightThreshold float64
	PeakSmallKelvin float64
	PeakLargeKelvin float64
	ReferenceKelvin float64
	// NativeResume passes the engine's own checkpoint to interrupted
	// stages instead of restarting the stage from its input structure.
	NativeResume bool
	MoleculeName string
}

// Params is the full configuration of one run. Paths are resolved by the
// caller before validation.
type Params struct {
	RunID        string
	WorkDir      string
	ReceptorPath string
	LigandPath   string
	TopologyPath string
	DockBinary   string
	MDBinary     string

	Wrapper WrapperParams
	Shaker  ShakerParams
	HBond   domain.HBondCriteria
}

func DefaultParams() Params {
	return Params{
		DockBinary: "vina",
		MDBinary:   "gmx",
		Wrapper: WrapperParams{
			MaskRadius:           3.5,
			CoverageThreshold:    0.01,
			MaxIterations:        200,
			SeedsPerIteration:    4,
			ClashDistance:        2.0,
			ExhaustivenessLadder: []int{8, 16, 32},
			OnDockFailure:        OnDockFailureSkip,
			BaseSeed:             1,
		},
		Shaker: ShakerParams{
			PreMDDurationPS:    100,
			AnnealDurationPS:   200,
			FinalMDDurationPS:  500,
			MaxCycles:          10,
			SurvivalTarget:     0.25,
			DisplacementCutoff: 6.0,
			EnergyMargin:       10.0,
			WeightThreshold:    300,
			PeakSmallKelvin:    400,
			PeakLargeKelvin:    500,
			ReferenceKelvin:    300,
			MoleculeName:       "LIG",
		},
		HBond: domain.DefaultHBondCriteria(),
	}
}

func (p Params) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
	}

	if p.RunID == "" {
		return fail("run id is required")
	}
	if p.ReceptorPath == "" {
		return fail("receptor path is required")
	}
	if p.LigandPath == "" {
		return fail("ligand path is required")
	}

	w := p.Wrapper
	if w.MaskRadius <= 0 {
		return fail("mask radius must be positive, got %g", w.MaskRadius)
	}
	if w.CoverageThreshold <= 0 || w.CoverageThreshold >= 1 {
		return fail("coverage threshold must be in (0, 1), got %g", w.CoverageThreshold)
	}
	if w.MaxIterations <= 0 {
		return fail("max iterations must be positive, got %d", w.MaxIterations)
	}
	if w.SeedsPerIteration <= 0 {
		return fail("seeds per iteration must be positive, got %d", w.SeedsPerIteration)
	}
	if w.ClashDistance < 0 {
		return fail("clash distance must not be negative, got %g", w.ClashDistance)
	}
	if len(w.ExhaustivenessLadder) == 0 {
		return fail("exhaustiveness ladder must not be empty")
	}
	for i := 1; i < len(w.ExhaustivenessLadder); i++ {
		if w.ExhaustivenessLadder[i] <= w.ExhaustivenessLadder[i-1] {
			return fail("exhaustiveness ladder must be strictly increasing")
		}
	}
	if w.OnDockFailure != OnDockFailureSkip && w.OnDockFailure != OnDockFailureAbort {
		return fail("unknown docking failure policy %q", w.OnDockFailure)
	}

	s := p.Shaker
	if s.MaxCycles <= 0 {
		return fail("max cycles must be positive, got %d", s.MaxCycles)
	}
	if s.SurvivalTarget <= 0 || s.SurvivalTarget > 1 {
		return fail("survival target must be in (0, 1], got %g", s.SurvivalTarget)
	}
	if s.DisplacementCutoff <= 0 {
		return fail("displacement cutoff must be positive, got %g", s.DisplacementCutoff)
	}
	if s.EnergyMargin < 0 {
		return fail("energy margin must not be negative, got %g", s.EnergyMargin)
	}
	if s.PeakSmallKelvin <= s.ReferenceKelvin || s.PeakLargeKelvin <= s.ReferenceKelvin {
		return fail("annealing peaks must exceed the reference temperature")
	}
	if s.MoleculeName == "" {
		return fail("topology molecule name is required")
	}

	if p.HBond.MaxDistance <= 0 {
		return fail("hydrogen bond distance cutoff must be positive, got %g", p.HBond.MaxDistance)
	}
	if p.HBond.MinAngle <= 0 || p.HBond.MinAngle >= 180 {
		return fail("hydrogen bond angle cutoff must be in (0, 180), got %g", p.HBond.MinAngle)
	}

	return nil
}
