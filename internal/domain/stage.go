package domain

// PipelineStage identifies a top-level stage of the Wrap 'n' Shake run.
type PipelineStage string

const (
	StageWrapper   PipelineStage = "wrapper"
	StageShaker    PipelineStage = "shaker"
	StageSurvivors PipelineStage = "survivors"
)

// WrapperState is the Wrapper loop's position within one iteration.
// Converged and Exhausted are terminal.
type WrapperState string

const (
	WrapperInit          WrapperState = "init"
	WrapperDocking       WrapperState = "docking"
	WrapperMasking       WrapperState = "masking"
	WrapperCoverageCheck WrapperState = "coverage_check"
	WrapperConverged     WrapperState = "converged"
	WrapperExhausted     WrapperState = "exhausted"
)

// Terminal reports whether the Wrapper loop ends in this state.
func (s WrapperState) Terminal() bool {
	return s == WrapperConverged || s == WrapperExhausted
}

// ShakerStage sequences the shaking simulation. Washing is interleaved with
// annealing cycles rather than run as a separate serial stage, but it is
// still recorded as a stage of its own so progress reporting can tell a
// cycle's simulation apart from its analysis.
type ShakerStage string

const (
	ShakerPreMD     ShakerStage = "premd"
	ShakerAnnealing ShakerStage = "annealing"
	ShakerWashing   ShakerStage = "washing"
	ShakerFinalMD   ShakerStage = "finalmd"
	ShakerComplete  ShakerStage = "complete"
)

func (s ShakerStage) Valid() bool {
	switch s {
	case ShakerPreMD, ShakerAnnealing, ShakerWashing, ShakerFinalMD, ShakerComplete:
		return true
	default:
		return false
	}
}
