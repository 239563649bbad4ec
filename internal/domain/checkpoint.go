package domain

import "time"

// CheckpointRecord is one committed unit of workflow progress. Records carry
// a monotonically increasing sequence number within a run; a record is only
// trusted on resume when every artifact it references still exists and is
// non-empty, otherwise the driver walks back to the most recent valid record.
type CheckpointRecord struct {
	Seq       int64
	Stage     PipelineStage
	Phase     string
	Iteration int
	Cycle     int
	Completed bool
	Failure   string
	Artifacts map[string]string
	CreatedAt time.Time
}

// Phase values recorded by the pipeline. Wrapper iterations and shaker
// cycles carry their counter in Iteration/Cycle; the *Done phases mark a
// whole stage as finished.
const (
	PhaseIteration   = "iteration"
	PhaseWrapperDone = "wrapper_done"
	PhasePreMD       = string(ShakerPreMD)
	PhaseCycle       = "cycle"
	PhaseFinalMD     = string(ShakerFinalMD)
	PhaseShakerDone  = "shaker_done"
	PhaseSurvivors   = "survivors_done"
)
