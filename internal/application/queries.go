package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
)

// RunStatus summarizes how far a run has progressed, read straight from the
// checkpoint records. Reading never blocks a running pipeline.
type RunStatus struct {
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage"`
	Phase      string    `json:"phase"`
	Iteration  int       `json:"iteration"`
	Cycle      int       `json:"cycle"`
	Records    int       `json:"records"`
	Completed  bool      `json:"completed"`
	Failure    string    `json:"failure,omitempty"`
	LastUpdate time.Time `json:"last_update"`
}

type StatusQuery struct {
	store ports.StateStore
	runID string
}

func NewStatusQuery(store ports.StateStore, runID string) *StatusQuery {
	return &StatusQuery{store: store, runID: runID}
}

func (q *StatusQuery) RunStatus(ctx context.Context) (RunStatus, error) {
	records, err := q.store.Records(ctx)
	if err != nil {
		return RunStatus{}, fmt.Errorf("load checkpoint records: %w", err)
	}
	if len(records) == 0 {
		return RunStatus{}, domain.ErrRunNotFound
	}

	last := records[len(records)-1]
	return RunStatus{
		RunID:      q.runID,
		Stage:      string(last.Stage),
		Phase:      last.Phase,
		Iteration:  last.Iteration,
		Cycle:      last.Cycle,
		Records:    len(records),
		Completed:  last.Stage == domain.StageSurvivors && last.Completed,
		Failure:    last.Failure,
		LastUpdate: last.CreatedAt,
	}, nil
}
