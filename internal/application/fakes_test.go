package application

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
)

type fakeDockingEngine struct {
	mu     sync.Mutex
	dockFn func(ctx context.Context, req ports.DockingRequest) (domain.LigandPose, error)
	calls  []ports.DockingRequest
}

func (f *fakeDockingEngine) Dock(ctx context.Context, req ports.DockingRequest) (domain.LigandPose, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.dockFn(ctx, req)
}

type fakeMDEngine struct {
	mu    sync.Mutex
	runFn func(ctx context.Context, req ports.MDRequest) (ports.MDResult, error)
	calls []ports.MDRequest
}

func (f *fakeMDEngine) Run(ctx context.Context, req ports.MDRequest) (ports.MDResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.runFn(ctx, req)
}

type fakeHBondEvaluator struct {
	bonds []domain.HBond
	err   error
}

func (f *fakeHBondEvaluator) Evaluate(context.Context, domain.Structure, domain.HBondCriteria) ([]domain.HBond, error) {
	return f.bonds, f.err
}

type fakeStateStore struct {
	mu      sync.Mutex
	records []domain.CheckpointRecord
	failOn  func(record domain.CheckpointRecord) error
}

func (f *fakeStateStore) Append(_ context.Context, record domain.CheckpointRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		if err := f.failOn(record); err != nil {
			return err
		}
	}
	if len(f.records) > 0 && record.Seq <= f.records[len(f.records)-1].Seq {
		return domain.ErrSequenceRegression
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeStateStore) Records(context.Context) ([]domain.CheckpointRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CheckpointRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeStateStore) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
	return nil
}

// fakeCodec keeps structures in memory but still touches real files so the
// pipeline's artifact validation has something to stat.
type fakeCodec struct {
	mu         sync.Mutex
	structures map[string]domain.Structure
	receptors  map[string]domain.Receptor
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{
		structures: map[string]domain.Structure{},
		receptors:  map[string]domain.Receptor{},
	}
}

func (f *fakeCodec) WriteStructure(path string, structure domain.Structure) error {
	f.mu.Lock()
	f.structures[path] = structure
	f.mu.Unlock()
	return os.WriteFile(path, []byte(fmt.Sprintf("%d ligands\n", len(structure.Ligands))), 0o600)
}

func (f *fakeCodec) ReadStructure(path string) (domain.Structure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	structure, ok := f.structures[path]
	if !ok {
		return domain.Structure{}, fmt.Errorf("no structure at %s", path)
	}
	return structure, nil
}

func (f *fakeCodec) ReadReceptor(path string) (domain.Receptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	receptor, ok := f.receptors[path]
	if !ok {
		return domain.Receptor{}, fmt.Errorf("no receptor at %s", path)
	}
	return receptor, nil
}

type fakeTopologyEditor struct {
	mu     sync.Mutex
	counts []int
}

func (f *fakeTopologyEditor) SetMoleculeCount(_ string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = append(f.counts, count)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}
