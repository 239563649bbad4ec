package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
	"go.uber.org/zap"
)

const structureArtifactKey = "structure"

// Pipeline drives a whole run through its stages, committing a checkpoint
// record after every unit of progress and resuming from the newest record
// whose artifacts are still intact. Records written after a crash that lost
// artifacts are skipped on resume; the sequence number keeps growing so the
// skipped records are never shadowed.
type Pipeline struct {
	store    ports.StateStore
	codec    ports.StructureCodec
	topology ports.TopologyEditor
	wrapper  *Wrapper
	shaker   *Shaker
	selector *SurvivorSelector
	clock    ports.Clock
	params   Params
	log      *zap.Logger

	nextSeq    int64
	walkedBack bool
}

func NewPipeline(
	store ports.StateStore,
	codec ports.StructureCodec,
	topology ports.TopologyEditor,
	wrapper *Wrapper,
	shaker *Shaker,
	selector *SurvivorSelector,
	clock ports.Clock,
	params Params,
	log *zap.Logger,
) *Pipeline {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Pipeline{
		store:    store,
		codec:    codec,
		topology: topology,
		wrapper:  wrapper,
		shaker:   shaker,
		selector: selector,
		clock:    clock,
		params:   params,
		log:      log,
	}
}

// RunResult is the outcome of a completed (or partially completed) run.
type RunResult struct {
	Survivors    domain.Structure
	Reports      []SurvivorReport
	WrapperState domain.WrapperState
	Cycles       int
}

func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	last, err := p.prepare(ctx)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{WrapperState: domain.WrapperConverged}

	structure, err := p.runWrapper(ctx, last, &result)
	if err != nil {
		return RunResult{}, err
	}

	structure, cycles, err := p.runShaker(ctx, last, structure)
	if err != nil {
		return RunResult{}, err
	}
	result.Cycles = cycles

	survivors, reports, err := p.runSelection(ctx, last, structure)
	if err != nil {
		return RunResult{}, err
	}
	result.Survivors = survivors
	result.Reports = reports
	return result, nil
}

// Wrap runs only the docking and masking leg, leaving the run ready for a
// later shake.
func (p *Pipeline) Wrap(ctx context.Context) (RunResult, error) {
	last, err := p.prepare(ctx)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{WrapperState: domain.WrapperConverged}
	structure, err := p.runWrapper(ctx, last, &result)
	if err != nil {
		return RunResult{}, err
	}
	result.Survivors = structure
	return result, nil
}

// Shake runs the simulation and survivor legs of a run whose wrapper already
// committed.
func (p *Pipeline) Shake(ctx context.Context) (RunResult, error) {
	last, err := p.prepare(ctx)
	if err != nil {
		return RunResult{}, err
	}
	if last == nil || (last.Stage == domain.StageWrapper && last.Phase != domain.PhaseWrapperDone) {
		return RunResult{}, fmt.Errorf("run %s has no wrapped monolayer: %w", p.params.RunID, domain.ErrRunNotFound)
	}

	result := RunResult{WrapperState: domain.WrapperConverged}
	structure, err := p.loadStructure(*last)
	if err != nil {
		return RunResult{}, err
	}

	structure, cycles, err := p.runShaker(ctx, last, structure)
	if err != nil {
		return RunResult{}, err
	}
	result.Cycles = cycles

	survivors, reports, err := p.runSelection(ctx, last, structure)
	if err != nil {
		return RunResult{}, err
	}
	result.Survivors = survivors
	result.Reports = reports
	return result, nil
}

// prepare validates the configuration, loads the record history, and locates
// the newest trustworthy checkpoint.
func (p *Pipeline) prepare(ctx context.Context) (*domain.CheckpointRecord, error) {
	if err := p.params.Validate(); err != nil {
		return nil, err
	}

	records, err := p.store.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint records: %w", err)
	}
	last, skipped := p.latestValid(records)
	if len(records) > 0 {
		p.nextSeq = records[len(records)-1].Seq + 1
	} else {
		p.nextSeq = 1
	}
	p.walkedBack = skipped > 0
	if skipped > 0 {
		p.log.Warn("ignoring checkpoint records with missing artifacts", zap.Int("skipped", skipped))
	}
	if last != nil && last.Failure == domain.ErrAllLigandsRemoved.Error() {
		// Terminal empty result from an earlier run; nothing to redo.
		return nil, domain.ErrAllLigandsRemoved
	}
	return last, nil
}

// latestValid walks the record list from the end and returns the newest
// record whose artifacts all still exist and are non-empty.
func (p *Pipeline) latestValid(records []domain.CheckpointRecord) (*domain.CheckpointRecord, int) {
	for i := len(records) - 1; i >= 0; i-- {
		if p.artifactsIntact(records[i]) {
			return &records[i], len(records) - 1 - i
		}
	}
	return nil, len(records)
}

func (p *Pipeline) artifactsIntact(record domain.CheckpointRecord) bool {
	for _, path := range record.Artifacts {
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			return false
		}
	}
	return true
}

func (p *Pipeline) runWrapper(ctx context.Context, last *domain.CheckpointRecord, result *RunResult) (domain.Structure, error) {
	if last != nil && (last.Stage != domain.StageWrapper || last.Phase == domain.PhaseWrapperDone) {
		// Wrapper already committed; reload the structure it left behind.
		return p.loadStructure(*last)
	}

	resume := WrapperResume{}
	if last != nil && last.Phase == domain.PhaseIteration {
		structure, err := p.loadStructure(*last)
		if err != nil {
			return domain.Structure{}, err
		}
		resume = WrapperResume{Iteration: last.Iteration + 1, Ligands: structure.Ligands}
		p.log.Info("resuming wrapper", zap.Int("iteration", resume.Iteration))

		wres, err := p.wrapper.Run(ctx, structure.Receptor, resume, p.saveWrapperIteration)
		if err != nil {
			return domain.Structure{}, err
		}
		result.WrapperState = wres.State
		return p.finishWrapper(ctx, wres)
	}

	receptor, err := p.codec.ReadReceptor(p.params.ReceptorPath)
	if err != nil {
		return domain.Structure{}, err
	}
	wres, err := p.wrapper.Run(ctx, receptor, resume, p.saveWrapperIteration)
	if err != nil {
		return domain.Structure{}, err
	}
	result.WrapperState = wres.State
	return p.finishWrapper(ctx, wres)
}

func (p *Pipeline) finishWrapper(ctx context.Context, wres WrapperResult) (domain.Structure, error) {
	path := p.artifactPath("monolayer.pdbqt")
	if err := p.codec.WriteStructure(path, wres.Structure); err != nil {
		return domain.Structure{}, err
	}
	record := p.newRecord(domain.StageWrapper, domain.PhaseWrapperDone)
	record.Iteration = wres.Iterations
	record.Completed = true
	record.Artifacts[structureArtifactKey] = path
	if wres.State == domain.WrapperExhausted {
		record.Failure = "iteration budget exhausted before coverage convergence"
	}
	if err := p.store.Append(ctx, record); err != nil {
		return domain.Structure{}, fmt.Errorf("checkpoint wrapper completion: %w", err)
	}
	return wres.Structure, nil
}

func (p *Pipeline) saveWrapperIteration(ctx context.Context, iteration int, structure domain.Structure) error {
	path := p.artifactPath(fmt.Sprintf("wrapper-iter-%04d.pdbqt", iteration))
	if err := p.codec.WriteStructure(path, structure); err != nil {
		return err
	}
	record := p.newRecord(domain.StageWrapper, domain.PhaseIteration)
	record.Iteration = iteration
	record.Artifacts[structureArtifactKey] = path
	return p.store.Append(ctx, record)
}

func (p *Pipeline) runShaker(ctx context.Context, last *domain.CheckpointRecord, structure domain.Structure) (domain.Structure, int, error) {
	if last != nil && (last.Stage == domain.StageSurvivors ||
		(last.Stage == domain.StageShaker && (last.Phase == domain.PhaseShakerDone || last.Phase == domain.PhaseFinalMD))) {
		loaded, err := p.loadStructure(*last)
		if err != nil {
			return domain.Structure{}, 0, err
		}
		return loaded, last.Cycle, nil
	}

	resume := ShakerResume{Structure: structure, InitialLigands: p.initialLigandCount(structure, last)}
	if last != nil && last.Stage == domain.StageShaker {
		loaded, err := p.loadStructure(*last)
		if err != nil {
			return domain.Structure{}, 0, err
		}
		resume.Structure = loaded
		resume.SkipPreMD = true
		resume.NextCycle = last.Cycle + 1
		p.log.Info("resuming shaker", zap.Int("cycle", resume.NextCycle))
	}

	hooks := ShakerHooks{
		SavePreMD: func(ctx context.Context, mdr ports.MDResult, s domain.Structure) error {
			return p.saveShakerStep(ctx, domain.PhasePreMD, 0, mdr, s, nil)
		},
		SaveCycle: func(ctx context.Context, cycle int, mdr ports.MDResult, s domain.Structure, records []domain.SurvivalRecord) error {
			return p.saveShakerStep(ctx, domain.PhaseCycle, cycle, mdr, s, records)
		},
		SaveFinal: func(ctx context.Context, mdr ports.MDResult, s domain.Structure) error {
			return p.saveShakerStep(ctx, domain.PhaseFinalMD, 0, mdr, s, nil)
		},
		EngineCheckpoint: p.locateEngineCheckpoint,
	}
	if p.topology != nil {
		hooks.UpdateTopology = func(count int) error {
			return p.topology.SetMoleculeCount(p.params.Shaker.MoleculeName, count)
		}
	}

	sres, err := p.shaker.Run(ctx, resume, hooks)
	if err != nil {
		if errors.Is(err, domain.ErrAllLigandsRemoved) {
			record := p.newRecord(domain.StageShaker, domain.PhaseShakerDone)
			record.Failure = domain.ErrAllLigandsRemoved.Error()
			record.Completed = true
			if saveErr := p.store.Append(ctx, record); saveErr != nil {
				p.log.Error("recording empty result failed", zap.Error(saveErr))
			}
		}
		return domain.Structure{}, 0, err
	}
	return sres.Structure, sres.Cycles, nil
}

// initialLigandCount recovers the monolayer size the survival fraction is
// measured against. Mid-shaker resumes read it from the wrapper completion
// record via the monolayer artifact.
func (p *Pipeline) initialLigandCount(structure domain.Structure, last *domain.CheckpointRecord) int {
	if last == nil || last.Stage == domain.StageWrapper {
		return len(structure.Ligands)
	}
	monolayer, err := p.codec.ReadStructure(p.artifactPath("monolayer.pdbqt"))
	if err != nil {
		p.log.Warn("monolayer artifact unreadable, measuring survival against current ligands", zap.Error(err))
		return len(structure.Ligands)
	}
	return len(monolayer.Ligands)
}

// locateEngineCheckpoint finds the native checkpoint an interrupted engine
// invocation left on disk for the stage about to be re-executed. After a
// walk-back nothing is returned: checkpoints written alongside discarded
// records are not trusted.
func (p *Pipeline) locateEngineCheckpoint(label string) string {
	if p.walkedBack {
		return ""
	}
	path := p.artifactPath(label + ".cpt")
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return ""
	}
	return path
}

func (p *Pipeline) saveShakerStep(ctx context.Context, phase string, cycle int, mdr ports.MDResult, structure domain.Structure, records []domain.SurvivalRecord) error {
	name := phase + ".pdbqt"
	if phase == domain.PhaseCycle {
		name = fmt.Sprintf("cycle-%02d.pdbqt", cycle)
	}
	path := p.artifactPath(name)
	if err := p.codec.WriteStructure(path, structure); err != nil {
		return err
	}

	record := p.newRecord(domain.StageShaker, phase)
	record.Cycle = cycle
	record.Artifacts[structureArtifactKey] = path
	if mdr.TrajectoryPath != "" {
		record.Artifacts["trajectory"] = mdr.TrajectoryPath
	}
	if mdr.CheckpointPath != "" {
		record.Artifacts["engine_checkpoint"] = mdr.CheckpointPath
	}
	for _, r := range records {
		if r.Removed {
			p.log.Info("ligand removed",
				zap.Int("residue", r.ResidueID),
				zap.Int("cycle", r.Cycle),
				zap.String("reason", string(r.Reason)),
				zap.Float64("displacement", r.Displacement),
			)
		}
	}
	return p.store.Append(ctx, record)
}

func (p *Pipeline) runSelection(ctx context.Context, last *domain.CheckpointRecord, structure domain.Structure) (domain.Structure, []SurvivorReport, error) {
	if last != nil && last.Stage == domain.StageSurvivors {
		loaded, err := p.loadStructure(*last)
		if err != nil {
			return domain.Structure{}, nil, err
		}
		p.log.Info("run already complete", zap.Int("survivors", len(loaded.Ligands)))
		return loaded, nil, nil
	}

	survivors, reports, err := p.selector.Select(ctx, structure)
	if err != nil {
		return domain.Structure{}, nil, err
	}

	path := p.artifactPath("survivors.pdbqt")
	if err := p.codec.WriteStructure(path, survivors); err != nil {
		return domain.Structure{}, nil, err
	}
	record := p.newRecord(domain.StageSurvivors, domain.PhaseSurvivors)
	record.Completed = true
	record.Artifacts[structureArtifactKey] = path
	if err := p.store.Append(ctx, record); err != nil {
		return domain.Structure{}, nil, fmt.Errorf("checkpoint survivor selection: %w", err)
	}
	return survivors, reports, nil
}

func (p *Pipeline) loadStructure(record domain.CheckpointRecord) (domain.Structure, error) {
	path, ok := record.Artifacts[structureArtifactKey]
	if !ok {
		return domain.Structure{}, fmt.Errorf("record seq %d: %w", record.Seq, domain.ErrCheckpointInvalid)
	}
	structure, err := p.codec.ReadStructure(path)
	if err != nil {
		return domain.Structure{}, fmt.Errorf("record seq %d: %w: %v", record.Seq, domain.ErrCheckpointInvalid, err)
	}
	return structure, nil
}

func (p *Pipeline) newRecord(stage domain.PipelineStage, phase string) domain.CheckpointRecord {
	record := domain.CheckpointRecord{
		Seq:       p.nextSeq,
		Stage:     stage,
		Phase:     phase,
		Artifacts: map[string]string{},
		CreatedAt: p.clock.Now(),
	}
	p.nextSeq++
	return record
}

func (p *Pipeline) artifactPath(name string) string {
	return filepath.Join(p.params.WorkDir, name)
}
