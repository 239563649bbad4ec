package application

import (
	"context"
	"fmt"

	"github.com/bnema/wns-cli/internal/domain"
	"github.com/bnema/wns-cli/internal/ports"
	"go.uber.org/zap"
)

// ShakerHooks commit progress between simulation stages. The driver persists
// artifacts and checkpoint records; UpdateTopology keeps the simulation
// topology's ligand count in step with washing. EngineCheckpoint locates a
// native engine checkpoint left behind by an interrupted invocation of the
// named stage, returning "" when none exists.
type ShakerHooks struct {
	SavePreMD        func(ctx context.Context, result ports.MDResult, structure domain.Structure) error
	SaveCycle        func(ctx context.Context, cycle int, result ports.MDResult, structure domain.Structure, records []domain.SurvivalRecord) error
	SaveFinal        func(ctx context.Context, result ports.MDResult, structure domain.Structure) error
	UpdateTopology   func(count int) error
	EngineCheckpoint func(label string) string
}

// ShakerResume positions the stage machine after a restart. NextCycle is the
// first annealing cycle still to run (1-based); SkipPreMD is set when the
// restrained equilibration already committed.
type ShakerResume struct {
	SkipPreMD      bool
	NextCycle      int
	Structure      domain.Structure
	Energies       map[int]float64
	InitialLigands int
}

type ShakerResult struct {
	Structure domain.Structure
	Records   []domain.SurvivalRecord
	Cycles    int
	Final     ports.MDResult
}

// Shaker subjects the wrapped monolayer to molecular dynamics: a restrained
// equilibration, then heating cycles that each end in a washing pass
// removing ligands that drifted off or lost their grip. Cycling stops when
// the surviving fraction reaches the target or the cycle budget runs out; a
// long unrestrained run then produces the final structure.
type Shaker struct {
	engine ports.MDEngine
	filter *WashingFilter
	params ShakerParams
	log    *zap.Logger
}

func NewShaker(engine ports.MDEngine, filter *WashingFilter, params ShakerParams, log *zap.Logger) *Shaker {
	return &Shaker{engine: engine, filter: filter, params: params, log: log}
}

func (s *Shaker) Run(ctx context.Context, resume ShakerResume, hooks ShakerHooks) (ShakerResult, error) {
	structure := resume.Structure
	energies := resume.Energies
	initial := resume.InitialLigands
	if initial == 0 {
		initial = len(structure.Ligands)
	}
	if initial == 0 {
		return ShakerResult{}, domain.ErrNoLigandsDocked
	}

	// Only the stage in flight when the run was interrupted can have left a
	// usable native checkpoint, and that is always the first stage executed
	// after a restart: the locator is consulted once, for that stage's own
	// label, then dropped.
	locate := hooks.EngineCheckpoint
	if !s.params.NativeResume {
		locate = nil
	}
	resumeFrom := func(label string) string {
		if locate == nil {
			return ""
		}
		path := locate(label)
		locate = nil
		return path
	}

	if !resume.SkipPreMD {
		if err := ctx.Err(); err != nil {
			return ShakerResult{}, fmt.Errorf("shaker interrupted: %w", err)
		}
		result, err := s.engine.Run(ctx, ports.MDRequest{
			Label:      "premd",
			Structure:  structure,
			Restrained: true,
			DurationPS: s.params.PreMDDurationPS,
			ResumeFrom: resumeFrom("premd"),
		})
		if err != nil {
			return ShakerResult{}, fmt.Errorf("restrained equilibration: %w", err)
		}
		structure = result.FinalStructure
		energies = result.LigandEnergies
		if err := hooks.SavePreMD(ctx, result, structure); err != nil {
			return ShakerResult{}, fmt.Errorf("checkpoint equilibration: %w", err)
		}
	}

	var allRecords []domain.SurvivalRecord
	cycle := resume.NextCycle
	if cycle < 1 {
		cycle = 1
	}

	for ; cycle <= s.params.MaxCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return ShakerResult{}, fmt.Errorf("shaker interrupted: %w", err)
		}
		if s.targetReached(len(structure.Ligands), initial) {
			break
		}

		ref := s.filter.Begin(structure, energies)

		label := fmt.Sprintf("anneal-%d", cycle)
		result, err := s.engine.Run(ctx, ports.MDRequest{
			Label:      label,
			Structure:  structure,
			Schedule:   s.annealingSchedule(structure),
			DurationPS: s.params.AnnealDurationPS,
			ResumeFrom: resumeFrom(label),
		})
		if err != nil {
			return ShakerResult{}, fmt.Errorf("annealing cycle %d: %w", cycle, err)
		}

		records, removed := s.filter.Wash(cycle, ref, result.FinalStructure, result.LigandEnergies)
		allRecords = append(allRecords, records...)

		structure = result.FinalStructure.WithoutLigands(removed)
		energies = result.LigandEnergies

		s.log.Info("washing pass complete",
			zap.Int("cycle", cycle),
			zap.Int("removed", len(removed)),
			zap.Int("surviving", len(structure.Ligands)),
		)

		if hooks.UpdateTopology != nil && len(removed) > 0 {
			if err := hooks.UpdateTopology(len(structure.Ligands)); err != nil {
				return ShakerResult{}, fmt.Errorf("update topology after cycle %d: %w", cycle, err)
			}
		}
		if err := hooks.SaveCycle(ctx, cycle, result, structure, records); err != nil {
			return ShakerResult{}, fmt.Errorf("checkpoint cycle %d: %w", cycle, err)
		}

		if len(structure.Ligands) == 0 {
			return ShakerResult{}, fmt.Errorf("cycle %d: %w", cycle, domain.ErrAllLigandsRemoved)
		}
	}

	if err := ctx.Err(); err != nil {
		return ShakerResult{}, fmt.Errorf("shaker interrupted: %w", err)
	}

	final, err := s.engine.Run(ctx, ports.MDRequest{
		Label:      "finalmd",
		Structure:  structure,
		DurationPS: s.params.FinalMDDurationPS,
		ResumeFrom: resumeFrom("finalmd"),
	})
	if err != nil {
		return ShakerResult{}, fmt.Errorf("final simulation: %w", err)
	}
	structure = final.FinalStructure
	if err := hooks.SaveFinal(ctx, final, structure); err != nil {
		return ShakerResult{}, fmt.Errorf("checkpoint final simulation: %w", err)
	}

	return ShakerResult{
		Structure: structure,
		Records:   allRecords,
		Cycles:    cycle - 1,
		Final:     final,
	}, nil
}

func (s *Shaker) targetReached(surviving, initial int) bool {
	return float64(surviving)/float64(initial) <= s.params.SurvivalTarget
}

// annealingSchedule heats from the reference temperature to a peak and back.
// The peak depends on the heaviest ligand still bound: small molecules shake
// loose at lower temperatures, larger ones need more.
func (s *Shaker) annealingSchedule(structure domain.Structure) []ports.TemperaturePoint {
	heaviest := 0.0
	for _, pose := range structure.Ligands {
		if mw := pose.MolecularWeight(); mw > heaviest {
			heaviest = mw
		}
	}
	peak := s.params.PeakSmallKelvin
	if heaviest >= s.params.WeightThreshold {
		peak = s.params.PeakLargeKelvin
	}
	return []ports.TemperaturePoint{
		{TimePS: 0, Kelvin: s.params.ReferenceKelvin},
		{TimePS: s.params.AnnealDurationPS / 2, Kelvin: peak},
		{TimePS: s.params.AnnealDurationPS, Kelvin: s.params.ReferenceKelvin},
	}
}
