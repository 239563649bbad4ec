package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/wns-cli/internal/adapters/dock"
	"github.com/bnema/wns-cli/internal/adapters/hbond"
	"github.com/bnema/wns-cli/internal/adapters/md"
	"github.com/bnema/wns-cli/internal/adapters/pdbqt"
	statusadapter "github.com/bnema/wns-cli/internal/adapters/render/status"
	tomlstate "github.com/bnema/wns-cli/internal/adapters/state/toml"
	"github.com/bnema/wns-cli/internal/application"
	"github.com/bnema/wns-cli/internal/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	cfg            *viper.Viper
	log            *zap.Logger
	statusRenderer func(application.RunStatus, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg := viper.New()
	cfg.SetConfigName("wns")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		cfg.AddConfigPath(filepath.Join(home, ".config", "wns"))
	}
	cfg.SetEnvPrefix("WNS")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	cfg.AutomaticEnv()
	setConfigDefaults(cfg)

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	log, err := newLogger(cfg.GetBool("verbose"))
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	return &app{
		cfg:            cfg,
		log:            log,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

// Command output goes to stdout, logs to stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func setConfigDefaults(cfg *viper.Viper) {
	defaults := application.DefaultParams()

	cfg.SetDefault("dock.binary", defaults.DockBinary)
	cfg.SetDefault("md.binary", defaults.MDBinary)

	cfg.SetDefault("wrapper.mask-radius", defaults.Wrapper.MaskRadius)
	cfg.SetDefault("wrapper.coverage-threshold", defaults.Wrapper.CoverageThreshold)
	cfg.SetDefault("wrapper.max-iterations", defaults.Wrapper.MaxIterations)
	cfg.SetDefault("wrapper.seeds-per-iteration", defaults.Wrapper.SeedsPerIteration)
	cfg.SetDefault("wrapper.clash-distance", defaults.Wrapper.ClashDistance)
	cfg.SetDefault("wrapper.exhaustiveness-ladder", defaults.Wrapper.ExhaustivenessLadder)
	cfg.SetDefault("wrapper.on-dock-failure", defaults.Wrapper.OnDockFailure)
	cfg.SetDefault("wrapper.base-seed", defaults.Wrapper.BaseSeed)

	cfg.SetDefault("shaker.premd-duration-ps", defaults.Shaker.PreMDDurationPS)
	cfg.SetDefault("shaker.anneal-duration-ps", defaults.Shaker.AnnealDurationPS)
	cfg.SetDefault("shaker.finalmd-duration-ps", defaults.Shaker.FinalMDDurationPS)
	cfg.SetDefault("shaker.max-cycles", defaults.Shaker.MaxCycles)
	cfg.SetDefault("shaker.survival-target", defaults.Shaker.SurvivalTarget)
	cfg.SetDefault("shaker.displacement-cutoff", defaults.Shaker.DisplacementCutoff)
	cfg.SetDefault("shaker.energy-margin", defaults.Shaker.EnergyMargin)
	cfg.SetDefault("shaker.weight-threshold", defaults.Shaker.WeightThreshold)
	cfg.SetDefault("shaker.peak-small-kelvin", defaults.Shaker.PeakSmallKelvin)
	cfg.SetDefault("shaker.peak-large-kelvin", defaults.Shaker.PeakLargeKelvin)
	cfg.SetDefault("shaker.reference-kelvin", defaults.Shaker.ReferenceKelvin)
	cfg.SetDefault("shaker.native-resume", defaults.Shaker.NativeResume)
	cfg.SetDefault("shaker.molecule-name", defaults.Shaker.MoleculeName)

	cfg.SetDefault("hbond.max-distance", defaults.HBond.MaxDistance)
	cfg.SetDefault("hbond.min-angle", defaults.HBond.MinAngle)
}

// buildParams merges configuration defaults with the per-command path flags.
func (a *app) buildParams(flags runFlags) (application.Params, error) {
	p := application.DefaultParams()
	p.RunID = flags.runID
	p.WorkDir = flags.workDir
	if p.WorkDir == "" {
		p.WorkDir = filepath.Join("runs", flags.runID)
	}
	p.ReceptorPath = flags.receptor
	p.LigandPath = flags.ligand
	p.TopologyPath = flags.topology

	p.DockBinary = a.cfg.GetString("dock.binary")
	p.MDBinary = a.cfg.GetString("md.binary")

	p.Wrapper.MaskRadius = a.cfg.GetFloat64("wrapper.mask-radius")
	p.Wrapper.CoverageThreshold = a.cfg.GetFloat64("wrapper.coverage-threshold")
	p.Wrapper.MaxIterations = a.cfg.GetInt("wrapper.max-iterations")
	p.Wrapper.SeedsPerIteration = a.cfg.GetInt("wrapper.seeds-per-iteration")
	p.Wrapper.ClashDistance = a.cfg.GetFloat64("wrapper.clash-distance")
	if ladder := a.cfg.GetIntSlice("wrapper.exhaustiveness-ladder"); len(ladder) > 0 {
		p.Wrapper.ExhaustivenessLadder = ladder
	}
	p.Wrapper.OnDockFailure = a.cfg.GetString("wrapper.on-dock-failure")
	p.Wrapper.BaseSeed = a.cfg.GetInt64("wrapper.base-seed")

	p.Shaker.PreMDDurationPS = a.cfg.GetFloat64("shaker.premd-duration-ps")
	p.Shaker.AnnealDurationPS = a.cfg.GetFloat64("shaker.anneal-duration-ps")
	p.Shaker.FinalMDDurationPS = a.cfg.GetFloat64("shaker.finalmd-duration-ps")
	p.Shaker.MaxCycles = a.cfg.GetInt("shaker.max-cycles")
	p.Shaker.SurvivalTarget = a.cfg.GetFloat64("shaker.survival-target")
	p.Shaker.DisplacementCutoff = a.cfg.GetFloat64("shaker.displacement-cutoff")
	p.Shaker.EnergyMargin = a.cfg.GetFloat64("shaker.energy-margin")
	p.Shaker.WeightThreshold = a.cfg.GetFloat64("shaker.weight-threshold")
	p.Shaker.PeakSmallKelvin = a.cfg.GetFloat64("shaker.peak-small-kelvin")
	p.Shaker.PeakLargeKelvin = a.cfg.GetFloat64("shaker.peak-large-kelvin")
	p.Shaker.ReferenceKelvin = a.cfg.GetFloat64("shaker.reference-kelvin")
	p.Shaker.NativeResume = a.cfg.GetBool("shaker.native-resume")
	p.Shaker.MoleculeName = a.cfg.GetString("shaker.molecule-name")

	p.HBond.MaxDistance = a.cfg.GetFloat64("hbond.max-distance")
	p.HBond.MinAngle = a.cfg.GetFloat64("hbond.min-angle")

	grid, err := flags.grid()
	if err != nil {
		return application.Params{}, err
	}
	p.Wrapper.Grid = grid

	return p, nil
}

func (a *app) buildPipeline(params application.Params) (*application.Pipeline, error) {
	if err := os.MkdirAll(params.WorkDir, 0o700); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	store, err := tomlstate.NewStore(filepath.Join(params.WorkDir, "state.toml"), params.RunID)
	if err != nil {
		return nil, fmt.Errorf("wire state store: %w", err)
	}

	var topology ports.TopologyEditor
	if params.TopologyPath != "" {
		topology = md.NewFileTopologyEditor(params.TopologyPath)
	}

	wrapper := application.NewWrapper(
		dock.NewExecEngine(params.DockBinary, params.LigandPath, params.WorkDir, a.log),
		params.Wrapper,
		a.log,
	)
	shaker := application.NewShaker(
		md.NewGromacsEngine(params.MDBinary, params.TopologyPath, params.WorkDir, a.log),
		application.NewWashingFilter(params.Shaker.DisplacementCutoff, params.Shaker.EnergyMargin),
		params.Shaker,
		a.log,
	)
	selector := application.NewSurvivorSelector(hbond.NewGeometricEvaluator(), params.HBond, a.log)

	return application.NewPipeline(
		store,
		pdbqt.NewFileCodec(),
		topology,
		wrapper,
		shaker,
		selector,
		ports.SystemClock{},
		params,
		a.log,
	), nil
}

func (a *app) stateStore(runID, workDir string) (ports.StateStore, error) {
	if workDir == "" {
		workDir = filepath.Join("runs", runID)
	}
	store, err := tomlstate.NewStore(filepath.Join(workDir, "state.toml"), runID)
	if err != nil {
		return nil, fmt.Errorf("wire state store: %w", err)
	}
	return store, nil
}
