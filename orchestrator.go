package nativebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/magefile/mage/mg"

	"github.com/contriboss/nativebuild/internal/ctxlog"
)

// Report is the outcome of Orchestrator.Run.
//
// Err is nil on success. Any fatal condition, whichever stage raised it, ends
// up in Err as an *Error whose Kind tells configuration problems, a missing
// required toolchain, external stage failures and compile failures apart.
// Artifacts built before a failure stay on disk and are listed in Results.
type Report struct {
	Platform    Platform
	Toolchains  ToolchainInfo
	Bootstrap   *BootstrapResult
	Plan        *BuildPlan
	Results     []*BuildResult
	Diagnostics []Diagnostic
	Installed   []string
	Err         error
}

// ExitStatus returns the process exit status for the report: 0 on success,
// 1 on any fatal condition.
func (r *Report) ExitStatus() int {
	return mg.ExitStatus(r.Err)
}

// Orchestrator runs the build pipeline end to end.
//
// Nil collaborator fields are replaced with the default implementations
// (git, cmake, host compiler) at the start of each run, all sharing one
// ExecRunner bounded by BuildConfiguration.StageTimeout.
type Orchestrator struct {
	Platform Platform
	Env      Environment
	Manifest *Manifest
	Logger   *slog.Logger

	Runner  Runner
	Fetcher Fetcher
	Stages  Stages
	Driver  Driver

	// ReadDir lists the bundled toolchain library directory. Defaults to os.ReadDir.
	ReadDir func(name string) ([]os.DirEntry, error)
}

// NewOrchestrator creates an Orchestrator for the running platform.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		Platform: CurrentPlatform(),
		Env:      OSEnvironment{},
		Manifest: DefaultManifest(),
	}
}

// Run executes the whole pipeline for cfg.
//
// # Sequence
//
//  1. Validate cfg (no process is started for an invalid configuration)
//  2. Discover toolchains; only a missing required host compiler is fatal
//  3. Bootstrap the bundled toolchain when requested
//  4. Assemble the BuildPlan
//  5. Compile and link each target in order, stopping at the first failure
//  6. Copy artifacts to cfg.InstallDir when set
//
// Run never retries and never removes artifacts.
func (o *Orchestrator) Run(ctx context.Context, cfg BuildConfiguration) *Report {
	return o.run(ctx, cfg, true)
}

// Plan runs steps 1 to 4 of Run without starting any build. When the bundled
// toolchain is requested the plan lists the libraries of an existing install
// tree; if there is none the auxiliary target is left out and a KindAbsence
// diagnostic is reported instead.
func (o *Orchestrator) Plan(ctx context.Context, cfg BuildConfiguration) *Report {
	return o.run(ctx, cfg, false)
}

func (o *Orchestrator) run(ctx context.Context, cfg BuildConfiguration, compile bool) *Report {
	report := &Report{Platform: o.Platform}

	log := o.Logger
	if log == nil {
		log = ctxlog.FromContext(ctx)
	}
	ctx = ctxlog.WithLogger(ctx, log)

	if err := cfg.Validate(); err != nil {
		report.Err = err
		return report
	}

	log.Debug("configuration",
		"mode", cfg.Mode,
		"verbose", cfg.Verbose,
		"verify_fp", cfg.VerifyFiniteOutputs,
		"fast_math", cfg.FastMath,
		"quick", cfg.Quick,
		"build_llvm", cfg.BuildBundledToolchain,
		"platform", o.Platform.OS,
	)

	deps := o.collaborators(cfg)

	locator := &Locator{Platform: o.Platform, Env: deps.env}
	toolchains, err := locator.Discover(ctx, cfg)
	report.Toolchains = toolchains
	if err != nil {
		report.Err = err
		return report
	}

	var pending []Diagnostic
	if cfg.BuildBundledToolchain {
		bootstrapper := &Bootstrapper{
			Env:      deps.env,
			Fetcher:  deps.fetcher,
			Stages:   deps.stages,
			Manifest: deps.manifest,
		}
		switch installDir := bootstrapper.InstallDir(cfg); {
		case compile:
			res, err := bootstrapper.Bootstrap(ctx, cfg)
			if err != nil {
				report.Err = err
				return report
			}
			report.Bootstrap = res
			toolchains.BundledCompilerInstallPath = res.InstallDir
		case deps.env.Exists(installDir):
			toolchains.BundledCompilerInstallPath = installDir
		default:
			pending = append(pending, Diagnostic{
				Kind:    KindAbsence,
				Message: fmt.Sprintf("bundled toolchain is not installed in %s, plan omits the compiler library", installDir),
			})
			cfg.BuildBundledToolchain = false
		}
		report.Toolchains = toolchains
	}

	assembler := &Assembler{Platform: o.Platform, Manifest: deps.manifest, ReadDir: o.ReadDir}
	plan, err := assembler.Assemble(cfg, toolchains)
	if err != nil {
		report.Err = err
		return report
	}
	plan.Diagnostics = append(pending, plan.Diagnostics...)
	report.Plan = plan
	for _, d := range plan.Diagnostics {
		level := slog.LevelWarn
		if d.Kind.Fatal() {
			level = slog.LevelError
		}
		log.Log(ctx, level, d.Message, "kind", d.Kind)
		report.Diagnostics = append(report.Diagnostics, d)
	}

	if !compile {
		return report
	}

	report.Results, err = compileTargets(ctx, deps.driver, plan, toolchains)
	if err != nil {
		report.Err = asKind(KindCompile, "build native libraries", err)
		return report
	}

	report.Installed, err = installArtifacts(cfg.InstallDir, report.Results)
	if err != nil {
		report.Err = newError(KindExternalStage, "install artifacts", err)
		return report
	}

	log.Info("build complete", "artifacts", len(report.Results), "installed", len(report.Installed))
	return report
}

type collaborators struct {
	env      Environment
	manifest *Manifest
	fetcher  Fetcher
	stages   Stages
	driver   Driver
}

func (o *Orchestrator) collaborators(cfg BuildConfiguration) collaborators {
	c := collaborators{
		env:      o.Env,
		manifest: o.Manifest,
		fetcher:  o.Fetcher,
		stages:   o.Stages,
		driver:   o.Driver,
	}
	if c.env == nil {
		c.env = OSEnvironment{}
	}
	if c.manifest == nil {
		c.manifest = DefaultManifest()
	}

	runner := o.Runner
	if runner == nil {
		runner = &ExecRunner{}
	}
	if r, ok := runner.(*ExecRunner); ok && cfg.StageTimeout > 0 {
		bounded := *r
		bounded.Timeout = cfg.StageTimeout
		runner = &bounded
	}

	if c.fetcher == nil {
		c.fetcher = &GitFetcher{Runner: runner}
	}
	if c.stages == nil {
		c.stages = &CMakeStages{Runner: runner}
	}
	if c.driver == nil {
		c.driver = &HostDriver{Platform: o.Platform, Env: c.env, Runner: runner, Manifest: c.manifest}
	}
	return c
}

// compileTargets builds the plan's targets in order.
//
// Processing stops at the first failure; the returned results include the
// failed target. If the context is canceled between targets a result carrying
// the context error is appended and the error returned.
func compileTargets(ctx context.Context, driver Driver, plan *BuildPlan, toolchains ToolchainInfo) ([]*BuildResult, error) {
	log := ctxlog.FromContext(ctx)
	var results []*BuildResult

	for _, target := range plan.Targets {
		if ctxErr := ctx.Err(); ctxErr != nil {
			results = append(results, &BuildResult{Target: target, Error: ctxErr})
			return results, ctxErr
		}

		log.Info("building target", "target", target.Name, "kind", target.Kind, "driver", driver.Name(), "artifact", target.ArtifactPath)

		result, err := driver.CompileAndLink(ctx, target, toolchains)
		if result == nil {
			result = &BuildResult{Target: target, Error: err}
		}
		results = append(results, result)

		if err != nil {
			return results, err
		}
		if !result.Success {
			return results, BuildError("build "+target.Name, result.Output, errors.New("driver reported failure"))
		}
	}

	return results, nil
}

// asKind wraps err as a kind error unless it already carries a kind.
func asKind(kind Kind, op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(kind, op, err)
}
