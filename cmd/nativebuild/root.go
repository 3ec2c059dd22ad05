package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gookit/color"
	"github.com/magefile/mage/mg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/contriboss/nativebuild"
)

// options holds the raw flag values before they are folded into a
// nativebuild.BuildConfiguration.
type options struct {
	configFile string

	msvcPath   string
	sdkPath    string
	cudaPath   string
	mode       string
	verbose    bool
	verifyFP   bool
	fastMath   bool
	quick      bool
	buildLLVM  bool
	root       string
	installDir string
	timeout    time.Duration
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, color.Danger.Sprintf("build error: %v", err))
	}
	return mg.ExitStatus(err)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "nativebuild",
		Short: "Build the native library",
		Long: "Build the native library with optional GPU kernels, optionally bootstrapping " +
			"the bundled LLVM/Clang toolchain and building the compiler library against it.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}

			report := newOrchestrator(cfg, stderr).Run(cmd.Context(), cfg)
			if report.Err != nil {
				printFailure(stderr, cfg, report)
				return report.Err
			}

			for _, r := range report.Results {
				state := "built"
				if r.Skipped {
					state = "up to date"
				}
				fmt.Fprintln(stdout, color.Success.Sprintf("%s: %s", state, r.Artifact))
			}
			for _, path := range report.Installed {
				fmt.Fprintf(stdout, "installed: %s\n", path)
			}
			return nil
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	bindFlags(rootCmd.PersistentFlags(), opts)

	rootCmd.AddCommand(newPlanCmd(opts, stdout, stderr))
	return rootCmd
}

func bindFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.configFile, "config", "", "YAML file with default settings")
	flags.StringVar(&opts.msvcPath, "msvc-path", "", "path to the MSVC toolset (Windows only)")
	flags.StringVar(&opts.sdkPath, "sdk-path", "", "path to the Windows SDK (Windows only)")
	flags.StringVar(&opts.cudaPath, "cuda-path", "", "path to the CUDA toolkit")
	flags.StringVar(&opts.mode, "mode", string(nativebuild.ModeRelease), "build configuration (release or debug)")
	flags.BoolVar(&opts.verbose, "verbose", true, "stream tool output and log every stage")
	flags.BoolVar(&opts.verifyFP, "verify-fp", false, "verify kernel inputs and outputs are finite")
	flags.BoolVar(&opts.fastMath, "fast-math", false, "enable fast math on the host and GPU compilers")
	flags.BoolVar(&opts.quick, "quick", false, "skip the accelerated kernels and emit GPU code for one architecture")
	flags.BoolVar(&opts.buildLLVM, "build-llvm", false, "bootstrap LLVM/Clang and build the compiler library")
	flags.StringVar(&opts.root, "root", ".", "project root containing the native sources")
	flags.StringVar(&opts.installDir, "install-dir", "", "copy the built libraries into this directory")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-process time limit (0 for none)")
}

// resolveConfig starts from the defaults, applies the config file and then
// every flag given explicitly on the command line.
func resolveConfig(cmd *cobra.Command, opts *options) (nativebuild.BuildConfiguration, error) {
	cfg := nativebuild.DefaultConfiguration()
	flags := cmd.Flags()

	if opts.configFile != "" {
		cf, err := nativebuild.LoadConfigFile(opts.configFile)
		if err != nil {
			return cfg, err
		}
		if err := cf.Apply(&cfg); err != nil {
			return cfg, err
		}
	}

	if flags.Changed("mode") {
		mode, err := nativebuild.ParseMode(opts.mode)
		if err != nil {
			return cfg, &nativebuild.Error{Kind: nativebuild.KindConfig, Op: "parse flags", Err: err}
		}
		cfg.Mode = mode
	}

	paths := map[string]struct {
		dst *string
		val string
	}{
		"msvc-path":   {&cfg.HostCompilerPath, opts.msvcPath},
		"sdk-path":    {&cfg.PlatformSDKPath, opts.sdkPath},
		"cuda-path":   {&cfg.GPUSDKPath, opts.cudaPath},
		"root":        {&cfg.Root, opts.root},
		"install-dir": {&cfg.InstallDir, opts.installDir},
	}
	for name, p := range paths {
		if flags.Changed(name) {
			*p.dst = p.val
		}
	}

	bools := map[string]struct {
		dst *bool
		val bool
	}{
		"verbose":    {&cfg.Verbose, opts.verbose},
		"verify-fp":  {&cfg.VerifyFiniteOutputs, opts.verifyFP},
		"fast-math":  {&cfg.FastMath, opts.fastMath},
		"quick":      {&cfg.Quick, opts.quick},
		"build-llvm": {&cfg.BuildBundledToolchain, opts.buildLLVM},
	}
	for name, b := range bools {
		if flags.Changed(name) {
			*b.dst = b.val
		}
	}

	if flags.Changed("timeout") {
		cfg.StageTimeout = opts.timeout
	}

	return cfg, cfg.Validate()
}

func newOrchestrator(cfg nativebuild.BuildConfiguration, stderr io.Writer) *nativebuild.Orchestrator {
	level := slog.LevelInfo
	runner := &nativebuild.ExecRunner{}
	if cfg.Verbose {
		level = slog.LevelDebug
		runner.Stream = stderr
	}

	o := nativebuild.NewOrchestrator()
	o.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	o.Runner = runner
	return o
}

// printFailure shows the captured tool output of a failed step unless it was
// already streamed.
func printFailure(w io.Writer, cfg nativebuild.BuildConfiguration, report *nativebuild.Report) {
	if cfg.Verbose {
		return
	}

	var stepErr *nativebuild.StepError
	if errors.As(report.Err, &stepErr) && len(stepErr.Output) > 0 {
		fmt.Fprintln(w, stepErr.Detail())
	}
}
