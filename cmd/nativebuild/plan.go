package main

import (
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/contriboss/nativebuild"
)

func newPlanCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the targets a build would produce",
		Long: "Discover toolchains and print the ordered build targets without compiling. " +
			"With --build-llvm the libraries of an existing bundled toolchain install are " +
			"listed; nothing is fetched or built.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}

			report := newOrchestrator(cfg, stderr).Plan(cmd.Context(), cfg)
			if report.Err != nil {
				return report.Err
			}

			printPlan(stdout, report)
			return nil
		},
	}
}

func printPlan(w io.Writer, report *nativebuild.Report) {
	fmt.Fprintf(w, "platform: %s\n", report.Platform.OS)

	gpu := "none"
	if report.Toolchains.HasGPU() {
		gpu = report.Toolchains.GPUSDKPath
	}
	fmt.Fprintf(w, "gpu sdk: %s\n", gpu)

	if h := report.Toolchains.HostCompiler; h != nil {
		fmt.Fprintf(w, "host compiler: %s (%s)\n", h.CompilerPath, h.Source)
	}
	if p := report.Toolchains.BundledCompilerInstallPath; p != "" {
		fmt.Fprintf(w, "bundled toolchain: %s\n", p)
	}

	for _, d := range report.Diagnostics {
		fmt.Fprintln(w, color.Warn.Sprint(d.String()))
	}

	for _, t := range report.Plan.Targets {
		fmt.Fprintf(w, "\n%s (%s) -> %s\n", t.Name, t.Kind, t.ArtifactPath)
		for _, src := range t.Sources {
			fmt.Fprintf(w, "  source: %s\n", src)
		}
		if t.GPUSource != "" {
			fmt.Fprintf(w, "  gpu source: %s\n", t.GPUSource)
		}
		for _, lib := range t.Libraries {
			fmt.Fprintf(w, "  library: %s\n", lib)
		}
	}
}
