// Package nativebuild orchestrates the build of a native compute library whose
// optional pieces depend on the toolchains present on the build machine.
//
// The library always ships one primary shared library. A GPU kernel backend is
// compiled into it when a GPU SDK can be found, an accelerated math kernel is
// compiled unless quick mode is requested, and an auxiliary compiler-wrapper
// library is produced when a bundled Clang/LLVM toolchain is bootstrapped from
// source.
//
// # Pipeline
//
// A run is strictly sequential:
//
//	BuildConfiguration.Validate
//	└── Platform (shared library extension, GPU and host compiler policy)
//	    └── Locator.Discover (GPU SDK, host compiler)
//	        └── Bootstrapper.Bootstrap (optional: git clone, cmake configure/build/install)
//	            └── Assembler.Assemble (pure: BuildPlan)
//	                └── Driver.CompileAndLink (one call per target, in order)
//
// Orchestrator.Run drives the pipeline and is the single failure boundary: it
// never panics and never prints, it returns a Report whose Err and
// ExitStatus describe the outcome.
//
// # Basic Usage
//
//	cfg := nativebuild.DefaultConfiguration()
//	cfg.Quick = true
//
//	orch := nativebuild.NewOrchestrator()
//	report := orch.Run(ctx, cfg)
//	if report.Err != nil {
//	    fmt.Fprintln(os.Stderr, "build error:", report.Err)
//	}
//	os.Exit(report.ExitStatus())
//
// # Absence versus failure
//
// A missing GPU SDK is an expected state: the plan is assembled without GPU
// sources and a KindAbsence diagnostic is attached. A missing host compiler on
// Windows is fatal (KindToolchainMissing) because nothing can be compiled
// without it. Every external step failure is fatal and stops the run.
//
// # Platform Support
//
// Linux, macOS and Windows (MSVC). GPU support is never attempted on macOS.
package nativebuild
