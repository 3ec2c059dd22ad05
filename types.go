package nativebuild

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Mode selects the build configuration passed to every compiler invocation.
type Mode string

const (
	ModeRelease Mode = "release"
	ModeDebug   Mode = "debug"
)

// ParseMode converts a user-supplied mode string into a Mode.
//
// Matching is case-insensitive. Any value other than "release" or "debug"
// returns an error wrapping ErrUnknownMode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRelease:
		return ModeRelease, nil
	case ModeDebug:
		return ModeDebug, nil
	default:
		return "", fmt.Errorf("%w: %q (expected release or debug)", ErrUnknownMode, s)
	}
}

// BuildType returns the capitalised label used by CMake (Release, Debug).
func (m Mode) BuildType() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// BuildConfiguration is the immutable input of a run.
//
// It is created once at process start, usually by the command line, and is
// passed by value to every component. Components never modify it.
//
// Feature flags:
//   - Verbose: stream external tool output and log command lines
//   - VerifyFiniteOutputs: compile kernels with finite-value checks
//   - FastMath: allow unsafe floating point optimisations
//   - Quick: skip the accelerated math kernel and emit PTX only
//   - BuildBundledToolchain: fetch and build Clang/LLVM, then the compiler wrapper
//
// Explicit toolchain paths (all optional):
//   - GPUSDKPath: GPU toolkit root, used verbatim
//   - HostCompilerPath, PlatformSDKPath: MSVC and Windows SDK, used only when
//     both are given; otherwise the configured compiler session is searched
type BuildConfiguration struct {
	Mode                  Mode
	Verbose               bool
	VerifyFiniteOutputs   bool
	FastMath              bool
	Quick                 bool
	BuildBundledToolchain bool

	GPUSDKPath       string
	HostCompilerPath string
	PlatformSDKPath  string

	// Root is the project root containing the native sources and the
	// external dependency directory.
	Root string

	// InstallDir, when set, receives a copy of every built artifact.
	InstallDir string

	// StageTimeout bounds every external process. Zero means no limit.
	StageTimeout time.Duration
}

// DefaultConfiguration returns the command line defaults.
func DefaultConfiguration() BuildConfiguration {
	return BuildConfiguration{
		Mode:    ModeRelease,
		Verbose: true,
		Root:    ".",
	}
}

// Validate rejects configurations that must not reach any external process.
func (c BuildConfiguration) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return newError(KindConfig, "validate configuration", err)
	}

	if c.StageTimeout < 0 {
		return newError(KindConfig, "validate configuration",
			fmt.Errorf("stage timeout must not be negative, got %s", c.StageTimeout))
	}

	return nil
}

// CompilerHandle identifies a configured host compiler and its platform SDK.
type CompilerHandle struct {
	// CompilerPath is the MSVC toolset root (VCToolsInstallDir).
	CompilerPath string
	SDKPath      string

	// Source is "explicit" when built from configuration and "environment"
	// when picked up from an already configured compiler session.
	Source string
}

// BinDir returns the directory holding the x64 cl.exe and link.exe.
func (h *CompilerHandle) BinDir() string {
	return filepath.Join(h.CompilerPath, "bin", "HostX64", "x64")
}

// ToolchainInfo holds the toolchains discovered for a run.
// An empty path or nil handle means the toolchain is absent.
type ToolchainInfo struct {
	GPUSDKPath                 string
	HostCompiler               *CompilerHandle
	BundledCompilerInstallPath string
}

// HasGPU reports whether a GPU SDK was found.
func (t ToolchainInfo) HasGPU() bool {
	return t.GPUSDKPath != ""
}

// TargetKind tags the variant of a BuildTarget.
type TargetKind int

const (
	// TargetAuxiliaryCompiler is the compiler-wrapper library linked against
	// the bundled toolchain.
	TargetAuxiliaryCompiler TargetKind = iota + 1
	// TargetPrimary is the main library. Every plan has exactly one.
	TargetPrimary
)

func (k TargetKind) String() string {
	switch k {
	case TargetAuxiliaryCompiler:
		return "auxiliary-compiler"
	case TargetPrimary:
		return "primary"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// BuildTarget is one shared library and everything needed to produce it.
type BuildTarget struct {
	Kind         TargetKind
	Name         string
	ArtifactPath string

	// Sources are C++ translation units, compiled in order.
	Sources []string
	// GPUSource is the single GPU kernel source, empty when absent.
	GPUSource string
	// Libraries are extra link inputs: library files, system libraries and
	// search-path directives, passed to the linker verbatim.
	Libraries []string

	Mode                Mode
	VerifyFiniteOutputs bool
	FastMath            bool
	Quick               bool
	Cacheable           bool
}

// BuildPlan is the ordered list of targets decided for a run.
type BuildPlan struct {
	Targets     []BuildTarget
	Diagnostics []Diagnostic
}

// Primary returns the primary target of the plan.
func (p *BuildPlan) Primary() (BuildTarget, bool) {
	for _, t := range p.Targets {
		if t.Kind == TargetPrimary {
			return t, true
		}
	}
	return BuildTarget{}, false
}

// Auxiliary returns the compiler-wrapper target if the plan contains one.
func (p *BuildPlan) Auxiliary() (BuildTarget, bool) {
	for _, t := range p.Targets {
		if t.Kind == TargetAuxiliaryCompiler {
			return t, true
		}
	}
	return BuildTarget{}, false
}

// BuildResult contains the outcome of compiling one target.
type BuildResult struct {
	Target   BuildTarget
	Success  bool     // True if the artifact was produced
	Skipped  bool     // True if a cacheable target was already up to date
	Artifact string   // Artifact path on success
	Output   []string // Lines of output from the compiler and linker
	Error    error    // Error if the build failed, nil otherwise
}
