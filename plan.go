package nativebuild

import (
	"fmt"
	"os"
	"path/filepath"
)

// Assembler decides the BuildPlan for a run.
//
// Assemble never starts a process. Its only contact with the filesystem is
// the listing of the bundled toolchain library directory through ReadDir, so
// the decision logic can be tested with nothing but a temporary directory.
type Assembler struct {
	Platform Platform
	Manifest *Manifest

	// ReadDir lists a directory. Defaults to os.ReadDir.
	ReadDir func(name string) ([]os.DirEntry, error)
}

// NewAssembler creates an Assembler for p using the embedded manifest.
func NewAssembler(p Platform) *Assembler {
	return &Assembler{Platform: p, Manifest: DefaultManifest(), ReadDir: os.ReadDir}
}

// Assemble composes the ordered targets for cfg given the discovered
// toolchains.
//
// # Decisions
//
//   - The primary target is always present and always last.
//   - The accelerated kernel sources are appended unless cfg.Quick is set.
//   - The GPU kernel source is set iff toolchains.GPUSDKPath is non-empty;
//     otherwise a KindAbsence diagnostic is attached to the plan.
//   - The auxiliary compiler target is present iff cfg.BuildBundledToolchain.
//     Its libraries are the library files at the top level of
//     <install>/lib, then the platform system library, then the search path
//     directive for that directory.
//
// # Errors
//
// A missing install path while the bundled toolchain is requested is a
// KindConfig error; an unreadable library directory is KindExternalStage.
func (a *Assembler) Assemble(cfg BuildConfiguration, toolchains ToolchainInfo) (*BuildPlan, error) {
	plan := &BuildPlan{}

	if cfg.BuildBundledToolchain {
		aux, err := a.auxiliaryTarget(cfg, toolchains.BundledCompilerInstallPath)
		if err != nil {
			return nil, err
		}
		plan.Targets = append(plan.Targets, aux)
	}

	primary := a.primaryTarget(cfg)
	if toolchains.HasGPU() {
		primary.GPUSource = a.Manifest.sourcePaths(cfg.Root, []string{a.Manifest.Primary.GPUSource})[0]
	} else {
		plan.Diagnostics = append(plan.Diagnostics, Diagnostic{
			Kind:    KindAbsence,
			Message: "GPU toolchain not found, building without GPU support",
		})
	}
	plan.Targets = append(plan.Targets, primary)

	return plan, nil
}

func (a *Assembler) primaryTarget(cfg BuildConfiguration) BuildTarget {
	m := a.Manifest

	sources := m.sourcePaths(cfg.Root, m.Primary.Sources)
	if !cfg.Quick {
		sources = append(sources, m.sourcePaths(cfg.Root, m.Primary.AcceleratedSources)...)
	}

	t := a.newTarget(cfg, TargetPrimary, m.Primary.Name)
	t.Sources = sources
	return t
}

func (a *Assembler) auxiliaryTarget(cfg BuildConfiguration, installPath string) (BuildTarget, error) {
	if installPath == "" {
		return BuildTarget{}, newError(KindConfig, "assemble build plan", ErrMissingInstallPath)
	}

	libs, err := a.linkLibraries(filepath.Join(installPath, "lib"))
	if err != nil {
		return BuildTarget{}, err
	}

	t := a.newTarget(cfg, TargetAuxiliaryCompiler, a.Manifest.Auxiliary.Name)
	t.Sources = a.Manifest.sourcePaths(cfg.Root, a.Manifest.Auxiliary.Sources)
	t.Libraries = libs
	return t, nil
}

// linkLibraries lists the top level of libDir; subdirectories are not walked.
func (a *Assembler) linkLibraries(libDir string) ([]string, error) {
	readDir := a.ReadDir
	if readDir == nil {
		readDir = os.ReadDir
	}

	entries, err := readDir(libDir)
	if err != nil {
		return nil, newError(KindExternalStage, "list bundled toolchain libraries",
			fmt.Errorf("%s: %w", libDir, err))
	}

	linkage := a.Manifest.Linkage(a.Platform)

	var libs []string
	for _, entry := range entries {
		if entry.IsDir() || !MatchesExtension(entry.Name(), linkage.LibraryExtensions...) {
			continue
		}
		libs = append(libs, entry.Name())
	}

	libs = append(libs, linkage.SystemLibrary, linkage.SearchPathDirective(libDir))
	return libs, nil
}

func (a *Assembler) newTarget(cfg BuildConfiguration, kind TargetKind, name string) BuildTarget {
	return BuildTarget{
		Kind:                kind,
		Name:                name,
		ArtifactPath:        a.artifactPath(cfg.Root, name),
		Mode:                cfg.Mode,
		VerifyFiniteOutputs: cfg.VerifyFiniteOutputs,
		FastMath:            cfg.FastMath,
		Quick:               cfg.Quick,
		Cacheable:           false,
	}
}

func (a *Assembler) artifactPath(root, name string) string {
	return filepath.Join(a.Manifest.BinDir(root), fmt.Sprintf("%s.%s", name, a.Platform.SharedLibraryExtension()))
}
