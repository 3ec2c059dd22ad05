package nativebuild

import (
	"context"
	"path/filepath"

	"github.com/contriboss/nativebuild/internal/ctxlog"
)

// BootstrapResult describes the bundled toolchain after a bootstrap.
type BootstrapResult struct {
	CheckoutDir string
	BuildDir    string
	InstallDir  string
	Cloned      bool // false when an existing working copy was reused
}

// Bootstrapper fetches and builds the bundled Clang/LLVM toolchain.
//
// # Process Flow
//
//  1. Check that git (only when a checkout is needed), cmake and, for the
//     Ninja generator, ninja exist
//  2. Clone the pinned tag if the working copy is absent, otherwise open it
//  3. Configure, build and install into build-type scoped directories
//
// The working copy is never updated; a stale checkout is the caller's
// responsibility. The build stages always run, relying on the build system's
// own incremental behaviour.
type Bootstrapper struct {
	Env      Environment
	Fetcher  Fetcher
	Stages   Stages
	Manifest *Manifest
}

// RequiredTools returns the tools needed by Bootstrap. Ninja is only required
// when Stages is a CMakeStages using the Ninja generator.
func (b *Bootstrapper) RequiredTools(needCheckout bool) []ToolRequirement {
	tools := []ToolRequirement{
		{Name: "cmake", Purpose: "CMake build system"},
	}
	if s, ok := b.Stages.(*CMakeStages); ok && s.generator() == ninjaGenerator {
		tools = append(tools, ToolRequirement{Name: "ninja", Alternatives: []string{"ninja-build"}, Purpose: "Ninja generator"})
	}
	if needCheckout {
		tools = append([]ToolRequirement{{Name: "git", Purpose: "bundled toolchain checkout"}}, tools...)
	}
	return tools
}

// InstallDir is the install prefix of the bundled toolchain for cfg's mode.
func (b *Bootstrapper) InstallDir(cfg BuildConfiguration) string {
	return filepath.Join(b.Manifest.CheckoutDir(cfg.Root), "out", "install", cfg.Mode.BuildType())
}

// Bootstrap brings the bundled toolchain from absent to installed.
func (b *Bootstrapper) Bootstrap(ctx context.Context, cfg BuildConfiguration) (*BootstrapResult, error) {
	log := ctxlog.FromContext(ctx)
	bt := b.Manifest.BundledToolchain

	result := &BootstrapResult{CheckoutDir: b.Manifest.CheckoutDir(cfg.Root)}
	needCheckout := !b.Env.Exists(result.CheckoutDir)

	if err := CheckRequiredTools(b.Env, b.RequiredTools(needCheckout)); err != nil {
		return nil, newError(KindExternalStage, "check bundled toolchain tools", err)
	}

	if needCheckout {
		log.Info("fetching bundled toolchain", "repository", bt.Repository, "tag", bt.Tag, "dest", result.CheckoutDir)
		if err := b.Fetcher.Clone(ctx, bt.Repository, result.CheckoutDir, bt.Tag); err != nil {
			return nil, newError(KindExternalStage, "fetch bundled toolchain", err)
		}
		result.Cloned = true
	} else {
		log.Info("reusing bundled toolchain checkout", "dir", result.CheckoutDir)
		if err := b.Fetcher.Open(ctx, result.CheckoutDir); err != nil {
			return nil, newError(KindExternalStage, "open bundled toolchain", err)
		}
	}

	buildType := cfg.Mode.BuildType()
	result.BuildDir = filepath.Join(result.CheckoutDir, "out", "build", buildType)
	result.InstallDir = b.InstallDir(cfg)

	options := make([]string, 0, len(bt.Options)+2)
	options = append(options, cmakeDefine("CMAKE_BUILD_TYPE", buildType))
	options = append(options, bt.Options...)
	options = append(options, cmakeDefine("CMAKE_INSTALL_PREFIX", result.InstallDir))

	log.Info("building bundled toolchain", "build_type", buildType, "build_dir", result.BuildDir)
	err := runStages(ctx, b.Stages, StageRequest{
		SourceDir: filepath.Join(result.CheckoutDir, filepath.FromSlash(bt.SourceSubdir)),
		BuildDir:  result.BuildDir,
		Options:   options,
	})
	if err != nil {
		return nil, err
	}

	log.Info("bundled toolchain installed", "dir", result.InstallDir)
	return result, nil
}
