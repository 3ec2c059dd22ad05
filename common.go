package nativebuild

import (
	"context"
)

// StageRequest is the input of runStages.
type StageRequest struct {
	SourceDir string
	BuildDir  string
	Options   []string
}

// runStages executes the standard 3-step build-system sequence.
//
//  1. Configure: generate build files into BuildDir
//  2. Build: compile using the generated files
//  3. Install: copy products into the install prefix
//
// If any step fails, processing stops and the error is returned as a
// KindExternalStage *Error; the later steps are not executed.
func runStages(ctx context.Context, stages Stages, req StageRequest) error {
	// Step 1: Configure
	if err := stages.Configure(ctx, req.SourceDir, req.BuildDir, req.Options); err != nil {
		return newError(KindExternalStage, "configure bundled toolchain", err)
	}

	// Step 2: Build
	if err := stages.Build(ctx, req.BuildDir); err != nil {
		return newError(KindExternalStage, "build bundled toolchain", err)
	}

	// Step 3: Install
	if err := stages.Install(ctx, req.BuildDir); err != nil {
		return newError(KindExternalStage, "install bundled toolchain", err)
	}

	return nil
}
