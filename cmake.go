package nativebuild

import (
	"context"
	"fmt"
)

// Stages is the external build-system collaborator used to build the bundled
// toolchain. Each method is one blocking invocation; a non-nil error is fatal.
type Stages interface {
	// Configure generates build files for sourceDir into buildDir.
	Configure(ctx context.Context, sourceDir, buildDir string, options []string) error
	// Build compiles everything configured in buildDir.
	Build(ctx context.Context, buildDir string) error
	// Install copies the build products to the configured install prefix.
	Install(ctx context.Context, buildDir string) error
}

// Generator used for the bundled toolchain build.
const ninjaGenerator = "Ninja"

// CMakeStages drives CMake through a Runner.
type CMakeStages struct {
	Runner    Runner
	Generator string
}

// Configure runs cmake -S sourceDir -B buildDir -G <generator> followed by
// one "-D" pair per option.
func (s *CMakeStages) Configure(ctx context.Context, sourceDir, buildDir string, options []string) error {
	args := []string{"-S", sourceDir, "-B", buildDir}

	args = append(args, "-G", s.generator())

	for _, opt := range options {
		args = append(args, "-D", opt)
	}

	return s.run(ctx, "cmake configure", args)
}

func (s *CMakeStages) generator() string {
	if s.Generator == "" {
		return ninjaGenerator
	}
	return s.Generator
}

// Build runs cmake --build buildDir.
func (s *CMakeStages) Build(ctx context.Context, buildDir string) error {
	return s.run(ctx, "cmake build", []string{"--build", buildDir})
}

// Install runs cmake --install buildDir.
func (s *CMakeStages) Install(ctx context.Context, buildDir string) error {
	return s.run(ctx, "cmake install", []string{"--install", buildDir})
}

func (s *CMakeStages) run(ctx context.Context, step string, args []string) error {
	output, err := s.Runner.Run(ctx, Command{Name: "cmake", Args: args})
	if err != nil {
		return BuildError(step, output, err)
	}
	return nil
}

// cmakeDefine formats a cache entry for Stages.Configure.
func cmakeDefine(key, value string) string {
	return fmt.Sprintf("%s=%s", key, value)
}
