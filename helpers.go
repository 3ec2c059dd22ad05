package nativebuild

import (
	"fmt"
	"strings"
)

// MatchesExtension checks if a filename has any of the given extensions.
//
// This is a case-insensitive check, used to pick library files out of a
// directory listing (.lib, .a).
//
// # Example
//
//	if MatchesExtension(filename, ".lib", ".a") {
//	    // This is a static library
//	}
func MatchesExtension(filename string, extensions ...string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// StepError is a failed external step together with the output it produced.
//
// Error returns a single line; Detail appends the captured output for
// diagnostics.
type StepError struct {
	Step   string
	Output []string
	Err    error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Step)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Detail returns the error message followed by the step output.
//
// # Format
//
//	cmake build failed: running "cmake --build out" failed with exit code 1
//
//	Build output:
//	ninja: error: loading 'build.ninja': No such file or directory
func (e *StepError) Detail() string {
	outputStr := strings.Join(e.Output, "\n")
	if outputStr == "" {
		return e.Error()
	}
	return fmt.Sprintf("%s\n\nBuild output:\n%s", e.Error(), outputStr)
}

// BuildError creates a standardized step error with output context.
//
// # Example
//
//	output := []string{"Building...", "Error: compilation failed"}
//	err := BuildError("cmake build", output, fmt.Errorf("exit code 2"))
func BuildError(step string, output []string, err error) error {
	return &StepError{Step: step, Output: output, Err: err}
}
