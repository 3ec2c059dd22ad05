package nativebuild

import (
	"fmt"
	"strings"
)

// ToolRequirement describes an external tool a pipeline step depends on.
//
// This structure allows a step to declare:
//   - Required tools (must be available)
//   - Optional tools (nice to have, but not required)
//   - Alternative tools (any one of several tools can satisfy the requirement)
//
// # Examples
//
// Required tool:
//
//	ToolRequirement{
//	    Name: "cmake",
//	    Purpose: "CMake build system",
//	}
//
// Tool with alternatives:
//
//	ToolRequirement{
//	    Name: "c++",
//	    Alternatives: []string{"g++", "clang++"},
//	    Purpose: "C++ compiler",
//	}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "cmake", "git").
	Name string

	// Alternatives are alternative tool names that can satisfy this requirement.
	Alternatives []string

	// Optional indicates this tool is optional and won't cause an error if missing.
	Optional bool

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// ResolveTool returns the path of the first of req.Name and its alternatives
// found through env.
func ResolveTool(env Environment, req ToolRequirement) (string, error) {
	for _, name := range append([]string{req.Name}, req.Alternatives...) {
		if path, err := env.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH", req.Name)
}

// CheckRequiredTools verifies all required tools are available.
//
// # Behavior
//
//   - Checks the primary tool name first
//   - If not found, tries each alternative tool in order
//   - Optional tools are checked but don't cause errors
//   - Returns all missing required tools in a single error
//
// # Error Format
//
// Single missing tool:
//
//	cmake (CMake build system) not found in PATH
//
// Multiple missing tools:
//
//	missing required tools: cmake (CMake build system), ninja (Ninja generator)
func CheckRequiredTools(env Environment, requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		if _, err := ResolveTool(env, req); err == nil || req.Optional {
			continue
		}

		if req.Purpose != "" {
			missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
		} else {
			missingTools = append(missingTools, req.Name)
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}

	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}
