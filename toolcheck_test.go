package nativebuild

import (
	"testing"
)

func TestCheckRequiredTools(t *testing.T) {
	env := StaticEnvironment{Tools: map[string]string{
		"cmake":       "/usr/bin/cmake",
		"ninja-build": "/usr/bin/ninja-build",
	}}

	testCases := []struct {
		name    string
		reqs    []ToolRequirement
		wantErr string
	}{
		{
			name: "all present",
			reqs: []ToolRequirement{{Name: "cmake"}},
		},
		{
			name: "alternative satisfies requirement",
			reqs: []ToolRequirement{{Name: "ninja", Alternatives: []string{"ninja-build"}}},
		},
		{
			name: "optional tool missing",
			reqs: []ToolRequirement{{Name: "ccache", Optional: true}},
		},
		{
			name:    "single missing tool",
			reqs:    []ToolRequirement{{Name: "git", Purpose: "bundled toolchain checkout"}},
			wantErr: "git (bundled toolchain checkout) not found in PATH",
		},
		{
			name: "multiple missing tools",
			reqs: []ToolRequirement{
				{Name: "git", Purpose: "bundled toolchain checkout"},
				{Name: "cmake"},
				{Name: "nvcc"},
			},
			wantErr: "missing required tools: git (bundled toolchain checkout), nvcc",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckRequiredTools(env, tc.reqs)
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.wantErr {
				t.Errorf("expected error %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestResolveTool(t *testing.T) {
	env := StaticEnvironment{Tools: map[string]string{"clang++": "/usr/bin/clang++"}}

	path, err := ResolveTool(env, ToolRequirement{Name: "c++", Alternatives: []string{"g++", "clang++"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/usr/bin/clang++" {
		t.Errorf("expected clang++ fallback, got %s", path)
	}

	if _, err := ResolveTool(env, ToolRequirement{Name: "nvcc"}); err == nil {
		t.Error("expected error for missing tool")
	}
}
