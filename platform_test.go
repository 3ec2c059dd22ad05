package nativebuild

import "testing"

func TestPlatformPolicy(t *testing.T) {
	testCases := []struct {
		os                   string
		ext                  string
		supportsGPU          bool
		requiresHostCompiler bool
	}{
		{"windows", "dll", true, true},
		{"darwin", "dylib", false, false},
		{"linux", "so", true, false},
		{"freebsd", "so", true, false},
	}

	for _, tc := range testCases {
		t.Run(tc.os, func(t *testing.T) {
			p := Platform{OS: tc.os}

			if got := p.SharedLibraryExtension(); got != tc.ext {
				t.Errorf("SharedLibraryExtension() = %q, want %q", got, tc.ext)
			}
			if got := p.SupportsGPU(); got != tc.supportsGPU {
				t.Errorf("SupportsGPU() = %v, want %v", got, tc.supportsGPU)
			}
			if got := p.RequiresHostCompiler(); got != tc.requiresHostCompiler {
				t.Errorf("RequiresHostCompiler() = %v, want %v", got, tc.requiresHostCompiler)
			}
		})
	}
}

func TestPlatformExecutable(t *testing.T) {
	if got := (Platform{OS: "windows"}).executable("nvcc"); got != "nvcc.exe" {
		t.Errorf("expected nvcc.exe on windows, got %s", got)
	}
	if got := (Platform{OS: "linux"}).executable("nvcc"); got != "nvcc" {
		t.Errorf("expected nvcc on linux, got %s", got)
	}
}
