package nativebuild

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindGPUSDK(t *testing.T) {
	cudaHome := filepath.Join("opt", "cuda-home")
	cudaPath := filepath.Join("opt", "cuda-path")
	nvccRoot := filepath.Join("usr", "local", "cuda")
	nvcc := filepath.Join(nvccRoot, "bin", "nvcc")

	testCases := []struct {
		name     string
		os       string
		explicit string
		env      StaticEnvironment
		want     string
	}{
		{
			name: "nothing available",
			os:   "linux",
			env:  StaticEnvironment{},
			want: "",
		},
		{
			name:     "explicit path is returned unchanged",
			os:       "linux",
			explicit: "/does/not/exist",
			env:      StaticEnvironment{},
			want:     "/does/not/exist",
		},
		{
			name:     "explicit path wins over environment",
			os:       "windows",
			explicit: "explicit",
			env: StaticEnvironment{
				Vars:  map[string]string{"CUDA_HOME": cudaHome},
				Paths: map[string]bool{cudaHome: true},
			},
			want: "explicit",
		},
		{
			name: "CUDA_HOME",
			os:   "linux",
			env: StaticEnvironment{
				Vars:  map[string]string{"CUDA_HOME": cudaHome, "CUDA_PATH": cudaPath},
				Paths: map[string]bool{cudaHome: true, cudaPath: true},
			},
			want: cudaHome,
		},
		{
			name: "CUDA_PATH when CUDA_HOME does not exist",
			os:   "linux",
			env: StaticEnvironment{
				Vars:  map[string]string{"CUDA_HOME": cudaHome, "CUDA_PATH": cudaPath},
				Paths: map[string]bool{cudaPath: true},
			},
			want: cudaPath,
		},
		{
			name: "nvcc on PATH",
			os:   "linux",
			env: StaticEnvironment{
				Tools: map[string]string{"nvcc": nvcc},
				Paths: map[string]bool{nvccRoot: true},
			},
			want: nvccRoot,
		},
		{
			name:     "darwin never has a GPU SDK",
			os:       "darwin",
			explicit: "/usr/local/cuda",
			env: StaticEnvironment{
				Vars:  map[string]string{"CUDA_HOME": cudaHome},
				Paths: map[string]bool{cudaHome: true},
			},
			want: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := &Locator{Platform: Platform{OS: tc.os}, Env: tc.env}
			if got := l.FindGPUSDK(tc.explicit); got != tc.want {
				t.Errorf("FindGPUSDK(%q) = %q, want %q", tc.explicit, got, tc.want)
			}
		})
	}
}

func TestFindHostCompilerNotRequired(t *testing.T) {
	l := &Locator{Platform: Platform{OS: "linux"}, Env: StaticEnvironment{}}

	for _, paths := range [][2]string{{"", ""}, {"msvc", ""}, {"msvc", "sdk"}} {
		handle, err := l.FindHostCompiler(paths[0], paths[1])
		if err != nil {
			t.Fatalf("paths %q: unexpected error: %v", paths, err)
		}
		if handle != nil {
			t.Errorf("paths %q: expected no handle on linux, got %+v", paths, handle)
		}
	}
}

func TestFindHostCompilerWindows(t *testing.T) {
	msvcRoot := filepath.Join("VC", "Tools", "MSVC", "14.36")
	cl := filepath.Join(msvcRoot, "bin", "HostX64", "x64", "cl.exe")

	testCases := []struct {
		name     string
		compiler string
		sdk      string
		env      StaticEnvironment
		want     *CompilerHandle
	}{
		{
			name:     "explicit pair",
			compiler: "msvc",
			sdk:      "sdk",
			env:      StaticEnvironment{},
			want:     &CompilerHandle{CompilerPath: "msvc", SDKPath: "sdk", Source: handleSourceExplicit},
		},
		{
			name: "configured session",
			env: StaticEnvironment{
				Vars:  map[string]string{"VCToolsInstallDir": msvcRoot, "WindowsSdkDir": "sdk"},
				Tools: map[string]string{"cl.exe": cl},
			},
			want: &CompilerHandle{CompilerPath: msvcRoot, SDKPath: "sdk", Source: handleSourceEnvironment},
		},
		{
			name:     "compiler path without sdk uses the session",
			compiler: "msvc",
			env: StaticEnvironment{
				Vars:  map[string]string{"VCToolsInstallDir": msvcRoot, "WindowsSdkDir": "sdk"},
				Tools: map[string]string{"cl.exe": cl},
			},
			want: &CompilerHandle{CompilerPath: msvcRoot, SDKPath: "sdk", Source: handleSourceEnvironment},
		},
		{
			name: "sdk path without compiler uses the session",
			sdk:  "other-sdk",
			env: StaticEnvironment{
				Vars:  map[string]string{"VCToolsInstallDir": msvcRoot, "WindowsSdkDir": "sdk"},
				Tools: map[string]string{"cl.exe": cl},
			},
			want: &CompilerHandle{CompilerPath: msvcRoot, SDKPath: "sdk", Source: handleSourceEnvironment},
		},
		{
			name: "configured session without tools dir",
			env: StaticEnvironment{
				Vars:  map[string]string{"VCINSTALLDIR": "VC"},
				Tools: map[string]string{"cl.exe": cl},
			},
			want: &CompilerHandle{CompilerPath: msvcRoot, Source: handleSourceEnvironment},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := &Locator{Platform: Platform{OS: "windows"}, Env: tc.env}

			got, err := l.FindHostCompiler(tc.compiler, tc.sdk)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("FindHostCompiler() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindHostCompilerMissing(t *testing.T) {
	testCases := []struct {
		name     string
		compiler string
		env      StaticEnvironment
	}{
		{"empty environment", "", StaticEnvironment{}},
		{"cl.exe without session", "", StaticEnvironment{Tools: map[string]string{"cl.exe": "cl.exe"}}},
		{"session without cl.exe", "", StaticEnvironment{Vars: map[string]string{"VCINSTALLDIR": "VC"}}},
		{"compiler path alone", "msvc", StaticEnvironment{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := &Locator{Platform: Platform{OS: "windows"}, Env: tc.env}

			handle, err := l.FindHostCompiler(tc.compiler, "")
			if handle != nil {
				t.Errorf("expected no handle, got %+v", handle)
			}
			if !errors.Is(err, ErrHostCompilerNotFound) {
				t.Fatalf("expected ErrHostCompilerNotFound, got %v", err)
			}
			if KindOf(err) != KindToolchainMissing {
				t.Errorf("expected KindToolchainMissing, got %s", KindOf(err))
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	cudaHome := filepath.Join("opt", "cuda")
	env := StaticEnvironment{
		Vars:  map[string]string{"CUDA_HOME": cudaHome},
		Paths: map[string]bool{cudaHome: true},
	}

	t.Run("linux", func(t *testing.T) {
		l := &Locator{Platform: Platform{OS: "linux"}, Env: env}

		info, err := l.Discover(context.Background(), DefaultConfiguration())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := ToolchainInfo{GPUSDKPath: cudaHome}
		if diff := cmp.Diff(want, info); diff != "" {
			t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("windows without compiler", func(t *testing.T) {
		l := &Locator{Platform: Platform{OS: "windows"}, Env: env}

		info, err := l.Discover(context.Background(), DefaultConfiguration())
		if KindOf(err) != KindToolchainMissing {
			t.Fatalf("expected KindToolchainMissing, got %v", err)
		}
		if info.GPUSDKPath != cudaHome {
			t.Errorf("expected GPU SDK to be reported alongside the error, got %q", info.GPUSDKPath)
		}
	})
}
