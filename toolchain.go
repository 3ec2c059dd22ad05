package nativebuild

import (
	"context"
	"path/filepath"

	"github.com/contriboss/nativebuild/internal/ctxlog"
)

// Environment variables probed, in order, when no GPU SDK path is configured.
var gpuSDKEnvVars = []string{"CUDA_HOME", "CUDA_PATH"}

const (
	handleSourceExplicit    = "explicit"
	handleSourceEnvironment = "environment"
)

// Locator discovers the optional and required toolchains of a build.
//
// All lookups go through Env so that discovery is deterministic under test.
// Absence of an optional toolchain is never an error: the corresponding
// result is simply empty.
type Locator struct {
	Platform Platform
	Env      Environment
}

// FindGPUSDK returns the GPU SDK root, or "" when it is absent.
//
// On platforms without GPU support the result is always "", whatever the
// input. An explicit path is returned unchanged; it is not validated here and
// a wrong path only surfaces when the GPU source is compiled. Otherwise the
// candidates are, in order:
//
//  1. $CUDA_HOME
//  2. $CUDA_PATH
//  3. the toolkit root owning the nvcc found on PATH
//
// The first candidate that exists wins.
func (l *Locator) FindGPUSDK(explicitPath string) string {
	if !l.Platform.SupportsGPU() {
		return ""
	}

	if explicitPath != "" {
		return explicitPath
	}

	for _, candidate := range l.gpuSDKCandidates() {
		if l.Env.Exists(candidate) {
			return candidate
		}
	}

	return ""
}

func (l *Locator) gpuSDKCandidates() []string {
	var candidates []string
	for _, key := range gpuSDKEnvVars {
		if v := l.Env.Getenv(key); v != "" {
			candidates = append(candidates, v)
		}
	}

	// <root>/bin/nvcc
	if nvcc, err := l.Env.LookPath(l.Platform.executable("nvcc")); err == nil {
		candidates = append(candidates, filepath.Dir(filepath.Dir(nvcc)))
	}

	return candidates
}

// FindHostCompiler resolves the MSVC compiler and Windows SDK pair.
//
// On platforms that do not require an explicit host compiler it returns
// (nil, nil). When both paths are given the handle is built from them without
// any search. Otherwise an already configured compiler session (vcvars) is
// looked up in the environment; if there is none the returned error has
// KindToolchainMissing and wraps ErrHostCompilerNotFound.
func (l *Locator) FindHostCompiler(compilerPath, sdkPath string) (*CompilerHandle, error) {
	if !l.Platform.RequiresHostCompiler() {
		return nil, nil
	}

	if compilerPath != "" && sdkPath != "" {
		return &CompilerHandle{
			CompilerPath: compilerPath,
			SDKPath:      sdkPath,
			Source:       handleSourceExplicit,
		}, nil
	}

	if handle := l.configuredSession(); handle != nil {
		return handle, nil
	}

	return nil, newError(KindToolchainMissing, "find host compiler", ErrHostCompilerNotFound)
}

// configuredSession detects a shell prepared by vcvarsall.bat.
func (l *Locator) configuredSession() *CompilerHandle {
	if l.Env.Getenv("VCToolsInstallDir") == "" && l.Env.Getenv("VCINSTALLDIR") == "" {
		return nil
	}

	cl, err := l.Env.LookPath("cl.exe")
	if err != nil {
		return nil
	}

	// <root>/bin/HostX64/x64/cl.exe
	root := l.Env.Getenv("VCToolsInstallDir")
	if root == "" {
		root = filepath.Dir(filepath.Dir(filepath.Dir(filepath.Dir(cl))))
	}

	return &CompilerHandle{
		CompilerPath: root,
		SDKPath:      l.Env.Getenv("WindowsSdkDir"),
		Source:       handleSourceEnvironment,
	}
}

// Discover runs every lookup for cfg.
//
// The only error it returns is a missing required host compiler. A missing GPU
// SDK is reported through an empty GPUSDKPath.
func (l *Locator) Discover(ctx context.Context, cfg BuildConfiguration) (ToolchainInfo, error) {
	log := ctxlog.FromContext(ctx)
	var info ToolchainInfo

	info.GPUSDKPath = l.FindGPUSDK(cfg.GPUSDKPath)
	if info.GPUSDKPath != "" {
		log.Debug("GPU SDK found", "path", info.GPUSDKPath)
	}

	handle, err := l.FindHostCompiler(cfg.HostCompilerPath, cfg.PlatformSDKPath)
	if err != nil {
		return info, err
	}
	if handle != nil {
		log.Debug("host compiler resolved", "path", handle.CompilerPath, "sdk", handle.SDKPath, "source", handle.Source)
	}
	info.HostCompiler = handle

	return info, nil
}
