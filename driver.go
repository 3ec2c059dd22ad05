package nativebuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/contriboss/nativebuild/internal/ctxlog"
)

// Driver turns one BuildTarget into a shared library.
//
// # Contract
//
// CompileAndLink compiles target.Sources in order, compiles target.GPUSource
// when it is set, and links everything together with target.Libraries into
// target.ArtifactPath. It returns a BuildResult in every case:
//   - Success=true and Artifact set when the library was produced
//   - Success=false and Error set (also returned) when a unit failed
//
// Implementations must not retry and must not remove artifacts produced by
// earlier targets.
type Driver interface {
	// Name returns the human-readable name used in logs.
	Name() string

	// CompileAndLink builds target with the discovered toolchains.
	CompileAndLink(ctx context.Context, target BuildTarget, toolchains ToolchainInfo) (*BuildResult, error)
}

// GPU code generation targets. Quick builds only emit PTX for the oldest
// architecture and let the driver JIT the rest.
var (
	gpuArchitectures = []string{"52", "60", "70", "75", "80", "86"}
	gpuQuickArch     = "52"
)

// HostDriver compiles with the host C++ compiler (g++/clang++ or MSVC) and the
// GPU SDK's nvcc, one process per translation unit, then links.
type HostDriver struct {
	Platform Platform
	Env      Environment
	Runner   Runner
	Manifest *Manifest
}

// Name returns the builder name
func (d *HostDriver) Name() string {
	if d.Platform.IsWindows() {
		return "MSVC"
	}
	return "C++"
}

// toolset is the set of executables used for one target.
type toolset struct {
	cxx  string
	link string // MSVC only; elsewhere the compiler driver links
	nvcc string
}

// CompileAndLink implements Driver.
func (d *HostDriver) CompileAndLink(ctx context.Context, target BuildTarget, toolchains ToolchainInfo) (*BuildResult, error) {
	log := ctxlog.FromContext(ctx).With("target", target.Name)
	result := &BuildResult{Target: target}

	fail := func(err error) (*BuildResult, error) {
		result.Error = err
		return result, err
	}

	if target.Cacheable && upToDate(target) {
		log.Info("artifact up to date", "artifact", target.ArtifactPath)
		result.Success = true
		result.Skipped = true
		result.Artifact = target.ArtifactPath
		return result, nil
	}

	tools, err := d.resolveTools(target, toolchains)
	if err != nil {
		return fail(err)
	}

	objDir := filepath.Join(filepath.Dir(target.ArtifactPath), "obj", target.Name, string(target.Mode))
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return fail(err)
	}

	var objects []string
	for _, src := range target.Sources {
		obj := d.objectPath(objDir, src)
		log.Debug("compiling", "source", src)
		if err := d.exec(ctx, result, "compile "+filepath.Base(src), d.compileCommand(tools, target, toolchains, src, obj)); err != nil {
			return fail(err)
		}
		objects = append(objects, obj)
	}

	if target.GPUSource != "" {
		obj := d.objectPath(objDir, target.GPUSource)
		log.Debug("compiling GPU kernels", "source", target.GPUSource)
		if err := d.exec(ctx, result, "compile "+filepath.Base(target.GPUSource), d.gpuCommand(tools, target, toolchains, obj)); err != nil {
			return fail(err)
		}
		objects = append(objects, obj)
	}

	log.Debug("linking", "artifact", target.ArtifactPath)
	if err := d.exec(ctx, result, "link "+filepath.Base(target.ArtifactPath), d.linkCommand(tools, target, toolchains, objects)); err != nil {
		return fail(err)
	}

	result.Success = true
	result.Artifact = target.ArtifactPath
	return result, nil
}

func (d *HostDriver) exec(ctx context.Context, result *BuildResult, step string, cmd Command) error {
	output, err := d.Runner.Run(ctx, cmd)
	result.Output = append(result.Output, output...)
	if err != nil {
		return BuildError(step, output, err)
	}
	return nil
}

func (d *HostDriver) resolveTools(target BuildTarget, toolchains ToolchainInfo) (toolset, error) {
	var tools toolset

	if d.Platform.IsWindows() {
		if toolchains.HostCompiler == nil {
			return tools, ErrHostCompilerNotFound
		}
		tools.cxx = filepath.Join(toolchains.HostCompiler.BinDir(), "cl.exe")
		tools.link = filepath.Join(toolchains.HostCompiler.BinDir(), "link.exe")
	} else if cxx := d.Env.Getenv("CXX"); cxx != "" {
		tools.cxx = cxx
	} else {
		cxx, err := ResolveTool(d.Env, ToolRequirement{
			Name:         "c++",
			Alternatives: []string{"g++", "clang++"},
			Purpose:      "C++ compiler",
		})
		if err != nil {
			return tools, err
		}
		tools.cxx = cxx
	}

	if target.GPUSource != "" {
		tools.nvcc = filepath.Join(toolchains.GPUSDKPath, "bin", d.Platform.executable("nvcc"))
	}

	return tools, nil
}

func (d *HostDriver) objectPath(objDir, src string) string {
	ext := ".o"
	if d.Platform.IsWindows() {
		ext = ".obj"
	}
	return filepath.Join(objDir, filepath.Base(src)+ext)
}

func (d *HostDriver) defines(target BuildTarget, toolchains ToolchainInfo) []string {
	defs := d.Manifest.Defines
	var out []string

	if target.Mode == ModeDebug {
		out = append(out, "_DEBUG")
	} else {
		out = append(out, "NDEBUG")
	}
	if toolchains.HasGPU() && target.GPUSource != "" {
		out = append(out, defs.GPUEnabled)
	} else {
		out = append(out, defs.GPUDisabled)
	}
	if target.VerifyFiniteOutputs {
		out = append(out, defs.VerifyFinite)
	}
	if target.Quick {
		out = append(out, defs.Quick)
	}
	return out
}

func (d *HostDriver) compileCommand(tools toolset, target BuildTarget, toolchains ToolchainInfo, src, obj string) Command {
	var args []string

	if d.Platform.IsWindows() {
		args = []string{"/nologo", "/EHsc", "/std:c++17", "/Zc:__cplusplus"}
		if target.Mode == ModeDebug {
			args = append(args, "/MTd", "/Od", "/Zi")
		} else {
			args = append(args, "/MT", "/O2")
		}
		if target.FastMath {
			args = append(args, "/fp:fast")
		}
		for _, def := range d.defines(target, toolchains) {
			args = append(args, "/D"+def)
		}
		for _, dir := range includeDirs(target, toolchains) {
			args = append(args, "/I"+dir)
		}
		args = append(args, "/c", src, "/Fo"+obj)
		return Command{Name: tools.cxx, Args: args, Env: d.msvcEnv(toolchains)}
	}

	args = []string{"-std=c++17", "-fPIC", "-fvisibility=hidden"}
	if target.Mode == ModeDebug {
		args = append(args, "-O0", "-g")
	} else {
		args = append(args, "-O3")
	}
	if target.FastMath {
		args = append(args, "-ffast-math")
	}
	for _, def := range d.defines(target, toolchains) {
		args = append(args, "-D"+def)
	}
	for _, dir := range includeDirs(target, toolchains) {
		args = append(args, "-I"+dir)
	}
	args = append(args, "-c", src, "-o", obj)
	return Command{Name: tools.cxx, Args: args}
}

func (d *HostDriver) gpuCommand(tools toolset, target BuildTarget, toolchains ToolchainInfo, obj string) Command {
	args := []string{"-std=c++17", "--extended-lambda"}

	if d.Platform.IsWindows() {
		crt := "/MT"
		if target.Mode == ModeDebug {
			crt = "/MTd"
		}
		args = append(args, "-Xcompiler", crt, "-ccbin", tools.cxx)
	} else {
		args = append(args, "-Xcompiler", "-fPIC")
	}

	if target.Mode == ModeDebug {
		args = append(args, "-G", "-g")
	} else {
		args = append(args, "-O3")
	}
	if target.FastMath {
		args = append(args, "--use_fast_math")
	}
	for _, def := range d.defines(target, toolchains) {
		args = append(args, "-D"+def)
	}

	if target.Quick {
		args = append(args, fmt.Sprintf("-gencode=arch=compute_%s,code=compute_%s", gpuQuickArch, gpuQuickArch))
	} else {
		for _, arch := range gpuArchitectures {
			args = append(args, fmt.Sprintf("-gencode=arch=compute_%s,code=sm_%s", arch, arch))
		}
	}

	args = append(args, "-c", target.GPUSource, "-o", obj)
	return Command{Name: tools.nvcc, Args: args, Env: d.msvcEnv(toolchains)}
}

func (d *HostDriver) linkCommand(tools toolset, target BuildTarget, toolchains ToolchainInfo, objects []string) Command {
	hasGPU := toolchains.HasGPU() && target.GPUSource != ""

	if d.Platform.IsWindows() {
		args := []string{"/nologo", "/DLL", "/OUT:" + target.ArtifactPath}
		if target.Mode == ModeDebug {
			args = append(args, "/DEBUG")
		}
		args = append(args, objects...)
		if hasGPU {
			args = append(args, "cudart_static.lib", "/LIBPATH:"+filepath.Join(toolchains.GPUSDKPath, "lib", "x64"))
		}
		args = append(args, target.Libraries...)
		return Command{Name: tools.link, Args: args, Env: d.msvcEnv(toolchains)}
	}

	args := []string{"-shared", "-o", target.ArtifactPath}
	args = append(args, objects...)
	if hasGPU {
		args = append(args, "-L"+filepath.Join(toolchains.GPUSDKPath, "lib64"), "-lcudart_static", "-ldl", "-lrt", "-lpthread")
	}
	for _, lib := range target.Libraries {
		args = append(args, linkerFlag(lib))
	}
	return Command{Name: tools.cxx, Args: args}
}

// linkerFlag turns a bare archive name such as libclangAST.a into -lclangAST,
// resolved through the -L directive that follows the archives.
func linkerFlag(lib string) string {
	if strings.HasPrefix(lib, "-") {
		return lib
	}
	name := strings.TrimSuffix(lib, filepath.Ext(lib))
	return "-l" + strings.TrimPrefix(name, "lib")
}

func includeDirs(target BuildTarget, toolchains ToolchainInfo) []string {
	var dirs []string
	if target.Kind == TargetAuxiliaryCompiler && toolchains.BundledCompilerInstallPath != "" {
		dirs = append(dirs, filepath.Join(toolchains.BundledCompilerInstallPath, "include"))
	}
	if toolchains.HasGPU() && target.GPUSource != "" {
		dirs = append(dirs, filepath.Join(toolchains.GPUSDKPath, "include"))
	}
	return dirs
}

// msvcEnv points INCLUDE and LIB at an explicitly configured Windows SDK.
// A session configured by vcvars already carries them.
func (d *HostDriver) msvcEnv(toolchains ToolchainInfo) map[string]string {
	h := toolchains.HostCompiler
	if !d.Platform.IsWindows() || h == nil || h.Source != handleSourceExplicit {
		return nil
	}

	msvcRoot := h.CompilerPath
	include := []string{
		filepath.Join(msvcRoot, "include"),
		filepath.Join(h.SDKPath, "include", "ucrt"),
		filepath.Join(h.SDKPath, "include", "um"),
		filepath.Join(h.SDKPath, "include", "shared"),
	}
	lib := []string{
		filepath.Join(msvcRoot, "lib", "x64"),
		filepath.Join(h.SDKPath, "lib", "ucrt", "x64"),
		filepath.Join(h.SDKPath, "lib", "um", "x64"),
	}

	return map[string]string{
		"INCLUDE": strings.Join(include, ";"),
		"LIB":     strings.Join(lib, ";"),
	}
}

// upToDate reports whether the artifact is newer than every input.
func upToDate(target BuildTarget) bool {
	artifact, err := os.Stat(target.ArtifactPath)
	if err != nil {
		return false
	}

	inputs := append([]string{}, target.Sources...)
	if target.GPUSource != "" {
		inputs = append(inputs, target.GPUSource)
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil || info.ModTime().After(artifact.ModTime()) {
			return false
		}
	}
	return true
}
