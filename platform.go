package nativebuild

import "runtime"

// Platform constants
const (
	platformWindows = "windows"
	platformDarwin  = "darwin"
)

// Platform describes the operating system family a build runs on.
//
// It is a pure value: every method is a mapping from OS to policy and has no
// side effects. Unknown operating systems follow the Unix conventions.
type Platform struct {
	OS string
}

// CurrentPlatform returns the Platform of the running process.
func CurrentPlatform() Platform {
	return Platform{OS: runtime.GOOS}
}

// SharedLibraryExtension returns the shared library file extension without
// the leading dot.
func (p Platform) SharedLibraryExtension() string {
	switch p.OS {
	case platformWindows:
		return "dll"
	case platformDarwin:
		return "dylib"
	default:
		return "so"
	}
}

// SupportsGPU reports whether the GPU backend can ever be built here.
func (p Platform) SupportsGPU() bool {
	return p.OS != platformDarwin
}

// RequiresHostCompiler reports whether an explicitly configured host compiler
// session is mandatory.
func (p Platform) RequiresHostCompiler() bool {
	return p.OS == platformWindows
}

// IsWindows reports whether the MSVC command line conventions apply.
func (p Platform) IsWindows() bool {
	return p.OS == platformWindows
}

func (p Platform) executable(name string) string {
	if p.IsWindows() {
		return name + ".exe"
	}
	return name
}
