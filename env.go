package nativebuild

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Environment is the view of the host that toolchain discovery is allowed to
// use. Tests substitute a StaticEnvironment to simulate the presence or
// absence of toolchains.
type Environment interface {
	// Getenv returns the value of an environment variable, or "".
	Getenv(key string) string
	// LookPath resolves an executable name through PATH.
	LookPath(file string) (string, error)
	// Exists reports whether a file or directory exists.
	Exists(path string) bool
}

// OSEnvironment reads the real process environment and filesystem.
type OSEnvironment struct{}

func (OSEnvironment) Getenv(key string) string {
	return os.Getenv(key)
}

func (OSEnvironment) LookPath(file string) (string, error) {
	path, err := exec.LookPath(file)
	if err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

func (OSEnvironment) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// StaticEnvironment is a fixed Environment.
//
//	env := StaticEnvironment{
//	    Vars:  map[string]string{"CUDA_HOME": "/opt/cuda"},
//	    Tools: map[string]string{"cmake": "/usr/bin/cmake"},
//	    Paths: map[string]bool{"/opt/cuda": true},
//	}
type StaticEnvironment struct {
	Vars  map[string]string // environment variables
	Tools map[string]string // executable name -> resolved path
	Paths map[string]bool   // paths reported as existing
}

func (e StaticEnvironment) Getenv(key string) string {
	return e.Vars[key]
}

func (e StaticEnvironment) LookPath(file string) (string, error) {
	if path, ok := e.Tools[file]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%s: %w", file, exec.ErrNotFound)
}

func (e StaticEnvironment) Exists(path string) bool {
	if e.Paths[path] {
		return true
	}
	for _, tool := range e.Tools {
		if tool == path {
			return true
		}
	}
	return false
}
