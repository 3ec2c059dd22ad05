package nativebuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"
)

var nativeLibraryExtensions = map[string]struct{}{
	".so":    {},
	".dll":   {},
	".dylib": {},
}

// installArtifacts copies every successfully built native library into dest
// and returns the installed paths. Results without an artifact are ignored.
func installArtifacts(dest string, results []*BuildResult) ([]string, error) {
	if dest == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create install directory: %w", err)
	}

	var installed []string
	for _, r := range results {
		if r == nil || !r.Success || !isNativeLibrary(r.Artifact) {
			continue
		}

		target := filepath.Join(dest, filepath.Base(r.Artifact))
		if err := sh.Copy(target, r.Artifact); err != nil {
			return installed, err
		}
		installed = append(installed, target)
	}

	return installed, nil
}

func isNativeLibrary(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := nativeLibraryExtensions[ext]
	return ok
}
