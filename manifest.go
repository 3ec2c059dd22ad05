package nativebuild

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var rawManifest []byte

var defaultManifest = mustParseManifest(rawManifest)

// Manifest is the fixed description of what the native library consists of:
// source lists, output layout, the pinned bundled toolchain and per-platform
// link conventions.
type Manifest struct {
	Layout struct {
		SourceDir   string `yaml:"source_dir"`
		BinDir      string `yaml:"bin_dir"`
		ExternalDir string `yaml:"external_dir"`
	} `yaml:"layout"`

	Primary struct {
		Name               string   `yaml:"name"`
		Sources            []string `yaml:"sources"`
		AcceleratedSources []string `yaml:"accelerated_sources"`
		GPUSource          string   `yaml:"gpu_source"`
	} `yaml:"primary"`

	Auxiliary struct {
		Name    string   `yaml:"name"`
		Sources []string `yaml:"sources"`
	} `yaml:"auxiliary"`

	BundledToolchain struct {
		Repository   string   `yaml:"repository"`
		Tag          string   `yaml:"tag"`
		CheckoutDir  string   `yaml:"checkout_dir"`
		SourceSubdir string   `yaml:"source_subdir"`
		Options      []string `yaml:"options"`
	} `yaml:"bundled_toolchain"`

	Platforms map[string]PlatformLinkage `yaml:"platforms"`

	Defines struct {
		GPUEnabled   string `yaml:"gpu_enabled"`
		GPUDisabled  string `yaml:"gpu_disabled"`
		VerifyFinite string `yaml:"verify_finite"`
		Quick        string `yaml:"quick"`
	} `yaml:"defines"`
}

// PlatformLinkage holds how the bundled toolchain libraries are linked on one
// platform.
type PlatformLinkage struct {
	LibraryExtensions []string `yaml:"library_extensions"`
	SystemLibrary     string   `yaml:"system_library"`
	// SearchPath is a template; {dir} is replaced by the library directory.
	SearchPath string `yaml:"search_path"`
}

// SearchPathDirective renders the library search path for dir.
func (l PlatformLinkage) SearchPathDirective(dir string) string {
	return strings.ReplaceAll(l.SearchPath, "{dir}", dir)
}

// DefaultManifest returns the embedded manifest.
func DefaultManifest() *Manifest {
	return defaultManifest
}

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

func mustParseManifest(data []byte) *Manifest {
	m, err := ParseManifest(data)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Manifest) validate() error {
	var errs []error
	if m.Primary.Name == "" || len(m.Primary.Sources) == 0 {
		errs = append(errs, errors.New("primary target needs a name and sources"))
	}
	if m.Auxiliary.Name == "" || len(m.Auxiliary.Sources) == 0 {
		errs = append(errs, errors.New("auxiliary target needs a name and sources"))
	}
	if m.BundledToolchain.Repository == "" || m.BundledToolchain.Tag == "" {
		errs = append(errs, errors.New("bundled toolchain needs a repository and a tag"))
	}
	if _, ok := m.Platforms["default"]; !ok {
		errs = append(errs, errors.New("platforms.default is required"))
	}
	return errors.Join(errs...)
}

// Linkage returns the link conventions for p, falling back to "default".
func (m *Manifest) Linkage(p Platform) PlatformLinkage {
	if l, ok := m.Platforms[p.OS]; ok {
		return l
	}
	return m.Platforms["default"]
}

// SourceDir returns the native source root under root.
func (m *Manifest) SourceDir(root string) string {
	return filepath.Join(root, filepath.FromSlash(m.Layout.SourceDir))
}

// BinDir returns the artifact output directory under root.
func (m *Manifest) BinDir(root string) string {
	return filepath.Join(root, filepath.FromSlash(m.Layout.BinDir))
}

// CheckoutDir returns the bundled toolchain working copy under root.
func (m *Manifest) CheckoutDir(root string) string {
	return filepath.Join(root, filepath.FromSlash(m.Layout.ExternalDir), m.BundledToolchain.CheckoutDir)
}

func (m *Manifest) sourcePaths(root string, rel []string) []string {
	paths := make([]string, 0, len(rel))
	for _, r := range rel {
		paths = append(paths, filepath.Join(m.SourceDir(root), filepath.FromSlash(r)))
	}
	return paths
}
