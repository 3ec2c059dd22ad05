package nativebuild

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the optional YAML file supplying defaults for a run.
//
// Every field is optional; unset fields leave the configuration untouched.
//
//	mode: debug
//	quick: true
//	cuda_path: /usr/local/cuda-12.2
//	timeout: 2h
type ConfigFile struct {
	Mode                  *string `yaml:"mode"`
	Verbose               *bool   `yaml:"verbose"`
	VerifyFiniteOutputs   *bool   `yaml:"verify_fp"`
	FastMath              *bool   `yaml:"fast_math"`
	Quick                 *bool   `yaml:"quick"`
	BuildBundledToolchain *bool   `yaml:"build_llvm"`
	GPUSDKPath            *string `yaml:"cuda_path"`
	HostCompilerPath      *string `yaml:"msvc_path"`
	PlatformSDKPath       *string `yaml:"sdk_path"`
	Root                  *string `yaml:"root"`
	InstallDir            *string `yaml:"install_dir"`
	Timeout               *string `yaml:"timeout"`
}

// LoadConfigFile reads and decodes a YAML configuration file.
// Unknown keys are rejected; an empty file sets nothing.
func LoadConfigFile(path string) (*ConfigFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindConfig, "load config file", err)
	}
	defer f.Close()

	var cf ConfigFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, newError(KindConfig, "load config file", fmt.Errorf("%s: %w", path, err))
	}
	return &cf, nil
}

// Apply copies the set fields of the file onto cfg.
func (cf *ConfigFile) Apply(cfg *BuildConfiguration) error {
	if cf.Mode != nil {
		mode, err := ParseMode(*cf.Mode)
		if err != nil {
			return newError(KindConfig, "apply config file", err)
		}
		cfg.Mode = mode
	}
	if cf.Timeout != nil {
		d, err := time.ParseDuration(*cf.Timeout)
		if err != nil {
			return newError(KindConfig, "apply config file", fmt.Errorf("timeout: %w", err))
		}
		cfg.StageTimeout = d
	}

	setBool(&cfg.Verbose, cf.Verbose)
	setBool(&cfg.VerifyFiniteOutputs, cf.VerifyFiniteOutputs)
	setBool(&cfg.FastMath, cf.FastMath)
	setBool(&cfg.Quick, cf.Quick)
	setBool(&cfg.BuildBundledToolchain, cf.BuildBundledToolchain)
	setString(&cfg.GPUSDKPath, cf.GPUSDKPath)
	setString(&cfg.HostCompilerPath, cf.HostCompilerPath)
	setString(&cfg.PlatformSDKPath, cf.PlatformSDKPath)
	setString(&cfg.Root, cf.Root)
	setString(&cfg.InstallDir, cf.InstallDir)
	return nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
