package nativebuild

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// recordingRunner records every command and fails those matched by failWhen.
type recordingRunner struct {
	mu       sync.Mutex
	commands []Command
	output   []string
	failWhen func(Command) error
}

func (r *recordingRunner) Run(_ context.Context, cmd Command) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands = append(r.commands, cmd)
	if r.failWhen != nil {
		if err := r.failWhen(cmd); err != nil {
			return r.output, err
		}
	}
	return r.output, nil
}

func (r *recordingRunner) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for _, c := range r.commands {
		names = append(names, c.Name)
	}
	return names
}

type fakeFetcher struct {
	cloned   []string
	opened   []string
	cloneErr error
	openErr  error

	lastRemote string
	lastTag    string
}

func (f *fakeFetcher) Clone(_ context.Context, remote, dest, tag string) error {
	f.cloned = append(f.cloned, dest)
	f.lastRemote = remote
	f.lastTag = tag
	return f.cloneErr
}

func (f *fakeFetcher) Open(_ context.Context, dest string) error {
	f.opened = append(f.opened, dest)
	return f.openErr
}

// fakeStages records the stage sequence and fails at the named stage.
type fakeStages struct {
	calls     []string
	failAt    string
	sourceDir string
	buildDir  string
	options   []string
}

func (s *fakeStages) Configure(_ context.Context, sourceDir, buildDir string, options []string) error {
	s.sourceDir = sourceDir
	s.buildDir = buildDir
	s.options = options
	return s.step("configure")
}

func (s *fakeStages) Build(_ context.Context, _ string) error {
	return s.step("build")
}

func (s *fakeStages) Install(_ context.Context, _ string) error {
	return s.step("install")
}

func (s *fakeStages) step(name string) error {
	s.calls = append(s.calls, name)
	if s.failAt == name {
		return BuildError("cmake "+name, []string{"error: " + name}, errFake)
	}
	return nil
}

// fakeDriver writes an empty artifact for every target not named in failOn.
type fakeDriver struct {
	built  []string
	failOn string
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) CompileAndLink(_ context.Context, target BuildTarget, _ ToolchainInfo) (*BuildResult, error) {
	d.built = append(d.built, target.Name)
	result := &BuildResult{Target: target}

	if target.Name == d.failOn {
		err := BuildError("link "+target.Name, []string{"undefined reference"}, errFake)
		result.Error = err
		return result, err
	}

	if err := os.MkdirAll(filepath.Dir(target.ArtifactPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(target.ArtifactPath, []byte("lib"), 0o644); err != nil {
		return nil, err
	}

	result.Success = true
	result.Artifact = target.ArtifactPath
	return result, nil
}

type fakeError struct{}

func (fakeError) Error() string { return "exit status 1" }

var errFake = fakeError{}

// writeFiles creates empty files under dir.
func writeFiles(dir string, names ...string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}
