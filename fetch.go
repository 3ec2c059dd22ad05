package nativebuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Fetcher retrieves a pinned source tree from version control.
type Fetcher interface {
	// Clone performs a shallow, single-branch checkout of tag from remote
	// into dest. It is a no-op when dest already exists.
	Clone(ctx context.Context, remote, dest, tag string) error

	// Open verifies that dest holds an existing working copy. It never
	// updates it.
	Open(ctx context.Context, dest string) error
}

// GitFetcher implements Fetcher with the git command line.
type GitFetcher struct {
	Runner Runner
}

// Clone runs git clone --depth 1 --single-branch --branch tag.
func (f *GitFetcher) Clone(ctx context.Context, remote, dest, tag string) error {
	if _, err := os.Stat(dest); err == nil {
		return f.Open(ctx, dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	output, err := f.Runner.Run(ctx, Command{
		Name: "git",
		Args: []string{
			"clone",
			"--depth", "1",
			"--single-branch",
			"--branch", tag,
			remote, dest,
		},
	})
	if err != nil {
		return BuildError("git clone", output, err)
	}

	return nil
}

// Open checks for a .git entry in dest.
func (f *GitFetcher) Open(_ context.Context, dest string) error {
	if _, err := os.Stat(filepath.Join(dest, ".git")); err != nil {
		return fmt.Errorf("%s is not a git working copy: %w", dest, err)
	}
	return nil
}
