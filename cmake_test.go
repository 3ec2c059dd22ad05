package nativebuild

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCMakeStagesCommands(t *testing.T) {
	runner := &recordingRunner{}
	s := &CMakeStages{Runner: runner}
	ctx := context.Background()

	if err := s.Configure(ctx, "src", "out", []string{"A=1", "B=2"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := s.Build(ctx, "out"); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := s.Install(ctx, "out"); err != nil {
		t.Fatalf("Install: %v", err)
	}

	want := []Command{
		{Name: "cmake", Args: []string{"-S", "src", "-B", "out", "-G", "Ninja", "-D", "A=1", "-D", "B=2"}},
		{Name: "cmake", Args: []string{"--build", "out"}},
		{Name: "cmake", Args: []string{"--install", "out"}},
	}
	if diff := cmp.Diff(want, runner.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestCMakeStagesGenerator(t *testing.T) {
	runner := &recordingRunner{}
	s := &CMakeStages{Runner: runner, Generator: "Unix Makefiles"}

	if err := s.Configure(context.Background(), "src", "out", nil); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	want := []string{"-S", "src", "-B", "out", "-G", "Unix Makefiles"}
	if diff := cmp.Diff(want, runner.commands[0].Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestCMakeStagesFailure(t *testing.T) {
	runner := &recordingRunner{
		output:   []string{"ninja: build stopped: subcommand failed."},
		failWhen: func(Command) error { return errFake },
	}
	s := &CMakeStages{Runner: runner}

	err := s.Build(context.Background(), "out")

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %v", err)
	}
	if stepErr.Step != "cmake build" {
		t.Errorf("expected cmake build step, got %s", stepErr.Step)
	}
	if !errors.Is(err, errFake) {
		t.Error("expected the runner error in the chain")
	}
}

func TestRunStagesStopsAtFirstFailure(t *testing.T) {
	testCases := []struct {
		failAt    string
		wantCalls []string
		wantOp    string
	}{
		{"", []string{"configure", "build", "install"}, ""},
		{"configure", []string{"configure"}, "configure bundled toolchain"},
		{"build", []string{"configure", "build"}, "build bundled toolchain"},
		{"install", []string{"configure", "build", "install"}, "install bundled toolchain"},
	}

	for _, tc := range testCases {
		t.Run("fail at "+tc.failAt, func(t *testing.T) {
			stages := &fakeStages{failAt: tc.failAt}

			err := runStages(context.Background(), stages, StageRequest{SourceDir: "src", BuildDir: "out"})

			if diff := cmp.Diff(tc.wantCalls, stages.calls); diff != "" {
				t.Errorf("stage calls mismatch (-want +got):\n%s", diff)
			}

			if tc.wantOp == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if e.Kind != KindExternalStage || e.Op != tc.wantOp {
				t.Errorf("expected %s/%q, got %s/%q", KindExternalStage, tc.wantOp, e.Kind, e.Op)
			}
		})
	}
}
