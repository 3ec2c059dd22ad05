package nativebuild

import (
	"errors"
	"fmt"
)

var (
	ErrHostCompilerNotFound = errors.New("could not find host compiler")
	ErrUnknownMode          = errors.New("unknown build mode")
	ErrMissingInstallPath   = errors.New("bundled toolchain install path is not available")
)

// Kind classifies a condition raised while running the pipeline.
type Kind int

const (
	// KindAbsence is an optional toolchain that was not found. It only ever
	// appears on a Diagnostic.
	KindAbsence Kind = iota
	// KindConfig is an invalid configuration, raised before any process runs.
	KindConfig
	// KindToolchainMissing is a required toolchain that could not be resolved.
	KindToolchainMissing
	// KindExternalStage is a failed checkout, build-system stage or library listing.
	KindExternalStage
	// KindCompile is a failed compile or link of a build target.
	KindCompile
)

func (k Kind) String() string {
	switch k {
	case KindAbsence:
		return "absence"
	case KindConfig:
		return "configuration"
	case KindToolchainMissing:
		return "required toolchain missing"
	case KindExternalStage:
		return "external stage"
	case KindCompile:
		return "compile"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Fatal reports whether a condition of this kind stops the run.
func (k Kind) Fatal() bool {
	return k != KindAbsence
}

// Error is a fatal pipeline error.
//
// Op names the step that failed ("find host compiler", "cmake build", ...).
// Error implements ExitStatus so that mg.ExitStatus maps it to the process
// exit status.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitStatus is always 1; the process reports any fatal condition the same way.
func (e *Error) ExitStatus() int {
	return 1
}

// KindOf returns the Kind of the first *Error in err's chain.
// Errors that are not *Error are reported as KindCompile, the outermost
// boundary they can come from.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindCompile
}

// Diagnostic is a non-fatal message surfaced to the caller.
type Diagnostic struct {
	Kind    Kind
	Message string
}

func (d Diagnostic) String() string {
	return "warning: " + d.Message
}
