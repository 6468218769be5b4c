package pipeline

import (
	"errors"
	"fmt"
)

// Run stages, in execution order
const (
	StageLoad     = "load"
	StageHash     = "hash"
	StageResolve  = "resolve"
	StageGate     = "gate"
	StageConflict = "conflict"
	StageVerify   = "verify"
	StageManifest = "manifest"
	StageRender   = "render"
)

// ErrIncomplete is returned when a run would emit a partial result set
var ErrIncomplete = errors.New("incomplete result set")

// StageError names the stage a run failed in
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}
