package planner

import (
	"fmt"
	"strings"
)

// Stage names the step a run had reached.
type Stage string

const (
	StageValidate Stage = "validate"
	StageSchedule Stage = "schedule"
	StageSimulate Stage = "simulate"
	StageFinalize Stage = "finalize"
)

// ValidationError reports an invalid request. No work has been done.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid plan request: " + strings.ReplaceAll(e.Err.Error(), "\n", "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StageError reports an unexpected fault raised while running Stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("plan failed during %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
