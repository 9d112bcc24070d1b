package core

import "fmt"

// Stage names the part of a run that failed.
type Stage string

// All stages of a run, in execution order.
const (
	LoaderStage Stage = "loader"
	MergeStage  Stage = "merge"
	WriterStage Stage = "writer"
)

// StageError attaches the failing stage and the input involved to an error.
// The cause stays reachable through errors.Is and errors.As.
type StageError struct {
	Stage Stage
	Input string
	Err   error
}

func (e *StageError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Input, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, input string, err error) error {
	return &StageError{Stage: stage, Input: input, Err: err}
}
