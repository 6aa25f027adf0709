package report

import "fmt"

// Stage is a state of the report pipeline
type Stage string

// Pipeline states, in order. A run ends in Delivered or Printed.
const (
	StageInit               Stage = "Init"
	StageConfigLoaded       Stage = "ConfigLoaded"
	StageSessionEstablished Stage = "SessionEstablished"
	StageUsageCollected     Stage = "UsageCollected"
	StageMessageRendered    Stage = "MessageRendered"
	StageDelivered          Stage = "Delivered"
	StagePrinted            Stage = "Printed"
)

// Terminal reports whether the pipeline stops in this state
func (s Stage) Terminal() bool {
	return s == StageDelivered || s == StagePrinted
}

// StageError records the state a failed run was trying to reach
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("report failed reaching %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
