package orchestrator

import "fmt"

// Status represents the lifecycle state of one orchestration instance.
// Transitions: Planning -> Executing -> {Succeeded | RollingBack ->
// RolledBack | RolledBackPartial}. There is no whole-orchestration retry;
// retries live strictly inside the retry policy per remote call.
type Status string

const (
	// StatusPlanning indicates the plan is being built; no remote calls yet.
	StatusPlanning Status = "planning"

	// StatusExecuting indicates forward steps are being dispatched.
	StatusExecuting Status = "executing"

	// StatusSucceeded indicates every step completed. Final.
	StatusSucceeded Status = "succeeded"

	// StatusRollingBack indicates compensations are being executed.
	StatusRollingBack Status = "rolling_back"

	// StatusRolledBack indicates rollback finished and every compensation
	// succeeded. Final.
	StatusRolledBack Status = "rolled_back"

	// StatusRolledBackPartial indicates rollback finished but one or more
	// compensations failed; remote cleanup may be required. Final.
	StatusRolledBackPartial Status = "rolled_back_partial"
)

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusRolledBack || s == StatusRolledBackPartial
}

// Validate checks if the status is valid.
func (s Status) Validate() error {
	switch s {
	case StatusPlanning, StatusExecuting, StatusSucceeded,
		StatusRollingBack, StatusRolledBack, StatusRolledBackPartial:
		return nil
	default:
		return fmt.Errorf("invalid orchestration status: %s", s)
	}
}

// canTransition reports whether moving from s to next is a legal step of
// the orchestration state machine.
func (s Status) canTransition(next Status) bool {
	switch s {
	case StatusPlanning:
		return next == StatusExecuting
	case StatusExecuting:
		return next == StatusSucceeded || next == StatusRollingBack
	case StatusRollingBack:
		return next == StatusRolledBack || next == StatusRolledBackPartial
	default:
		return false
	}
}
