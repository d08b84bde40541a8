package utils

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDatabaseError = errors.New("database error")
	ErrQueueError    = errors.New("queue error")
)

// FailureReason classifies why a planning job failed. It is persisted on the
// job record and returned to callers verbatim.
type FailureReason string

const (
	ReasonCommuteExceedsBudget FailureReason = "COMMUTE_EXCEEDS_BUDGET"
	ReasonNoPoisInIsochrone    FailureReason = "NO_POIS_IN_ISOCHRONE"
	ReasonNoOpenPois           FailureReason = "NO_OPEN_POIS"
	ReasonNoFeasibleStops      FailureReason = "NO_FEASIBLE_STOPS"
	ReasonRoutingFailed        FailureReason = "ROUTING_FAILED"
	ReasonInternalError        FailureReason = "INTERNAL_ERROR"
)

// PlanningError is a classified planner failure. The reason travels as a
// field, never encoded in the message text.
type PlanningError struct {
	Reason  FailureReason
	Message string
	Err     error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *PlanningError) Unwrap() error {
	return e.Err
}

func NewPlanningError(reason FailureReason, message string) *PlanningError {
	return &PlanningError{Reason: reason, Message: message}
}

func WrapPlanningError(reason FailureReason, message string, err error) *PlanningError {
	return &PlanningError{Reason: reason, Message: message, Err: err}
}

// AsPlanningError extracts a PlanningError from an error chain.
func AsPlanningError(err error) (*PlanningError, bool) {
	var pe *PlanningError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
