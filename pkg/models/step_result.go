package models

import "time"

// StepStatus tags the outcome variants of a single step execution.
type StepStatus string

const (
	// StepSuccess: the channel sender accepted the send.
	StepSuccess StepStatus = "success"
	// StepSkipped: compliance blocked the step permanently; the chain
	// advances past it.
	StepSkipped StepStatus = "skipped"
	// StepDeferred: compliance deferred the step; retry at ResumeAt
	// without advancing.
	StepDeferred StepStatus = "deferred"
	// StepNotDue: the step's inter-step delay has not elapsed yet.
	StepNotDue StepStatus = "not_due"
	// StepFailed: the channel sender returned an error.
	StepFailed StepStatus = "failed"
)

// StepResult is the typed outcome of ActionChainExecutor.RunStep. Nothing
// crosses the executor's boundary as an uncaught error; every failure
// mode is one of these variants.
type StepResult struct {
	Status   StepStatus
	Reason   string
	ResumeAt time.Time
	Err      error
}

func SuccessResult() StepResult {
	return StepResult{Status: StepSuccess}
}

func SkippedResult(reason string) StepResult {
	return StepResult{Status: StepSkipped, Reason: reason}
}

func DeferredResult(resumeAt time.Time) StepResult {
	return StepResult{Status: StepDeferred, ResumeAt: resumeAt}
}

func NotDueResult(resumeAt time.Time) StepResult {
	return StepResult{Status: StepNotDue, ResumeAt: resumeAt}
}

func FailedResult(err error) StepResult {
	return StepResult{Status: StepFailed, Err: err}
}

// Terminal reports whether the result ends the current attempt for the
// step (success, skipped, failed) as opposed to rescheduling it.
func (r StepResult) Terminal() bool {
	switch r.Status {
	case StepSuccess, StepSkipped, StepFailed:
		return true
	case StepDeferred, StepNotDue:
		return false
	}

	return false
}
