package workflow

import "time"

// Recorder receives engine measurements. The prometheus implementation lives
// in pkg/metrics; tests and the dry-run sweep use NopRecorder.
type Recorder interface {
	ExecutionEnrolled(workflowID string)
	StepExecuted(stepType, status string, elapsed time.Duration)
	ExecutionFinished(status string)
	SweepObserved(due, advanced, skipped, failed int, elapsed time.Duration)
}

// NopRecorder discards every measurement.
type NopRecorder struct{}

func (NopRecorder) ExecutionEnrolled(string)                        {}
func (NopRecorder) StepExecuted(string, string, time.Duration)      {}
func (NopRecorder) ExecutionFinished(string)                        {}
func (NopRecorder) SweepObserved(int, int, int, int, time.Duration) {}
