package metrics

import "time"

// EngineRecorder records engine measurements into the registry. It satisfies
// the engine's Recorder interface.
type EngineRecorder struct {
	registry *Registry
}

// Engine returns the recorder the workflow engine plugs into.
func (r *Registry) Engine() *EngineRecorder {
	return &EngineRecorder{registry: r}
}

// ExecutionEnrolled counts one enrollment.
func (e *EngineRecorder) ExecutionEnrolled(workflowID string) {
	e.registry.enrollmentsTotal.WithLabelValues(workflowID).Inc()
}

// StepExecuted counts one step execution and observes its duration.
func (e *EngineRecorder) StepExecuted(stepType, status string, elapsed time.Duration) {
	e.registry.stepsTotal.WithLabelValues(stepType, status).Inc()
	e.registry.stepDuration.WithLabelValues(stepType).Observe(elapsed.Seconds())
}

// ExecutionFinished counts one terminal transition.
func (e *EngineRecorder) ExecutionFinished(status string) {
	e.registry.executionsFinished.WithLabelValues(status).Inc()
}

// SweepObserved records one sweep pass.
func (e *EngineRecorder) SweepObserved(due, advanced, skipped, failed int, elapsed time.Duration) {
	e.registry.sweepRunsTotal.Inc()
	e.registry.sweepDue.Add(float64(due))
	e.registry.sweepAdvanced.Add(float64(advanced))
	e.registry.sweepSkipped.Add(float64(skipped))
	e.registry.sweepFailed.Add(float64(failed))
	e.registry.sweepDuration.Observe(elapsed.Seconds())
}
