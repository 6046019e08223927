package main

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// ProvisioningStep is one ordered step of the setup pipeline.
//
// # Description
//
// Each step consists of an optional precondition, the action itself, and a
// fatality policy. Steps execute strictly in declared order; a failing
// fatal step halts all subsequent steps, a failing non-fatal step is
// recorded as a warning and the sequence continues.
//
// # Example
//
//	step := ProvisioningStep{
//	    Name:  "install requirements.txt",
//	    Fatal: true,
//	    Run: func(ctx context.Context) error {
//	        _, err := installer.InstallAll(ctx, desc)
//	        return err
//	    },
//	    Remedy: "inspect pip output above and fix the failing requirement",
//	}
type ProvisioningStep struct {
	// Name identifies the step in progress output and diagnostics.
	Name string

	// Skip, when non-nil and returning a non-empty reason, causes the
	// step to be recorded as skipped instead of executed.
	Skip func(ctx context.Context) string

	// Run performs the step's action.
	Run func(ctx context.Context) error

	// Fatal marks a step whose failure aborts the remaining pipeline.
	Fatal bool

	// Remedy is printed with the diagnostic when the step fails.
	Remedy string

	// Timeout overrides the pipeline default. Zero uses the default.
	Timeout time.Duration
}

// StepStatus is the recorded outcome of one step.
type StepStatus int

const (
	// StepOK means the step completed successfully.
	StepOK StepStatus = iota

	// StepWarned means a non-fatal step failed; the pipeline continued.
	StepWarned

	// StepFailed means a fatal step failed; the pipeline halted.
	StepFailed

	// StepSkipped means the step's precondition made it unnecessary, or
	// an earlier fatal failure prevented it from running.
	StepSkipped
)

// String returns a short label for the status.
func (s StepStatus) String() string {
	switch s {
	case StepOK:
		return "ok"
	case StepWarned:
		return "warned"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Err      error
	Reason   string // populated for skips
	Duration time.Duration
}

// PipelineReport is the aggregate outcome of a pipeline run.
type PipelineReport struct {
	Results []StepResult

	// FailedStep names the fatal step that halted the pipeline,
	// empty when none did. Cancellation leaves it empty; no step
	// failed, the run was interrupted.
	FailedStep string

	// Cancelled is set when the context was cancelled before all
	// steps could run.
	Cancelled bool
}

// Succeeded reports whether every step got to run and no fatal step
// failed. Warnings do not count against success.
func (r *PipelineReport) Succeeded() bool {
	return r.FailedStep == "" && !r.Cancelled
}

// Warnings returns the results of steps that warned.
func (r *PipelineReport) Warnings() []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if res.Status == StepWarned {
			out = append(out, res)
		}
	}
	return out
}

// PipelineConfig configures pipeline execution.
type PipelineConfig struct {
	// StepTimeout is the default timeout per step. Dependency installs
	// can legitimately take minutes on a cold cache.
	// Default: 10 minutes.
	StepTimeout time.Duration

	// OnStepStart is called before each step executes.
	OnStepStart func(index, total int, step ProvisioningStep)

	// OnStepDone is called after each step with its result.
	OnStepDone func(index, total int, step ProvisioningStep, result StepResult)
}

// Pipeline executes an ordered list of provisioning steps.
//
// # Description
//
// The single driver loop replaces the per-command exit-code checks the
// setup scripts used to duplicate: declare the order and the fatality
// policy once, and the loop enforces them.
//
// # Thread Safety
//
// A Pipeline is not safe for concurrent use; run one at a time.
type Pipeline struct {
	config PipelineConfig
	steps  []ProvisioningStep
	log    *logging.Logger
}

// NewPipeline creates an empty pipeline.
func NewPipeline(config PipelineConfig, log *logging.Logger) *Pipeline {
	if config.StepTimeout <= 0 {
		config.StepTimeout = 10 * time.Minute
	}
	if log == nil {
		log = logging.Default()
	}
	return &Pipeline{config: config, log: log}
}

// AddStep appends a step. Steps execute in the order they were added.
func (p *Pipeline) AddStep(step ProvisioningStep) {
	p.steps = append(p.steps, step)
}

// Execute runs all steps in order and returns the report.
//
// # Description
//
// The returned error is non-nil exactly when a fatal step failed (or the
// context was cancelled between steps). Non-fatal failures surface only in
// the report. Once a fatal step fails, every remaining step is recorded as
// skipped; in particular a failed dependency install prevents the
// migration gate from ever running.
func (p *Pipeline) Execute(ctx context.Context) (*PipelineReport, error) {
	report := &PipelineReport{Results: make([]StepResult, 0, len(p.steps))}
	total := len(p.steps)

	halted := false
	var fatalErr error

	for i, step := range p.steps {
		if halted {
			reason := "earlier fatal failure"
			if report.Cancelled {
				reason = "cancelled"
			}
			report.Results = append(report.Results, StepResult{
				Name:   step.Name,
				Status: StepSkipped,
				Reason: reason,
			})
			continue
		}

		if ctx.Err() != nil {
			fatalErr = fmt.Errorf("provisioning cancelled: %w", ctx.Err())
			report.Cancelled = true
			halted = true
			report.Results = append(report.Results, StepResult{
				Name: step.Name, Status: StepSkipped, Reason: "cancelled",
			})
			continue
		}

		if step.Skip != nil {
			if reason := step.Skip(ctx); reason != "" {
				p.log.Info("skipping step", "step", step.Name, "reason", reason)
				result := StepResult{Name: step.Name, Status: StepSkipped, Reason: reason}
				report.Results = append(report.Results, result)
				if p.config.OnStepDone != nil {
					p.config.OnStepDone(i, total, step, result)
				}
				continue
			}
		}

		result := p.executeStep(ctx, i, total, step)
		report.Results = append(report.Results, result)

		if result.Status == StepFailed {
			report.FailedStep = step.Name
			fatalErr = fmt.Errorf("provisioning failed at step %q: %w", step.Name, result.Err)
			halted = true
		}
	}

	if fatalErr != nil {
		return report, fatalErr
	}
	return report, nil
}

// executeStep runs a single step with its timeout and classifies the result.
func (p *Pipeline) executeStep(ctx context.Context, index, total int, step ProvisioningStep) StepResult {
	if p.config.OnStepStart != nil {
		p.config.OnStepStart(index, total, step)
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = p.config.StepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.log.Info("executing step", "step", step.Name)
	start := time.Now()
	err := step.Run(stepCtx)
	duration := time.Since(start)

	result := StepResult{Name: step.Name, Duration: duration}
	switch {
	case err == nil:
		result.Status = StepOK
		p.log.Info("step completed", "step", step.Name, "duration", duration)
	case step.Fatal:
		result.Status = StepFailed
		result.Err = err
		attrs := []any{"step", step.Name, "error", err}
		if detail := ExtractStderr(err); detail != "" {
			attrs = append(attrs, "stderr", detail)
		}
		p.log.Error("step failed", attrs...)
	default:
		result.Status = StepWarned
		result.Err = err
		p.log.Warn("step failed (non-fatal), continuing", "step", step.Name, "error", err)
	}

	if p.config.OnStepDone != nil {
		p.config.OnStepDone(index, total, step, result)
	}
	return result
}
