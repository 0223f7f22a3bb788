package ops

import (
	"context"

	"github.com/graphscribe/graphscribe/internal/diagram"
	"github.com/graphscribe/graphscribe/internal/sse"
)

// Optimization stages, in order. Layout and readability are conditional on
// the requested goal set.
const (
	StageAnalysis    = "analysis"
	StageLayout      = "layout"
	StageReadability = "readability"
	StageFormatting  = "formatting"
)

// OptimizeRequest is the input of one optimization run.
type OptimizeRequest struct {
	RequestID string `json:"requestId,omitempty"`
	diagram.OptimizeInput
}

// OptimizationDetails is the progress detail shape for optimization runs.
type OptimizationDetails struct {
	Goals            []string `json:"goals"`
	StagesPlanned    int      `json:"stagesPlanned"`
	StagesCompleted  int      `json:"stagesCompleted"`
	SuggestionsFound int      `json:"suggestionsFound"`
}

// OptimizationDriver narrates diagram optimization over a connection.
type OptimizationDriver struct {
	opts Options
}

// NewOptimizationDriver creates an optimization driver.
func NewOptimizationDriver(opts Options) *OptimizationDriver {
	return &OptimizationDriver{opts: opts}
}

// Run optimizes the request's code. The layout stage only runs when the
// goal set includes compactness or aesthetics; the readability stage only
// when it includes readability. On collaborator failure the driver emits an
// error event and returns a degraded result carrying the original code
// unchanged; it never returns an error itself.
func (d *OptimizationDriver) Run(ctx context.Context, req OptimizeRequest, emit Emit) diagram.OptimizeResult {
	em := newEmitter(emit, sse.OpOptimization, req.RequestID)
	degraded := degradedResult(req.OptimizeInput)

	if err := em.start("Starting diagram optimization"); err != nil {
		return degraded
	}

	wantLayout := req.HasGoal(diagram.GoalCompactness) || req.HasGoal(diagram.GoalAesthetics)
	wantReadability := req.HasGoal(diagram.GoalReadability)

	planned := 2 // analysis + formatting
	if wantLayout {
		planned++
	}
	if wantReadability {
		planned++
	}
	completed := 0

	details := func() OptimizationDetails {
		return OptimizationDetails{
			Goals:           req.Goals,
			StagesPlanned:   planned,
			StagesCompleted: completed,
		}
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return degraded
	}
	if err := em.progress(StageAnalysis, 15, "Analyzing diagram structure", details()); err != nil {
		return degraded
	}
	completed++

	if wantLayout {
		if err := pause(ctx, d.opts.StageDelay); err != nil {
			return degraded
		}
		if err := em.progress(StageLayout, 40, "Evaluating layout against goals", details()); err != nil {
			return degraded
		}
		completed++
	}

	if wantReadability {
		if err := pause(ctx, d.opts.StageDelay); err != nil {
			return degraded
		}
		if err := em.progress(StageReadability, 60, "Reviewing labels and ordering", details()); err != nil {
			return degraded
		}
		completed++
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return degraded
	}
	if err := em.progress(StageFormatting, 85, "Rewriting diagram source", details()); err != nil {
		return degraded
	}
	completed++

	result, err := diagram.Optimize(req.OptimizeInput)
	if err != nil {
		if d.opts.Logger != nil {
			d.opts.Logger.WithError(err).Warn("Optimization failed, returning input unchanged")
		}
		em.fail(err)
		return degraded
	}

	_ = em.complete("Optimization complete", result)
	return result
}

// degradedResult is the failure shape: the input code untouched, with no
// suggestions or applied optimizations.
func degradedResult(in diagram.OptimizeInput) diagram.OptimizeResult {
	return diagram.OptimizeResult{
		OptimizedCode:        in.Code,
		Suggestions:          []diagram.Suggestion{},
		AppliedOptimizations: []string{},
	}
}
