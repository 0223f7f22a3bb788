package ops

import (
	"context"
	"strings"

	"github.com/graphscribe/graphscribe/internal/diagram"
	"github.com/graphscribe/graphscribe/internal/sse"
)

// Validation stages, in order.
const (
	StageParsing          = "parsing"
	StageSyntaxCheck      = "syntax_check"
	StageSemanticAnalysis = "semantic_analysis"
)

// ValidateRequest is the input of one validation run.
type ValidateRequest struct {
	RequestID string `json:"requestId,omitempty"`
	Code      string `json:"code"`
	Strict    bool   `json:"strict,omitempty"`
}

// ValidationDetails is the progress detail shape for validation runs.
// LinesProcessed never exceeds TotalLines.
type ValidationDetails struct {
	LinesProcessed int `json:"linesProcessed"`
	TotalLines     int `json:"totalLines"`
	IssuesFound    int `json:"issuesFound"`
}

// ValidationDriver narrates diagram validation over a streaming connection.
type ValidationDriver struct {
	opts Options
}

// NewValidationDriver creates a validation driver.
func NewValidationDriver(opts Options) *ValidationDriver {
	return &ValidationDriver{opts: opts}
}

// Run validates the request's code, emitting validation_start, staged
// validation_progress events and one terminal validation_complete. It always
// returns a result; collaborator problems surface as a failed result rather
// than an error. Empty input short-circuits after the parsing stage and
// never reaches semantic analysis.
func (d *ValidationDriver) Run(ctx context.Context, req ValidateRequest, emit Emit) diagram.ValidationResult {
	em := newEmitter(emit, sse.OpValidation, req.RequestID)

	if err := em.start("Starting diagram validation"); err != nil {
		return streamClosedResult()
	}

	totalLines := len(strings.Split(req.Code, "\n"))
	if strings.TrimSpace(req.Code) == "" {
		totalLines = 0
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return streamClosedResult()
	}
	if err := em.progress(StageParsing, 20, "Parsing diagram source", ValidationDetails{
		LinesProcessed: 0,
		TotalLines:     totalLines,
	}); err != nil {
		return streamClosedResult()
	}

	if totalLines == 0 {
		result := diagram.Validate(req.Code, req.Strict)
		if err := em.progress(StageParsing, 50, "No diagram content found", ValidationDetails{
			LinesProcessed: 0,
			TotalLines:     0,
			IssuesFound:    1,
		}); err != nil {
			return result
		}
		_ = em.complete("Validation failed: empty input", result)
		return result
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return streamClosedResult()
	}
	if err := em.progress(StageSyntaxCheck, 45, "Checking syntax", ValidationDetails{
		LinesProcessed: totalLines,
		TotalLines:     totalLines,
	}); err != nil {
		return streamClosedResult()
	}

	result := diagram.Validate(req.Code, req.Strict)

	issues := len(result.Suggestions)
	if !result.Valid {
		issues++
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return result
	}
	if err := em.progress(StageSemanticAnalysis, 75, "Analyzing semantics", ValidationDetails{
		LinesProcessed: totalLines,
		TotalLines:     totalLines,
		IssuesFound:    issues,
	}); err != nil {
		return result
	}

	message := "Validation succeeded"
	if !result.Valid {
		message = "Validation failed: " + result.Error
	}
	_ = em.complete(message, result)
	return result
}

func streamClosedResult() diagram.ValidationResult {
	return diagram.ValidationResult{Valid: false, Error: "validation aborted: stream closed"}
}
