package ops

import (
	"context"
	"fmt"

	"github.com/graphscribe/graphscribe/internal/diagram"
	"github.com/graphscribe/graphscribe/internal/sse"
)

// Format conversion stages, in order.
const (
	StageDetection    = "detection"
	StageConvParsing  = "parsing"
	StageConversion   = "conversion"
	StageOptimization = "optimization"
)

// ConvertRequest is the input of one conversion run.
type ConvertRequest struct {
	RequestID         string `json:"requestId,omitempty"`
	Code              string `json:"code"`
	TargetFormat      string `json:"targetFormat"`
	OptimizeStructure bool   `json:"optimizeStructure,omitempty"`
}

// ConversionDetails is the progress detail shape for conversion runs.
type ConversionDetails struct {
	SourceFormat string `json:"sourceFormat"`
	TargetFormat string `json:"targetFormat"`
}

// ConversionDriver narrates format conversion over a connection.
type ConversionDriver struct {
	opts Options
}

// NewConversionDriver creates a format conversion driver.
func NewConversionDriver(opts Options) *ConversionDriver {
	return &ConversionDriver{opts: opts}
}

// Run converts the request's code into the target format. A target of
// "auto" is resolved to a concrete format during the detection stage,
// before any later stage runs. Unlike the other drivers this one propagates
// failure to the caller: it emits the error event and then returns the
// error, matching the converter's own raising contract.
func (d *ConversionDriver) Run(ctx context.Context, req ConvertRequest, emit Emit) (string, error) {
	em := newEmitter(emit, sse.OpFormatConversion, req.RequestID)

	if err := em.start("Starting format conversion"); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}

	source := diagram.DetectFormat(req.Code)
	if source == diagram.FormatUnknown {
		err := fmt.Errorf("unrecognized source diagram format")
		em.fail(err)
		return "", err
	}
	target := diagram.ResolveTarget(diagram.Format(req.TargetFormat), source)

	details := ConversionDetails{
		SourceFormat: string(source),
		TargetFormat: string(target),
	}

	if err := em.progress(StageDetection, 20, "Detected source format", details); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}
	if err := em.progress(StageConvParsing, 45, "Parsing source diagram", details); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}
	if err := em.progress(StageConversion, 70, "Converting structure", details); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}
	if err := em.progress(StageOptimization, 90, "Optimizing converted output", details); err != nil {
		return "", fmt.Errorf("conversion aborted: %w", err)
	}

	converted, err := diagram.Convert(req.Code, target, req.OptimizeStructure)
	if err != nil {
		em.fail(err)
		return "", err
	}

	_ = em.complete("Conversion complete", map[string]any{
		"convertedCode": converted,
		"sourceFormat":  string(source),
		"targetFormat":  string(target),
	})
	return converted, nil
}
