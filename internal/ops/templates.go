package ops

import (
	"context"

	"github.com/graphscribe/graphscribe/internal/diagram"
	"github.com/graphscribe/graphscribe/internal/sse"
)

// Template selection stages, in order.
const (
	StageSelection     = "selection"
	StageApplication   = "application"
	StageCustomization = "customization"
)

// TemplateRequest is the input of one template selection run.
type TemplateRequest struct {
	RequestID string `json:"requestId,omitempty"`
	diagram.TemplateFilter
}

// TemplateDetails is the progress detail shape for template runs.
type TemplateDetails struct {
	FiltersApplied []string `json:"filtersApplied"`
	Remaining      int      `json:"remaining"`
}

// TemplateDriver narrates template selection over a connection.
type TemplateDriver struct {
	opts Options
}

// NewTemplateDriver creates a template selection driver.
func NewTemplateDriver(opts Options) *TemplateDriver {
	return &TemplateDriver{opts: opts}
}

// Run selects templates matching the filter. Filters are applied
// incrementally during the selection stage, each narrowing step emitting its
// own progress event before the next filter runs.
func (d *TemplateDriver) Run(ctx context.Context, req TemplateRequest, emit Emit) []diagram.Template {
	em := newEmitter(emit, sse.OpTemplate, req.RequestID)

	if err := em.start("Starting template selection"); err != nil {
		return nil
	}

	applied := []string{}
	partial := diagram.TemplateFilter{}
	pct := 15

	steps := []struct {
		name  string
		value string
		apply func()
	}{
		{"type", req.Type, func() { partial.Type = req.Type }},
		{"useCase", req.UseCase, func() { partial.UseCase = req.UseCase }},
		{"complexity", req.Complexity, func() { partial.Complexity = req.Complexity }},
	}

	for _, step := range steps {
		if step.value == "" {
			continue
		}
		if err := pause(ctx, d.opts.StageDelay); err != nil {
			return nil
		}
		step.apply()
		applied = append(applied, step.name)
		remaining := len(diagram.SelectTemplates(partial))
		if err := em.progress(StageSelection, pct, "Filtering by "+step.name, TemplateDetails{
			FiltersApplied: append([]string(nil), applied...),
			Remaining:      remaining,
		}); err != nil {
			return nil
		}
		pct += 15
	}

	matched := diagram.SelectTemplates(req.TemplateFilter)

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return matched
	}
	if err := em.progress(StageApplication, 70, "Applying template defaults", TemplateDetails{
		FiltersApplied: applied,
		Remaining:      len(matched),
	}); err != nil {
		return matched
	}

	if err := pause(ctx, d.opts.StageDelay); err != nil {
		return matched
	}
	if err := em.progress(StageCustomization, 90, "Preparing customization hints", TemplateDetails{
		FiltersApplied: applied,
		Remaining:      len(matched),
	}); err != nil {
		return matched
	}

	_ = em.complete("Template selection complete", matched)
	return matched
}
