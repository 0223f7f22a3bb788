package diagram

import "strings"

// Template is a ready-made diagram skeleton.
type Template struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`       // "flowchart", "sequence", "state"
	UseCase    string `json:"useCase"`    // "process", "architecture", "onboarding", ...
	Complexity string `json:"complexity"` // "simple", "medium", "complex"
	Code       string `json:"code"`
}

// TemplateFilter narrows the template catalog. Empty fields match anything.
type TemplateFilter struct {
	Type       string `json:"type,omitempty"`
	UseCase    string `json:"useCase,omitempty"`
	Complexity string `json:"complexity,omitempty"`
}

var catalog = []Template{
	{
		ID: "linear-process", Name: "Linear process", Type: "flowchart",
		UseCase: "process", Complexity: "simple",
		Code: "flowchart TD\n    start[Start]\n    work[Do the work]\n    done[Done]\n    start --> work\n    work --> done",
	},
	{
		ID: "decision-gate", Name: "Decision gate", Type: "flowchart",
		UseCase: "process", Complexity: "medium",
		Code: "flowchart TD\n    input[Input]\n    check{Valid?}\n    accept[Accept]\n    reject[Reject]\n    input --> check\n    check -->|yes| accept\n    check -->|no| reject",
	},
	{
		ID: "approval-loop", Name: "Approval loop", Type: "flowchart",
		UseCase: "process", Complexity: "complex",
		Code: "flowchart TD\n    draft[Draft]\n    review{Review}\n    revise[Revise]\n    approved[Approved]\n    published[Published]\n    draft --> review\n    review -->|changes| revise\n    revise --> review\n    review -->|ok| approved\n    approved --> published",
	},
	{
		ID: "three-tier", Name: "Three-tier architecture", Type: "flowchart",
		UseCase: "architecture", Complexity: "simple",
		Code: "flowchart LR\n    client[Client]\n    api[API]\n    db[Database]\n    client --> api\n    api --> db",
	},
	{
		ID: "event-pipeline", Name: "Event pipeline", Type: "flowchart",
		UseCase: "architecture", Complexity: "medium",
		Code: "flowchart LR\n    producer[Producer]\n    broker[Broker]\n    consumer[Consumer]\n    store[Store]\n    producer --> broker\n    broker --> consumer\n    consumer --> store",
	},
	{
		ID: "signup-flow", Name: "Signup flow", Type: "flowchart",
		UseCase: "onboarding", Complexity: "medium",
		Code: "flowchart TD\n    visit[Visit page]\n    form[Fill form]\n    verify{Email valid?}\n    welcome[Welcome]\n    retry[Show error]\n    visit --> form\n    form --> verify\n    verify -->|yes| welcome\n    verify -->|no| retry",
	},
}

// Templates returns the full catalog.
func Templates() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// SelectTemplates filters the catalog by type, use case and complexity.
func SelectTemplates(filter TemplateFilter) []Template {
	out := []Template{}
	for _, t := range catalog {
		if !matches(t.Type, filter.Type) {
			continue
		}
		if !matches(t.UseCase, filter.UseCase) {
			continue
		}
		if !matches(t.Complexity, filter.Complexity) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(value, filter string) bool {
	return filter == "" || strings.EqualFold(value, filter)
}
