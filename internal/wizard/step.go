// Package wizard implements the Add Application onboarding flow: a linear step
// machine that gates forward navigation on completeness, merges backend
// suggestions with manually attached items and performs the final submission.
package wizard

// =============================================================================
// STEPS
// =============================================================================

// Step is one position in the onboarding flow.
type Step int

const (
	StepSearch Step = iota
	StepProduct
	StepDetails
	StepInstances
	StepRepos
	StepJira
	StepDocs
	StepReview
	StepResult
)

var stepNames = [...]string{
	StepSearch:    "search",
	StepProduct:   "product",
	StepDetails:   "details",
	StepInstances: "instances",
	StepRepos:     "repos",
	StepJira:      "jira",
	StepDocs:      "docs",
	StepReview:    "review",
	StepResult:    "result",
}

var stepTitles = [...]string{
	StepSearch:    "Find application",
	StepProduct:   "Choose product",
	StepDetails:   "Application details",
	StepInstances: "Service instances",
	StepRepos:     "Repositories",
	StepJira:      "Jira projects",
	StepDocs:      "Documentation",
	StepReview:    "Review",
	StepResult:    "Result",
}

const (
	firstStep = StepSearch
	lastStep  = StepResult
)

// Steps returns every step in flow order.
func Steps() []Step {
	steps := make([]Step, 0, len(stepNames))
	for s := firstStep; s <= lastStep; s++ {
		steps = append(steps, s)
	}
	return steps
}

// Valid reports whether s is one of the defined steps.
func (s Step) Valid() bool {
	return s >= firstStep && s <= lastStep
}

func (s Step) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stepNames[s]
}

// Title is the human readable heading of the step.
func (s Step) Title() string {
	if !s.Valid() {
		return "Unknown"
	}
	return stepTitles[s]
}

// skipped reports whether s is bypassed for an application that is already
// onboarded to another product.
func skipped(s Step, onboarded bool) bool {
	return onboarded && s > StepProduct && s < StepReview
}
