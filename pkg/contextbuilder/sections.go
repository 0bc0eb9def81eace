package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/obra/obra/pkg/model"
)

// WorkItemSection renders the work-item header: the top-priority section
// that is never dropped (Priority is set above every other section's).
func WorkItemSection(w model.WorkItem) Section {
	var sb strings.Builder
	fmt.Fprintf(&sb, "kind: %s\ntitle: %s\n\n%s", w.Kind, w.Title, w.Description)
	return Section{Name: "Work Item", Priority: 100, Content: sb.String()}
}

// ConstraintsSection renders the required constraints a response must
// satisfy, surfaced verbatim so the Response Validator can check them
// mechanically against the same text the executor saw.
func ConstraintsSection(constraints []string) Section {
	if len(constraints) == 0 {
		return Section{Name: "Constraints", Priority: 90}
	}
	var sb strings.Builder
	for _, c := range constraints {
		sb.WriteString("- " + c + "\n")
	}
	return Section{Name: "Constraints", Priority: 90, Content: sb.String()}
}

// MostRecentInteractionSection surfaces the immediately prior interaction's
// outcome, the highest-priority history section since it is most relevant
// to what the executor should do differently this iteration.
func MostRecentInteractionSection(in *model.Interaction) Section {
	if in == nil {
		return Section{Name: "Most Recent Attempt", Priority: 80}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "iteration %d, decision: %s\n", in.Iteration, in.Decision)
	if len(in.ValidatorIssues) > 0 {
		sb.WriteString("issues: " + strings.Join(in.ValidatorIssues, "; ") + "\n")
	}
	sb.WriteString(in.Response)
	return Section{Name: "Most Recent Attempt", Priority: 80, Content: sb.String(), Persist: true}
}

// PriorInteractionsSection renders earlier outcomes, most recent first,
// lowest-priority among the history sections since each is individually
// less relevant than the one immediately before it.
func PriorInteractionsSection(interactions []model.Interaction) Section {
	if len(interactions) == 0 {
		return Section{Name: "Prior Attempts", Priority: 60}
	}
	var sb strings.Builder
	for i := len(interactions) - 1; i >= 0; i-- {
		in := interactions[i]
		fmt.Fprintf(&sb, "iteration %d: %s", in.Iteration, in.Decision)
		if len(in.ValidatorIssues) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(in.ValidatorIssues, "; "))
		}
		sb.WriteString("\n")
	}
	return Section{Name: "Prior Attempts", Priority: 60, Content: sb.String()}
}

// AncestorsSection summarizes the epic/story chain above a WorkItem.
func AncestorsSection(ancestors []model.WorkItem) Section {
	if len(ancestors) == 0 {
		return Section{Name: "Hierarchy", Priority: 50}
	}
	var sb strings.Builder
	for _, a := range ancestors {
		fmt.Fprintf(&sb, "%s: %s\n", a.Kind, a.Title)
	}
	return Section{Name: "Hierarchy", Priority: 50, Content: sb.String()}
}

// GlossarySection carries project-level terminology, the lowest-priority
// section since it is background rather than task-specific.
func GlossarySection(glossary string) Section {
	return Section{Name: "Glossary", Priority: 10, Content: glossary}
}

// UserGuidanceSection carries to-executor text injected via the
// Interactive Command Plane (§4.13); it sits just below the most-recent
// interaction since a human override should dominate ordinary history.
func UserGuidanceSection(guidance string) Section {
	if guidance == "" {
		return Section{Name: "User Guidance", Priority: 70}
	}
	return Section{Name: "User Guidance", Priority: 70, Content: guidance, Persist: true}
}
