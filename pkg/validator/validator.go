// Package validator implements the Response Validator (§4.7): a cheap,
// non-LLM gate that rejects obviously malformed executor responses before
// the more expensive Quality Controller and Confidence Scorer stages run.
package validator

import (
	"strings"
)

// Rules describes what a well-formed response for one prompt must satisfy,
// derived from the same promptbuilder.Header that was sent to the
// executor, so the validator checks exactly what the prompt promised.
type Rules struct {
	RequiredSections []string
	ExpectedSchema   []string // field names that must appear as "name:" lines
	MinLength        int
}

// Result is the validator's verdict: a boolean plus the list of violations
// that caused it, persisted onto the Interaction record.
type Result struct {
	OK     bool
	Issues []string
}

// Validate runs the cheap checks in order, collecting every violation
// rather than stopping at the first so the executor's next prompt can
// address them all at once.
func Validate(response string, rules Rules) Result {
	var issues []string

	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return Result{OK: false, Issues: []string{"response is empty"}}
	}

	for _, section := range rules.RequiredSections {
		if !containsSection(response, section) {
			issues = append(issues, "missing required section: "+section)
		}
	}

	if !codeFencesBalanced(response) {
		issues = append(issues, "unbalanced code fences")
	}

	for _, field := range rules.ExpectedSchema {
		if !containsField(response, field) {
			issues = append(issues, "missing expected field: "+field)
		}
	}

	if rules.MinLength > 0 && len(trimmed) < rules.MinLength {
		issues = append(issues, "response shorter than minimum length")
	}

	return Result{OK: len(issues) == 0, Issues: issues}
}

func containsSection(response, section string) bool {
	return strings.Contains(strings.ToLower(response), strings.ToLower(section))
}

func containsField(response, field string) bool {
	return strings.Contains(strings.ToLower(response), strings.ToLower(field)+":")
}

func codeFencesBalanced(response string) bool {
	return strings.Count(response, "```")%2 == 0
}
