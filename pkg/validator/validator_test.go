package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsEmptyResponse(t *testing.T) {
	result := Validate("   ", Rules{})
	require.False(t, result.OK)
	require.Contains(t, result.Issues, "response is empty")
}

func TestValidate_DetectsMissingRequiredSection(t *testing.T) {
	result := Validate("## Summary\nDone.", Rules{RequiredSections: []string{"Summary", "Changes"}})
	require.False(t, result.OK)
	require.Contains(t, result.Issues, "missing required section: Changes")
}

func TestValidate_DetectsUnbalancedCodeFences(t *testing.T) {
	result := Validate("## Summary\nDone.\n```go\nfunc main() {}\n", Rules{})
	require.False(t, result.OK)
	require.Contains(t, result.Issues, "unbalanced code fences")
}

func TestValidate_DetectsMissingSchemaField(t *testing.T) {
	result := Validate("## Summary\nstatus: ok", Rules{ExpectedSchema: []string{"status", "notes"}})
	require.False(t, result.OK)
	require.Contains(t, result.Issues, "missing expected field: notes")
}

func TestValidate_RejectsBelowMinLength(t *testing.T) {
	result := Validate("short", Rules{MinLength: 100})
	require.False(t, result.OK)
	require.Contains(t, result.Issues, "response shorter than minimum length")
}

func TestValidate_AcceptsWellFormedResponse(t *testing.T) {
	response := "## Summary\nstatus: ok\nnotes: none\n\n```go\nfunc main() {}\n```\n"
	result := Validate(response, Rules{
		RequiredSections: []string{"Summary"},
		ExpectedSchema:   []string{"status", "notes"},
		MinLength:        10,
	})
	require.True(t, result.OK)
	require.Empty(t, result.Issues)
}
