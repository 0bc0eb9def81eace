// Package quality implements the Quality Controller (§4.8): submits a
// compact evaluation prompt to the Supervisor LLM and parses a numeric
// score in [0,1] plus an enumerated set of issues, supplemented by cheap
// local checks (balanced code, expected files touched).
package quality

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/obra/obra/pkg/llmclient"
	"github.com/obra/obra/pkg/model"
)

// scoreRegex matches an integer 0-100 on the last non-blank line of the
// evaluation response, the same "number on the last line" convention the
// scoring prompt instructs the LLM to follow.
var scoreRegex = regexp.MustCompile(`([+-]?\d+)\s*$`)

// evalInstructions tells the LLM how to format its evaluation so Evaluate
// can parse it mechanically.
const evalInstructions = `Evaluate the response below against the stated criteria.
List any issues as lines starting with "- ".
End your response with the total score out of 100 as a standalone number on the last line.`

// Input is one response to evaluate.
type Input struct {
	WorkItem      model.WorkItem
	Response      string
	Criteria      string
	ExpectedFiles []string // paths the work item's description implies should be touched
	ObservedFiles []string // paths recorded in the file-change log for this iteration
}

// Score is the Quality Controller's verdict.
type Score struct {
	Value  float64 // [0,1]
	Issues []string
}

// Controller evaluates executor responses via an LLM call plus local checks.
type Controller struct {
	llm llmclient.Client
}

// New constructs a Controller backed by an LLM Client.
func New(llm llmclient.Client) *Controller {
	return &Controller{llm: llm}
}

// Evaluate never returns an error for an LLM failure: per §4.8, "failure of
// the LLM call is itself a quality signal" — a floor score plus an issue
// describing the failure, so the iteration pipeline keeps running.
func (c *Controller) Evaluate(ctx context.Context, in Input) Score {
	prompt := buildEvalPrompt(in)

	text, err := c.llm.Generate(ctx, prompt, llmclient.Options{Temperature: 0})
	if err != nil {
		return Score{Value: 0, Issues: []string{"quality evaluation unavailable: " + err.Error()}}
	}

	value, issues, err := parseEvaluation(text)
	if err != nil {
		return Score{Value: 0, Issues: []string{"quality evaluation unparseable: " + err.Error()}}
	}

	issues = append(issues, localChecks(in)...)
	return Score{Value: value, Issues: issues}
}

func buildEvalPrompt(in Input) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Work item: %s\n\n", in.WorkItem.Title)
	fmt.Fprintf(&sb, "Criteria: %s\n\n", in.Criteria)
	sb.WriteString("Response:\n")
	sb.WriteString(in.Response)
	sb.WriteString("\n\n")
	sb.WriteString(evalInstructions)
	return sb.String()
}

// parseEvaluation extracts the score from the last line (as
// pkg/agent/controller/scoring.go's extractScore does) and any "- " issue
// lines from the body preceding it.
func parseEvaluation(text string) (float64, []string, error) {
	text = strings.TrimRight(text, "\n\r ")
	if text == "" {
		return 0, nil, fmt.Errorf("empty evaluation response")
	}

	lastNewline := strings.LastIndex(text, "\n")
	var lastLine, body string
	if lastNewline == -1 {
		lastLine = text
	} else {
		lastLine = text[lastNewline+1:]
		body = text[:lastNewline]
	}

	match := scoreRegex.FindStringSubmatch(lastLine)
	if match == nil {
		return 0, nil, fmt.Errorf("no numeric score found on last line: %q", lastLine)
	}
	raw, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse score %q: %w", match[1], err)
	}

	value := float64(raw) / 100
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}

	var issues []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") {
			issues = append(issues, strings.TrimPrefix(line, "- "))
		}
	}

	return value, issues, nil
}

func localChecks(in Input) []string {
	var issues []string
	if strings.Contains(in.Response, "```") && !bracesBalanced(in.Response) {
		issues = append(issues, "unbalanced braces/parens/brackets in code block")
	}

	observed := make(map[string]bool, len(in.ObservedFiles))
	for _, f := range in.ObservedFiles {
		observed[f] = true
	}
	for _, expected := range in.ExpectedFiles {
		if !observed[expected] {
			issues = append(issues, "expected file not touched: "+expected)
		}
	}
	return issues
}

func bracesBalanced(text string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	for _, r := range text {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}
