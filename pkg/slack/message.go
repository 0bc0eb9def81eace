package slack

import (
	"fmt"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

var statusEmoji = map[string]string{
	"completed": ":white_check_mark:",
	"failed":    ":x:",
	"escalated": ":warning:",
}

var statusLabel = map[string]string{
	"completed": "Work Item Completed",
	"failed":    "Work Item Failed",
	"escalated": "Work Item Escalated",
}

func workItemURL(workItemID int64, dashboardURL string) string {
	return fmt.Sprintf("%s/work-items/%d", dashboardURL, workItemID)
}

// BuildStartedMessage creates Block Kit blocks for a work-item start notification.
func BuildStartedMessage(workItemID int64, title, dashboardURL string) []goslack.Block {
	url := workItemURL(workItemID, dashboardURL)
	text := fmt.Sprintf(":arrows_counterclockwise: *Started* — %s\n<%s|View Work Item>", title, url)

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

// BuildTerminalMessage creates Block Kit blocks for a terminal work-item notification.
func BuildTerminalMessage(input WorkItemCompletedInput, dashboardURL string) []goslack.Block {
	emoji := statusEmoji[input.Status]
	if emoji == "" {
		emoji = ":question:"
	}
	label := statusLabel[input.Status]
	if label == "" {
		label = "Work Item " + input.Status
	}

	var blocks []goslack.Block

	if input.Status == "completed" {
		headerText := fmt.Sprintf("%s *%s* — %s", emoji, label, input.Title)
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
			nil, nil,
		))
		if input.ChangesSummary != "" {
			blocks = append(blocks, goslack.NewSectionBlock(
				goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(input.ChangesSummary), false, false),
				nil, nil,
			))
		}
	} else {
		headerText := fmt.Sprintf("%s *%s* — %s", emoji, label, input.Title)
		if input.ErrorMessage != "" {
			headerText += fmt.Sprintf("\n\n*Error:*\n%s", truncateForSlack(input.ErrorMessage))
		}
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
			nil, nil,
		))
	}

	url := workItemURL(input.WorkItemID, dashboardURL)
	buttonText := "View Work Item"
	if input.Status != "completed" {
		buttonText = "View Details"
	}

	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, buttonText, false, false))
	btn.URL = url
	blocks = append(blocks, goslack.NewActionBlock("", btn))

	return blocks
}

func truncateForSlack(text string) string {
	if utf8.RuneCountInString(text) <= maxBlockTextLength {
		return text
	}
	return string([]rune(text)[:maxBlockTextLength]) + "\n\n_... (truncated — view full work item)_"
}
