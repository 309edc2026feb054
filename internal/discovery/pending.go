package discovery

import (
	"encoding/json"
	"strings"

	"lookout/internal/types"
)

const (
	questionToolName = "AskUserQuestion"
	planToolName     = "ExitPlanMode"
)

// DetectPending finds the single earliest unanswered tool use in the tail of
// a session's messages: all tool-use blocks of the last assistant message,
// minus every id a later tool-result answers. Returns nil when nothing is
// blocked.
func DetectPending(messages []*types.ParsedMessage) *types.PendingInteraction {
	lastAssistant := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i] != nil && messages[i].Type == types.MessageTypeAssistant {
			lastAssistant = i
			break
		}
	}
	if lastAssistant < 0 {
		return nil
	}

	var toolUses []types.ContentBlock
	for _, block := range messages[lastAssistant].Content {
		if block.Kind == types.BlockToolUse {
			toolUses = append(toolUses, block)
		}
	}
	if len(toolUses) == 0 {
		return nil
	}

	answered := make(map[string]bool)
	for _, msg := range messages[lastAssistant+1:] {
		if msg == nil {
			continue
		}
		for _, block := range msg.Content {
			if block.Kind == types.BlockToolResult && block.ToolUseID != "" {
				answered[block.ToolUseID] = true
			}
		}
	}

	for _, use := range toolUses {
		if answered[use.ToolUseID] {
			continue
		}
		return buildPending(use)
	}
	return nil
}

func buildPending(use types.ContentBlock) *types.PendingInteraction {
	pending := &types.PendingInteraction{
		Kind:      types.InteractionToolApproval,
		ToolUseID: use.ToolUseID,
		ToolName:  use.ToolName,
		Input:     use.ToolInput,
	}
	switch use.ToolName {
	case questionToolName:
		pending.Kind = types.InteractionQuestion
		pending.Questions = parseQuestions(use.ToolInput)
	case planToolName:
		pending.Kind = types.InteractionPlanReview
		pending.Plan = parsePlan(use.ToolInput)
	}
	return pending
}

func parseQuestions(input string) []types.Question {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	var payload struct {
		Questions []struct {
			Question    string `json:"question"`
			Header      string `json:"header"`
			MultiSelect bool   `json:"multiSelect"`
			Options     []struct {
				Label       string `json:"label"`
				Description string `json:"description"`
			} `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return nil
	}
	questions := make([]types.Question, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		question := types.Question{
			Prompt:      q.Question,
			Header:      q.Header,
			MultiSelect: q.MultiSelect,
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, types.QuestionOption{
				Label:       opt.Label,
				Description: opt.Description,
			})
		}
		questions = append(questions, question)
	}
	return questions
}

func parsePlan(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	var payload struct {
		Plan string `json:"plan"`
	}
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return ""
	}
	return payload.Plan
}
