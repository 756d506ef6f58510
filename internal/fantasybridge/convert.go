package fantasybridge

import (
	"errors"

	"charm.land/fantasy"

	"github.com/dotcommander/confab/internal/proto"
)

func toFantasyPrompt(system string, turns proto.Conversation) fantasy.Prompt {
	messages := make([]fantasy.Message, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, fantasy.Message{
			Role:    fantasy.MessageRoleSystem,
			Content: []fantasy.MessagePart{fantasy.TextPart{Text: system}},
		})
	}

	for _, turn := range turns {
		var parts, results []fantasy.MessagePart
		for _, block := range turn.Blocks {
			switch b := block.(type) {
			case proto.Text:
				parts = append(parts, fantasy.TextPart{Text: b.Text})
			case proto.ToolInvocation:
				parts = append(parts, fantasy.ToolCallPart{
					ToolCallID: b.ID,
					ToolName:   b.Name,
					Input:      b.ArgumentsJSON(),
				})
			case proto.ToolResult:
				var output fantasy.ToolResultOutputContent
				if b.IsError {
					output = fantasy.ToolResultOutputContentError{Error: errors.New(b.Content)}
				} else {
					output = fantasy.ToolResultOutputContentText{Text: b.Content}
				}
				results = append(results, fantasy.ToolResultPart{ToolCallID: b.ID, Output: output})
			}
		}

		// Tool results travel in user turns here but in tool messages for
		// the providers.
		if len(results) > 0 {
			messages = append(messages, fantasy.Message{Role: fantasy.MessageRoleTool, Content: results})
		}
		if len(parts) > 0 {
			msg := fantasy.Message{Role: fantasy.MessageRoleUser, Content: parts}
			switch turn.Role {
			case proto.RoleAssistant:
				msg.Role = fantasy.MessageRoleAssistant
			case proto.RoleSystem:
				msg.Role = fantasy.MessageRoleSystem
			}
			messages = append(messages, msg)
		}
	}
	return messages
}

func fromToolSchemas(schemas []proto.ToolSchema) []fantasy.Tool {
	tools := make([]fantasy.Tool, 0, len(schemas))
	for _, s := range schemas {
		tools = append(tools, fantasy.FunctionTool{
			Name:        s.Name,
			Description: s.Description,
			InputSchema: s.InputSchema,
		})
	}
	return tools
}

func toolChoiceForRequest(request proto.Request) *fantasy.ToolChoice {
	if len(request.Tools) == 0 {
		return nil
	}
	choice := fantasy.ToolChoiceAuto
	return &choice
}
