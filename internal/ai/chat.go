package ai

import (
	"context"

	"github.com/knowix/knowix/internal/ai/prompts"
	"github.com/knowix/knowix/internal/model"
)

// ChatCoordinator orchestrates one user turn: build the chat prompt,
// call the fallback orchestrator, and decode the response. It does not
// score the turn — scoring needs state (previous score, streak) the
// coordinator cannot see, so that stays with the caller.
type ChatCoordinator struct {
	orch *Orchestrator
}

// NewChatCoordinator creates a coordinator on top of an orchestrator.
func NewChatCoordinator(orch *Orchestrator) *ChatCoordinator {
	return &ChatCoordinator{orch: orch}
}

// SubmitTurn runs one chat turn. When forceEvaluate is set the prompt
// directs the model to evaluate now; otherwise the model decides whether
// the latest message is a substantive answer or conversation. Errors
// from the orchestrator propagate unchanged so callers can special-case
// the no-usable-credential condition.
func (c *ChatCoordinator) SubmitTurn(ctx context.Context, questionText string, history []model.Message, forceEvaluate bool, mode model.Mode, credentials []string) (model.ChatTurnResult, error) {
	prompt, err := prompts.BuildChatPrompt(questionText, history, forceEvaluate)
	if err != nil {
		return model.ChatTurnResult{}, err
	}

	res, err := c.orch.Call(ctx, credentials, prompts.SystemInstruction(mode), prompt)
	if err != nil {
		return model.ChatTurnResult{}, err
	}

	result := DecodeChatTurn(res.Text)
	result.ModelUsed = res.ModelUsed
	return result, nil
}
