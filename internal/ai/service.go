// Package ai contains the resilient call orchestration against the
// generative backend and the tolerant decoding of its responses.
package ai

import (
	"context"
	"log/slog"

	"github.com/knowix/knowix/internal/ai/prompts"
	"github.com/knowix/knowix/internal/model"
)

// Service bundles the fallback orchestrator with the response decoders
// for the non-chat call sites: course generation, direct evaluation, and
// code-example generation.
type Service struct {
	orch *Orchestrator
}

// NewService creates a Service on top of an orchestrator.
func NewService(orch *Orchestrator) *Service {
	return &Service{orch: orch}
}

// GenerateQuestions produces a decoded question list for a learning
// goal. Returns the model that answered alongside the questions.
func (s *Service) GenerateQuestions(ctx context.Context, description string, mode model.Mode, count int, credentials []string) ([]DecodedQuestion, string, error) {
	prompt, err := prompts.BuildQuestionsPrompt(description, count)
	if err != nil {
		return nil, "", err
	}

	res, err := s.orch.Call(ctx, credentials, prompts.SystemInstruction(mode), prompt)
	if err != nil {
		return nil, "", err
	}

	questions, recovered, err := DecodeQuestions(res.Text)
	if err != nil {
		return nil, "", err
	}
	if recovered {
		slog.Warn("recovered questions from truncated output",
			"count", len(questions),
			"model", res.ModelUsed,
		)
	}
	return questions, res.ModelUsed, nil
}

// EvaluateAnswer runs a context-free evaluation of a single answer.
func (s *Service) EvaluateAnswer(ctx context.Context, questionText, answer string, mode model.Mode, credentials []string) (model.Evaluation, error) {
	prompt, err := prompts.BuildEvalPrompt(questionText, answer)
	if err != nil {
		return model.Evaluation{}, err
	}

	res, err := s.orch.Call(ctx, credentials, prompts.SystemInstruction(mode), prompt)
	if err != nil {
		return model.Evaluation{}, err
	}
	return DecodeEvaluation(res.Text)
}

// GenerateExamples produces decoded code examples for a question.
func (s *Service) GenerateExamples(ctx context.Context, questionText string, mode model.Mode, credentials []string) ([]model.CodeExample, string, error) {
	prompt, err := prompts.BuildExamplesPrompt(questionText)
	if err != nil {
		return nil, "", err
	}

	res, err := s.orch.Call(ctx, credentials, prompts.SystemInstruction(mode), prompt)
	if err != nil {
		return nil, "", err
	}

	examples, recovered, err := DecodeCodeExamples(res.Text)
	if err != nil {
		return nil, "", err
	}
	if recovered {
		slog.Warn("recovered examples from truncated output",
			"count", len(examples),
			"model", res.ModelUsed,
		)
	}
	return examples, res.ModelUsed, nil
}
