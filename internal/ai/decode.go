package ai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/knowix/knowix/internal/model"
)

// DecodedQuestion is one entry recovered from a question-list response.
// Synthetic ids, timestamps, and pending status are assigned by the
// caller when it builds the course record.
type DecodedQuestion struct {
	Order      int
	Text       string
	Difficulty model.Difficulty
	XPBonus    int
}

const defaultXPBonus = 5

// DecodeQuestions decodes a question-list response. Missing fields get
// defaults (text "", difficulty medium, xpBonus 5, order = 1-based
// position); a zero-entry list fails with ErrEmptyResult. recovered is
// true when the list was salvaged from truncated output.
func DecodeQuestions(raw string) (questions []DecodedQuestion, recovered bool, err error) {
	items, recovered, err := ExtractArray(raw, questionObjectRegex)
	if err != nil {
		return nil, false, err
	}

	for i, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			continue // tolerate a non-object entry
		}
		q := DecodedQuestion{
			Order:      i + 1,
			Difficulty: model.DifficultyMedium,
			XPBonus:    defaultXPBonus,
		}
		if v, ok := fields["order"].(float64); ok {
			q.Order = int(v)
		}
		if v, ok := fields["text"].(string); ok {
			q.Text = v
		}
		if v, ok := fields["difficulty"].(string); ok && model.IsValidDifficulty(model.Difficulty(v)) {
			q.Difficulty = model.Difficulty(v)
		}
		if v, ok := fields["xpBonus"].(float64); ok {
			q.XPBonus = int(v)
		}
		if q.XPBonus < 0 {
			q.XPBonus = 0
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, false, ErrEmptyResult
	}
	return questions, recovered, nil
}

// clampScore bounds a reported score to the valid 0-100 range.
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// DecodeEvaluation decodes a structured evaluation response.
//
// The status field must be one of the three verdicts or the decode fails
// with InvalidStatusError. A missing or non-numeric score defaults to 50:
// a deliberate neutral value, not 0, so "couldn't judge" surfaces as
// partial credit worth a human look. An explicit null codeExample and an
// absent one both normalize to empty.
func DecodeEvaluation(raw string) (model.Evaluation, error) {
	value, err := ExtractValue(raw)
	if err != nil {
		return model.Evaluation{}, err
	}

	var fields map[string]any
	if err := json.Unmarshal(value, &fields); err != nil {
		return model.Evaluation{}, &ParseError{Snippet: snippet(StripFences(raw)), Err: err}
	}

	// Some prompts wrap the evaluation in an {"EVAL": {...}} envelope.
	if inner, ok := fields["EVAL"].(map[string]any); ok {
		fields = inner
	}

	status, _ := fields["status"].(string)
	if !model.IsValidEvalStatus(model.EvalStatus(status)) {
		return model.Evaluation{}, &InvalidStatusError{Status: status}
	}

	eval := model.Evaluation{
		Status: model.EvalStatus(status),
		Score:  50,
	}
	if v, ok := fields["score"].(float64); ok {
		eval.Score = clampScore(int(v))
	}
	if v, ok := fields["feedback"].(string); ok {
		eval.Feedback = v
	}
	if v, ok := fields["codeExample"].(string); ok {
		eval.CodeExample = v
	}
	return eval, nil
}

// Flat score protocol: the model returns {"SCORE": n, "REPLY": "..."}
// for every chat turn, with SCORE -1 when the turn is conversational.
var (
	scoreFieldRegex = regexp.MustCompile(`"SCORE"\s*:\s*(-?\d+)`)
	// Non-greedy up to the closing "} so embedded quotes and newlines
	// inside REPLY don't end the match early.
	replyFieldRegex = regexp.MustCompile(`(?s)"REPLY"\s*:\s*"(.*?)"\s*\}`)
)

type flatTurn struct {
	Score *float64 `json:"SCORE"`
	Reply *string  `json:"REPLY"`
}

// DecodeChatTurn decodes a chat response carrying the flat score
// protocol. It never fails: three recovery strategies are tried in order
// (whole-JSON parse of the raw text, whole-JSON parse of the
// fence-stripped text, then independent SCORE and REPLY regex pulls) and
// if all fail the entire raw text becomes the reply with the score
// forced to the NoScore sentinel.
func DecodeChatTurn(raw string) model.ChatTurnResult {
	for _, candidate := range []string{raw, StripFences(raw)} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		var turn flatTurn
		if err := json.Unmarshal([]byte(candidate), &turn); err != nil {
			continue
		}
		if turn.Score == nil && turn.Reply == nil {
			continue // valid JSON but not the protocol shape
		}
		return turnResult(turn.Score, turn.Reply, raw)
	}

	var score *float64
	var reply *string
	if m := scoreFieldRegex.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			v := float64(n)
			score = &v
		}
	}
	if m := replyFieldRegex.FindStringSubmatch(raw); m != nil {
		text := unescapeReply(m[1])
		reply = &text
	}
	if score != nil || reply != nil {
		return turnResult(score, reply, raw)
	}

	return model.ChatTurnResult{
		Kind:    model.TurnMessage,
		Content: strings.TrimSpace(raw),
		Score:   model.NoScore,
	}
}

// turnResult assembles a ChatTurnResult from whichever protocol fields
// were recovered. A negative or missing score means "no score": it stays
// the NoScore sentinel and is never clamped into 0-100.
func turnResult(score *float64, reply *string, raw string) model.ChatTurnResult {
	result := model.ChatTurnResult{
		Kind:  model.TurnMessage,
		Score: model.NoScore,
	}
	if reply != nil && strings.TrimSpace(*reply) != "" {
		result.Content = strings.TrimSpace(*reply)
	} else {
		result.Content = strings.TrimSpace(raw)
	}
	if score != nil && *score >= 0 {
		result.Kind = model.TurnEvaluation
		result.Score = clampScore(int(*score))
	}
	return result
}

// unescapeReply turns the literal escape sequences that survive a regex
// pull into their characters.
func unescapeReply(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)
	return r.Replace(s)
}

// DecodeCodeExamples decodes a code-example list response. recovered is
// true when entries were salvaged from truncated output.
func DecodeCodeExamples(raw string) (examples []model.CodeExample, recovered bool, err error) {
	items, recovered, err := ExtractArray(raw, exampleObjectRegex)
	if err != nil {
		return nil, false, err
	}

	for _, item := range items {
		var ex model.CodeExample
		if err := json.Unmarshal(item, &ex); err != nil {
			continue
		}
		examples = append(examples, ex)
	}

	if len(examples) == 0 {
		return nil, false, ErrEmptyResult
	}
	return examples, recovered, nil
}
