// Package prompts builds the prompt and system-instruction text sent to
// the generative backend. Templates are embedded and loaded once.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/knowix/knowix/internal/model"
)

//go:embed templates/*.txt
var templatesFS embed.FS

const maxAnswerRunes = 10000

var (
	loadOnce sync.Once
	loadErr  error

	systemInstructions map[model.Mode]string
	questionsTmpl      *template.Template
	chatTmpl           *template.Template
	evaluateTmpl       *template.Template
	examplesTmpl       *template.Template
)

var systemTagRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)

func load() error {
	loadOnce.Do(func() {
		systemInstructions = make(map[model.Mode]string)
		for _, mode := range []model.Mode{model.ModeTech, model.ModeLanguage, model.ModeGeneral} {
			name := "templates/system_" + string(mode) + ".txt"
			content, err := templatesFS.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read system instruction %s: %w", name, err)
				return
			}
			systemInstructions[mode] = strings.TrimSpace(string(content))
		}

		parse := func(name string) *template.Template {
			if loadErr != nil {
				return nil
			}
			content, err := templatesFS.ReadFile("templates/" + name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt template %s: %w", name, err)
				return nil
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return nil
			}
			return tmpl
		}

		questionsTmpl = parse("questions.txt")
		chatTmpl = parse("chat.txt")
		evaluateTmpl = parse("evaluate.txt")
		examplesTmpl = parse("examples.txt")
	})
	return loadErr
}

// SystemInstruction returns the fixed per-mode persona text. Unknown
// modes fall back to tech.
func SystemInstruction(mode model.Mode) string {
	if err := load(); err != nil {
		return ""
	}
	if s, ok := systemInstructions[mode]; ok {
		return s
	}
	return systemInstructions[model.ModeTech]
}

// QuestionsData holds template data for course generation prompts.
type QuestionsData struct {
	Topic string
	Count int
}

// BuildQuestionsPrompt builds the course-generation prompt.
func BuildQuestionsPrompt(topic string, count int) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	return execute(questionsTmpl, QuestionsData{Topic: sanitize(topic), Count: count})
}

// ChatData holds template data for chat turn prompts.
type ChatData struct {
	Question      string
	History       string
	ForceEvaluate bool
}

// BuildChatPrompt builds the chat-turn prompt from the question, the
// serialized history, and the evaluate-now directive.
func BuildChatPrompt(question string, history []model.Message, forceEvaluate bool) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	data := ChatData{
		Question:      sanitize(question),
		History:       serializeHistory(history),
		ForceEvaluate: forceEvaluate,
	}
	return execute(chatTmpl, data)
}

// EvalData holds template data for direct evaluation prompts.
type EvalData struct {
	Question string
	Answer   string
}

// BuildEvalPrompt builds the context-free re-evaluation prompt.
func BuildEvalPrompt(question, answer string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	return execute(evaluateTmpl, EvalData{Question: sanitize(question), Answer: sanitize(answer)})
}

// ExamplesData holds template data for code-example prompts.
type ExamplesData struct {
	Question string
}

// BuildExamplesPrompt builds the code-example generation prompt.
func BuildExamplesPrompt(question string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	return execute(examplesTmpl, ExamplesData{Question: sanitize(question)})
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func serializeHistory(history []model.Message) string {
	var sb strings.Builder
	for _, m := range history {
		role := "User"
		if m.Role == model.RoleAssistant {
			role = "Assistant"
		}
		sb.WriteString(role + ": " + sanitize(m.Content) + "\n")
	}
	return strings.TrimSpace(sb.String())
}

// sanitize strips attempts to smuggle system-instruction tags into user
// text and bounds its length.
func sanitize(s string) string {
	s = systemTagRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxAnswerRunes {
		runes := []rune(s)
		s = string(runes[:maxAnswerRunes]) + "\n\n[Truncated due to length]"
	}
	return s
}
