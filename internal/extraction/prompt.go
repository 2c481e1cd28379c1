package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"convoy/internal/thread"
)

// DefaultPromptTemplate is used when a request carries no template.
const DefaultPromptTemplate = `Extract actionable tasks from this single Slack thread. Return a JSON array matching this schema:

${schemaDescription}

IMPORTANT:
- Only return tasks that are explicitly supported by the thread text.
- If there is no clear actionable work request, return [].
- If there is an explicit request but key details are missing, you may return an "Investigate X" task,
  but it must still be grounded in the thread text and reuse the thread's nouns/entities.
- Prefer concrete, grounded titles that reuse key nouns from the thread.
- task_title should be as specific as the thread allows (but don't return []
  just because the title can't be perfect).
- task_description MUST be a short narrative summary (1-4 sentences).
  It should summarize what happened in the thread and the intended outcome/next action.
  DO NOT include acceptance-criteria templates, bullet lists, or embedded quotes.

${examplesCriteria}

Thread (JSON):
${threadJson}`

// DefaultGroundingRules opens every system message unless overridden.
const DefaultGroundingRules = "NON-NEGOTIABLE RULES:\n" +
	"- Use ONLY the provided conversation/thread text.\n" +
	"- Do NOT use outside knowledge.\n" +
	"- Do NOT invent tasks or context.\n" +
	"- Only return tasks that are explicitly supported by the text.\n" +
	"- If there is no clear actionable work, return [] in the requested JSON format.\n"

// DefaultSystemMessage follows the grounding rules when the caller supplies
// no system prompt of its own.
const DefaultSystemMessage = "You are a task extraction assistant. Use ONLY the provided text. " +
	"Do NOT invent tasks. Return tasks strictly in the specified JSON format."

// SchemaDescription is the JSON schema of the expected reply, as shown to
// the model.
const SchemaDescription = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "task_title": {
        "type": "string"
      },
      "task_description": {
        "type": "string"
      }
    },
    "required": [
      "task_title",
      "task_description"
    ]
  }
}`

const (
	placeholderSchema   = "${schemaDescription}"
	placeholderExamples = "${examplesCriteria}"
	placeholderThread   = "${threadJson}"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ValidateTemplate checks a prompt template before use. A blank template is
// valid and selects DefaultPromptTemplate. Any other template must contain
// ${threadJson} and no placeholders besides the three known ones.
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return nil
	}
	if !strings.Contains(template, placeholderThread) {
		return &ConfigError{Field: "prompt_template", Message: "template must contain " + placeholderThread}
	}
	for _, match := range placeholderPattern.FindAllString(template, -1) {
		switch match {
		case placeholderSchema, placeholderExamples, placeholderThread:
		default:
			return &ConfigError{Field: "prompt_template", Message: "unknown placeholder " + match}
		}
	}
	return nil
}

// RenderPrompt fills the template for th. Substitution is a single pass, so
// placeholder-like text inside the thread is left alone.
func RenderPrompt(template, examplesCriteria string, th thread.Thread) (string, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	if err := ValidateTemplate(template); err != nil {
		return "", err
	}
	threadJSON, err := marshalThread(th)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	if strings.TrimSpace(examplesCriteria) == "" {
		examplesCriteria = ""
	}
	replacer := strings.NewReplacer(
		placeholderSchema, SchemaDescription,
		placeholderExamples, examplesCriteria,
		placeholderThread, threadJSON,
	)
	return replacer.Replace(template), nil
}

// SystemMessage composes the grounding rules with the caller's system
// prompt, falling back to defaultMessage and then DefaultSystemMessage.
func SystemMessage(groundingRules, systemPrompt, defaultMessage string) string {
	if strings.TrimSpace(groundingRules) == "" {
		groundingRules = DefaultGroundingRules
	}
	if strings.TrimSpace(defaultMessage) == "" {
		defaultMessage = DefaultSystemMessage
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultMessage
	}
	return strings.TrimSpace(groundingRules + "\n" + systemPrompt)
}

func marshalThread(th thread.Thread) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(th); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
