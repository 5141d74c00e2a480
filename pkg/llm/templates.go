package llm

import (
	"fmt"
	"strings"

	"github.com/offerwell/intent-bench/pkg/apperrors"
)

// Template names accepted in model specs.
const (
	TemplateChatML = "chatml"
	TemplateLlama3 = "llama3"
	TemplatePhi3   = "phi3"
	TemplateGemma  = "gemma"
	TemplateNative = "native"
)

// NewTemplate returns the Templater registered under name.
func NewTemplate(name string) (Templater, error) {
	switch strings.ToLower(name) {
	case TemplateChatML, "":
		return chatMLTemplate{}, nil
	case TemplateLlama3:
		return llama3Template{}, nil
	case TemplatePhi3:
		return phi3Template{}, nil
	case TemplateGemma:
		return gemmaTemplate{}, nil
	case TemplateNative:
		return nativeTemplate{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownTemplate, name)
	}
}

// IsKnownTemplate reports whether name resolves to a template.
func IsKnownTemplate(name string) bool {
	_, err := NewTemplate(name)
	return err == nil
}

// chatMLTemplate renders the <|im_start|> format used by Qwen models.
type chatMLTemplate struct{}

func (chatMLTemplate) Format(turns []Turn) (Prompt, error) {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "<|im_start|>%s\n%s<|im_end|>\n", t.Role, t.Content)
	}
	b.WriteString("<|im_start|>assistant\n")
	return Prompt{Text: b.String(), Turns: turns}, nil
}

// llama3Template renders the header-id format of Llama 3.x instruct models.
type llama3Template struct{}

func (llama3Template) Format(turns []Turn) (Prompt, error) {
	var b strings.Builder
	b.WriteString("<|begin_of_text|>")
	for _, t := range turns {
		fmt.Fprintf(&b, "<|start_header_id|>%s<|end_header_id|>\n\n%s<|eot_id|>", t.Role, t.Content)
	}
	b.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
	return Prompt{Text: b.String(), Turns: turns}, nil
}

// phi3Template renders the <|role|> ... <|end|> format of Phi-3.x models.
type phi3Template struct{}

func (phi3Template) Format(turns []Turn) (Prompt, error) {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "<|%s|>\n%s<|end|>\n", t.Role, t.Content)
	}
	b.WriteString("<|assistant|>\n")
	return Prompt{Text: b.String(), Turns: turns}, nil
}

// gemmaTemplate renders Gemma turns. Gemma has no system role.
type gemmaTemplate struct{}

func (gemmaTemplate) Format(turns []Turn) (Prompt, error) {
	var b strings.Builder
	b.WriteString("<bos>")
	for _, t := range turns {
		role := "user"
		switch t.Role {
		case RoleSystem:
			return Prompt{}, apperrors.ErrSystemRoleUnsupported
		case RoleAssistant:
			role = "model"
		}
		fmt.Fprintf(&b, "<start_of_turn>%s\n%s<end_of_turn>\n", role, t.Content)
	}
	b.WriteString("<start_of_turn>model\n")
	return Prompt{Text: b.String(), Turns: turns}, nil
}

// nativeTemplate leaves formatting to a chat-API backend.
type nativeTemplate struct{}

func (nativeTemplate) Format(turns []Turn) (Prompt, error) {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Content)
	}
	return Prompt{Text: strings.Join(parts, "\n\n"), Turns: turns}, nil
}

// PlainUserPrompt renders a single user turn with bare role markers. It is the last
// resort when a model's own template cannot render the folded instructions either.
func PlainUserPrompt(content string) Prompt {
	return Prompt{
		Text:  "<|user|>\n" + content + "\n<|assistant|>\n",
		Turns: []Turn{{Role: RoleUser, Content: content}},
	}
}
