package prompts

import (
	"fmt"
	"strings"

	"github.com/offerwell/intent-bench/pkg/models"
)

// BuildSystemPrompt renders the instructions every model receives: objective,
// numbered rules, the controlled vocabulary, the output schema and worked examples.
func BuildSystemPrompt(s *Suite) string {
	var prompt strings.Builder

	if s.Persona != "" {
		prompt.WriteString(strings.TrimSpace(s.Persona))
		prompt.WriteString("\n\n")
	}

	if s.Objective != "" {
		prompt.WriteString("### CORE OBJECTIVE\n")
		prompt.WriteString(strings.TrimSpace(s.Objective))
		prompt.WriteString("\n\n")
	}

	if len(s.Instructions) > 0 {
		prompt.WriteString("### INSTRUCTIONS\n")
		for i, rule := range s.Instructions {
			prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, strings.TrimSpace(rule)))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("### DEFINED FIELDS (STRICT ENUMERATION)\n")
	for _, c := range s.Categories {
		quoted := make([]string, len(c.Tags))
		for i, tag := range c.Tags {
			quoted[i] = fmt.Sprintf("%q", tag)
		}
		prompt.WriteString(fmt.Sprintf("- **%s**: [%s]\n", c.Name, strings.Join(quoted, ", ")))
	}
	prompt.WriteString("\n")

	prompt.WriteString("### OUTPUT FORMAT (JSON)\n")
	prompt.WriteString(outputSchema(s.CategoryNames()))
	prompt.WriteString("\n")

	if len(s.Examples) > 0 {
		prompt.WriteString("\n### EXAMPLES\n")
		for _, ex := range s.Examples {
			prompt.WriteString(fmt.Sprintf("\nUser: %q\n", ex.Query))
			prompt.WriteString("Output: ")
			prompt.WriteString(strings.TrimSpace(ex.Output))
			prompt.WriteString("\n")
			if ex.Note != "" {
				prompt.WriteString(fmt.Sprintf("*Note: %s*\n", strings.TrimSpace(ex.Note)))
			}
		}
	}

	return strings.TrimRight(prompt.String(), "\n")
}

func outputSchema(categories []models.Category) string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString(fmt.Sprintf("  %q: {\n", models.FieldFilters))
	for i, c := range categories {
		sep := ","
		if i == len(categories)-1 {
			sep = ""
		}
		b.WriteString(fmt.Sprintf("    %q: []%s\n", string(c), sep))
	}
	b.WriteString("  },\n")
	b.WriteString(fmt.Sprintf("  %q: \"string\"\n", models.FieldDescription))
	b.WriteString("}")
	return b.String()
}
