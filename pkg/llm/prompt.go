package llm

import (
	"strings"

	"github.com/xhad/duo/internal/models"
)

// DefaultSystemTemplate is the comparison instruction. {filenameA} and
// {filenameB} are replaced with the uploaded filenames.
const DefaultSystemTemplate = `You are an expert data analyst specializing in document comparison.

Document A: "{filenameA}"
Document B: "{filenameB}"

RULES:
- Use only these names
- Never mention temporary files or storage identifiers
- Be structured, precise, factual
- Use plain, readable text without markdown or decorative symbols

Compare content, structure, themes, and differences.`

// SystemPrompt fills the document names into template.
func SystemPrompt(template string, dual models.DualContext) string {
	if template == "" {
		template = DefaultSystemTemplate
	}

	r := strings.NewReplacer(
		"{filenameA}", dual.FilenameA,
		"{filenameB}", dual.FilenameB,
	)
	return r.Replace(template)
}

// UserPrompt frames the question for the model.
func UserPrompt(message string) string {
	return "User question: " + message
}
