// Package composer turns a window of fragments into a story. Two strategies
// implement the same contract: local template composition and LLM-delegated
// composition. A Session applies the selected strategy incrementally as new
// fragments arrive.
package composer

import (
	"fmt"
	"strings"
)

// Prompt section labels and the closing instruction sent to the generator.
// The texts are Spanish because the collaborative story is; they must stay
// stable so prompts are reproducible.
const (
	contextLabel   = "Contexto:"
	fragmentsLabel = "Fragmentos de historia:"

	closingInstruction = "Escribe un relato cohesivo y completo que integre los fragmentos proporcionados. " +
		"Respeta el contexto cuando exista, mantén un tono consistente y añade detalles que conecten las partes."
)

// BuildPrompt deterministically builds the completion prompt from fragment
// texts and an optional free-text context. Empty fragment entries are
// dropped; the caller controls ordering. The same inputs always produce the
// same string, and empty inputs still yield a valid prompt containing only
// the closing instruction.
func BuildPrompt(fragments []string, context string) string {
	cleaned := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if strings.TrimSpace(f) == "" {
			continue
		}
		cleaned = append(cleaned, f)
	}

	var sections []string

	if trimmed := strings.TrimSpace(context); trimmed != "" {
		sections = append(sections, contextLabel+"\n"+trimmed)
	}

	if len(cleaned) > 0 {
		lines := make([]string, len(cleaned))
		for i, f := range cleaned {
			lines[i] = fmt.Sprintf("%d. %s", i+1, f)
		}
		sections = append(sections, fragmentsLabel+"\n"+strings.Join(lines, "\n"))
	}

	sections = append(sections, closingInstruction)

	return strings.Join(sections, "\n\n")
}
