// Package prompt assembles the generation prompt from a query and its
// retrieved context.
package prompt

import "strings"

const (
	// DefaultInstruction constrains the model to the supplied context.
	DefaultInstruction = "Answer the question using only the context below. " +
		"If the context does not contain the answer, say that you do not know."

	// NoContextMarker fills the context section when nothing was retrieved.
	NoContextMarker = "(no relevant context was found)"
)

// Builder renders prompts. The zero value uses DefaultInstruction.
type Builder struct {
	Instruction string
}

// Build renders query and chunks with the default instruction.
func Build(query string, chunks []string) string {
	return Builder{}.Build(query, chunks)
}

// Build lays out the instruction, the chunks in rank order separated by a
// blank line, and the question.
func (b Builder) Build(query string, chunks []string) string {
	instruction := b.Instruction
	if instruction == "" {
		instruction = DefaultInstruction
	}
	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\nContext:\n")
	if len(chunks) == 0 {
		sb.WriteString(NoContextMarker)
	} else {
		sb.WriteString(strings.Join(chunks, "\n\n"))
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\nAnswer:")
	return sb.String()
}
