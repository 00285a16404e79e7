package rag

import (
	"strings"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
)

// ReformulationPrompt asks the model to rewrite question as a standalone retrieval query
// using the conversation so far.
func ReformulationPrompt(system string, history []commonModels.Turn, question string) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\nBased on the following conversation, rephrase the query \"")
	b.WriteString(question)
	b.WriteString("\" to better extract information: ")
	b.WriteString(FormatHistory(history))
	return b.String()
}

// AnswerPrompt stuffs the retrieved passages, in retrieval order, ahead of the question.
func AnswerPrompt(system string, passages []commonModels.Passage, question string) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\nUse the following documents to answer the question: ")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString(" Question: ")
	b.WriteString(question)
	return b.String()
}

// FormatHistory renders turns as alternating Human/Assistant lines.
func FormatHistory(history []commonModels.Turn) string {
	lines := make([]string, 0, 2*len(history))
	for _, t := range history {
		lines = append(lines, "Human: "+t.Question, "Assistant: "+t.Answer)
	}
	return strings.Join(lines, "\n")
}
