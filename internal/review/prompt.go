package review

import (
	"fmt"
	"strings"
)

// systemPrompt instructs the model to answer with a strict JSON array. The
// severity rubric here must stay in sync with domain.Severity.
const systemPrompt = `You are an expert code reviewer. Your task is to analyze the provided code changes.
You must output your review strictly as a JSON array of objects.
Do not include any markdown formatting (like ` + "```json" + `).

Severity Classification:
- TRIVIAL: Style issues, formatting, minor refactoring, missing docstrings.
- IMPORTANT: Logic errors, potential bugs, performance inefficiencies (e.g., O(n^2)), bad practices.
- CRITICAL: Security vulnerabilities (SQLi, XSS), potential crashes, breaking changes, data loss risks.

Use the following schema for each review item:
[
  {
    "file": "filename.py",
    "line": <line_number_as_integer>,
    "severity": "TRIVIAL | IMPORTANT | CRITICAL",
    "comment": "Your review comment here",
    "suggestion": "optional fixed code snippet"
  }
]
The 'suggestion' field is optional. When present it MUST contain only the exact replacement code for the line(s) at the given location. Never put natural language descriptions, explanations, or advice in suggestion. Never use unified diff format (no ---, +++, @@, or +/- line prefixes). If you cannot provide a concrete code fix, omit suggestion or set it to null.
If you have no comments, return an empty JSON array: []
Do not add any text before or after the JSON array.`

// SystemPrompt returns the review system instruction, optionally extended
// with custom reviewer instructions.
func SystemPrompt(extraInstructions string) string {
	parts := []string{systemPrompt}
	if strings.TrimSpace(extraInstructions) != "" {
		parts = append(parts, strings.TrimSpace(extraInstructions))
	}
	parts = append(parts,
		"This is a pull request or part of a pull request if the pull request is very large.\n"+
			"Review it as an excellent software engineer and an excellent security engineer.\n"+
			"Analyze the differences and provide review comments for any major issues found.")
	return strings.Join(parts, "\n\n")
}

// ChunkPrompt frames one diff chunk as a user message, with the optional
// existing-discussion context appended.
func ChunkPrompt(chunkText string, chunkIndex, chunkCount int, commentsContext string) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "[Pull request diff chunk %d/%d]\n", chunkIndex+1, chunkCount)
	builder.WriteString(chunkText)

	if strings.TrimSpace(commentsContext) != "" {
		builder.WriteString("\n\n[Existing PR comments context]\n")
		builder.WriteString("Take these into consideration when performing your review.\n\n")
		builder.WriteString(commentsContext)
	}

	builder.WriteString("\n\nNow provide your review according to the earlier instructions.")
	return builder.String()
}

// SummaryPrompt asks the model to condense per-chunk reviews into one
// overview paragraph.
func SummaryPrompt(chunkReviews []string) string {
	var builder strings.Builder
	builder.WriteString("Summarize the following code review feedback into a short overview.\n")
	builder.WriteString("Stick to highlighting pressing issues and concrete improvements for the pull request.\n")
	builder.WriteString("Respond with plain text, not JSON.\n\n")
	builder.WriteString(strings.Join(chunkReviews, "\n"))
	return builder.String()
}
