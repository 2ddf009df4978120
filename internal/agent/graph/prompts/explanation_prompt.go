package prompts

import (
	"context"
	_ "embed"
)

//go:embed template/explanation_prompt.txt
var explanationPrompt string

// RenderExplanation renders the final answer prompt. sqlQuery and scanResults
// may be empty.
func RenderExplanation(ctx context.Context, question, sqlQuery, scanResults string) (string, error) {
	return render(ctx, "explanation", explanationPrompt, map[string]any{
		"question":     question,
		"sql_query":    sqlQuery,
		"scan_results": scanResults,
	})
}
