package prompts

import (
	"context"
	_ "embed"
)

//go:embed template/intent_prompt.txt
var intentPrompt string

// RenderIntent renders the reportability classifier prompt for question.
func RenderIntent(ctx context.Context, question string) (string, error) {
	return render(ctx, "intent", intentPrompt, map[string]any{
		"question": question,
	})
}
