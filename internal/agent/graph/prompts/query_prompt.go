package prompts

import (
	"context"
	_ "embed"
)

// SQLGeneratorSystem is the system message of the SQL generation call.
const SQLGeneratorSystem = "You are a SQL query generator. Respond only with a valid SQL query string, " +
	"with no explanation or additional text. The output must be ready to run directly as a SQL command."

//go:embed template/query_prompt.txt
var queryPrompt string

// RenderQuery renders the SQL generation request. category is the upper-case
// findings type or "ALL".
func RenderQuery(ctx context.Context, question, category string) (string, error) {
	return render(ctx, "query", queryPrompt, map[string]any{
		"question": question,
		"category": category,
	})
}
