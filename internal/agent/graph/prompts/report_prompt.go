package prompts

import (
	"context"
	_ "embed"
	"strings"
)

var (
	//go:embed template/report_system_prompt.txt
	reportSystemPrompt string

	//go:embed template/summary_prompt.txt
	summaryPrompt string

	//go:embed template/insight_prompt.txt
	insightPrompt string

	//go:embed template/conclude_prompt.txt
	concludePrompt string
)

// ReportSystem is the system message shared by the report steps.
func ReportSystem() string {
	return strings.TrimSpace(reportSystemPrompt)
}

// Conclude is the fixed instruction appended to the history by the final
// report step.
func Conclude() string {
	return strings.TrimSpace(concludePrompt)
}

// RenderSummary renders the summary request for a category report.
func RenderSummary(ctx context.Context, category, summary, result string) (string, error) {
	return render(ctx, "summary", summaryPrompt, map[string]any{
		"category": category,
		"summary":  summary,
		"result":   result,
	})
}

// RenderInsight renders the insight request over the indexed top issues.
func RenderInsight(ctx context.Context, result string) (string, error) {
	return render(ctx, "insight", insightPrompt, map[string]any{
		"result": result,
	})
}
