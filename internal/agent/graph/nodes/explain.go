package nodes

import (
	"context"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/prompts"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

// Reason writes the final answer from the question, the query and its
// results. It always clears the three query fields, and on failure answers
// with a fixed apology.
func (n *Nodes) Reason(ctx context.Context, t *model.Turn) model.Update {
	u := model.Update{
		UserQuery:    model.Clear[string](),
		SQLQuery:     model.Clear[string](),
		QueryResults: model.Clear[string](),
	}

	question := model.Deref(t.State.UserQuery)
	if question == "" {
		question, _ = t.State.LatestHumanMessage()
	}

	content, err := prompts.RenderExplanation(ctx, question,
		model.Deref(t.State.SQLQuery), model.Deref(t.State.QueryResults))
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error rendering explanation prompt")
		u.Messages = apology(ExplanationApology)
		return u
	}

	if utf8.RuneCountInString(content) > n.d.MaxPromptChars {
		logx.Warn().
			Str("thread_id", t.ThreadID).
			Int("prompt_chars", utf8.RuneCountInString(content)).
			Int("max_chars", n.d.MaxPromptChars).
			Msg("Explanation prompt truncated")
		content = TruncateRunes(content, n.d.MaxPromptChars)
	}

	resp, err := chat(ctx, NodeReason, n.d.Models.Response, n.d.Models.ResponseModelName,
		[]*schema.Message{schema.UserMessage(content)})
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error during explanation generation")
		u.Messages = apology(ExplanationApology)
		return u
	}
	u.Messages = []*schema.Message{resp}
	return u
}
