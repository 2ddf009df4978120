package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/conversations"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/prompts"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

const csvMIME = "text/csv"

func apology(text string) []*schema.Message {
	return []*schema.Message{schema.AssistantMessage(text, nil)}
}

// Summary queries the category digest and detail tables and asks the response
// model for the executive summary. The tables are kept on the state for the
// insight and conclude steps.
func (n *Nodes) Summary(ctx context.Context, t *model.Turn) model.Update {
	category := model.CategoryAll
	if t.State.Category != nil {
		category = *t.State.Category
	}

	digest, detail, err := n.d.Summarizer.Summary(ctx, category)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Str("category", category.String()).
			Msg("Error querying report summary")
		return model.Update{
			Messages:   apology(ReportApology),
			ResultText: model.Clear[string](),
			Top5:       model.Clear[string](),
			Dataframe:  model.Clear[string](),
		}
	}

	result := detail.Text(false)
	top5 := detail.Text(true)
	csv, err := detail.CSV()
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", t.ThreadID).Msg("Error rendering report table")
	}

	u := model.Update{
		ResultText: model.Set(result),
		Top5:       model.Set(top5),
		Dataframe:  model.Set(csv),
		Attachment: n.storeTable(ctx, t.ThreadID, category, csv),
	}

	content, err := prompts.RenderSummary(ctx, category.String(), digest.Text(false), result)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error rendering summary prompt")
		u.Messages = apology(ReportApology)
		return u
	}

	resp, err := chat(ctx, NodeSummary, n.d.Models.Response, n.d.Models.ResponseModelName, []*schema.Message{
		schema.SystemMessage(prompts.ReportSystem()),
		schema.UserMessage(content),
	})
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error generating summary")
		u.Messages = apology(ReportApology)
		return u
	}
	u.Messages = []*schema.Message{resp}
	return u
}

// storeTable uploads the report CSV. Without an artifact store, or when the
// upload fails, the table is still returned inline.
func (n *Nodes) storeTable(ctx context.Context, threadID string, category model.Category, csv string) *model.Attachment {
	att := &model.Attachment{Name: ReportTableName, CSV: csv}
	if n.d.Artifacts == nil || csv == "" {
		return att
	}

	key := fmt.Sprintf("%s/report-%s.csv", uuid.NewString(), category)
	obj, err := n.d.Artifacts.Upload(ctx, key, []byte(csv), csvMIME)
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", threadID).Str("object_key", key).Msg("Error storing report table")
		return att
	}
	att.Key = obj.Key
	att.URL = obj.URL
	return att
}

// Insight asks for insights over the indexed top issues.
func (n *Nodes) Insight(ctx context.Context, t *model.Turn) model.Update {
	if t.State.Top5 == nil {
		logx.Warn().Str("thread_id", t.ThreadID).Msg("No report data; skipping insight")
		return model.Update{}
	}

	content, err := prompts.RenderInsight(ctx, *t.State.Top5)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error rendering insight prompt")
		return model.Update{Messages: apology(ReportApology)}
	}

	resp, err := chat(ctx, NodeInsight, n.d.Models.Response, n.d.Models.ResponseModelName, []*schema.Message{
		schema.SystemMessage(prompts.ReportSystem()),
		schema.UserMessage(content),
	})
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error generating insight")
		return model.Update{Messages: apology(ReportApology)}
	}
	return model.Update{Messages: []*schema.Message{resp}}
}

// Conclude replays the conversation with the conclude instruction and emits
// the stored report table followed by the model's conclusion.
func (n *Nodes) Conclude(ctx context.Context, t *model.Turn) model.Update {
	if t.State.ResultText == nil {
		logx.Warn().Str("thread_id", t.ThreadID).Msg("No report data; skipping conclusion")
		return model.Update{}
	}

	msgs := []*schema.Message{schema.SystemMessage(prompts.ReportSystem())}
	msgs = append(msgs, conversations.Window(t.State.Messages, n.d.MaxHistory)...)
	msgs = append(msgs, schema.UserMessage(prompts.Conclude()))

	resp, err := chat(ctx, NodeConclude, n.d.Models.Response, n.d.Models.ResponseModelName, msgs)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error generating conclusion")
		return model.Update{Messages: apology(ReportApology)}
	}
	return model.Update{Messages: []*schema.Message{
		schema.UserMessage(*t.State.ResultText),
		resp,
	}}
}
