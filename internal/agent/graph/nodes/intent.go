package nodes

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/parsers"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/prompts"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

// Intent routes the latest user message: a report command goes to the report
// pipeline without a model call, anything else is scored by the classifier.
func (n *Nodes) Intent(ctx context.Context, t *model.Turn) model.Update {
	query, _ := t.State.LatestHumanMessage()

	cmd := parsers.ParseReportCommand(query)
	switch cmd.Kind {
	case parsers.KindCommand:
		logx.Debug().
			Str("thread_id", t.ThreadID).
			Str("category", cmd.Category.String()).
			Msg("Routing to report pipeline")
		return model.Update{Category: model.Set(cmd.Category), Goto: NodeSummary}
	case parsers.KindInvalidCommand:
		logx.Warn().
			Str("thread_id", t.ThreadID).
			Str("reason", cmd.Reason).
			Msg("Invalid report command")
		return model.Update{
			UserQuery:    model.Set(query),
			QueryResults: model.Set(cmd.Reason),
			Goto:         NodeReason,
		}
	}

	fallback := model.Update{
		Intention: model.Clear[model.Intention](),
		UserQuery: model.Set(query),
		Goto:      NodeReason,
	}

	content, err := prompts.RenderIntent(ctx, query)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error rendering intent prompt")
		return fallback
	}

	resp, err := chat(ctx, NodeIntent, n.d.Models.Intent, n.d.Models.IntentModelName,
		[]*schema.Message{schema.UserMessage(content)})
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error classifying intent")
		return fallback
	}

	intention, err := parsers.ParseIntention(resp.Content)
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", t.ThreadID).Msg("Failed to parse intent classification response")
		return fallback
	}

	logx.Debug().
		Str("thread_id", t.ThreadID).
		Float64("score", intention.Score).
		Msg("Evaluating reportability score")

	if intention.Score > ReportabilityThreshold {
		return model.Update{
			Intention: model.Set(*intention),
			UserQuery: model.Set(query),
			Goto:      NodeQueryDB,
		}
	}
	return model.Update{
		Intention: model.Set(*intention),
		UserQuery: model.Clear[string](),
		Goto:      NodeReason,
	}
}
