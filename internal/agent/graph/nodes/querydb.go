package nodes

import (
	"context"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/parsers"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/prompts"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

// AllCategories is the category passed to the generator when the thread has
// no report category.
const AllCategories = "ALL"

// QueryDB answers the stored question from the findings database. Every
// failure falls through to the explanation step with the question kept and
// no results.
func (n *Nodes) QueryDB(ctx context.Context, t *model.Turn) model.Update {
	question := model.Deref(t.State.UserQuery)
	if question == "" {
		question, _ = t.State.LatestHumanMessage()
	}
	category := AllCategories
	if t.State.Category != nil {
		category = t.State.Category.Upper()
	}

	fallback := model.Update{UserQuery: model.Set(question), Goto: NodeReason}

	sql, err := n.d.Generator.Generate(ctx, question, category)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Msg("Error generating query")
		return fallback
	}

	if err := n.d.Validator.Validate(ctx, sql); err != nil {
		logx.Warn().Err(err).Str("thread_id", t.ThreadID).Str("sql", sql).
			Msg("Generated query is invalid or potentially unsafe")
		return fallback
	}

	results, err := n.d.Executor.Execute(ctx, sql)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", t.ThreadID).Str("sql", sql).Msg("Error during query execution")
		return fallback
	}

	logx.Debug().
		Str("thread_id", t.ThreadID).
		Str("category", category).
		Int("result_len", len(results)).
		Msg("Query results prepared")
	return model.Update{
		Messages:     []*schema.Message{schema.SystemMessage(QueryExecutedNote)},
		UserQuery:    model.Set(question),
		SQLQuery:     model.Set(sql),
		QueryResults: model.Set(results),
		Goto:         NodeReason,
	}
}

// ModelSQLGenerator asks a chat model for a single SQL statement.
type ModelSQLGenerator struct {
	cm        einomodel.BaseChatModel
	modelName string
}

func NewModelSQLGenerator(cm einomodel.BaseChatModel, modelName string) *ModelSQLGenerator {
	return &ModelSQLGenerator{cm: cm, modelName: modelName}
}

// Generate returns the model's statement with code fences removed.
func (g *ModelSQLGenerator) Generate(ctx context.Context, question, category string) (string, error) {
	content, err := prompts.RenderQuery(ctx, question, category)
	if err != nil {
		return "", err
	}
	out, err := chat(ctx, NodeQueryDB, g.cm, g.modelName, []*schema.Message{
		schema.SystemMessage(prompts.SQLGeneratorSystem),
		schema.UserMessage(content),
	})
	if err != nil {
		return "", err
	}
	sql := parsers.StripFences(out.Content)
	sql = strings.ReplaceAll(sql, "```", "")
	return strings.TrimSpace(sql), nil
}
