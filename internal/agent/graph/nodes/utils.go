package nodes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

// DefaultMaxPromptChars caps the explanation prompt.
const DefaultMaxPromptChars = 80_000

// Step is one node's logic: it reads the turn and returns a partial update.
// Steps never fail; every failure is turned into routing or an apology.
type Step func(ctx context.Context, t *model.Turn) model.Update

// NewLambda adapts a Step to a graph node over *model.Turn. The input turn is
// never mutated.
func NewLambda(name string, step Step) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *model.Turn) (*model.Turn, error) {
		return Run(ctx, name, step, in), nil
	})
}

// Run executes step and folds its update into a copy of t.
func Run(ctx context.Context, name string, step Step, t *model.Turn) *model.Turn {
	start := time.Now()
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		if s.ThreadID == "" {
			s.ThreadID = t.ThreadID
		}
		return nil
	})
	u := safeStep(ctx, name, step, t)

	out := *t
	out.State = t.State.Clone()
	out.State.Apply(u)
	out.Visited = append(slices.Clone(t.Visited), name)
	out.Next = u.Goto
	if u.Attachment != nil {
		out.Attachment = u.Attachment
	}

	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		out.CostUSD = s.TotalCostUSD
		return nil
	})

	logx.Debug().
		Str("thread_id", t.ThreadID).
		Str("node", name).
		Str("next", u.Goto).
		Int("messages_added", len(u.Messages)).
		Dur("elapsed", time.Since(start)).
		Msg("node finished")
	return &out
}

func safeStep(ctx context.Context, name string, step Step, t *model.Turn) (u model.Update) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().
				Str("thread_id", t.ThreadID).
				Str("node", name).
				Msgf("panic recovered: %v", r)
			u = model.Update{Messages: []*schema.Message{schema.AssistantMessage(apologyFor(name), nil)}}
			if name == NodeReason {
				u.UserQuery = model.Clear[string]()
				u.SQLQuery = model.Clear[string]()
				u.QueryResults = model.Clear[string]()
			}
		}
	}()
	return step(ctx, t)
}

func apologyFor(node string) string {
	switch node {
	case NodeSummary, NodeInsight, NodeConclude:
		return ReportApology
	default:
		return ExplanationApology
	}
}

// chat invokes cm under a chat model run info so model callbacks fire, and
// records usage on the graph state.
func chat(ctx context.Context, node string, cm einomodel.BaseChatModel, modelName string, msgs []*schema.Message) (*schema.Message, error) {
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      node,
		Type:      modelName,
		Component: components.ComponentOfChatModel,
	})
	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("%s model call: %w", node, err)
	}
	if out == nil {
		return nil, errors.New(node + " model call: empty response")
	}
	recordUsage(ctx, node, modelName, out)
	return out, nil
}

// recordUsage computes and logs usage cost and accumulates it on AppState.
func recordUsage(ctx context.Context, node, modelName string, out *schema.Message) {
	var usage *schema.TokenUsage
	if out.ResponseMeta != nil {
		usage = out.ResponseMeta.Usage
	}
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))

	var threadID string
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
		s.ModelCalls++
		s.TotalCostUSD += totalC
		threadID = s.ThreadID
		return nil
	})

	if usage == nil {
		return
	}
	logx.Debug().
		Str("thread_id", threadID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

// TruncateRunes returns the first n characters of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx]
		}
		i++
	}
	return s
}
