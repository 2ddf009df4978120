package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/conversations"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/nodes"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/observers"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/findings"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

// maxRunSteps bounds a single turn. The longest path is
// intent -> summary -> insight -> conclude.
const maxRunSteps = 10

// Runner executes the compiled graph for one user turn.
type Runner interface {
	// Invoke loads the thread, runs the turn and persists the result.
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error)
	// Process runs a turn over prior without touching the checkpoint store.
	Process(ctx context.Context, threadID, text string, prior *model.ConversationState) (*model.TurnResult, error)
	// Reset forgets a thread.
	Reset(ctx context.Context, threadID string) error
}

// Config holds everything needed to compose the graph end-to-end. It is a
// convenience layer over GraphConfig that also builds the chat models and
// the query collaborators.
type Config struct {
	Provider      model.ProviderConfig
	IntentModel   model.IntentModelConfig
	ResponseModel model.ResponseModelConfig
	Conversation  model.ConversationConfig
	Explanation   model.ExplanationConfig

	Checkpoints model.CheckpointStore
	Findings    *findings.Store
	// Artifacts is optional.
	Artifacts nodes.ArtifactStore
}

// GraphConfig holds what BuildGraph and NewRunner need.
type GraphConfig struct {
	Nodes           *nodes.Nodes
	MessagesManager *conversations.MessagesManager
}

// GraphBuilder handles the construction of the conversation graph.
type GraphBuilder struct {
	nodes *nodes.Nodes
	graph *compose.Graph[*model.Turn, *model.Turn]
}

type graphRunner struct {
	runnable compose.Runnable[*model.Turn, *model.Turn]
	mm       *conversations.MessagesManager
}

// NewRunner wraps a compiled graph with the conversation manager.
func NewRunner(runnable compose.Runnable[*model.Turn, *model.Turn], mm *conversations.MessagesManager) Runner {
	return &graphRunner{runnable: runnable, mm: mm}
}

func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	threadID := strings.TrimSpace(in.ThreadID)
	if threadID == "" {
		return nil, errx.BadRequest(errors.New("thread id is required"))
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, errx.BadRequest(errors.New("message is required"))
	}

	prev, working, err := r.mm.Begin(ctx, threadID, in.Message)
	if err != nil {
		return nil, err
	}

	res, err := r.run(ctx, threadID, working)
	if err != nil {
		return nil, err
	}

	if err := r.mm.Commit(ctx, threadID, prev, res.State); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("Error saving conversation")
		return nil, err
	}
	return res, nil
}

func (r *graphRunner) Process(ctx context.Context, threadID, text string, prior *model.ConversationState) (*model.TurnResult, error) {
	return r.run(ctx, threadID, conversations.StartTurn(prior, text))
}

func (r *graphRunner) Reset(ctx context.Context, threadID string) error {
	return r.mm.Reset(ctx, threadID)
}

func (r *graphRunner) run(ctx context.Context, threadID string, working *model.ConversationState) (*model.TurnResult, error) {
	in := &model.Turn{
		ThreadID: threadID,
		State:    working,
		Baseline: len(working.Messages),
	}

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("Graph invocation failed")
		return nil, fmt.Errorf("run turn: %w", err)
	}
	if out == nil || out.State == nil {
		return nil, errors.New("run turn: graph returned no state")
	}

	res := &model.TurnResult{
		ThreadID:   threadID,
		Chunks:     Chunks(out),
		Attachment: out.Attachment,
		Visited:    out.Visited,
		CostUSD:    out.CostUSD,
		State:      out.State,
	}
	logx.Info().
		Str("thread_id", threadID).
		Strs("visited", res.Visited).
		Int("chunks", len(res.Chunks)).
		Float64("cost_usd", res.CostUSD).
		Msg("Turn completed")
	return res, nil
}

// Chunks returns the non-empty assistant messages appended during the turn,
// in order.
func Chunks(t *model.Turn) []string {
	var chunks []string
	msgs := t.State.Messages
	if t.Baseline > len(msgs) {
		return nil
	}
	for _, m := range msgs[t.Baseline:] {
		if m == nil || m.Role != schema.Assistant || strings.TrimSpace(m.Content) == "" {
			continue
		}
		chunks = append(chunks, m.Content)
	}
	return chunks
}

// BuildResponseGraph builds the chat models and query collaborators, compiles
// the graph, and returns a Runner.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Checkpoints == nil {
		return nil, errors.New("checkpoint store is nil")
	}
	if cfg.Findings == nil {
		return nil, errors.New("findings store is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		Provider:   cfg.Provider,
		IntentCfg:  &cfg.IntentModel,
		RespConfig: &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	n, err := nodes.New(nodes.Deps{
		Models:         cms,
		Summarizer:     cfg.Findings,
		Generator:      nodes.NewModelSQLGenerator(cms.Intent, cms.IntentModelName),
		Validator:      findings.NewValidator(cfg.Findings.DB()),
		Executor:       findings.NewExecutor(cfg.Findings.DB()),
		Artifacts:      cfg.Artifacts,
		MaxPromptChars: cfg.Explanation.MaxPromptChars,
		MaxHistory:     cfg.Conversation.MaxHistory,
	})
	if err != nil {
		return nil, err
	}

	gc := &GraphConfig{
		Nodes:           n,
		MessagesManager: conversations.NewMessagesManager(cfg.Checkpoints, cfg.Conversation),
	}
	runnable, err := BuildGraph(ctx, gc)
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Response graph built successfully")
	return NewRunner(runnable, gc.MessagesManager), nil
}

// BuildGraph constructs and returns the compiled conversation graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.Turn, *model.Turn], error) {
	if config == nil || config.Nodes == nil {
		return nil, errors.New("graph config is nil")
	}

	b := &GraphBuilder{
		nodes: config.Nodes,
		graph: compose.NewGraph[*model.Turn, *model.Turn](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

// addNodes adds one lambda node per step.
func (b *GraphBuilder) addNodes() error {
	steps := b.nodes.Steps()
	for _, name := range []string{
		nodes.NodeIntent,
		nodes.NodeQueryDB,
		nodes.NodeSummary,
		nodes.NodeInsight,
		nodes.NodeConclude,
		nodes.NodeReason,
	} {
		if err := b.graph.AddLambdaNode(name, nodes.NewLambda(name, steps[name])); err != nil {
			logx.Error().Err(err).Str("node", name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", name, err)
		}
	}
	return nil
}

// addEdges creates the fixed connections between nodes.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeIntent},
		{nodes.NodeSummary, nodes.NodeInsight},
		{nodes.NodeInsight, nodes.NodeConclude},
		{nodes.NodeConclude, compose.END},
		{nodes.NodeQueryDB, nodes.NodeReason},
		{nodes.NodeReason, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches routes the intent node by its decision.
func (b *GraphBuilder) addBranches() error {
	intentBranch := compose.NewGraphBranch(
		RouteIntent,
		map[string]bool{
			nodes.NodeSummary: true,
			nodes.NodeQueryDB: true,
			nodes.NodeReason:  true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeIntent, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}
	return nil
}

// RouteIntent maps the intent node's decision to the next node. Anything
// unexpected goes to the explanation step.
func RouteIntent(_ context.Context, t *model.Turn) (string, error) {
	switch t.Next {
	case nodes.NodeSummary, nodes.NodeQueryDB:
		return t.Next, nil
	default:
		return nodes.NodeReason, nil
	}
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.Turn, *model.Turn], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
