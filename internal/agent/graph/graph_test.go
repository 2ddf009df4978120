package graph

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/conversations"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph/nodes"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/llmtest"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/repo"
	errx "github.com/trendmicro/cloud-risk-assessment-agent/internal/core/error"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/findings"
	"github.com/trendmicro/cloud-risk-assessment-agent/pkg/sqldb"
)

type harness struct {
	runner   Runner
	store    model.CheckpointStore
	intent   *llmtest.ScriptedModel
	response *llmtest.ScriptedModel
}

func newHarness(t *testing.T, intent *llmtest.ScriptedModel) *harness {
	t.Helper()

	raw, err := sql.Open(sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { raw.Close() })
	db, err := sqldb.Wrap(raw, sqldb.DriverSQLite)
	require.NoError(t, err)
	fs := findings.NewStore(db)
	require.NoError(t, fs.Seed(context.Background()))

	calls := 0
	response := &llmtest.ScriptedModel{Respond: func([]*schema.Message) (*schema.Message, error) {
		calls++
		return schema.AssistantMessage("answer "+string(rune('0'+calls)), nil), nil
	}}

	cms := &nodes.ChatModels{
		Intent:            intent,
		Response:          response,
		IntentModelName:   "gemini-2.5-flash-lite",
		ResponseModelName: "gemini-2.5-flash",
	}
	n, err := nodes.New(nodes.Deps{
		Models:     cms,
		Summarizer: fs,
		Generator:  nodes.NewModelSQLGenerator(cms.Intent, cms.IntentModelName),
		Validator:  findings.NewValidator(db),
		Executor:   findings.NewExecutor(db),
		MaxHistory: 40,
	})
	require.NoError(t, err)

	store := repo.NewMemoryCheckpointStore()
	mm := conversations.NewMessagesManager(store, model.ConversationConfig{MaxHistory: 40})
	runnable, err := BuildGraph(context.Background(), &GraphConfig{Nodes: n, MessagesManager: mm})
	require.NoError(t, err)

	return &harness{
		runner:   NewRunner(runnable, mm),
		store:    store,
		intent:   intent,
		response: response,
	}
}

func TestGraph_ReportCommand(t *testing.T) {
	h := newHarness(t, llmtest.NewScriptedModel())

	res, err := h.runner.Process(context.Background(), "t1", "/report aws", &model.ConversationState{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		nodes.NodeIntent, nodes.NodeSummary, nodes.NodeInsight, nodes.NodeConclude,
	}, res.Visited)
	assert.Equal(t, []string{"answer 1", "answer 2", "answer 3"}, res.Chunks)
	assert.Zero(t, h.intent.CallCount())
	assert.Equal(t, 3, h.response.CallCount())

	st := res.State
	require.NotNil(t, st.Category)
	assert.Equal(t, model.CategoryAWS, *st.Category)
	assert.NotNil(t, st.Dataframe)
	assert.NotNil(t, st.ResultText)
	assert.NotNil(t, st.Top5)
	assert.Contains(t, *st.ResultText, "AVD-AWS-0006")

	require.NotNil(t, res.Attachment)
	assert.Equal(t, nodes.ReportTableName, res.Attachment.Name)
	assert.Equal(t, *st.Dataframe, res.Attachment.CSV)
}

func TestGraph_FreeTextQuestion(t *testing.T) {
	intent := llmtest.NewScriptedModel(
		llmtest.Reply{Content: `{"Score": 80}`},
		llmtest.Reply{Content: "```sql\nSELECT id FROM results WHERE type = 'AWS' ORDER BY id LIMIT 1\n```"},
	)
	h := newHarness(t, intent)

	res, err := h.runner.Process(context.Background(), "t1", "which AWS issues do I have?", &model.ConversationState{})
	require.NoError(t, err)

	assert.Equal(t, []string{nodes.NodeIntent, nodes.NodeQueryDB, nodes.NodeReason}, res.Visited)
	assert.Equal(t, []string{"answer 1"}, res.Chunks)
	assert.Equal(t, 2, intent.CallCount())

	st := res.State
	assert.Nil(t, st.UserQuery)
	assert.Nil(t, st.SQLQuery)
	assert.Nil(t, st.QueryResults)
	require.NotNil(t, st.Intention)
	assert.Equal(t, float64(80), st.Intention.Score)

	prompt := h.response.Calls()[0][0].Content
	assert.Contains(t, prompt, "which AWS issues do I have?")
	assert.Contains(t, prompt, `{"id": "AVD-AWS-0006"}`)
}

func TestGraph_RejectedQueryStillAnswers(t *testing.T) {
	intent := llmtest.NewScriptedModel(
		llmtest.Reply{Content: `{"Score": 95}`},
		llmtest.Reply{Content: "DELETE FROM results"},
	)
	h := newHarness(t, intent)

	res, err := h.runner.Process(context.Background(), "t1", "wipe my findings", &model.ConversationState{})
	require.NoError(t, err)

	assert.Equal(t, []string{nodes.NodeIntent, nodes.NodeQueryDB, nodes.NodeReason}, res.Visited)
	assert.Len(t, res.Chunks, 1)
	prompt := h.response.Calls()[0][0].Content
	assert.NotContains(t, prompt, "Query results:")
}

func TestGraph_LowScoreGoesStraightToReason(t *testing.T) {
	h := newHarness(t, llmtest.NewScriptedModel(llmtest.Reply{Content: `{"Score": 5}`}))

	res, err := h.runner.Process(context.Background(), "t1", "hello!", &model.ConversationState{})
	require.NoError(t, err)

	assert.Equal(t, []string{nodes.NodeIntent, nodes.NodeReason}, res.Visited)
	assert.Equal(t, []string{"answer 1"}, res.Chunks)
}

func TestGraph_InvalidCommand(t *testing.T) {
	h := newHarness(t, llmtest.NewScriptedModel())

	res, err := h.runner.Process(context.Background(), "t1", "/report azure", &model.ConversationState{})
	require.NoError(t, err)

	assert.Equal(t, []string{nodes.NodeIntent, nodes.NodeReason}, res.Visited)
	assert.Zero(t, h.intent.CallCount())
	assert.Contains(t, h.response.Calls()[0][0].Content, "/report azure")
}

func TestRunner_InvokePersistsThread(t *testing.T) {
	intent := llmtest.NewScriptedModel(
		llmtest.Reply{Content: `{"Score": 10}`},
		llmtest.Reply{Content: `{"Score": 10}`},
	)
	h := newHarness(t, intent)
	ctx := context.Background()

	_, err := h.runner.Invoke(ctx, model.TurnInput{ThreadID: "t1", Message: "hello"})
	require.NoError(t, err)
	res, err := h.runner.Invoke(ctx, model.TurnInput{ThreadID: "t1", Message: "thanks"})
	require.NoError(t, err)
	assert.Equal(t, []string{"answer 2"}, res.Chunks)

	st, err := h.store.Load(ctx, "t1")
	require.NoError(t, err)
	var contents []string
	for _, m := range st.Messages {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"hello", "answer 1", "thanks", "answer 2"}, contents)

	require.NoError(t, h.runner.Reset(ctx, "t1"))
	st, err = h.store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, st.Messages)
}

func TestRunner_InvokeValidatesInput(t *testing.T) {
	h := newHarness(t, llmtest.NewScriptedModel())

	for _, in := range []model.TurnInput{
		{ThreadID: "", Message: "hello"},
		{ThreadID: "t1", Message: "   "},
	} {
		_, err := h.runner.Invoke(context.Background(), in)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
	}
}

func TestChunks(t *testing.T) {
	turn := &model.Turn{
		State: &model.ConversationState{Messages: []*schema.Message{
			schema.AssistantMessage("old", nil),
			schema.UserMessage("question"),
			schema.SystemMessage(nodes.QueryExecutedNote),
			schema.AssistantMessage("", nil),
			schema.AssistantMessage("new", nil),
		}},
		Baseline: 2,
	}
	assert.Equal(t, []string{"new"}, Chunks(turn))
}

func TestRouteIntent(t *testing.T) {
	for next, want := range map[string]string{
		nodes.NodeSummary: nodes.NodeSummary,
		nodes.NodeQueryDB: nodes.NodeQueryDB,
		nodes.NodeReason:  nodes.NodeReason,
		"":                nodes.NodeReason,
	} {
		got, err := RouteIntent(context.Background(), &model.Turn{Next: next})
		require.NoError(t, err)
		assert.Equal(t, want, got, strings.TrimSpace(next))
	}
}
