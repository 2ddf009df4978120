package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/llmtest"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
)

func runIntent(t *testing.T, n *Nodes, text string) (model.Update, *model.ConversationState) {
	t.Helper()
	turn := newTurn(schema.UserMessage(text))
	u := n.Intent(context.Background(), turn)
	st := turn.State.Clone()
	st.Apply(u)
	return u, st
}

func TestIntent_ReportCommandSkipsModel(t *testing.T) {
	intent := llmtest.NewScriptedModel()
	n := newTestNodes(t, testDeps{intent: intent}, nil)

	u, st := runIntent(t, n, "/report aws")

	assert.Equal(t, NodeSummary, u.Goto)
	require.NotNil(t, st.Category)
	assert.Equal(t, model.CategoryAWS, *st.Category)
	assert.Nil(t, st.UserQuery)
	assert.Zero(t, intent.CallCount())
}

func TestIntent_InvalidCommand(t *testing.T) {
	intent := llmtest.NewScriptedModel()
	n := newTestNodes(t, testDeps{intent: intent}, nil)

	u, st := runIntent(t, n, "/report gcp")

	assert.Equal(t, NodeReason, u.Goto)
	assert.Equal(t, "/report gcp", model.Deref(st.UserQuery))
	assert.Contains(t, model.Deref(st.QueryResults), "{code, container, aws, kubernetes, all}")
	assert.Nil(t, st.Category)
	assert.Zero(t, intent.CallCount())
}

func TestIntent_ScoreThreshold(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantGoto  string
		wantQuery bool
		wantScore float64
	}{
		{name: "above threshold", reply: `{"Score": 31}`, wantGoto: NodeQueryDB, wantQuery: true, wantScore: 31},
		{name: "at threshold", reply: `{"Score": 30}`, wantGoto: NodeReason, wantQuery: false, wantScore: 30},
		{name: "high", reply: "```json\n{\"Score\": 80, \"Reason\": \"findings\"}\n```", wantGoto: NodeQueryDB, wantQuery: true, wantScore: 80},
		{name: "missing score", reply: `{"Reason": "greeting"}`, wantGoto: NodeReason, wantQuery: false, wantScore: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := llmtest.NewScriptedModel(llmtest.Reply{Content: tt.reply})
			n := newTestNodes(t, testDeps{intent: intent}, nil)

			u, st := runIntent(t, n, "what happened to my AWS account")

			assert.Equal(t, tt.wantGoto, u.Goto)
			require.NotNil(t, st.Intention)
			assert.Equal(t, tt.wantScore, st.Intention.Score)
			if tt.wantQuery {
				assert.Equal(t, "what happened to my AWS account", model.Deref(st.UserQuery))
			} else {
				assert.Nil(t, st.UserQuery)
			}
			assert.Equal(t, 1, intent.CallCount())
		})
	}
}

func TestIntent_ClassifierPromptCarriesQuestion(t *testing.T) {
	intent := llmtest.NewScriptedModel(llmtest.Reply{Content: `{"Score": 10}`})
	n := newTestNodes(t, testDeps{intent: intent}, nil)

	runIntent(t, n, "is my cluster safe?")

	calls := intent.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 1)
	assert.Equal(t, schema.User, calls[0][0].Role)
	assert.Contains(t, calls[0][0].Content, "is my cluster safe?")
}

func TestIntent_MalformedReply(t *testing.T) {
	for _, reply := range []llmtest.Reply{
		{Content: "not json"},
		{Content: `{"Score": "high"}`},
		{Err: errors.New("model unavailable")},
	} {
		intent := llmtest.NewScriptedModel(reply)
		n := newTestNodes(t, testDeps{intent: intent}, nil)

		turn := newTurn(schema.UserMessage("what happened to my AWS account"))
		turn.State.Intention = &model.Intention{Score: 90}
		var u model.Update
		require.NotPanics(t, func() { u = n.Intent(context.Background(), turn) })

		st := turn.State.Clone()
		st.Apply(u)
		assert.Equal(t, NodeReason, u.Goto)
		assert.Nil(t, st.Intention)
		assert.Equal(t, "what happened to my AWS account", model.Deref(st.UserQuery))
	}
}

func TestIntent_UsesLatestHumanMessage(t *testing.T) {
	n := newTestNodes(t, testDeps{}, nil)

	turn := newTurn(
		schema.UserMessage("hello"),
		schema.AssistantMessage("hi", nil),
		schema.UserMessage("/report kubernetes"),
	)
	u := n.Intent(context.Background(), turn)
	assert.Equal(t, NodeSummary, u.Goto)
	v, ok := u.Category.Value()
	assert.True(t, ok)
	assert.Equal(t, model.CategoryKubernetes, v)
}
