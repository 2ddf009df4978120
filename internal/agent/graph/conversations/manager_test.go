package conversations

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/repo"
)

func TestMessagesManager_BeginCommit(t *testing.T) {
	ctx := context.Background()
	mm := NewMessagesManager(repo.NewMemoryCheckpointStore(), model.ConversationConfig{MaxHistory: 10})

	prev, working, err := mm.Begin(ctx, "t1", "hello")
	require.NoError(t, err)
	assert.Empty(t, prev.Messages)
	require.Len(t, working.Messages, 1)
	assert.Equal(t, schema.User, working.Messages[0].Role)

	working.Apply(model.Update{Messages: []*schema.Message{schema.AssistantMessage("hi", nil)}})
	require.NoError(t, mm.Commit(ctx, "t1", prev, working))

	prev, working, err = mm.Begin(ctx, "t1", "again")
	require.NoError(t, err)
	assert.Len(t, prev.Messages, 2)
	assert.Len(t, working.Messages, 3)

	require.NoError(t, mm.Reset(ctx, "t1"))
	prev, _, err = mm.Begin(ctx, "t1", "x")
	require.NoError(t, err)
	assert.Empty(t, prev.Messages)
	assert.Equal(t, 10, mm.MaxHistory())
}

func TestStartTurn_DoesNotMutatePrior(t *testing.T) {
	prior := &model.ConversationState{Messages: []*schema.Message{schema.UserMessage("a")}}
	st := StartTurn(prior, "b")
	assert.Len(t, prior.Messages, 1)
	assert.Len(t, st.Messages, 2)
}

func TestWindow(t *testing.T) {
	msgs := []*schema.Message{
		schema.UserMessage("1"),
		schema.AssistantMessage("2", nil),
		nil,
		schema.UserMessage(""),
		schema.AssistantMessage("3", nil),
	}

	got := Window(msgs, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].Content)

	assert.Len(t, Window(msgs, 0), 3)
	assert.Len(t, Window(msgs, 100), 3)
}
