package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

// MessagesManager brackets one turn around the checkpoint store: Begin loads
// the thread and appends the user's message, Commit persists the result.
type MessagesManager struct {
	store      model.CheckpointStore
	maxHistory int
}

func NewMessagesManager(store model.CheckpointStore, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		store:      store,
		maxHistory: config.MaxHistory,
	}
}

// Begin returns the persisted state and a working copy carrying the new user
// message.
func (cm *MessagesManager) Begin(ctx context.Context, threadID, text string) (prev, working *model.ConversationState, err error) {
	prev, err = cm.store.Load(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}
	working = StartTurn(prev, text)
	logx.Debug().
		Str("thread_id", threadID).
		Int("history_len", len(prev.Messages)).
		Msg("conversation loaded")
	return prev, working, nil
}

// Commit persists next. prev must be the state Begin returned.
func (cm *MessagesManager) Commit(ctx context.Context, threadID string, prev, next *model.ConversationState) error {
	return cm.store.Save(ctx, threadID, prev, next)
}

// Reset drops everything stored for the thread.
func (cm *MessagesManager) Reset(ctx context.Context, threadID string) error {
	return cm.store.Clear(ctx, threadID)
}

// MaxHistory is the replay window used by Window.
func (cm *MessagesManager) MaxHistory() int {
	return cm.maxHistory
}

// StartTurn copies prior and appends the user's message.
func StartTurn(prior *model.ConversationState, text string) *model.ConversationState {
	st := prior.Clone()
	st.Apply(model.Update{Messages: []*schema.Message{schema.UserMessage(text)}})
	return st
}

// Window returns a copy of the last maxTurns messages. A non-positive maxTurns
// keeps everything.
func Window(messages []*schema.Message, maxTurns int) []*schema.Message {
	source := messages
	if maxTurns > 0 && len(messages) > maxTurns {
		source = messages[len(messages)-maxTurns:]
	}
	result := make([]*schema.Message, 0, len(source))
	for _, m := range source {
		if m == nil || m.Content == "" {
			continue
		}
		result = append(result, m)
	}
	return result
}
