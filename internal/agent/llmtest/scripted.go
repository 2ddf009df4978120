// Package llmtest provides a scripted chat model for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrScriptExhausted is returned when a ScriptedModel runs out of replies.
var ErrScriptExhausted = errors.New("scripted model: no reply left")

// Reply is one scripted response. Err takes precedence over Content.
type Reply struct {
	Content string
	Err     error
	Usage   *schema.TokenUsage
}

// ScriptedModel returns its replies in order and records every input.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []Reply
	calls   [][]*schema.Message
	// Respond, when set, is used instead of the scripted replies.
	Respond func(input []*schema.Message) (*schema.Message, error)
}

// NewScriptedModel returns a model answering with replies in order.
func NewScriptedModel(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

// Echo answers every call with the same content.
func Echo(content string) *ScriptedModel {
	return &ScriptedModel{Respond: func([]*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(content, nil), nil
	}}
}

func (m *ScriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]*schema.Message(nil), input...))
	if m.Respond != nil {
		return m.Respond(input)
	}
	if len(m.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	out := schema.AssistantMessage(r.Content, nil)
	if r.Usage != nil {
		out.ResponseMeta = &schema.ResponseMeta{Usage: r.Usage}
	}
	return out, nil
}

func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

// Calls returns the inputs of every call so far.
func (m *ScriptedModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.calls...)
}

// CallCount returns the number of calls so far.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ model.BaseChatModel = (*ScriptedModel)(nil)
