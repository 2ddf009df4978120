package model

import (
	"github.com/cloudwego/eino/schema"
)

// ConversationState is the per-thread record persisted between turns.
//
// Merge policy (see Apply):
//   - Messages is append-only: an Update's messages are concatenated.
//   - Every scratch field is replaced only when the Update sets or clears it;
//     fields an Update leaves untouched keep their prior value.
type ConversationState struct {
	Messages []*schema.Message `json:"messages,omitempty"`

	Intention    *Intention `json:"intention,omitempty"`
	UserQuery    *string    `json:"user_query,omitempty"`
	SQLQuery     *string    `json:"sql_query,omitempty"`
	QueryResults *string    `json:"query_results,omitempty"`
	Category     *Category  `json:"category,omitempty"`
	ResultText   *string    `json:"result_text,omitempty"`
	Top5         *string    `json:"top5,omitempty"`
	Dataframe    *string    `json:"dataframe,omitempty"`
}

// Field is one scratch-field instruction inside an Update. The zero value keeps
// the prior value.
type Field[T any] struct {
	op    fieldOp
	value T
}

type fieldOp uint8

const (
	opKeep fieldOp = iota
	opSet
	opClear
)

// Set replaces the field with v.
func Set[T any](v T) Field[T] {
	return Field[T]{op: opSet, value: v}
}

// Clear resets the field to absent.
func Clear[T any]() Field[T] {
	return Field[T]{op: opClear}
}

// IsKeep reports whether the field leaves the prior value untouched.
func (f Field[T]) IsKeep() bool { return f.op == opKeep }

// IsClear reports whether the field resets the value to absent.
func (f Field[T]) IsClear() bool { return f.op == opClear }

// Value returns the value carried by a Set field.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.op == opSet
}

func (f Field[T]) apply(dst **T) {
	switch f.op {
	case opSet:
		v := f.value
		*dst = &v
	case opClear:
		*dst = nil
	}
}

// Update is the partial result a graph node returns.
type Update struct {
	Messages []*schema.Message

	Intention    Field[Intention]
	UserQuery    Field[string]
	SQLQuery     Field[string]
	QueryResults Field[string]
	Category     Field[Category]
	ResultText   Field[string]
	Top5         Field[string]
	Dataframe    Field[string]

	// Goto names the next node when the emitting node branches. It is routing
	// only and never persisted.
	Goto string
	// Attachment is a report table produced by the node.
	Attachment *Attachment
}

// Apply merges u into s.
func (s *ConversationState) Apply(u Update) {
	if len(u.Messages) > 0 {
		s.Messages = append(s.Messages, u.Messages...)
	}
	u.Intention.apply(&s.Intention)
	u.UserQuery.apply(&s.UserQuery)
	u.SQLQuery.apply(&s.SQLQuery)
	u.QueryResults.apply(&s.QueryResults)
	u.Category.apply(&s.Category)
	u.ResultText.apply(&s.ResultText)
	u.Top5.apply(&s.Top5)
	u.Dataframe.apply(&s.Dataframe)
}

// Clone copies the state so that a node's update never mutates the snapshot it
// was handed. Messages are shared by pointer; they are treated as immutable.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return &ConversationState{}
	}
	c := *s
	c.Messages = make([]*schema.Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	c.Intention = clonePtr(s.Intention)
	c.UserQuery = clonePtr(s.UserQuery)
	c.SQLQuery = clonePtr(s.SQLQuery)
	c.QueryResults = clonePtr(s.QueryResults)
	c.Category = clonePtr(s.Category)
	c.ResultText = clonePtr(s.ResultText)
	c.Top5 = clonePtr(s.Top5)
	c.Dataframe = clonePtr(s.Dataframe)
	return &c
}

// LatestHumanMessage returns the content of the most recent user message.
func (s *ConversationState) LatestHumanMessage() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m != nil && m.Role == schema.User {
			return m.Content, true
		}
	}
	return "", false
}

// Deref returns the pointed-to string or "" when absent.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
