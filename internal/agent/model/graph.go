package model

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen inside compose.ProcessState, which Eino
//     serializes, so no additional mutex is required.
//   - Conversation data does not live here; it flows between nodes as *Turn
//     and is persisted by a CheckpointStore.
type AppState struct {
	ThreadID string

	// Number of chat model calls made during this turn
	ModelCalls int
	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// TurnInput is the inbound "process a user turn" request.
type TurnInput struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

// Turn is the value flowing between graph nodes.
type Turn struct {
	ThreadID string
	State    *ConversationState

	// Next is the routing decision of the last branching node.
	Next string
	// Visited lists node names in execution order.
	Visited []string
	// Attachment is the report table produced this turn, if any.
	Attachment *Attachment
	// Baseline is len(State.Messages) before this turn's nodes ran.
	Baseline int
	CostUSD  float64
}

// Attachment is a tabular artifact emitted alongside the assistant text.
type Attachment struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url,omitempty"`
	CSV  string `json:"csv,omitempty"`
}

// TurnResult is the outbound side of a processed turn.
type TurnResult struct {
	ThreadID   string             `json:"thread_id"`
	Chunks     []string           `json:"chunks"`
	Attachment *Attachment        `json:"attachment,omitempty"`
	Visited    []string           `json:"visited"`
	CostUSD    float64            `json:"cost_usd"`
	State      *ConversationState `json:"-"`
}
