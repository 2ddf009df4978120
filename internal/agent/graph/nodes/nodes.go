package nodes

import (
	"context"
	"errors"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/blob"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/findings"
)

// Summarizer produces the digest and detail tables of a category report.
type Summarizer interface {
	Summary(ctx context.Context, category model.Category) (digest, detail *findings.Table, err error)
}

// SQLGenerator turns a question into a candidate SQL statement.
type SQLGenerator interface {
	Generate(ctx context.Context, question, category string) (string, error)
}

// QueryValidator rejects statements that must not run.
type QueryValidator interface {
	Validate(ctx context.Context, query string) error
}

// QueryExecutor runs a validated statement and renders the rows as text.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (string, error)
}

// ArtifactStore keeps report tables for later download.
type ArtifactStore interface {
	Upload(ctx context.Context, objectKey string, data []byte, mime string) (blob.Object, error)
}

// Deps are the collaborators shared by every node. All of them must be safe
// for concurrent use; one Nodes value serves every thread.
type Deps struct {
	Models *ChatModels

	Summarizer Summarizer
	Generator  SQLGenerator
	Validator  QueryValidator
	Executor   QueryExecutor
	// Artifacts is optional; without it report tables are only returned inline.
	Artifacts ArtifactStore

	MaxPromptChars int
	MaxHistory     int
}

// Nodes implements the steps of the conversation graph.
type Nodes struct {
	d Deps
}

func New(d Deps) (*Nodes, error) {
	if d.Models == nil || d.Models.Intent == nil || d.Models.Response == nil {
		return nil, errors.New("chat models are not properly initialized")
	}
	if d.Summarizer == nil {
		return nil, errors.New("summarizer is nil")
	}
	if d.Generator == nil || d.Validator == nil || d.Executor == nil {
		return nil, errors.New("query generator, validator and executor are required")
	}
	if d.MaxPromptChars <= 0 {
		d.MaxPromptChars = DefaultMaxPromptChars
	}
	return &Nodes{d: d}, nil
}

// Steps maps node names to their implementations.
func (n *Nodes) Steps() map[string]Step {
	return map[string]Step{
		NodeIntent:   n.Intent,
		NodeQueryDB:  n.QueryDB,
		NodeSummary:  n.Summary,
		NodeInsight:  n.Insight,
		NodeConclude: n.Conclude,
		NodeReason:   n.Reason,
	}
}
