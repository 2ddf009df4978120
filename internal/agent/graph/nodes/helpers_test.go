package nodes

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/llmtest"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/blob"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/findings"
	"github.com/trendmicro/cloud-risk-assessment-agent/pkg/sqldb"
)

type fakeGenerator struct {
	mu         sync.Mutex
	sql        string
	err        error
	categories []string
}

func (g *fakeGenerator) Generate(_ context.Context, _, category string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.categories = append(g.categories, category)
	return g.sql, g.err
}

type fakeValidator struct {
	err   error
	calls int
}

func (v *fakeValidator) Validate(context.Context, string) error {
	v.calls++
	return v.err
}

type countingExecutor struct {
	out   string
	err   error
	calls int
}

func (e *countingExecutor) Execute(context.Context, string) (string, error) {
	e.calls++
	return e.out, e.err
}

type fakeArtifacts struct {
	keys []string
	err  error
}

func (a *fakeArtifacts) Upload(_ context.Context, key string, _ []byte, _ string) (blob.Object, error) {
	if a.err != nil {
		return blob.Object{}, a.err
	}
	a.keys = append(a.keys, key)
	return blob.Object{Key: key, URL: "http://localhost:8000/blob/" + blob.ID(key)}, nil
}

type failingSummarizer struct{}

func (failingSummarizer) Summary(context.Context, model.Category) (*findings.Table, *findings.Table, error) {
	return nil, nil, errors.New("database is locked")
}

func newFindingsStore(t *testing.T) *findings.Store {
	t.Helper()
	raw, err := sql.Open(sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { raw.Close() })

	db, err := sqldb.Wrap(raw, sqldb.DriverSQLite)
	require.NoError(t, err)
	s := findings.NewStore(db)
	require.NoError(t, s.Seed(context.Background()))
	return s
}

type testDeps struct {
	intent    *llmtest.ScriptedModel
	response  *llmtest.ScriptedModel
	generator *fakeGenerator
	validator *fakeValidator
	executor  *countingExecutor
	artifacts *fakeArtifacts
}

func newTestNodes(t *testing.T, td testDeps, summarizer Summarizer) *Nodes {
	t.Helper()
	if td.intent == nil {
		td.intent = llmtest.NewScriptedModel()
	}
	if td.response == nil {
		td.response = llmtest.Echo("ok")
	}
	if td.generator == nil {
		td.generator = &fakeGenerator{sql: "SELECT 1"}
	}
	if td.validator == nil {
		td.validator = &fakeValidator{}
	}
	if td.executor == nil {
		td.executor = &countingExecutor{out: findings.NoResults}
	}
	if summarizer == nil {
		summarizer = failingSummarizer{}
	}
	d := Deps{
		Models: &ChatModels{
			Intent:            td.intent,
			Response:          td.response,
			IntentModelName:   "gemini-2.5-flash-lite",
			ResponseModelName: "gemini-2.5-flash",
		},
		Summarizer: summarizer,
		Generator:  td.generator,
		Validator:  td.validator,
		Executor:   td.executor,
		MaxHistory: 40,
	}
	if td.artifacts != nil {
		d.Artifacts = td.artifacts
	}
	n, err := New(d)
	require.NoError(t, err)
	return n
}

func newTurn(msgs ...*schema.Message) *model.Turn {
	st := &model.ConversationState{Messages: msgs}
	return &model.Turn{ThreadID: "thread-1", State: st, Baseline: len(msgs)}
}

func strptr(s string) *string { return &s }
