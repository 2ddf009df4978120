package main

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/graph"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/repo"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/blob"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/core"
	"github.com/trendmicro/cloud-risk-assessment-agent/internal/findings"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
	pkgredis "github.com/trendmicro/cloud-risk-assessment-agent/pkg/redis"
	"github.com/trendmicro/cloud-risk-assessment-agent/pkg/sqldb"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	DB    sqldb.Config
	Redis pkgredis.Config

	// LLM provider
	model.ProviderConfig

	// Agent configs
	Intent       model.IntentModelConfig
	Response     model.ResponseModelConfig
	Conversation model.ConversationConfig
	Explanation  model.ExplanationConfig

	// HTTP
	ServiceHost string `envconfig:"SERVICE_HOST" default:"http://localhost:8000"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8000"`
}

var appConfig AppConfig

func loadConfig() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment config: %w", err)
	}
	return cfg, nil
}

// app holds the wired dependencies of one process.
type app struct {
	db       *sqldb.DB
	findings *findings.Store
	blobs    *blob.Store
	runner   graph.Runner
	closers  []func() error
}

// openStores opens the database and prepares the findings and blob tables.
func openStores(ctx context.Context, cfg AppConfig) (*app, error) {
	db, err := cfg.DB.Open(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{db: db, closers: []func() error{db.Close}}

	a.findings = findings.NewStore(db)
	if err := a.findings.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.blobs = blob.NewStore(db, cfg.ServiceHost)
	if err := a.blobs.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newApp wires the stores, the checkpoint store and the graph.
func newApp(ctx context.Context, cfg AppConfig) (*app, error) {
	a, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var checkpoints model.CheckpointStore
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initialise redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		checkpoints = repo.NewRedisCheckpointStore(rdb, cfg.Conversation.TTL)
		logx.Info().Msg("Connected to Redis; conversations are persisted")
	} else {
		checkpoints = repo.NewMemoryCheckpointStore()
		logx.Warn().Msg("REDIS_URL is empty; conversations are kept in memory")
	}

	a.runner, err = graph.BuildResponseGraph(ctx, graph.Config{
		Provider:      cfg.ProviderConfig,
		IntentModel:   cfg.Intent,
		ResponseModel: cfg.Response,
		Conversation:  cfg.Conversation,
		Explanation:   cfg.Explanation,
		Checkpoints:   checkpoints,
		Findings:      a.findings,
		Artifacts:     a.blobs,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return a, nil
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("Error closing resource")
		}
	}
	a.closers = nil
}
