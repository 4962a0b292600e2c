package main

import (
	"context"
	"fmt"
	"time"

	"github.com/candorhq/candor/internal/config"
	"github.com/candorhq/candor/internal/confidence"
	"github.com/candorhq/candor/internal/db"
	"github.com/candorhq/candor/internal/drafting"
	"github.com/candorhq/candor/internal/gate"
	"github.com/candorhq/candor/internal/llm"
	"github.com/candorhq/candor/internal/scoring"
	"github.com/candorhq/candor/internal/talentbank"
	"github.com/candorhq/candor/internal/voice"
	"go.uber.org/zap"
)

// components holds the wired application graph shared by the commands.
type components struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *db.DB
	llm        llm.Client
	engine     *drafting.Engine
	gate       *gate.Gate
	aggregator *scoring.Aggregator
	matcher    *talentbank.Matcher
	voice      *voice.Extractor
}

// build wires the full application graph. withLLM controls whether a model
// client is required; commands that never draft can run without an API key.
func build(ctx context.Context, withLLM bool) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	c := &components{cfg: cfg, logger: logger, db: database}

	if withLLM {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required")
		}
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
		c.llm = client
	}

	eval, err := confidence.NewEvaluator(confidence.Weights{
		Specificity: cfg.Confidence.Specificity,
		VoiceMatch:  cfg.Confidence.VoiceMatch,
		Safety:      cfg.Confidence.Safety,
		Length:      cfg.Confidence.Length,
	})
	if err != nil {
		return nil, err
	}

	var transport gate.Transport
	if cfg.DryRun {
		transport = gate.NewLogTransport(logger)
	} else {
		transport = gate.NewHTTPTransport(cfg.EmailEndpoint, cfg.EmailAPIKey)
	}
	c.gate = gate.New(database, transport, cfg.AutoSendThreshold,
		time.Duration(cfg.SendDelayMinutes)*time.Minute, logger)

	if c.llm != nil {
		c.engine = drafting.NewEngine(database, c.llm, eval, logger)
		c.voice = voice.NewExtractor(database, c.llm, logger)
	}

	c.aggregator, err = scoring.New(database, scoring.Weights{
		Speed:         cfg.Scoring.Speed,
		Quality:       cfg.Scoring.Quality,
		Followthrough: cfg.Scoring.Followthrough,
		Reengage:      cfg.Scoring.Reengage,
	}, logger)
	if err != nil {
		return nil, err
	}

	c.matcher = talentbank.New(database, nil, cfg.MatchMinScore, logger)

	return c, nil
}

func (c *components) close() {
	if c.llm != nil {
		_ = c.llm.Close()
	}
	c.gate.Stop()
	c.db.Close()
	_ = c.logger.Sync()
}
