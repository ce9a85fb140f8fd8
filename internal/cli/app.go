// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wires the assistant from configuration and credentials.
//
// Both the CLI handlers and the TUI build the same App; the only difference
// is how they consume turn events.
package cli

import (
	"time"

	"github.com/hyperionx/hyperionx/internal/chat"
	"github.com/hyperionx/hyperionx/internal/config"
	"github.com/hyperionx/hyperionx/internal/groq"
	"github.com/hyperionx/hyperionx/internal/keypool"
	"github.com/hyperionx/hyperionx/internal/router"
	"github.com/hyperionx/hyperionx/internal/search"
	"github.com/hyperionx/hyperionx/internal/session"
)

// App bundles the wired assistant and the pools behind it.
type App struct {
	Config  *config.Config
	Creds   config.Credentials
	Engine  *chat.Engine
	Session *session.Manager

	// Model is the effective model name after any override.
	Model string

	// LLMPool and SearchPool are exposed for status output.
	LLMPool    *keypool.Pool
	SearchPool *keypool.Pool
}

// NewApp wires clients, pools, router, refiner, and engine from the given
// configuration. An empty model pool is allowed: the engine reports the
// missing-credentials message on the first turn instead of failing here.
// With noSearch the engine gets no searcher and every turn stays ungrounded.
func NewApp(cfg *config.Config, creds config.Credentials, modelOverride string, noSearch bool) *App {
	cooldown := time.Duration(cfg.Pool.CooldownSecs) * time.Second
	llmPool := keypool.New(creds.GroqKeys, cooldown)
	searchPool := keypool.New(creds.TavilyKeys, cooldown)

	llm := groq.NewClient()
	if cfg.Model.BaseURL != "" {
		llm = llm.WithBaseURL(cfg.Model.BaseURL)
	}
	model := cfg.Model.Name
	if modelOverride != "" {
		model = modelOverride
	}
	llm = llm.WithModel(model)

	rt := router.New(llm, llmPool)

	var searcher search.Searcher
	var refiner *search.Refiner
	if !noSearch {
		searchClient := search.NewClient()
		if cfg.Search.Endpoint != "" {
			searchClient = searchClient.WithEndpoint(cfg.Search.Endpoint)
		}
		cache := search.NewCache(time.Duration(cfg.Search.CacheTTLSecs) * time.Second)
		adapter := search.NewAdapter(searchClient, searchPool, cache).
			WithMaxResults(cfg.Search.MaxResults)
		searcher = adapter
		refiner = search.NewRefiner(adapter, rt, router.OfficialHint).
			WithThresholds(cfg.Search.MinResults, cfg.Search.MinContentChars)
	}

	engine := chat.NewEngine(llm, llmPool, rt, searcher, refiner).
		WithAnswerParams(cfg.Model.Temperature, cfg.Model.MaxTokens)

	return &App{
		Config:     cfg,
		Creds:      creds,
		Engine:     engine,
		Session:    session.NewManager(),
		Model:      model,
		LLMPool:    llmPool,
		SearchPool: searchPool,
	}
}

// NewAppFromEnv loads config and credentials and wires the app.
func NewAppFromEnv(args Args) *App {
	return NewApp(config.Global(), config.LoadCredentials(), args.Model, args.NoSearch)
}
