// Package app wires configuration, the completion provider, the session
// store, and the engine into one unit the command layer can drive.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tejjnayak/rewind/internal/config"
	"github.com/tejjnayak/rewind/internal/engine"
	"github.com/tejjnayak/rewind/internal/llm/provider"
	"github.com/tejjnayak/rewind/internal/llm/tokens"
	"github.com/tejjnayak/rewind/internal/log"
	"github.com/tejjnayak/rewind/internal/proto"
	"github.com/tejjnayak/rewind/internal/session"
)

type App struct {
	Sessions session.Service
	Engine   *engine.Engine
	Provider provider.Provider

	config *config.Config
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	model := cfg.ResolveModel()

	opts := []provider.Option{provider.WithModel(model)}
	if cfg.BaseURL != "" {
		opts = append(opts, provider.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, provider.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, provider.WithTemperature(*cfg.Temperature))
	}

	prov, err := provider.New(cfg.ProviderType(), cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	sessions := session.New(cfg.SystemPrompt)

	slog.Info("app initialized",
		"provider", cfg.Provider,
		"model", model.ID,
		"api_key", log.MaskAPIKey(cfg.APIKey),
	)

	return &App{
		Sessions: sessions,
		Engine:   engine.New(sessions, prov, tokens.NewCounter()),
		Provider: prov,
		config:   cfg,
	}, nil
}

func (a *App) Config() *config.Config {
	return a.config
}

// RunNonInteractive submits a single prompt, prints the assistant's reply to
// stdout, and exits. With quiet set, only the reply is printed.
func (a *App) RunNonInteractive(ctx context.Context, prompt string, quiet bool) error {
	version, err := a.Engine.Submit(ctx, prompt)
	if err != nil {
		return err
	}

	reply := version.LastAssistant()
	if reply == "" {
		return fmt.Errorf("completion returned no assistant message")
	}
	fmt.Println(reply)

	if !quiet {
		fmt.Printf("\n[version %d | %d tokens this exchange | %d total | $%.4f]\n",
			version.ID, version.Usage.Total(), version.CumulativeTokens, version.Cost)
		if version.Estimated {
			fmt.Println("[token counts are estimates; the service reported no usage]")
		}
	}
	return nil
}

func (a *App) Shutdown() {
	a.Sessions.Shutdown()
}

// Subscribe forwards session change events to fn until ctx is canceled.
func (a *App) Subscribe(ctx context.Context, fn func(proto.Version)) {
	events := a.Sessions.Subscribe(ctx)
	for event := range events {
		fn(event.Payload)
	}
}
