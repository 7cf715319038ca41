package container

import (
	"fmt"
	"net/http"

	"go-rhythm-inspector/internal/analyzer"
	"go-rhythm-inspector/internal/config"
	"go-rhythm-inspector/internal/engine"
	"go-rhythm-inspector/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config        *config.Config
	provider      engine.Provider
	audioAnalyzer analyzer.AudioAnalyzer
	handler       http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	provider := engine.NewToolchain(cfg.FFmpegBin, cfg.AubioBin)
	audioAnalyzer := analyzer.NewAudioAnalyzer(provider, cfg.AnalysisTimeout)
	handler := transport.NewHandler(audioAnalyzer)

	return &Container{
		config:        cfg,
		provider:      provider,
		audioAnalyzer: audioAnalyzer,
		handler:       handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Analyzer returns the analysis core
func (c *Container) Analyzer() analyzer.AudioAnalyzer {
	return c.audioAnalyzer
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
