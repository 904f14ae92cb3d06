// Package setup turns the YAML configuration into a ready client, shared by
// langcheckd and the langcheck CLI.
package setup

import (
	"context"
	"fmt"

	"github.com/nerrad567/langcheck/internal/client"
	"github.com/nerrad567/langcheck/internal/engine"
	"github.com/nerrad567/langcheck/internal/infrastructure/config"
)

// EngineConfig maps the engine section onto a supervisor config.
// Lifecycle hooks are left for the caller.
func EngineConfig(cfg *config.Config) engine.Config {
	e := cfg.Engine
	return engine.Config{
		JavaPath:            e.JavaPath,
		JavaArgs:            e.JavaArgs,
		ArchivePath:         e.ArchivePath,
		ArchiveDir:          e.ArchiveDir,
		DownloadDir:         e.DownloadDir,
		CheckRuntimeVersion: e.CheckRuntime,
		EngineVersion:       e.Version,
		Host:                e.Host,
		MinPort:             e.MinPort,
		MaxPort:             e.MaxPort,
		ReadyTimeout:        cfg.GetReadyTimeout(),
		GracefulTimeout:     cfg.GetGracefulTimeout(),
		MaxRestarts:         e.MaxRestarts,
		CaptureOutput:       e.CaptureOutput,
	}
}

// ClientOptions maps the configuration onto client options. Cache, metrics,
// logger and engine hooks are left for the caller.
func ClientOptions(cfg *config.Config) client.Options {
	opts := client.Options{
		Language:       cfg.Check.Language,
		MotherTongue:   cfg.Check.MotherTongue,
		MaxAttempts:    cfg.Check.MaxAttempts,
		RequestTimeout: cfg.GetRequestTimeout(),
	}

	switch {
	case cfg.Remote.URL != "":
		opts.RemoteURL = cfg.Remote.URL
	case cfg.Remote.PublicAPI:
		opts.RemoteURL = client.PublicAPIURL
	default:
		opts.Engine = EngineConfig(cfg)
		opts.ServerConfig = cfg.Engine.ServerConfig
		opts.NewSpellings = cfg.Check.NewSpellings
		opts.SpellingsPersist = cfg.Check.SpellingsPersist
	}
	return opts
}

// NewClient creates a client from opts and applies the rule selection of
// the check section.
func NewClient(ctx context.Context, cfg *config.Config, opts client.Options) (*client.Client, error) {
	c, err := client.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	ApplyCheckSettings(c, cfg.Check)
	return c, nil
}

// ApplyCheckSettings applies rule and category selections to c.
func ApplyCheckSettings(c *client.Client, check config.CheckConfig) {
	c.SetDisabledRules(check.DisabledRules...)
	c.SetEnabledRules(check.EnabledRules...)
	c.SetDisabledCategories(check.DisabledCategories...)
	c.SetEnabledCategories(check.EnabledCategories...)
	c.SetPreferredVariants(check.PreferredVariants...)
	c.SetEnabledOnly(check.EnabledOnly)
	c.SetPicky(check.Picky)
	if !check.Spellcheck {
		c.DisableSpellchecking()
	}
}
