package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shineum/acs-mail-lite/internal/config"
	"github.com/shineum/acs-mail-lite/internal/mailer"
	"github.com/shineum/acs-mail-lite/internal/provider"
	"github.com/shineum/acs-mail-lite/internal/provider/acs"
	"github.com/shineum/acs-mail-lite/internal/provider/graph"
	"github.com/shineum/acs-mail-lite/internal/provider/resend"
	"github.com/shineum/acs-mail-lite/internal/provider/ses"
	"github.com/shineum/acs-mail-lite/internal/provider/stdout"
)

// newMailer builds a Mailer over the backend the configuration selects.
func newMailer(ctx context.Context, cfg *config.Config) (*mailer.Mailer, error) {
	settings := mailer.Settings{DefaultFrom: cfg.DefaultFrom}

	name := resolveProvider(cfg)
	if name == "acs" {
		if !cfg.ACSConfigured() {
			return nil, fmt.Errorf("ACS provider selected but ACS_ENDPOINT is required")
		}
		slog.Info("using Azure Communication Services provider",
			"managed_identity", cfg.ACS.UseManagedIdentity,
		)
		return mailer.Init(acsOptions(cfg), settings)
	}

	capability, err := selectProvider(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	return mailer.New(capability, settings), nil
}

// resolveProvider returns the configured provider name, or auto-detects one
// when none is set: ACS, then Graph, SES and Resend, else stdout.
func resolveProvider(cfg *config.Config) string {
	if cfg.Provider != "" {
		return cfg.Provider
	}

	switch {
	case cfg.ACSConfigured():
		return "acs"
	case cfg.GraphConfigured():
		return "graph"
	case cfg.SESConfigured():
		return "ses"
	case cfg.ResendConfigured():
		return "resend"
	default:
		slog.Info("no provider configured, using stdout provider")
		return "stdout"
	}
}

// selectProvider builds one of the alternative delivery backends.
func selectProvider(ctx context.Context, name string, cfg *config.Config) (provider.Capability, error) {
	switch name {
	case "graph":
		if !cfg.GraphConfigured() {
			return nil, fmt.Errorf("graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET are required")
		}
		slog.Info("using Microsoft Graph provider",
			"sender", cfg.Graph.Sender,
		)
		return graph.New(graph.GraphProviderConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		}), nil

	case "ses":
		if !cfg.SESConfigured() {
			return nil, fmt.Errorf("SES provider selected but SES_REGION is required")
		}
		slog.Info("using AWS SES provider",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case "resend":
		if !cfg.ResendConfigured() {
			return nil, fmt.Errorf("resend provider selected but RESEND_API_KEY is required")
		}
		slog.Info("using Resend provider")
		return resend.New(cfg.Resend.APIKey, cfg.Resend.From), nil

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func acsOptions(cfg *config.Config) acs.Options {
	return acs.Options{
		Endpoint:           cfg.ACS.Endpoint,
		UseManagedIdentity: cfg.ACS.UseManagedIdentity,
		IdentityClientID:   cfg.ACS.IdentityClientID,
		PollInterval:       cfg.ACS.PollInterval,
	}
}
