package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/config"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/llm"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider/graph"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider/mailto"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider/ses"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider/smtp"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider/stdout"
	smtptls "github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/tls"
)

// selectSearcher builds the web-search backend for recipient lookup.
func selectSearcher(ctx context.Context, cfg *config.Config) (llm.Searcher, error) {
	switch cfg.LLM.SearchProvider {
	case "openai":
		return llm.NewOpenAI(openAIConfig(cfg)), nil
	case "gemini":
		return llm.NewGemini(ctx, geminiConfig(cfg))
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.LLM.SearchProvider)
	}
}

// selectCompleter builds the drafting backend.
func selectCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	switch cfg.LLM.DraftProvider {
	case "openai":
		return llm.NewOpenAI(openAIConfig(cfg)), nil
	case "gemini":
		return llm.NewGemini(ctx, geminiConfig(cfg))
	case "ollama":
		return llm.NewOllama(llm.OllamaConfig{Host: cfg.LLM.OllamaHost, Model: cfg.LLM.DraftModel})
	case "anthropic":
		return llm.NewAnthropic(llm.AnthropicConfig{APIKey: cfg.LLM.AnthropicAPIKey, Model: cfg.LLM.DraftModel}), nil
	default:
		return nil, fmt.Errorf("unknown draft provider %q", cfg.LLM.DraftProvider)
	}
}

func openAIConfig(cfg *config.Config) llm.OpenAIConfig {
	return llm.OpenAIConfig{
		APIKey:      cfg.LLM.OpenAIAPIKey,
		BaseURL:     cfg.LLM.OpenAIBaseURL,
		SearchModel: cfg.LLM.SearchModel,
		DraftModel:  cfg.LLM.DraftModel,
	}
}

func geminiConfig(cfg *config.Config) llm.GeminiConfig {
	return llm.GeminiConfig{
		APIKey:      cfg.LLM.GeminiAPIKey,
		SearchModel: cfg.LLM.SearchModel,
		DraftModel:  cfg.LLM.DraftModel,
	}
}

// selectProvider builds the dispatcher named by the configuration.
func selectProvider(ctx context.Context, cfg *config.Config, out io.Writer) (provider.Provider, error) {
	switch cfg.Dispatch.Provider {
	case "mailto":
		return mailto.New(), nil

	case "smtp":
		tlsConfig, err := smtptls.ClientConfig(smtptls.ClientOptions{
			ServerName:         cfg.SMTP.Host,
			CAFile:             cfg.SMTP.CAFile,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up SMTP TLS: %w", err)
		}
		slog.Info("using SMTP provider", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port, "security", securityName(smtpSecurity(cfg.SMTP)))
		return smtp.New(smtp.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Security:   smtpSecurity(cfg.SMTP),
			TLSConfig:  tlsConfig,
			Username:   cfg.SMTPUsername(),
			Password:   cfg.SMTP.Password,
			Mechanism:  strings.ToLower(cfg.SMTP.Auth),
			SenderName: cfg.Agent.SenderName,
			Timeout:    cfg.SMTP.Timeout,
		}), nil

	case "ses":
		slog.Info("using AWS SES provider", "region", cfg.SES.Region)
		p, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			SenderName:      cfg.Agent.SenderName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case "graph":
		slog.Info("using Microsoft Graph provider", "sender", cfg.Graph.Sender)
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		}), nil

	case "stdout":
		return stdout.NewWithWriter(out), nil

	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Dispatch.Provider)
	}
}

// smtpSecurity maps the SSL and STARTTLS flags; SSL-on-connect wins when
// both are set.
func smtpSecurity(c config.SMTPConfig) smtp.Security {
	switch {
	case c.UseSSL:
		return smtp.SecurityImplicitTLS
	case c.UseTLS:
		return smtp.SecurityStartTLS
	default:
		return smtp.SecurityNone
	}
}

func securityName(s smtp.Security) string {
	switch s {
	case smtp.SecurityImplicitTLS:
		return "ssl"
	case smtp.SecurityStartTLS:
		return "starttls"
	default:
		return "none"
	}
}
