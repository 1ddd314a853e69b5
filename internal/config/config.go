// Package config provides environment-variable-first configuration loading
// with an optional YAML or TOML file layer and .env support.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/secret"
)

const (
	defaultLLMTimeout  = 90 * time.Second
	defaultSMTPTimeout = 30 * time.Second
)

// Edit modes for the preview loop.
const (
	EditRedraft = "redraft"
	EditRefine  = "refine"
)

// Config holds the complete application configuration.
type Config struct {
	Agent    AgentConfig    `yaml:"agent" toml:"agent"`
	LLM      LLMConfig      `yaml:"llm" toml:"llm"`
	Dispatch DispatchConfig `yaml:"dispatch" toml:"dispatch"`
	SMTP     SMTPConfig     `yaml:"smtp" toml:"smtp"`
	SES      SESConfig      `yaml:"ses" toml:"ses"`
	Graph    GraphConfig    `yaml:"graph" toml:"graph"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// AgentConfig holds the sender identity and the recipient scope.
type AgentConfig struct {
	SenderName    string `yaml:"sender_name" toml:"sender_name"`
	SenderAddress string `yaml:"sender_address" toml:"sender_address"`
	ClosingPhrase string `yaml:"closing_phrase" toml:"closing_phrase"`
	Organization  string `yaml:"organization" toml:"organization"`
	Domain        string `yaml:"domain" toml:"domain"`
	Role          string `yaml:"role" toml:"role"`
	EditMode      string `yaml:"edit_mode" toml:"edit_mode"`
}

// LLMConfig selects the model backends.
type LLMConfig struct {
	SearchProvider  string        `yaml:"search_provider" toml:"search_provider"`
	DraftProvider   string        `yaml:"draft_provider" toml:"draft_provider"`
	OpenAIAPIKey    string        `yaml:"openai_api_key" toml:"openai_api_key"`
	GeminiAPIKey    string        `yaml:"gemini_api_key" toml:"gemini_api_key"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key" toml:"anthropic_api_key"`
	SearchModel     string        `yaml:"search_model" toml:"search_model"`
	DraftModel      string        `yaml:"draft_model" toml:"draft_model"`
	OpenAIBaseURL   string        `yaml:"openai_base_url" toml:"openai_base_url"`
	OllamaHost      string        `yaml:"ollama_host" toml:"ollama_host"`
	Timeout         time.Duration `yaml:"timeout" toml:"timeout"`
}

// DispatchConfig selects how finished drafts leave the program.
type DispatchConfig struct {
	Provider string `yaml:"provider" toml:"provider"`
}

// SMTPConfig holds mail submission settings.
type SMTPConfig struct {
	Host               string        `yaml:"host" toml:"host"`
	Port               int           `yaml:"port" toml:"port"`
	UseSSL             bool          `yaml:"use_ssl" toml:"use_ssl"`
	UseTLS             bool          `yaml:"use_tls" toml:"use_tls"`
	Username           string        `yaml:"username" toml:"username"`
	Password           string        `yaml:"password" toml:"password"`
	PasswordCommand    string        `yaml:"password_command" toml:"password_command"`
	PasswordKeyring    string        `yaml:"password_keyring" toml:"password_keyring"`
	PasswordSource     string        `yaml:"password_source" toml:"password_source"`
	Auth               string        `yaml:"auth" toml:"auth"`
	CAFile             string        `yaml:"ca_file" toml:"ca_file"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout" toml:"timeout"`
}

// SESConfig holds AWS SES settings.
type SESConfig struct {
	Region          string `yaml:"region" toml:"region"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key"`
}

// GraphConfig holds Microsoft Graph API settings.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id" toml:"tenant_id"`
	ClientID     string `yaml:"client_id" toml:"client_id"`
	ClientSecret string `yaml:"client_secret" toml:"client_secret"`
	Sender       string `yaml:"sender" toml:"sender"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	cfg.applyDerivedDefaults()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML (.yaml, .yml) or TOML (.toml)
// file as the base layer, then overrides with environment variables. Returns
// an error if the specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables always override file values
	cfg.applyEnvVars()
	cfg.applyDerivedDefaults()

	return cfg, nil
}

// loadDotEnv reads MAIL_AGENT_ENV_FILE, or .env in the working directory,
// without overriding variables that are already set. A missing default file
// is not an error.
func loadDotEnv() error {
	path := os.Getenv("MAIL_AGENT_ENV_FILE")
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// AutoSend reports whether the dispatcher submits mail itself rather than
// handing it to a mail client.
func (c *Config) AutoSend() bool {
	switch c.Dispatch.Provider {
	case "smtp", "ses", "graph":
		return true
	}
	return false
}

// SMTPUsername returns the login name, falling back to the sender address.
func (c *Config) SMTPUsername() string {
	if c.SMTP.Username != "" {
		return c.SMTP.Username
	}
	return c.Agent.SenderAddress
}

// ResolveSecrets fills the SMTP password when it was not given directly. The
// source is SMTP_PASSWORD_SOURCE ("keyring:<user>", "exec:<command>" or
// "env:<VAR>"), else the keyring entry, else the password command.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	if c.Dispatch.Provider != "smtp" || c.SMTP.Password != "" {
		return nil
	}

	spec := c.passwordSpec()
	if spec == "" {
		return nil
	}
	src, err := secret.FromSpec(spec)
	if err != nil {
		return fmt.Errorf("invalid SMTP_PASSWORD_SOURCE: %w", err)
	}

	v, err := src.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve SMTP password from %s: %w", src.Name(), err)
	}
	c.SMTP.Password = v
	return nil
}

func (c *Config) passwordSpec() string {
	switch {
	case c.SMTP.PasswordSource != "":
		return c.SMTP.PasswordSource
	case c.SMTP.PasswordKeyring != "":
		return "keyring:" + c.SMTP.PasswordKeyring
	case c.SMTP.PasswordCommand != "":
		return "exec:" + c.SMTP.PasswordCommand
	}
	return ""
}

// Validate reports the first missing or invalid setting, named by its
// environment variable.
func (c *Config) Validate() error {
	switch c.LLM.SearchProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q: must be openai or gemini", c.LLM.SearchProvider)
	}
	switch c.LLM.DraftProvider {
	case "openai", "gemini", "ollama", "anthropic":
	default:
		return fmt.Errorf("unknown LLM_DRAFT_PROVIDER %q: must be openai, gemini, ollama or anthropic", c.LLM.DraftProvider)
	}
	for _, p := range []string{c.LLM.SearchProvider, c.LLM.DraftProvider} {
		if err := c.requireAPIKey(p); err != nil {
			return err
		}
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("LLM_TIMEOUT must be positive")
	}

	switch c.Agent.EditMode {
	case EditRedraft, EditRefine:
	default:
		return fmt.Errorf("unknown EDIT_MODE %q: must be redraft or refine", c.Agent.EditMode)
	}
	if strings.TrimSpace(c.Agent.SenderName) == "" {
		return missing("SENDER_NAME")
	}
	if c.Agent.SenderAddress == "" {
		return missing("EMAIL_ADDRESS")
	}

	switch c.Dispatch.Provider {
	case "mailto", "stdout":
	case "smtp":
		if c.SMTP.Host == "" {
			return missing("SMTP_SERVER")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("SMTP_PORT %d is out of range", c.SMTP.Port)
		}
		if c.SMTP.Password == "" {
			return missing("EMAIL_APP_PASSWORD")
		}
		switch strings.ToLower(c.SMTP.Auth) {
		case "plain", "login":
		default:
			return fmt.Errorf("unknown SMTP_AUTH %q: must be plain or login", c.SMTP.Auth)
		}
	case "ses":
		if c.SES.Region == "" {
			return missing("SES_REGION")
		}
	case "graph":
		if c.Graph.TenantID == "" {
			return missing("GRAPH_TENANT_ID")
		}
		if c.Graph.ClientID == "" {
			return missing("GRAPH_CLIENT_ID")
		}
		if c.Graph.ClientSecret == "" {
			return missing("GRAPH_CLIENT_SECRET")
		}
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q: must be mailto, smtp, ses, graph or stdout", c.Dispatch.Provider)
	}

	return nil
}

func (c *Config) requireAPIKey(provider string) error {
	switch provider {
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return missing("OPENAI_API_KEY")
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return missing("GEMINI_API_KEY")
		}
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return missing("ANTHROPIC_API_KEY")
		}
	}
	return nil
}

func missing(name string) error {
	return fmt.Errorf("%s is not set in the environment, .env file or config file", name)
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Agent.SenderName = "Bhagyesh"
	c.Agent.Organization = "University of Illinois Chicago"
	c.Agent.Domain = "uic.edu"
	c.Agent.Role = "professor"
	c.LLM.SearchProvider = "openai"
	c.LLM.Timeout = defaultLLMTimeout
	c.Dispatch.Provider = "mailto"
	c.SMTP.Host = "smtp.gmail.com"
	c.SMTP.Port = 465
	c.SMTP.UseSSL = true
	c.SMTP.Auth = "plain"
	c.SMTP.Timeout = defaultSMTPTimeout
	c.Logging.Level = "warn"
}

// applyDerivedDefaults fills settings whose default depends on other
// settings. It runs after every other layer.
func (c *Config) applyDerivedDefaults() {
	if c.LLM.DraftProvider == "" {
		c.LLM.DraftProvider = c.LLM.SearchProvider
	}
	if c.LLM.SearchModel == "" {
		c.LLM.SearchModel = defaultSearchModel(c.LLM.SearchProvider)
	}
	if c.LLM.DraftModel == "" {
		c.LLM.DraftModel = defaultDraftModel(c.LLM.DraftProvider)
	}
	if c.Agent.ClosingPhrase == "" {
		c.Agent.ClosingPhrase = "Best Regards,"
		if c.AutoSend() {
			c.Agent.ClosingPhrase = "Sincerely,"
		}
	}
	if c.Agent.EditMode == "" {
		c.Agent.EditMode = EditRedraft
		if c.AutoSend() {
			c.Agent.EditMode = EditRefine
		}
	}
	if c.Graph.Sender == "" {
		c.Graph.Sender = c.Agent.SenderAddress
	}
}

func defaultSearchModel(provider string) string {
	if provider == "gemini" {
		return "gemini-2.5-flash"
	}
	return "gpt-4o"
}

func defaultDraftModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "ollama":
		return "llama3.1"
	case "anthropic":
		return "claude-sonnet-4-5"
	default:
		return "gpt-4.1-mini"
	}
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	setString(&c.Agent.SenderName, "SENDER_NAME")
	setString(&c.Agent.SenderAddress, "EMAIL_ADDRESS")
	setString(&c.Agent.ClosingPhrase, "CLOSING_PHRASE")
	setString(&c.Agent.Organization, "ORG_NAME")
	setString(&c.Agent.Domain, "ORG_DOMAIN")
	setString(&c.Agent.Role, "RECIPIENT_ROLE")
	if v := os.Getenv("EDIT_MODE"); v != "" {
		c.Agent.EditMode = strings.ToLower(v)
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.SearchProvider = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_DRAFT_PROVIDER"); v != "" {
		c.LLM.DraftProvider = strings.ToLower(v)
	}
	setString(&c.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&c.LLM.SearchModel, "SEARCH_MODEL")
	setString(&c.LLM.DraftModel, "DRAFT_MODEL")
	setString(&c.LLM.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.OllamaHost, "OLLAMA_HOST")
	setDuration(&c.LLM.Timeout, "LLM_TIMEOUT")

	if v := os.Getenv("MAIL_PROVIDER"); v != "" {
		c.Dispatch.Provider = strings.ToLower(v)
	}

	setString(&c.SMTP.Host, "SMTP_SERVER")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	setBool(&c.SMTP.UseSSL, "SMTP_USE_SSL")
	setBool(&c.SMTP.UseTLS, "SMTP_USE_TLS")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "EMAIL_APP_PASSWORD")
	setString(&c.SMTP.PasswordCommand, "SMTP_PASSWORD_COMMAND")
	setString(&c.SMTP.PasswordKeyring, "SMTP_PASSWORD_KEYRING")
	setString(&c.SMTP.PasswordSource, "SMTP_PASSWORD_SOURCE")
	if v := os.Getenv("SMTP_AUTH"); v != "" {
		c.SMTP.Auth = strings.ToLower(v)
	}
	setString(&c.SMTP.CAFile, "SMTP_CA_FILE")
	setBool(&c.SMTP.InsecureSkipVerify, "SMTP_INSECURE_SKIP_VERIFY")
	setDuration(&c.SMTP.Timeout, "SMTP_TIMEOUT")

	setString(&c.SES.Region, "SES_REGION")
	setString(&c.SES.AccessKeyID, "SES_ACCESS_KEY_ID")
	setString(&c.SES.SecretAccessKey, "SES_SECRET_ACCESS_KEY")

	setString(&c.Graph.TenantID, "GRAPH_TENANT_ID")
	setString(&c.Graph.ClientID, "GRAPH_CLIENT_ID")
	setString(&c.Graph.ClientSecret, "GRAPH_CLIENT_SECRET")
	setString(&c.Graph.Sender, "GRAPH_SENDER")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	setString(&c.Logging.File, "LOG_FILE")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// setBool accepts the values strconv.ParseBool does; anything else is ignored.
func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setDuration accepts Go durations ("45s") or a plain number of seconds.
func setDuration(dst *time.Duration, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
	}
}
