// ABOUTME: Application configuration from .env files and environment variables
// ABOUTME: Resolves chat widget settings, analyzer endpoints, latency and XDG paths
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const AppName = "leadpipe"

// Config represents application configuration
type Config struct {
	Chat     ChatConfig
	Analyzer AnalyzerConfig

	// FollowUpURL is the endpoint that turns completed calls into follow-ups.
	FollowUpURL string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// Latency is "default" for simulated service delays or "off".
	Latency string

	WebPort     int
	FixturesDir string
	ExportPath  string
}

// ChatConfig holds the chat widget connection settings.
type ChatConfig struct {
	BotID        string
	HostURL      string
	MessagingURL string
	ClientID     string
}

// AnalyzerConfig selects the conversation analyzer.
type AnalyzerConfig struct {
	URL         string
	OpenAIKey   string
	OpenAIBase  string
	OpenAIModel string
}

// Missing lists the required chat variables that are unset.
func (c ChatConfig) Missing() []string {
	var missing []string
	if c.BotID == "" {
		missing = append(missing, "LEADPIPE_BOTPRESS_BOT_ID")
	}
	if c.HostURL == "" {
		missing = append(missing, "LEADPIPE_BOTPRESS_HOST_URL")
	}
	if c.MessagingURL == "" {
		missing = append(missing, "LEADPIPE_BOTPRESS_MESSAGING_URL")
	}
	if c.ClientID == "" {
		missing = append(missing, "LEADPIPE_BOTPRESS_CLIENT_ID")
	}
	return missing
}

// Enabled reports whether every required chat variable is set.
func (c ChatConfig) Enabled() bool {
	return len(c.Missing()) == 0
}

// DataDir returns the XDG data directory for leadpipe.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Load reads an optional .env file from the working directory and then the
// environment. A missing .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv builds the configuration from environment variables only.
func LoadFromEnv() *Config {
	webPort := 8080
	if val := os.Getenv("LEADPIPE_WEB_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			webPort = parsed
		}
	}

	latency := strings.ToLower(os.Getenv("LEADPIPE_LATENCY"))
	if latency != "off" {
		latency = "default"
	}

	logLevel := strings.ToLower(os.Getenv("LEADPIPE_LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}

	fixturesDir := os.Getenv("LEADPIPE_FIXTURES_DIR")
	if fixturesDir == "" {
		fixturesDir = filepath.Join(DataDir(), "fixtures")
	}

	exportPath := os.Getenv("LEADPIPE_EXPORT_PATH")
	if exportPath == "" {
		exportPath = filepath.Join(DataDir(), "export.db")
	}

	model := os.Getenv("LEADPIPE_OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Config{
		Chat: ChatConfig{
			BotID:        os.Getenv("LEADPIPE_BOTPRESS_BOT_ID"),
			HostURL:      os.Getenv("LEADPIPE_BOTPRESS_HOST_URL"),
			MessagingURL: os.Getenv("LEADPIPE_BOTPRESS_MESSAGING_URL"),
			ClientID:     os.Getenv("LEADPIPE_BOTPRESS_CLIENT_ID"),
		},
		Analyzer: AnalyzerConfig{
			URL:         os.Getenv("LEADPIPE_ANALYZE_URL"),
			OpenAIKey:   os.Getenv("LEADPIPE_OPENAI_API_KEY"),
			OpenAIBase:  os.Getenv("LEADPIPE_OPENAI_BASE_URL"),
			OpenAIModel: model,
		},
		FollowUpURL: os.Getenv("LEADPIPE_FOLLOWUP_URL"),
		LogLevel:    logLevel,
		Latency:     latency,
		WebPort:     webPort,
		FixturesDir: fixturesDir,
		ExportPath:  exportPath,
	}
}
