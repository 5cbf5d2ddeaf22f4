package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Schedule   string           `yaml:"schedule"`
	Videos     []string         `yaml:"videos"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Transcript TranscriptConfig `yaml:"transcript"`
	NLP        NLPConfig        `yaml:"nlp"`
	AI         AIConfig         `yaml:"ai"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Email      EmailConfig      `yaml:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Storage    StorageConfig    `yaml:"storage"`
}

type YouTubeConfig struct {
	APIKey       string   `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID     string   `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string   `yaml:"token_file"`
	Languages    []string `yaml:"languages"`
}

// HasOAuth reports whether an OAuth client is configured. Caption download
// through the Data API only works with an authorized client.
func (y YouTubeConfig) HasOAuth() bool {
	return y.ClientID != "" && y.ClientSecret != ""
}

type TranscriptConfig struct {
	Strategies        []string      `yaml:"strategies"`
	StrategyTimeout   time.Duration `yaml:"strategy_timeout"`
	MinChars          int           `yaml:"min_chars"`
	WatchURL          string        `yaml:"watch_url"`
	YtDlpPath         string        `yaml:"ytdlp_path"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	UserAgent         string        `yaml:"user_agent"`
}

type NLPConfig struct {
	Hesitations         []string `yaml:"hesitations"`
	FillerPhrases       []string `yaml:"filler_phrases"`
	LeadingFillers      []string `yaml:"leading_fillers"`
	StopWordPolicy      string   `yaml:"stop_word_policy"`
	StopWords           []string `yaml:"stop_words"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	MinDedupeWords      int      `yaml:"min_dedupe_words"`
	DedupeWindow        int      `yaml:"dedupe_window"`
}

type AIConfig struct {
	Provider           string        `yaml:"provider"`
	GeminiAPIKey       string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	APIKey             string        `yaml:"api_key" env:"LLM_API_KEY"`
	BaseURL            string        `yaml:"base_url"`
	Model              string        `yaml:"model"`
	Timeout            time.Duration `yaml:"timeout"`
	Temperature        float64       `yaml:"temperature"`
	MaxOutputTokens    int           `yaml:"max_output_tokens"`
	MaxTranscriptChars int           `yaml:"max_transcript_chars"`
}

type PipelineConfig struct {
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

// Enabled reports whether digests should be emailed at all.
func (e EmailConfig) Enabled() bool {
	return e.ToEmail != ""
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

type StorageConfig struct {
	DataDir   string        `yaml:"data_dir"`
	Retention time.Duration `yaml:"retention"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	StopWordsConservative = "conservative"
	StopWordsStandard     = "standard"
	StopWordsOff          = "off"
)

// Load reads .env, the YAML file named by CONFIG_FILE (default config.yaml),
// applies environment overrides and defaults, and validates the result.
// A missing config file is not an error: defaults and environment apply.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	return LoadFile(configFile)
}

// LoadFile is Load without the .env step, for an explicit path.
func LoadFile(configFile string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using defaults and environment", configFile)
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("LLM_API_KEY")
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
}

func (c *Config) applyDefaults() {
	if c.Schedule == "" {
		c.Schedule = "0 0 9 * * *" // Daily at 9 AM
	}

	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if len(c.YouTube.Languages) == 0 {
		c.YouTube.Languages = []string{"en", "en-US", "en-GB"}
	}

	if len(c.Transcript.Strategies) == 0 {
		c.Transcript.Strategies = []string{"timedtext", "data_api", "ytdlp"}
	}
	if c.Transcript.StrategyTimeout <= 0 {
		c.Transcript.StrategyTimeout = 20 * time.Second
	}
	if c.Transcript.WatchURL == "" {
		c.Transcript.WatchURL = "https://www.youtube.com/watch"
	}
	if c.Transcript.YtDlpPath == "" {
		c.Transcript.YtDlpPath = "yt-dlp"
	}
	if c.Transcript.RequestsPerSecond <= 0 {
		c.Transcript.RequestsPerSecond = 2
	}
	if c.Transcript.UserAgent == "" {
		c.Transcript.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}

	c.NLP.StopWordPolicy = strings.ToLower(strings.TrimSpace(c.NLP.StopWordPolicy))
	if c.NLP.StopWordPolicy == "" {
		c.NLP.StopWordPolicy = StopWordsConservative
	}
	if c.NLP.SimilarityThreshold <= 0 {
		c.NLP.SimilarityThreshold = 0.85
	}
	if c.NLP.MinDedupeWords <= 0 {
		c.NLP.MinDedupeWords = 4
	}
	if c.NLP.DedupeWindow <= 0 {
		c.NLP.DedupeWindow = 200
	}

	if c.AI.Provider == "" {
		c.AI.Provider = ProviderGemini
	}
	if c.AI.Model == "" {
		if c.AI.Provider == ProviderOpenAI {
			c.AI.Model = "llama-3.3-70b-versatile"
		} else {
			c.AI.Model = "gemini-2.5-flash"
		}
	}
	if c.AI.Provider == ProviderOpenAI && c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 90 * time.Second
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.7
	}
	if c.AI.MaxOutputTokens <= 0 {
		c.AI.MaxOutputTokens = 4096
	}
	if c.AI.MaxTranscriptChars <= 0 {
		c.AI.MaxTranscriptChars = 30000
	}

	if c.Pipeline.ExtractTimeout <= 0 {
		c.Pipeline.ExtractTimeout = 90 * time.Second
	}

	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}

	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.Retention <= 0 {
		c.Storage.Retention = 7 * 24 * time.Hour
	}
}

var knownStrategies = map[string]bool{"timedtext": true, "data_api": true, "ytdlp": true}

func (c *Config) validate() error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	for _, name := range c.Transcript.Strategies {
		if !knownStrategies[name] {
			return fmt.Errorf("unknown transcript strategy %q (want timedtext, data_api or ytdlp)", name)
		}
	}

	switch c.AI.Provider {
	case ProviderGemini:
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
		}
	case ProviderOpenAI:
		if c.AI.APIKey == "" {
			return fmt.Errorf("LLM API key is required (set LLM_API_KEY, GROQ_API_KEY or ai.api_key)")
		}
	default:
		return fmt.Errorf("unknown ai.provider %q (want %s or %s)", c.AI.Provider, ProviderGemini, ProviderOpenAI)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got %v", c.AI.Temperature)
	}

	switch c.NLP.StopWordPolicy {
	case StopWordsConservative, StopWordsStandard, StopWordsOff:
	default:
		return fmt.Errorf("unknown nlp.stop_word_policy %q", c.NLP.StopWordPolicy)
	}
	if c.NLP.SimilarityThreshold > 1 {
		return fmt.Errorf("nlp.similarity_threshold must be at most 1, got %v", c.NLP.SimilarityThreshold)
	}

	return nil
}

// ValidateEmail checks the SMTP settings needed to send digests.
func (c *Config) ValidateEmail() error {
	if !c.Email.Enabled() {
		return nil
	}
	if c.Email.SMTPServer == "" {
		return fmt.Errorf("SMTP server is required when email.to_email is set")
	}
	if c.Email.Username == "" {
		return fmt.Errorf("Email username is required (set EMAIL_USERNAME or email.username)")
	}
	if c.Email.Password == "" {
		return fmt.Errorf("Email password is required (set EMAIL_PASSWORD or email.password)")
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = c.Email.Username
	}
	return nil
}
