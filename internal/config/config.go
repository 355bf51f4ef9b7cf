package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "RESEARCH_PUBLISHER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	redisAddrEnv      = "REDIS_ADDR"
	llmProviderEnv    = "LLM_PROVIDER"
	llmModelEnv       = "LLM_MODEL"
	openAIKeyEnv      = "OPENAI_API_KEY"
	perplexityKeyEnv  = "PERPLEXITY_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	inferenceKeyEnv   = "INFERENCE_API_KEY"
	githubTokenEnv    = "GITHUB_TOKEN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	SeenStore     SeenStoreConfig    `yaml:"seenStore"`
	Redis         RedisConfig        `yaml:"redis"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Filters       FiltersConfig      `yaml:"filters"`
	LLM           LLMConfig          `yaml:"llm"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	Prompts       PromptsConfig      `yaml:"prompts"`
	Notifications NotificationConfig `yaml:"notifications"`
	GitHub        GitHubConfig       `yaml:"github"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the SQL store. Driver is sqlite or postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SeenStoreConfig picks where seen URLs live: sql, redis or memory.
type SeenStoreConfig struct {
	Backend string `yaml:"backend"`
}

// RedisConfig is used when the seen store backend is redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FiltersConfig groups the triage knobs.
type FiltersConfig struct {
	Relevance RelevanceConfig `yaml:"relevance"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Ranking   RankingConfig   `yaml:"ranking"`
}

// RelevanceConfig mirrors the relevance filter settings.
type RelevanceConfig struct {
	MaxAgeDays                int            `yaml:"maxAgeDays"`
	Keywords                  KeywordsConfig `yaml:"keywords"`
	Exclude                   []string       `yaml:"exclude"`
	EngagementBypassThreshold float64        `yaml:"engagementBypassThreshold"`
}

// KeywordsConfig splits keywords by editorial weight.
type KeywordsConfig struct {
	HighPriority []string `yaml:"highPriority"`
	General      []string `yaml:"general"`
}

// All returns high-priority keywords followed by general ones.
func (k KeywordsConfig) All() []string {
	return append(append([]string{}, k.HighPriority...), k.General...)
}

// DedupConfig tunes near-duplicate detection.
type DedupConfig struct {
	Threshold float64 `yaml:"threshold"`
	Method    string  `yaml:"method"`
}

// RankingConfig holds the composite score parameters.
type RankingConfig struct {
	Weights           WeightsConfig `yaml:"weights"`
	EngagementCeiling float64       `yaml:"engagementCeiling"`
}

// WeightsConfig must sum to 1.
type WeightsConfig struct {
	Recency        float64 `yaml:"recency"`
	SourcePriority float64 `yaml:"sourcePriority"`
	KeywordDensity float64 `yaml:"keywordDensity"`
	Engagement     float64 `yaml:"engagement"`
}

// LLMConfig defines how to contact the text-generation provider.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	SystemPrompt      string        `yaml:"systemPrompt"`
	Temperature       *float64      `yaml:"temperature"`
	MaxTokens         int           `yaml:"maxTokens"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	MaxRetries        int           `yaml:"maxRetries"`
	Timeout           time.Duration `yaml:"timeout"`
}

// AnalysisConfig describes the stage plan and how many candidates to process.
type AnalysisConfig struct {
	Stages       []StageConfig `yaml:"stages"`
	TopN         int           `yaml:"topN"`
	Concurrency  int           `yaml:"concurrency"`
	StageTimeout time.Duration `yaml:"stageTimeout"`
}

// StageConfig is one configured analysis stage.
type StageConfig struct {
	Name        string   `yaml:"name"`
	Template    string   `yaml:"template"`
	Optional    bool     `yaml:"optional"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"maxTokens"`
}

// PromptsConfig overrides or adds prompt templates by name.
type PromptsConfig struct {
	Templates map[string]string `yaml:"templates"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// GitHubConfig carries the optional API token for repository search.
type GitHubConfig struct {
	Token string `yaml:"token"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Priority   string            `yaml:"priority"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete endpoints to crawl (e.g., Arxiv category URLs, feed URLs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads .env and YAML configuration, applies environment overrides and validates.
// An empty path falls back to RESEARCH_PUBLISHER_CONFIG; no file at all means defaults.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Decode(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode unmarshals YAML over cfg, keeping values the document does not set.
func Decode(raw []byte, cfg *Config) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return yaml.Unmarshal(raw, cfg)
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Redis.Addr, redisAddrEnv)
	setString(&c.LLM.Provider, llmProviderEnv)
	setString(&c.LLM.Model, llmModelEnv)
	setString(&c.GitHub.Token, githubTokenEnv)
	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)
	setString(&c.Logging.Level, logLevelEnv)

	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "openai":
		setString(&c.LLM.APIKey, openAIKeyEnv)
	case "perplexity":
		setString(&c.LLM.APIKey, perplexityKeyEnv)
	case "anthropic":
		setString(&c.LLM.APIKey, anthropicKeyEnv)
	case "inference":
		setString(&c.LLM.APIKey, inferenceKeyEnv)
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler timezone %q: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch c.SeenStore.Backend {
	case "sql", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis seen store")
		}
	default:
		return fmt.Errorf("seenStore.backend must be sql, redis or memory, got %q", c.SeenStore.Backend)
	}

	switch c.LLM.Provider {
	case "openai", "perplexity", "anthropic", "inference":
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if c.LLM.Model == "" && c.LLM.Provider != "inference" {
		return errors.New("llm.model is required")
	}
	if c.LLM.RequestsPerMinute < 0 || c.LLM.MaxRetries < 0 {
		return errors.New("llm.requestsPerMinute and llm.maxRetries must not be negative")
	}
	if err := checkTemperature("llm.temperature", c.LLM.Temperature); err != nil {
		return err
	}

	if c.Filters.Relevance.MaxAgeDays <= 0 {
		return fmt.Errorf("filters.relevance.maxAgeDays must be positive, got %d", c.Filters.Relevance.MaxAgeDays)
	}
	if t := c.Filters.Dedup.Threshold; t <= 0 || t > 1 {
		return fmt.Errorf("filters.dedup.threshold must be in (0,1], got %v", t)
	}
	w := c.Filters.Ranking.Weights
	if sum := w.Recency + w.SourcePriority + w.KeywordDensity + w.Engagement; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("filters.ranking.weights must sum to 1, got %.4f", sum)
	}

	if c.Analysis.TopN <= 0 {
		return fmt.Errorf("analysis.topN must be positive, got %d", c.Analysis.TopN)
	}
	if c.Analysis.Concurrency <= 0 {
		return fmt.Errorf("analysis.concurrency must be positive, got %d", c.Analysis.Concurrency)
	}
	if len(c.Analysis.Stages) == 0 {
		return errors.New("analysis.stages must not be empty")
	}
	for _, stage := range c.Analysis.Stages {
		if err := checkTemperature("analysis.stages["+stage.Name+"].temperature", stage.Temperature); err != nil {
			return err
		}
	}

	for _, site := range c.Sites {
		if site.Name == "" || site.Scanner == "" {
			return fmt.Errorf("site %q: name and scanner are required", site.Name)
		}
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "file:research.db?_pragma=busy_timeout(5000)"},
		SeenStore: SeenStoreConfig{Backend: "sql"},
		Redis:     RedisConfig{Addr: "localhost:6379", Key: "research:seen_urls"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Filters: FiltersConfig{
			Relevance: RelevanceConfig{
				MaxAgeDays: 7,
				Keywords: KeywordsConfig{
					HighPriority: []string{"llm", "large language model", "transformer", "agent"},
					General:      []string{"machine learning", "inference", "fine-tuning", "retrieval", "benchmark"},
				},
				Exclude:                   []string{"crypto", "nft", "sponsored"},
				EngagementBypassThreshold: 100,
			},
			Dedup: DedupConfig{Threshold: 0.85, Method: "hybrid"},
			Ranking: RankingConfig{
				Weights:           WeightsConfig{Recency: 0.3, SourcePriority: 0.3, KeywordDensity: 0.2, Engagement: 0.2},
				EngagementCeiling: 500,
			},
		},
		LLM: LLMConfig{
			Provider:          "perplexity",
			Model:             "sonar-pro",
			Temperature:       float64Ptr(0.3),
			MaxTokens:         2000,
			RequestsPerMinute: 20,
			MaxRetries:        3,
			Timeout:           60 * time.Second,
		},
		Analysis: AnalysisConfig{
			Stages:       defaultStages(),
			TopN:         3,
			Concurrency:  1,
			StageTimeout: 60 * time.Second,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
		},
		Sites: []SiteConfig{
			{
				Name:     "arxiv",
				Scanner:  "arxiv",
				Priority: "high",
				Categories: []CategoryConfig{
					{Name: "cs.AI", URL: "https://export.arxiv.org/list/cs.AI/pastweek"},
					{Name: "cs.CL", URL: "https://export.arxiv.org/list/cs.CL/pastweek"},
				},
			},
			{
				Name:     "hackernews",
				Scanner:  "hackernews",
				Priority: "medium",
				Options:  map[string]string{"query": "LLM", "min_points": "20"},
			},
		},
	}
}

func checkTemperature(field string, t *float64) error {
	if t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("%s must be in [0,2], got %v", field, *t)
	}
	return nil
}

func float64Ptr(v float64) *float64 {
	return &v
}

func defaultStages() []StageConfig {
	stages := make([]StageConfig, 0, 7)
	for _, name := range []string{"fact_extraction", "engineer_summary", "impact_analysis", "application_mapping"} {
		stages = append(stages, StageConfig{Name: name, Optional: true})
	}
	return append(stages,
		StageConfig{Name: "blog_synthesis", MaxTokens: 3000},
		StageConfig{Name: "linkedin_formatting", MaxTokens: 500},
		StageConfig{Name: "credibility_check", Optional: true},
	)
}
