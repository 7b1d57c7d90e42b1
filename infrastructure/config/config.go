package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress  string        `yaml:"server_address"`
	Environment    string        `yaml:"environment"`
	LogLevel       string        `yaml:"log_level"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Authentication
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Storage
	StoreBackend    string `yaml:"store_backend"` // memory, sqlite, dynamodb
	SQLitePath      string `yaml:"sqlite_path"`
	SearchIndexPath string `yaml:"search_index_path"` // empty keeps the index in memory
	AWSRegion       string `yaml:"aws_region"`
	DynamoDBTable   string `yaml:"dynamodb_table"`
	EventBusName    string `yaml:"event_bus_name"` // empty logs events instead of publishing

	// LLM
	LLMProvider          string        `yaml:"llm_provider"` // anthropic, openai, local
	LLMModel             string        `yaml:"llm_model"`
	AnthropicAPIKey      string        `yaml:"anthropic_api_key"`
	OpenAIAPIKey         string        `yaml:"openai_api_key"`
	OpenAIBaseURL        string        `yaml:"openai_base_url"`
	LLMTimeout           time.Duration `yaml:"llm_timeout"`
	LLMMaxTokens         int           `yaml:"llm_max_tokens"`
	LLMRequestsPerSecond float64       `yaml:"llm_requests_per_second"`

	// Extraction
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	MaxFetchBytes  int64         `yaml:"max_fetch_bytes"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	UserAgent      string        `yaml:"user_agent"`

	// Pipeline
	BatchConcurrency      int           `yaml:"batch_concurrency"`
	BackgroundWorkers     int           `yaml:"background_workers"`
	BackgroundQueueSize   int           `yaml:"background_queue_size"`
	BackgroundTaskTimeout time.Duration `yaml:"background_task_timeout"`

	// Rate limiting (per client IP)
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// Observability
	EnableMetrics    bool    `yaml:"enable_metrics"`
	OTLPEndpoint     string  `yaml:"otlp_endpoint"`
	ServiceName      string  `yaml:"service_name"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`

	// FilePath is the YAML file the config was read from, if any.
	FilePath string `yaml:"-"`
}

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderLocal     = "local"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerAddress:  ":8080",
		Environment:    "development",
		LogLevel:       "info",
		AllowedOrigins: []string{"*"},
		RequestTimeout: 60 * time.Second,

		JWTIssuer: "eden-backend",

		StoreBackend:  StoreMemory,
		SQLitePath:    "eden.db",
		AWSRegion:     "us-west-2",
		DynamoDBTable: "eden",

		LLMProvider:          ProviderLocal,
		LLMTimeout:           30 * time.Second,
		LLMMaxTokens:         1024,
		LLMRequestsPerSecond: 5,

		FetchTimeout:   15 * time.Second,
		MaxFetchBytes:  5 << 20,
		MaxUploadBytes: 20 << 20,
		UserAgent:      "Mozilla/5.0 (compatible; EdenBot/1.0; +https://eden.local)",

		BatchConcurrency:      3,
		BackgroundWorkers:     2,
		BackgroundQueueSize:   100,
		BackgroundTaskTimeout: 2 * time.Minute,

		RateLimitRPS:   10,
		RateLimitBurst: 30,

		EnableMetrics:    true,
		ServiceName:      "eden-backend",
		TraceSampleRatio: 1.0,
	}
}

// LoadConfig loads configuration: defaults, then the YAML file named by
// EDEN_CONFIG_FILE (if set), then environment variables.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("EDEN_CONFIG_FILE"))
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when empty) and environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.FilePath = path
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)

	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.SearchIndexPath = getEnv("SEARCH_INDEX_PATH", c.SearchIndexPath)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.LLMTimeout = getEnvDuration("LLM_TIMEOUT", c.LLMTimeout)
	c.LLMMaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLMMaxTokens)
	c.LLMRequestsPerSecond = getEnvFloat("LLM_REQUESTS_PER_SECOND", c.LLMRequestsPerSecond)

	c.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.MaxFetchBytes = int64(getEnvInt("MAX_FETCH_BYTES", int(c.MaxFetchBytes)))
	c.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)

	c.BatchConcurrency = getEnvInt("BATCH_CONCURRENCY", c.BatchConcurrency)
	c.BackgroundWorkers = getEnvInt("BACKGROUND_WORKERS", c.BackgroundWorkers)
	c.BackgroundQueueSize = getEnvInt("BACKGROUND_QUEUE_SIZE", c.BackgroundQueueSize)
	c.BackgroundTaskTimeout = getEnvDuration("BACKGROUND_TASK_TIMEOUT", c.BackgroundTaskTimeout)

	c.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.ServiceName = getEnv("OTEL_SERVICE_NAME", c.ServiceName)
	c.TraceSampleRatio = getEnvFloat("TRACE_SAMPLE_RATIO", c.TraceSampleRatio)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite, StoreDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI, ProviderLocal:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.BatchConcurrency < 1 || c.BatchConcurrency > 16 {
		return fmt.Errorf("BATCH_CONCURRENCY must be between 1 and 16, got %d", c.BatchConcurrency)
	}
	if c.BackgroundWorkers < 1 || c.BackgroundQueueSize < 1 {
		return fmt.Errorf("background workers and queue size must be positive")
	}
	if c.MaxFetchBytes <= 0 || c.MaxUploadBytes <= 0 {
		return fmt.Errorf("fetch and upload size limits must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.StoreBackend == StoreDynamoDB && c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
	}
	if c.LLMProvider == ProviderAnthropic && c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
	}
	if c.LLMProvider == ProviderOpenAI && c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
		return fmt.Errorf("OPENAI_API_KEY or OPENAI_BASE_URL is required for the openai provider")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
