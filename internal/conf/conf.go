package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Telegram transport configuration
	Telegram TelegramConfig

	// Campaign cache configuration
	Cache CacheConfig

	// LLM provider configuration
	Providers ProvidersConfig

	// Dispatcher behavior configuration
	Engine EngineConfig

	// Storage configuration
	Store StoreConfig

	// Metrics listener address; empty disables the listener
	MetricsAddr string

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// Debug mode
	Debug bool
}

// TelegramConfig contains Telegram transport configuration. Session
// material is picked in order: opaque string, base64 string, file path.
type TelegramConfig struct {
	APIID            int
	APIHash          string
	Phone            string
	SessionString    string
	SessionStringB64 string
	SessionFile      string
	PeersCacheFile   string
}

// CacheConfig contains campaign cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// ProvidersConfig contains LLM provider configuration
type ProvidersConfig struct {
	Default     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32

	OpenAIKey     string
	OpenAIModel   string
	DeepSeekKey   string
	DeepSeekModel string
	MoonshotKey   string
	MoonshotModel string
}

// EngineConfig contains dispatcher behavior configuration
type EngineConfig struct {
	ShutdownDrain   time.Duration
	ContextDepthMax int
	ActivationText  string
}

// StoreConfig contains storage configuration
type StoreConfig struct {
	DBPath string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Data directory for the campaign DB and peer cache
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		homeDir, _ := os.UserHomeDir()
		dataDir = filepath.Join(homeDir, ".campaign-engine")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "engine.db")
	}

	peersCacheFile := os.Getenv("PEERS_CACHE_FILE")
	if peersCacheFile == "" {
		peersCacheFile = filepath.Join(dataDir, "peers.db")
	}

	// Load prompts from YAML
	promptsConfig, _ := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))

	return &Config{
		Telegram: TelegramConfig{
			APIID:            envInt("TELEGRAM_API_ID", 0),
			APIHash:          os.Getenv("TELEGRAM_API_HASH"),
			Phone:            os.Getenv("TELEGRAM_PHONE"),
			SessionString:    os.Getenv("SESSION_STRING"),
			SessionStringB64: os.Getenv("SESSION_STRING_B64"),
			SessionFile:      os.Getenv("SESSION_FILE"),
			PeersCacheFile:   peersCacheFile,
		},
		Cache: CacheConfig{
			TTL: time.Duration(envInt("CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		Providers: ProvidersConfig{
			Default:       envStr("DEFAULT_PROVIDER", "openai"),
			Timeout:       time.Duration(envInt("PROVIDER_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxTokens:     envInt("PROVIDER_MAX_TOKENS", 512),
			Temperature:   0.7,
			OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:   os.Getenv("OPENAI_MODEL"),
			DeepSeekKey:   os.Getenv("DEEPSEEK_API_KEY"),
			DeepSeekModel: os.Getenv("DEEPSEEK_MODEL"),
			MoonshotKey:   os.Getenv("MOONSHOT_API_KEY"),
			MoonshotModel: os.Getenv("MOONSHOT_MODEL"),
		},
		Engine: EngineConfig{
			ShutdownDrain:   time.Duration(envInt("SHUTDOWN_DRAIN_SECONDS", 10)) * time.Second,
			ContextDepthMax: envInt("CONTEXT_DEPTH_MAX", 50),
			ActivationText:  os.Getenv("ACTIVATION_TEXT"),
		},
		Store: StoreConfig{
			DBPath: dbPath,
		},
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		Prompts:     promptsConfig,
		Debug:       os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 || c.Telegram.APIHash == "" {
		return &ConfigError{Field: "TELEGRAM_API_ID/TELEGRAM_API_HASH", Message: "required"}
	}
	if c.Telegram.SessionString == "" && c.Telegram.SessionStringB64 == "" && c.Telegram.SessionFile == "" {
		return &ConfigError{Field: "SESSION_STRING/SESSION_STRING_B64/SESSION_FILE", Message: "one of them is required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envInt(name string, def int) int {
	if val := os.Getenv(name); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envStr(name, def string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return def
}
