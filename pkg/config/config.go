package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Engine    EngineConfig
	Ingestion IngestionConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Narrative NarrativeConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

// EngineConfig points at the theme lexicon and sector weight tables. Empty paths
// select the embedded defaults.
type EngineConfig struct {
	LexiconPath string
	WeightsPath string
	ClampScores bool
	Workers     int
	// MaxTextLength bounds a single text unit accepted over the API, in bytes.
	MaxTextLength int
}

type IngestionConfig struct {
	TimeoutSec        int
	UserAgent         string
	MaxAttempts       int
	ReviewSelector    string
	RatingAttr        string
	AllowPrivateHosts bool
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// NarrativeConfig enables the model-written briefing in batch reports.
type NarrativeConfig struct {
	Enabled     bool
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	TimeoutSec  int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the given config file, or searches the default locations when path is empty.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/assessment")
	}

	v.SetEnvPrefix("ASSESSMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 10485760)
	v.SetDefault("server.development", false)

	v.SetDefault("sqlite.path", "./data/assessment.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 3600)

	v.SetDefault("engine.lexiconPath", "")
	v.SetDefault("engine.weightsPath", "")
	v.SetDefault("engine.clampScores", false)
	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.maxTextLength", 20000)

	v.SetDefault("ingestion.timeoutSec", 15)
	v.SetDefault("ingestion.userAgent", "assessment-bot/1.0")
	v.SetDefault("ingestion.maxAttempts", 3)
	v.SetDefault("ingestion.reviewSelector", ".review, [itemprop=review]")
	v.SetDefault("ingestion.ratingAttr", "data-rating")
	v.SetDefault("ingestion.allowPrivateHosts", false)

	v.SetDefault("rateLimit.requestsPerMinute", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("narrative.enabled", false)
	v.SetDefault("narrative.apiKey", "")
	v.SetDefault("narrative.model", "gpt-4o-mini")
	v.SetDefault("narrative.baseURL", "")
	v.SetDefault("narrative.temperature", 0.2)
	v.SetDefault("narrative.maxTokens", 400)
	v.SetDefault("narrative.timeoutSec", 30)
}
