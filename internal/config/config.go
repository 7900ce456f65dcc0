// internal/config/config.go
package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Cache    CacheConfig
	Archive  ArchiveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// EngineConfig holds the replenishment policy knobs. These are policy, not
// architecture: defaults match ops practice but every tenant deployment can
// override them through the environment.
type EngineConfig struct {
	WindowDays            int     // trailing sales window length
	ProjectionHorizonDays int     // demand projection horizon
	CriticalThresholdDays float64 // days of supply below which urgency is critical
	HighThresholdDays     float64
	MediumThresholdDays   float64
	SafetyStockFactor     float64 // proportional buffer on projected demand
	MinOrderSample        int     // distinct orders needed to trust a velocity estimate
	DaysOfSupplyCap       float64 // sentinel for zero-velocity variants
	MaxConcurrentReads    int
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	RankedTTLSeconds int
}

// ArchiveConfig configures optional CSV snapshot uploads to S3-compatible storage.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "replenish")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("ENGINE_WINDOW_DAYS", 30)
		viper.SetDefault("ENGINE_PROJECTION_HORIZON_DAYS", 30)
		viper.SetDefault("ENGINE_CRITICAL_THRESHOLD_DAYS", 7.0)
		viper.SetDefault("ENGINE_HIGH_THRESHOLD_DAYS", 14.0)
		viper.SetDefault("ENGINE_MEDIUM_THRESHOLD_DAYS", 30.0)
		viper.SetDefault("ENGINE_SAFETY_STOCK_FACTOR", 0.20)
		viper.SetDefault("ENGINE_MIN_ORDER_SAMPLE", 3)
		viper.SetDefault("ENGINE_DAYS_OF_SUPPLY_CAP", 9999.0)
		viper.SetDefault("ENGINE_MAX_CONCURRENT_READS", 4)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_RANKED_TTL_SECONDS", 60)
		viper.SetDefault("ARCHIVE_ENABLED", false)
		viper.SetDefault("ARCHIVE_ENDPOINT", "")
		viper.SetDefault("ARCHIVE_ACCESS_KEY", "")
		viper.SetDefault("ARCHIVE_SECRET_KEY", "")
		viper.SetDefault("ARCHIVE_BUCKET", "replenish-snapshots")
		viper.SetDefault("ARCHIVE_REGION", "us-east-1")
		viper.SetDefault("ARCHIVE_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Engine: EngineConfig{
				WindowDays:            viper.GetInt("ENGINE_WINDOW_DAYS"),
				ProjectionHorizonDays: viper.GetInt("ENGINE_PROJECTION_HORIZON_DAYS"),
				CriticalThresholdDays: viper.GetFloat64("ENGINE_CRITICAL_THRESHOLD_DAYS"),
				HighThresholdDays:     viper.GetFloat64("ENGINE_HIGH_THRESHOLD_DAYS"),
				MediumThresholdDays:   viper.GetFloat64("ENGINE_MEDIUM_THRESHOLD_DAYS"),
				SafetyStockFactor:     viper.GetFloat64("ENGINE_SAFETY_STOCK_FACTOR"),
				MinOrderSample:        viper.GetInt("ENGINE_MIN_ORDER_SAMPLE"),
				DaysOfSupplyCap:       viper.GetFloat64("ENGINE_DAYS_OF_SUPPLY_CAP"),
				MaxConcurrentReads:    viper.GetInt("ENGINE_MAX_CONCURRENT_READS"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				RankedTTLSeconds: viper.GetInt("CACHE_RANKED_TTL_SECONDS"),
			},
			Archive: ArchiveConfig{
				Enabled:   viper.GetBool("ARCHIVE_ENABLED"),
				Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
				AccessKey: viper.GetString("ARCHIVE_ACCESS_KEY"),
				SecretKey: viper.GetString("ARCHIVE_SECRET_KEY"),
				Bucket:    viper.GetString("ARCHIVE_BUCKET"),
				Region:    viper.GetString("ARCHIVE_REGION"),
				UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
			},
		}
	})

	return instance
}

// Validate checks engine policy values that would otherwise poison every
// downstream calculation. A zero or negative window is a configuration error,
// never a per-variant condition.
func (c *EngineConfig) Validate() error {
	if c.WindowDays <= 0 {
		return fmt.Errorf("engine window days must be positive, got %d", c.WindowDays)
	}
	if c.ProjectionHorizonDays <= 0 {
		return fmt.Errorf("engine projection horizon must be positive, got %d", c.ProjectionHorizonDays)
	}
	if c.CriticalThresholdDays > c.HighThresholdDays || c.HighThresholdDays > c.MediumThresholdDays {
		return fmt.Errorf("engine urgency thresholds must be ordered: critical(%v) <= high(%v) <= medium(%v)",
			c.CriticalThresholdDays, c.HighThresholdDays, c.MediumThresholdDays)
	}
	if c.SafetyStockFactor < 0 {
		return fmt.Errorf("engine safety stock factor must not be negative, got %v", c.SafetyStockFactor)
	}
	if c.DaysOfSupplyCap <= 0 {
		return fmt.Errorf("engine days of supply cap must be positive, got %v", c.DaysOfSupplyCap)
	}
	if c.MaxConcurrentReads <= 0 {
		return fmt.Errorf("engine max concurrent reads must be positive, got %d", c.MaxConcurrentReads)
	}
	return nil
}
