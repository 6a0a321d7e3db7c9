// backend-go/internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Inventory InventoryConfig
	Cache     CacheConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// InventoryConfig selects the record source and the summary defaults.
type InventoryConfig struct {
	Source             string
	CSVPath            string
	Table              string
	CategoryGroupsFile string
	TopN               int
	Shards             int
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int

	// WarmCron recomputes the default summary on this schedule when WarmEnabled.
	WarmEnabled bool
	WarmCron    string
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "inventory")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("INVENTORY_SOURCE", SourceCSV)
	viper.SetDefault("INVENTORY_CSV_PATH", "./data/inventory_clean.csv")
	viper.SetDefault("INVENTORY_TABLE", "inventory_items")
	viper.SetDefault("CATEGORY_GROUPS_FILE", "")
	viper.SetDefault("SUMMARY_TOP_N", 10)
	viper.SetDefault("SUMMARY_SHARDS", 1)
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 60)
	viper.SetDefault("CACHE_WARM_ENABLED", false)
	viper.SetDefault("CACHE_WARM_CRON", "*/5 * * * *")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
}

// Load reads the configuration once from the environment and an optional .env file.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		setDefaults()
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),

				RateLimitEnabled: viper.GetBool("RATE_LIMIT_ENABLED"),
				RateLimitRPS:     viper.GetFloat64("RATE_LIMIT_RPS"),
				RateLimitBurst:   viper.GetInt("RATE_LIMIT_BURST"),
			},
			Database: DatabaseConfig{
				Driver:   viper.GetString("DB_DRIVER"),
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Inventory: InventoryConfig{
				Source:             strings.ToLower(strings.TrimSpace(viper.GetString("INVENTORY_SOURCE"))),
				CSVPath:            viper.GetString("INVENTORY_CSV_PATH"),
				Table:              viper.GetString("INVENTORY_TABLE"),
				CategoryGroupsFile: viper.GetString("CATEGORY_GROUPS_FILE"),
				TopN:               viper.GetInt("SUMMARY_TOP_N"),
				Shards:             viper.GetInt("SUMMARY_SHARDS"),
			},
			Cache: CacheConfig{
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				SummaryTTLSeconds: viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
				WarmEnabled:       viper.GetBool("CACHE_WARM_ENABLED"),
				WarmCron:          viper.GetString("CACHE_WARM_CRON"),
			},
			Log: LogConfig{
				Level:  viper.GetString("LOG_LEVEL"),
				Format: viper.GetString("LOG_FORMAT"),
			},
		}
	})

	return instance
}

// Validate reports configuration values the programs cannot run with.
func (c *Config) Validate() error {
	switch c.Inventory.Source {
	case SourceCSV:
		if strings.TrimSpace(c.Inventory.CSVPath) == "" {
			return fmt.Errorf("INVENTORY_CSV_PATH is required when INVENTORY_SOURCE=%s", SourceCSV)
		}
	case SourcePostgres:
		if strings.TrimSpace(c.Inventory.Table) == "" {
			return fmt.Errorf("INVENTORY_TABLE is required when INVENTORY_SOURCE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown INVENTORY_SOURCE %q (want %s or %s)", c.Inventory.Source, SourceCSV, SourcePostgres)
	}

	if c.Inventory.TopN < 0 {
		return fmt.Errorf("SUMMARY_TOP_N must not be negative, got %d", c.Inventory.TopN)
	}
	if c.Inventory.Shards < 1 {
		return fmt.Errorf("SUMMARY_SHARDS must be at least 1, got %d", c.Inventory.Shards)
	}

	if c.Server.RateLimitEnabled && c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive when rate limiting is enabled")
	}
	if c.Cache.WarmEnabled && strings.TrimSpace(c.Cache.WarmCron) == "" {
		return fmt.Errorf("CACHE_WARM_CRON is required when CACHE_WARM_ENABLED=true")
	}

	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	return nil
}

// LoadCategoryGroups reads the category_groups list from a YAML, JSON or TOML file.
// An empty path yields no groups.
func LoadCategoryGroups(path string) ([]domain.CategoryGroup, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read category groups %s: %w", path, err)
	}

	var groups []domain.CategoryGroup
	if err := v.UnmarshalKey("category_groups", &groups); err != nil {
		return nil, fmt.Errorf("decode category groups %s: %w", path, err)
	}
	return groups, nil
}
