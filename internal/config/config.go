package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage strategies
const (
	StrategyFolder = "folder"
	StrategyShare  = "share"
	StrategyAuto   = "auto"
)

// Tree backends for the folder strategy
const (
	BackendLocal = "local"
	BackendR2    = "r2"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Storage struct {
		Strategy   string        `mapstructure:"strategy"`
		Backend    string        `mapstructure:"backend"`
		FolderPath string        `mapstructure:"folder_path"`
		LocalRoot  string        `mapstructure:"local_root"`
		CacheDir   string        `mapstructure:"cache_dir"`
		PresignTTL time.Duration `mapstructure:"presign_ttl"`
	} `mapstructure:"storage"`

	R2 struct {
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
		Prefix    string `mapstructure:"prefix"`
	} `mapstructure:"r2"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Assets struct {
		Timeout   time.Duration `mapstructure:"timeout"`
		TempDir   string        `mapstructure:"temp_dir"`
		MaxBytes  int64         `mapstructure:"max_bytes"`
		MaxPixels int           `mapstructure:"max_pixels"`
	} `mapstructure:"assets"`

	Timezone string `mapstructure:"timezone"`
}

// Load reads configuration and exits the process if it is unusable
func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	cfg, err := LoadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}
	return cfg
}

// LoadFile reads the optional YAML file at path, applies defaults and
// environment overrides, and validates the result.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	// Auto bind environment variables (storage.strategy -> STORAGE_STRATEGY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "challan_db")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "challan-backend")

	v.SetDefault("storage.strategy", StrategyAuto)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.folder_path", "Challans")
	v.SetDefault("storage.local_root", "data/documents")
	v.SetDefault("storage.cache_dir", os.TempDir())
	v.SetDefault("storage.presign_ttl", 24*time.Hour)

	v.SetDefault("r2.endpoint", "")
	v.SetDefault("r2.access_key", "")
	v.SetDefault("r2.secret_key", "")
	v.SetDefault("r2.bucket", "")
	v.SetDefault("r2.region", "auto")
	v.SetDefault("r2.prefix", "")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "redis")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("assets.timeout", 15*time.Second)
	v.SetDefault("assets.temp_dir", "")
	v.SetDefault("assets.max_bytes", 5<<20)
	v.SetDefault("assets.max_pixels", 600)

	v.SetDefault("timezone", "Asia/Karachi")
}

// applyEnv maps the deployment's conventional variable names onto the config
func applyEnv(cfg *Config) {
	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
		cfg.Database.Enabled = true
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	if host := os.Getenv("REDIS_SERVICE_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_SERVICE_PORT"); port != "" {
		cfg.Redis.Port = port
	}

	// R2 credentials only ever come from the environment or the config file
	if v := os.Getenv("R2_ENDPOINT"); v != "" {
		cfg.R2.Endpoint = v
	}
	if v := os.Getenv("R2_ACCESS_KEY_ID"); v != "" {
		cfg.R2.AccessKey = v
	}
	if v := os.Getenv("R2_SECRET_ACCESS_KEY"); v != "" {
		cfg.R2.SecretKey = v
	}
	if v := os.Getenv("R2_BUCKET"); v != "" {
		cfg.R2.Bucket = v
	}
}

// Validate rejects combinations the server cannot start with
func (c *Config) Validate() error {
	var problems []string

	if c.JWT.Secret == "" {
		problems = append(problems, "JWT_SECRET is not set")
	}

	switch c.Storage.Strategy {
	case StrategyFolder, StrategyShare, StrategyAuto:
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.strategy %q", c.Storage.Strategy))
	}

	switch c.Storage.Backend {
	case "", BackendLocal:
	case BackendR2:
		if !c.R2Configured() {
			problems = append(problems, "storage.backend is r2 but R2 endpoint, keys or bucket are missing")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.backend %q", c.Storage.Backend))
	}

	if c.Storage.Strategy == StrategyFolder && c.Storage.Backend == "" {
		problems = append(problems, "storage.strategy folder needs a storage.backend")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// R2Configured reports whether bucket credentials are present
func (c *Config) R2Configured() bool {
	return c.R2.Endpoint != "" && c.R2.AccessKey != "" && c.R2.SecretKey != "" && c.R2.Bucket != ""
}

// FolderSegments splits storage.folder_path into path segments
func (c *Config) FolderSegments() []string {
	var out []string
	for _, s := range strings.Split(c.Storage.FolderPath, "/") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RedisAddr returns host:port for the redis client
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// DatabaseURL builds the pgx connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
}
