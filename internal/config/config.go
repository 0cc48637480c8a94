package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultStorageLimit is the per-user byte ceiling applied when no per-user
// override is stored: 2 GiB.
const DefaultStorageLimit int64 = 2 * 1024 * 1024 * 1024

type DatabaseConf struct {
	// Dsn must include parseTime=true so timestamp columns scan into time.Time.
	Dsn string `mapstructure:"dsn"`
}

type ObjectStorageConf struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseTls    bool   `mapstructure:"use_tls"`
}

type AuthConf struct {
	// JwtSecret is the HS256 signing secret shared with the identity service.
	JwtSecret string `mapstructure:"jwt_secret"`

	// AdminUserId is the single configured admin identity allowed to set
	// other users' storage limits.
	AdminUserId int64 `mapstructure:"admin_user_id"`
}

type QuotaConf struct {
	// DefaultLimit is the fallback byte ceiling; 0 means DefaultStorageLimit.
	DefaultLimit int64 `mapstructure:"default_limit"`
}

type Config struct {
	Database      DatabaseConf      `mapstructure:"database"`
	ObjectStorage ObjectStorageConf `mapstructure:"object_storage"`
	Auth          AuthConf          `mapstructure:"auth"`
	Quota         QuotaConf         `mapstructure:"quota"`
	Log           struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Load reads the yaml config file at path, applying LUMAPIX_* environment
// variable overrides, and returns the populated Config.
func Load(path string) (*Config, error) {

	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("lumapix")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("quota.default_limit", DefaultStorageLimit)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if cfg.Quota.DefaultLimit <= 0 {
		cfg.Quota.DefaultLimit = DefaultStorageLimit
	}

	return &cfg, nil
}
