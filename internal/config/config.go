package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "lister"

	// maxCredentialSlots 限制从环境变量扫描的凭证槽位数量。
	maxCredentialSlots = 64
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	envCreds, err := newCredentialEnv(v.GetString("app.env_file"))
	if err != nil {
		return nil, err
	}
	cfg.Credentials = overlayCredentials(cfg.Credentials, envCreds)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Credential 返回第 slot 个（从1开始）凭证槽位，越界时返回空凭证。
func (c *Config) Credential(slot int) CredentialConfig {
	if slot < 1 || slot > len(c.Credentials) {
		return CredentialConfig{}
	}
	return c.Credentials[slot-1]
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.env_file", ".env")

	v.SetDefault("exchange.base_url", "http://localhost:8081")
	v.SetDefault("exchange.timeout", "10s")

	v.SetDefault("run.rate_limit", 10)
	v.SetDefault("run.backoff_factor", 2)
	v.SetDefault("run.retry_attempts", 3)
	v.SetDefault("run.dry_run", true)

	v.SetDefault("input.orders_path", "data/Orders.csv")
	v.SetDefault("input.precision_path", "data/Precision.csv")

	v.SetDefault("database.path", "data/order_listing.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.port", 9108)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
