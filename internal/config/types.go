package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了一次批量下单运行所需的全部配置项。
type Config struct {
	App         AppConfig          `mapstructure:"app"`
	Exchange    ExchangeConfig     `mapstructure:"exchange"`
	Run         RunConfig          `mapstructure:"run"`
	Input       InputConfig        `mapstructure:"input"`
	Credentials []CredentialConfig `mapstructure:"credentials"`
	Database    DatabaseConfig     `mapstructure:"database"`
	Logging     LoggingConfig      `mapstructure:"logging"`
	Monitor     MonitorConfig      `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ExchangeConfig 描述交易所连接信息。
type ExchangeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RunConfig 控制单次运行的节奏与重试，运行期间不可变。
type RunConfig struct {
	RateLimit     float64 `mapstructure:"rate_limit"`
	BackoffFactor float64 `mapstructure:"backoff_factor"`
	RetryAttempts int     `mapstructure:"retry_attempts"`
	DryRun        bool    `mapstructure:"dry_run"`
}

// InputConfig 指定订单表与精度表的位置。
type InputConfig struct {
	OrdersPath    string `mapstructure:"orders_path"`
	PrecisionPath string `mapstructure:"precision_path"`
}

// CredentialConfig 为单个账户的 API 凭证，按精度表行号对应。
type CredentialConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Account   string `mapstructure:"account"`
}

// Complete 判断凭证三元组是否齐全。
func (c CredentialConfig) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.Account != ""
}

// DatabaseConfig 管理审计日志数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MonitorConfig 控制审计事件与指标的 HTTP 暴露。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Exchange.BaseURL == "" {
		err = multierr.Append(err, errors.New("exchange.base_url 不能为空"))
	} else if u, parseErr := url.Parse(c.Exchange.BaseURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("exchange.base_url 无效: %q", c.Exchange.BaseURL))
	}
	if c.Exchange.Timeout <= 0 {
		err = multierr.Append(err, errors.New("exchange.timeout 必须大于0"))
	}
	if c.Run.RateLimit <= 0 {
		err = multierr.Append(err, errors.New("run.rate_limit 必须大于0"))
	}
	if c.Run.BackoffFactor < 1 {
		err = multierr.Append(err, errors.New("run.backoff_factor 不能小于1"))
	}
	if c.Run.RetryAttempts < 1 {
		err = multierr.Append(err, errors.New("run.retry_attempts 至少为1"))
	}
	if c.Input.OrdersPath == "" {
		err = multierr.Append(err, errors.New("input.orders_path 不能为空"))
	}
	if c.Input.PrecisionPath == "" {
		err = multierr.Append(err, errors.New("input.precision_path 不能为空"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于[1,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
