// Package config 加载命令行参数、配置文件与环境变量
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"matchbook/logger"
)

// EnvPrefix environment overrides look like MATCHBOOK_OUTPUT_FORMAT=json
const EnvPrefix = "MATCHBOOK"

// Config 应用配置
type Config struct {
	// 订单文件路径
	Input  string        `mapstructure:"input"`
	Output OutputConfig  `mapstructure:"output"`
	Log    logger.Config `mapstructure:"log"`
	Kafka  KafkaConfig   `mapstructure:"kafka"`
	// Prometheus 配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	Engine  EngineConfig  `mapstructure:"engine"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// text or json
	Format string `mapstructure:"format"`
	// print the resting book after the input is drained
	Book bool `mapstructure:"book"`
	// levels per side, 0 = all
	Depth int `mapstructure:"depth"`
}

// KafkaConfig trade stream sink
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// listen address for /metrics, empty disables the server
	Addr string `mapstructure:"addr"`
	// write the text exposition to stderr on exit
	Dump bool `mapstructure:"dump"`
}

// EngineConfig 撮合引擎配置
type EngineConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// Load parses args (without the program name), an optional --config file and
// MATCHBOOK_* environment variables. Flags win over env, env over file. A single
// positional argument is taken as the input path.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("matchbook", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "config file (toml, yaml or json)")
	fs.StringP("input", "i", "", "order file, one orderId,quantity,price,side per line")
	fs.StringP("format", "f", "text", "trade and book output format: text or json")
	fs.Bool("book", false, "print the final order book")
	fs.Int("depth", 0, "levels per side in the final book, 0 for all")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("log-output", "stderr", "log output: stderr, stdout, file, both")
	fs.String("log-file", "logs/matchbook.log", "log file path when log output is file or both")
	fs.Bool("kafka", false, "publish trades to kafka")
	fs.StringSlice("kafka-brokers", nil, "kafka broker addresses")
	fs.String("kafka-topic", "trades", "kafka topic for trades")
	fs.Duration("kafka-batch-timeout", 10*time.Millisecond, "kafka writer batch timeout")
	fs.String("metrics-addr", "", "serve prometheus metrics on this address")
	fs.Bool("metrics-dump", false, "write metrics to stderr on exit")
	fs.Int("queue-size", 1024, "engine command queue size")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	bindings := map[string]string{
		"input":               "input",
		"output.format":       "format",
		"output.book":         "book",
		"output.depth":        "depth",
		"log.level":           "log-level",
		"log.format":          "log-format",
		"log.output":          "log-output",
		"log.file_path":       "log-file",
		"kafka.enabled":       "kafka",
		"kafka.brokers":       "kafka-brokers",
		"kafka.topic":         "kafka-topic",
		"kafka.batch_timeout": "kafka-batch-timeout",
		"metrics.addr":        "metrics-addr",
		"metrics.dump":        "metrics-dump",
		"engine.queue_size":   "queue-size",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected at most one input path, got %d arguments", fs.NArg())
	}
	if fs.NArg() == 1 && !fs.Changed("input") {
		v.Set("input", fs.Arg(0))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	l := logger.DefaultConfig()
	v.SetDefault("output.format", "text")
	v.SetDefault("output.book", false)
	v.SetDefault("output.depth", 0)
	v.SetDefault("log.level", l.Level)
	v.SetDefault("log.format", l.Format)
	v.SetDefault("log.output", l.Output)
	v.SetDefault("log.file_path", l.FilePath)
	v.SetDefault("log.max_size", l.MaxSize)
	v.SetDefault("log.max_backups", l.MaxBackups)
	v.SetDefault("log.max_age", l.MaxAge)
	v.SetDefault("log.compress", l.Compress)
	v.SetDefault("log.with_caller", l.WithCaller)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "trades")
	v.SetDefault("kafka.batch_timeout", 10*time.Millisecond)
	v.SetDefault("metrics.dump", false)
	v.SetDefault("engine.queue_size", 1024)
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []error

	if c.Input == "" {
		errs = append(errs, errors.New("input path is required"))
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output.Format))
	}
	if c.Output.Depth < 0 {
		errs = append(errs, fmt.Errorf("output depth must be >= 0, got %d", c.Output.Depth))
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka enabled without brokers"))
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka enabled without topic"))
		}
	}
	if c.Engine.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("engine queue size must be positive, got %d", c.Engine.QueueSize))
	}

	return errors.Join(errs...)
}
