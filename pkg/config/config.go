// Package config provides configuration loading and validation for reqsketch.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidK           = errors.New("sketch k must be in [1, 1024]")
	ErrInvalidBackend     = errors.New("unknown storage backend")
	ErrInvalidCodec       = errors.New("unknown storage codec")
	ErrInvalidBodySize    = errors.New("invalid server max body size")
	ErrMissingS3Bucket    = errors.New("s3 storage requires a bucket")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be in [0, 1]")
	ErrInvalidLogFormat   = errors.New("log format must be json or text")
	ErrInvalidMechanism   = errors.New("kafka SASL mechanism must be PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512")
)

// Storage backends.
const (
	BackendNone = "none"
	BackendFile = "file"
	BackendBolt = "bolt"
	BackendS3   = "s3"
)

const (
	maxPort = 65535
	maxK    = 1024
	envName = "REQSKETCH"
)

var (
	knownBackends   = []string{BackendNone, BackendFile, BackendBolt, BackendS3}
	knownCodecs     = []string{"raw", "lz4", "zstd", "snappy"}
	knownMechanisms = []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"}
)

// Config holds all configuration for reqsketch.
type Config struct {
	Sketch    SketchConfig    `mapstructure:"sketch"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// SketchConfig holds the parameters of sketches created by the service.
type SketchConfig struct {
	K   int  `mapstructure:"k"`
	HRA bool `mapstructure:"hra"`
	// Seed makes compactions reproducible. Zero draws a random seed.
	Seed uint64 `mapstructure:"seed"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	MaxBodySize  string        `mapstructure:"max_body_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Port         int           `mapstructure:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxBodyBytes parses MaxBodySize.
func (s ServerConfig) MaxBodyBytes() (int64, error) {
	size, err := humanize.ParseBytes(s.MaxBodySize)
	if err != nil || size == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBodySize, s.MaxBodySize)
	}

	return int64(size), nil //nolint:gosec // body limits are far below MaxInt64.
}

// StorageConfig holds sketch persistence configuration.
type StorageConfig struct {
	// Core settings.
	Backend       string        `mapstructure:"backend"`
	Directory     string        `mapstructure:"directory"`
	BoltPath      string        `mapstructure:"bolt_path"`
	Codec         string        `mapstructure:"codec"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`

	// S3 settings.
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	S3UseSSL   bool   `mapstructure:"s3_use_ssl"`

	// AWS credentials (optional).
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
}

// KafkaConfig holds the stream ingestion consumer configuration.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	DefaultSketch string   `mapstructure:"default_sketch"`
	SASLUsername  string   `mapstructure:"sasl_username"`
	SASLPassword  string   `mapstructure:"sasl_password"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches for .reqsketch.yaml in the working directory
// and the home directory; a missing file leaves the defaults in place.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(".reqsketch")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envName)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults registers every key so environment overrides apply even when
// no config file is present.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("sketch.k", DefaultSketchK)
	viperCfg.SetDefault("sketch.hra", DefaultSketchHRA)
	viperCfg.SetDefault("sketch.seed", 0)

	viperCfg.SetDefault("server.host", DefaultServerHost)
	viperCfg.SetDefault("server.port", DefaultServerPort)
	viperCfg.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viperCfg.SetDefault("server.idle_timeout", DefaultServerIdleTimeout)
	viperCfg.SetDefault("server.max_body_size", DefaultServerMaxBodySize)

	viperCfg.SetDefault("storage.backend", DefaultStorageBackend)
	viperCfg.SetDefault("storage.directory", DefaultStorageDirectory)
	viperCfg.SetDefault("storage.bolt_path", DefaultStorageBoltPath)
	viperCfg.SetDefault("storage.codec", DefaultStorageCodec)
	viperCfg.SetDefault("storage.flush_interval", DefaultStorageFlushInterval)
	viperCfg.SetDefault("storage.s3_bucket", "")
	viperCfg.SetDefault("storage.s3_region", "")
	viperCfg.SetDefault("storage.s3_endpoint", "")
	viperCfg.SetDefault("storage.s3_prefix", DefaultStorageS3Prefix)
	viperCfg.SetDefault("storage.s3_use_ssl", true)
	viperCfg.SetDefault("storage.aws_access_key_id", "")
	viperCfg.SetDefault("storage.aws_secret_access_key", "")

	viperCfg.SetDefault("kafka.brokers", []string{})
	viperCfg.SetDefault("kafka.topic", "")
	viperCfg.SetDefault("kafka.consumer_group", DefaultKafkaConsumerGroup)
	viperCfg.SetDefault("kafka.default_sketch", DefaultKafkaSketch)
	viperCfg.SetDefault("kafka.sasl_username", "")
	viperCfg.SetDefault("kafka.sasl_password", "")
	viperCfg.SetDefault("kafka.sasl_mechanism", DefaultKafkaSASLMechanism)
	viperCfg.SetDefault("kafka.from_beginning", false)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampling)
	viperCfg.SetDefault("telemetry.environment", DefaultEnvironment)
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	if c.Sketch.K < 1 || c.Sketch.K > maxK {
		return fmt.Errorf("%w: %d", ErrInvalidK, c.Sketch.K)
	}

	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	if _, err := c.Server.MaxBodyBytes(); err != nil {
		return err
	}

	if !slices.Contains(knownBackends, c.Storage.Backend) {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Storage.Backend)
	}

	if !slices.Contains(knownCodecs, c.Storage.Codec) {
		return fmt.Errorf("%w: %q", ErrInvalidCodec, c.Storage.Codec)
	}

	if c.Storage.Backend == BackendS3 && c.Storage.S3Bucket == "" {
		return ErrMissingS3Bucket
	}

	if c.Kafka.SASLUsername != "" && !slices.Contains(knownMechanisms, strings.ToUpper(c.Kafka.SASLMechanism)) {
		return fmt.Errorf("%w: %q", ErrInvalidMechanism, c.Kafka.SASLMechanism)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}
