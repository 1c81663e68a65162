package config

import "time"

// Sketch defaults.
const (
	DefaultSketchK   = 12
	DefaultSketchHRA = true
)

// Server defaults.
const (
	DefaultServerHost         = "0.0.0.0"
	DefaultServerPort         = 8080
	DefaultServerReadTimeout  = 30 * time.Second
	DefaultServerWriteTimeout = 30 * time.Second
	DefaultServerIdleTimeout  = 60 * time.Second
	DefaultServerMaxBodySize  = "4MB"
)

// Storage defaults.
const (
	DefaultStorageBackend       = BackendNone
	DefaultStorageDirectory     = "/var/lib/reqsketch"
	DefaultStorageBoltPath      = "/var/lib/reqsketch/sketches.db"
	DefaultStorageCodec         = "lz4"
	DefaultStorageFlushInterval = time.Minute
	DefaultStorageS3Prefix      = "sketches/"
)

// Kafka defaults.
const (
	DefaultKafkaConsumerGroup = "reqsketch"
	DefaultKafkaSketch        = "default"
	DefaultKafkaSASLMechanism = "PLAIN"
)

// Logging and telemetry defaults.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultTelemetrySampling = 1.0
	DefaultEnvironment       = "production"
)
