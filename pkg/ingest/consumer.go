// Package ingest feeds numeric values from a Kafka topic into the sketch
// registry. Offsets are committed only after a batch has been applied.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"github.com/Sumatoshi-tech/reqsketch/pkg/config"
)

// Sentinel errors.
var (
	ErrInvalidConfig   = errors.New("ingest: invalid consumer config")
	ErrUnsupportedSASL = errors.New("ingest: unsupported SASL mechanism")
	ErrClientClosed    = errors.New("ingest: kafka client closed")
)

const (
	clientID = "reqsketch-ingest"

	dialTimeout       = 10 * time.Second
	metadataMaxAge    = 10 * time.Second
	sessionTimeout    = time.Minute
	rebalanceTimeout  = 2 * time.Minute
	fetchMaxWait      = 5 * time.Second
	fetchMaxBytes     = 50_000_000
	partitionMaxBytes = 10_000_000
	pingTimeout       = 5 * time.Second
)

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	FromBeginning bool
	SASLUsername  string
	SASLPassword  string
	SASLMechanism string
}

// ConsumerConfigFrom converts the kafka section of the application config.
func ConsumerConfigFrom(cfg config.KafkaConfig) ConsumerConfig {
	return ConsumerConfig{
		Brokers:       cfg.Brokers,
		Topic:         cfg.Topic,
		ConsumerGroup: cfg.ConsumerGroup,
		FromBeginning: cfg.FromBeginning,
		SASLUsername:  cfg.SASLUsername,
		SASLPassword:  cfg.SASLPassword,
		SASLMechanism: cfg.SASLMechanism,
	}
}

// Validate checks if the consumer configuration is valid.
func (c *ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("%w: brokers cannot be empty", ErrInvalidConfig)
	}

	if c.Topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidConfig)
	}

	if c.ConsumerGroup == "" {
		return fmt.Errorf("%w: consumer group cannot be empty", ErrInvalidConfig)
	}

	return nil
}

// SetBrokersFromString parses a comma-separated list of brokers.
func (c *ConsumerConfig) SetBrokersFromString(brokers string) {
	parts := strings.Split(brokers, ",")
	c.Brokers = make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			c.Brokers = append(c.Brokers, trimmed)
		}
	}
}

// Record is one consumed Kafka record.
type Record struct {
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
}

// Source yields batches of records and commits what was handed out.
type Source interface {
	Poll(ctx context.Context) ([]Record, error)
	Commit(ctx context.Context) error
}

// Consumer wraps a franz-go consumer group client.
type Consumer struct {
	client *kgo.Client
}

// NewConsumer creates a Kafka consumer with manual offset commits.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.ClientID(clientID),
		kgo.DialTimeout(dialTimeout),
		kgo.MetadataMaxAge(metadataMaxAge),
		kgo.SessionTimeout(sessionTimeout),
		kgo.RebalanceTimeout(rebalanceTimeout),
		kgo.FetchMaxWait(fetchMaxWait),
		kgo.FetchMaxBytes(fetchMaxBytes),
		kgo.FetchMaxPartitionBytes(partitionMaxBytes),
	}

	if cfg.FromBeginning {
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	}

	if cfg.SASLUsername != "" && cfg.SASLPassword != "" {
		saslOpt, err := parseSASLMechanism(cfg.SASLMechanism, cfg.SASLUsername, cfg.SASLPassword)
		if err != nil {
			return nil, err
		}

		opts = append(opts, saslOpt)
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Consumer{client: client}, nil
}

func parseSASLMechanism(mechanism, username, password string) (kgo.Opt, error) {
	switch strings.ToUpper(mechanism) {
	case "PLAIN", "":
		return kgo.SASL(plain.Auth{User: username, Pass: password}.AsMechanism()), nil
	case "SCRAM-SHA-256":
		return kgo.SASL(scram.Auth{User: username, Pass: password}.AsSha256Mechanism()), nil
	case "SCRAM-SHA-512":
		return kgo.SASL(scram.Auth{User: username, Pass: password}.AsSha512Mechanism()), nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: PLAIN, SCRAM-SHA-256, SCRAM-SHA-512)", ErrUnsupportedSASL, mechanism)
	}
}

// Ping checks that at least one broker is reachable.
func (c *Consumer) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := c.client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("kafka ping: %w", err)
	}

	return nil
}

// Poll blocks until records arrive or ctx ends. Partition fetch errors are
// joined into the returned error alongside whatever records did arrive.
func (c *Consumer) Poll(ctx context.Context) ([]Record, error) {
	fetches := c.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, ErrClientClosed
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var errs []error

	fetches.EachError(func(topic string, partition int32, err error) {
		errs = append(errs, fmt.Errorf("fetch %s/%d: %w", topic, partition, err))
	})

	records := make([]Record, 0, fetches.NumRecords())

	fetches.EachRecord(func(rec *kgo.Record) {
		records = append(records, Record{
			Key:       rec.Key,
			Value:     rec.Value,
			Partition: rec.Partition,
			Offset:    rec.Offset,
		})
	})

	return records, errors.Join(errs...)
}

// Commit commits the offsets of every record returned by Poll so far.
func (c *Consumer) Commit(ctx context.Context) error {
	err := c.client.CommitUncommittedOffsets(ctx)
	if err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}

	return nil
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
