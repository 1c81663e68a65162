package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/config"
	"github.com/Sumatoshi-tech/reqsketch/pkg/ingest"
	"github.com/Sumatoshi-tech/reqsketch/pkg/observability"
)

type ingestOptions struct {
	configPath string
	brokers    string
	topic      string
	group      string
	debug      bool
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Consume numbers from Kafka into named sketches",
		Long: `Consume a Kafka topic into the sketch registry. The record key names the
sketch (records without a key go to kafka.default_sketch) and the value holds
numbers separated by whitespace or commas. Offsets are committed once a batch
is applied; the registry is flushed to the configured store periodically and
on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			consumerCfg := ingest.ConsumerConfigFrom(cfg.Kafka)
			if opts.brokers != "" {
				consumerCfg.SetBrokersFromString(opts.brokers)
			}

			if opts.topic != "" {
				consumerCfg.Topic = opts.topic
			}

			if opts.group != "" {
				consumerCfg.ConsumerGroup = opts.group
			}

			err = consumerCfg.Validate()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runIngest(ctx, cfg, consumerCfg, opts.debug)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, flagConfig, "c", "", "Config file (default .reqsketch.yaml)")
	cmd.Flags().StringVar(&opts.brokers, "brokers", "", "Comma separated brokers, overrides kafka.brokers")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "Topic, overrides kafka.topic")
	cmd.Flags().StringVar(&opts.group, "group", "", "Consumer group, overrides kafka.consumer_group")
	cmd.Flags().BoolVar(&opts.debug, flagDebug, false, "Enable debug logging")

	return cmd
}

func runIngest(ctx context.Context, cfg *config.Config, consumerCfg ingest.ConsumerConfig, debug bool) (err error) {
	env, err := startRuntime(ctx, cfg, observability.ModeIngest, debug)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, env.close(context.WithoutCancel(ctx)))
	}()

	consumer, err := ingest.NewConsumer(consumerCfg)
	if err != nil {
		return err
	}
	defer consumer.Close()

	err = consumer.Ping(ctx)
	if err != nil {
		return err
	}

	ingester, err := ingest.New(ingest.Options{
		Source:        consumer,
		Registry:      env.registry,
		DefaultSketch: cfg.Kafka.DefaultSketch,
		FlushInterval: cfg.Storage.FlushInterval,
		Logger:        env.logger(),
		RED:           env.red,
	})
	if err != nil {
		return err
	}

	err = ingester.Run(ctx)

	stats := ingester.Stats()
	env.logger().InfoContext(context.WithoutCancel(ctx), "ingester stopped",
		"batches", stats.Batches,
		"records", stats.Records,
		"values", stats.Values,
		"rejected", stats.Rejected,
	)

	return err
}
