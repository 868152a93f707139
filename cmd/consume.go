package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/secmon/pkg/processor"
	"github.com/user/secmon/pkg/transport/kafka"
)

var (
	consumeBrokers  []string
	consumeTopic    string
	consumeGroup    string
	consumeClientID string
	consumeSaveDir  string
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume finding notifications from a Kafka topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		requester, closeFn, err := newRequester(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		opts := []processor.Option{processor.WithLogger(logger), processor.WithTimeout(cfg.RequestTimeout)}
		if consumeSaveDir != "" {
			opts = append(opts, processor.WithSink(&processor.FileSink{Dir: consumeSaveDir}))
		}
		proc := processor.New(requester, opts...)

		consumer, err := kafka.ConnectWithRetry(kafka.Config{
			Brokers:  consumeBrokers,
			Topic:    consumeTopic,
			GroupID:  consumeGroup,
			ClientID: consumeClientID,
		}, proc, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()

		logger.Info("consuming finding notifications", "brokers", consumeBrokers, "topic", consumeTopic, "group", consumeGroup)
		return consumer.Run(ctx)
	},
}

func init() {
	consumeCmd.Flags().StringSliceVar(&consumeBrokers, "brokers", []string{"localhost:9092"}, "Kafka bootstrap brokers")
	consumeCmd.Flags().StringVar(&consumeTopic, "topic", "scc-findings", "Topic carrying finding notifications")
	consumeCmd.Flags().StringVar(&consumeGroup, "group", "secmon", "Consumer group ID")
	consumeCmd.Flags().StringVar(&consumeClientID, "client-id", "secmon", "Kafka client ID")
	consumeCmd.Flags().StringVar(&consumeSaveDir, "save-dir", "", "Also write each successful analysis to this directory")
	rootCmd.AddCommand(consumeCmd)
}
