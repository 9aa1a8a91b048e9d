package bootstrap

import (
	"github.com/turtacn/ChequeGuard/internal/config"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChequeGuard/pkg/types/common"
)

// ProducerConfig maps the kafka section onto the producer. Published passes
// wait for every in-sync replica.
func ProducerConfig(cfg config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:          cfg.Brokers,
		Acks:             "all",
		MaxRetries:       cfg.ProducerRetries,
		BatchSize:        cfg.BatchSize,
		CompressionCodec: cfg.Compression,
		Security:         securityConfig(cfg),
	}
}

// ConsumerConfig maps the kafka and worker sections onto a consumer of
// topics. Handlers that keep failing are dead-lettered.
func ConsumerConfig(cfg config.KafkaConfig, worker config.WorkerConfig, topics ...string) kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          topics,
		AutoOffsetReset: cfg.AutoOffsetReset,
		Security:        securityConfig(cfg),
		Retry: kafka.RetryConfig{
			MaxRetries:      worker.MaxRetries,
			RetryBackoff:    worker.RetryBackoff,
			DeadLetterTopic: kafka.TopicDeadLetter,
		},
	}
}

// Topics returns the provisioned topics at the configured replication.
func Topics(cfg config.KafkaConfig) []common.TopicConfig {
	topics := kafka.DefaultTopics()
	if cfg.ReplicationFactor > 0 {
		for i := range topics {
			topics[i].ReplicationFactor = cfg.ReplicationFactor
		}
	}
	return topics
}

func securityConfig(cfg config.KafkaConfig) kafka.SecurityConfig {
	return kafka.SecurityConfig{
		SASLEnabled:   cfg.SASLMechanism != "",
		SASLMechanism: cfg.SASLMechanism,
		SASLUsername:  cfg.SASLUsername,
		SASLPassword:  cfg.SASLPassword,
		TLSEnabled:    cfg.TLSEnabled,
	}
}
