package kafka

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/cipher-arena/internal/config"
	"github.com/cipher-arena/internal/domain"
)

// Publisher streams committed ledger entries to the analytics topic.
// Publishing is fire-and-forget from the engine's point of view: the
// durable ledger row already exists, delivery failures only cost the
// downstream feed.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewPublisher connects an async producer to the ledger topic
func NewPublisher(cfg *config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for err := range producer.Errors() {
			p.logger.Error("failed to publish ledger entry", "error", err)
		}
	}()

	return p, nil
}

// Publish enqueues one ledger entry, keyed by player so a player's
// entries stay ordered within a partition
func (p *Publisher) Publish(entry domain.ActionLogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error("failed to marshal ledger entry", "entry_id", entry.ID, "error", err)
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(entry.PlayerID),
		Value: sarama.ByteEncoder(data),
	}
}

// Close drains in-flight messages and shuts the producer down
func (p *Publisher) Close() error {
	p.producer.AsyncClose()
	p.wg.Wait()
	return nil
}
