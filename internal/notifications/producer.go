package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// MailProducer interface defines the contract for publishing reservation mail
type MailProducer interface {
	Publish(ctx context.Context, mail *ReservationMail) error
	Close() error
	HealthCheck(ctx context.Context) error
}

// KafkaProducerConfig contains configuration for the Kafka mail producer
type KafkaProducerConfig struct {
	Brokers          []string
	MailTopic        string
	DeadLetterTopic  string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		MailTopic:        "reservation-mail",
		DeadLetterTopic:  "reservation-mail-dlq",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// KafkaMailProducer handles publishing reservation mail to Kafka
type KafkaMailProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
}

// NewKafkaMailProducer creates a new Kafka mail producer
func NewKafkaMailProducer(config *KafkaProducerConfig) (MailProducer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps each recipient's mail ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Printf("📤 Kafka mail producer created successfully")
	return &KafkaMailProducer{
		producer: producer,
		config:   config,
	}, nil
}

// Publish publishes a single mail message to Kafka
func (kmp *KafkaMailProducer) Publish(ctx context.Context, mail *ReservationMail) error {
	mail.Status = MailStatusQueued
	mail.UpdatedAt = time.Now()

	messageBytes, err := mail.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kmp.config.MailTopic,
		Key:       sarama.StringEncoder(mail.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kmp.createHeaders(mail),
		Timestamp: mail.CreatedAt,
	}

	partition, offset, err := kmp.producer.SendMessage(message)
	if err != nil {
		mail.MarkFailed(err)
		return fmt.Errorf("failed to send mail to Kafka: %w", err)
	}

	log.Printf("📤 Mail published to Kafka - Topic: %s, Partition: %d, Offset: %d, Type: %s, Recipient: %s",
		kmp.config.MailTopic, partition, offset, mail.Type, mail.RecipientEmail)

	return nil
}

// createHeaders creates Kafka headers for a mail message
func (kmp *KafkaMailProducer) createHeaders(mail *ReservationMail) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("mail_id"), Value: []byte(mail.ID.String())},
		{Key: []byte("mail_type"), Value: []byte(mail.Type)},
		{Key: []byte("recipient_email"), Value: []byte(mail.RecipientEmail)},
		{Key: []byte("producer"), Value: []byte("reservely-mail")},
		{Key: []byte("created_at"), Value: []byte(mail.CreatedAt.Format(time.RFC3339))},
	}

	if mail.TicketID != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("ticket_id"),
			Value: []byte(mail.TicketID.String()),
		})
	}

	if mail.TempID != "" {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("temp_id"),
			Value: []byte(mail.TempID),
		})
	}

	return headers
}

// Close closes the Kafka producer
func (kmp *KafkaMailProducer) Close() error {
	if kmp.producer != nil {
		if err := kmp.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		log.Printf("📤 Kafka mail producer closed")
	}
	return nil
}

// HealthCheck performs a health check on the Kafka producer
func (kmp *KafkaMailProducer) HealthCheck(ctx context.Context) error {
	if kmp.producer == nil {
		return fmt.Errorf("health check failed - producer is nil")
	}
	if kmp.config.MailTopic == "" {
		return fmt.Errorf("health check failed - mail topic not configured")
	}
	return nil
}
