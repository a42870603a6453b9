package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

type MailConsumer interface {
	StartConsumers(ctx context.Context, numWorkers int) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	DeadLetterTopic      string
	SessionTimeoutMs     int
	HeartbeatMs          int
	RetryBackoffMs       int
	MaxProcessingTime    time.Duration
	AutoCommit           bool
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "reservely-mail-workers",
		Topics:               []string{"reservation-mail"},
		DeadLetterTopic:      "reservation-mail-dlq",
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		RetryBackoffMs:       100,
		MaxProcessingTime:    5 * time.Minute,
		AutoCommit:           true,
		OffsetOldest:         false,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

type KafkaMailConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	emailService  EmailService
	deadLetter    MailProducer
	topics        []string
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewKafkaMailConsumer creates a consumer group that drains the mail topic
// into the email service. deadLetter may be nil; exhausted mail is then
// dropped after logging.
func NewKafkaMailConsumer(config *ConsumerConfig, emailService EmailService, deadLetter MailProducer) (MailConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	if config.AutoCommit {
		saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
		saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &KafkaMailConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		emailService:  emailService,
		deadLetter:    deadLetter,
		topics:        config.Topics,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func (kmc *KafkaMailConsumer) StartConsumers(ctx context.Context, numWorkers int) error {
	log.Printf("📥 Starting %d mail consumer workers for topics: %v", numWorkers, kmc.topics)

	go kmc.handleErrors()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			kmc.runWorker(ctx, workerID)
		}(i)
	}

	log.Printf("📥 All %d mail consumer workers started", numWorkers)
	return nil
}

func (kmc *KafkaMailConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &mailGroupHandler{
		consumer:     kmc,
		workerID:     workerID,
		emailService: kmc.emailService,
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("📥 Worker %d shutting down", workerID)
			return
		default:
			err := kmc.consumerGroup.Consume(ctx, kmc.topics, handler)
			if err != nil {
				log.Printf("📥 Worker %d error consuming messages: %v", workerID, err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (kmc *KafkaMailConsumer) handleErrors() {
	for err := range kmc.consumerGroup.Errors() {
		log.Printf("📥 Consumer group error: %v", err)
	}
}

func (kmc *KafkaMailConsumer) Stop() error {
	log.Println("📥 Stopping mail consumer...")
	kmc.cancel()

	if err := kmc.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}

	log.Println("📥 Mail consumer stopped")
	return nil
}

func (kmc *KafkaMailConsumer) HealthCheck(ctx context.Context) error {
	select {
	case <-kmc.ctx.Done():
		return fmt.Errorf("consumer context is cancelled")
	default:
		if kmc.emailService == nil {
			return fmt.Errorf("email service not configured")
		}
		return nil
	}
}

type mailGroupHandler struct {
	consumer     *KafkaMailConsumer
	workerID     int
	emailService EmailService
}

func (h *mailGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Printf("📥 Worker %d: Consumer group session started", h.workerID)
	return nil
}

func (h *mailGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Printf("📥 Worker %d: Consumer group session ended", h.workerID)
	return nil
}

func (h *mailGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := h.processMessage(session.Context(), message); err != nil {
				log.Printf("📥 Worker %d: Error processing message: %v", h.workerID, err)
			}
			// Mark either way: failed mail has already been routed to the
			// dead letter topic and must not be replayed.
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *mailGroupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	log.Printf("📥 Worker %d: Processing mail from topic %s, partition %d, offset %d",
		h.workerID, message.Topic, message.Partition, message.Offset)

	var mail ReservationMail
	if err := json.Unmarshal(message.Value, &mail); err != nil {
		return fmt.Errorf("failed to unmarshal mail: %w", err)
	}

	mail.Status = MailStatusSending

	if err := h.executeWithRetry(ctx, &mail); err != nil {
		mail.MarkFailed(err)
		h.routeToDeadLetter(ctx, &mail)
		return err
	}

	mail.MarkSent()
	log.Printf("📧 Worker %d: Mail sent successfully to %s", h.workerID, mail.RecipientEmail)
	return nil
}

func (h *mailGroupHandler) executeWithRetry(ctx context.Context, mail *ReservationMail) error {
	maxRetries := h.consumer.config.MaxRetries
	backoff := h.consumer.config.RetryBackoffDuration

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := h.emailService.SendMail(ctx, mail)
		if err == nil {
			if attempt > 0 {
				log.Printf("📥 Worker %d: Successfully sent mail after %d retries", h.workerID, attempt)
			}
			return nil
		}

		if attempt == maxRetries {
			log.Printf("📥 Worker %d: Failed to send mail after %d attempts: %v", h.workerID, maxRetries, err)
			return err
		}

		// Exponential backoff
		delay := backoff * time.Duration(1<<attempt)
		log.Printf("📥 Worker %d: Retry %d for mail delivery after %v", h.workerID, attempt+1, delay)

		select {
		case <-time.After(delay):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (h *mailGroupHandler) routeToDeadLetter(ctx context.Context, mail *ReservationMail) {
	if h.consumer.deadLetter == nil {
		log.Printf("📥 Worker %d: No dead letter producer, dropping mail %s", h.workerID, mail.ID)
		return
	}
	if err := h.consumer.deadLetter.Publish(ctx, mail); err != nil {
		log.Printf("📥 Worker %d: Failed to route mail %s to dead letter topic: %v", h.workerID, mail.ID, err)
	}
}
