package notifications

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reservely/internal/shared/config"
)

// Mailer is the high-level contract the reservation flow uses. It hides
// whether mail goes through Kafka or is delivered inline.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, name, tempID, code string, ttl time.Duration) error
	SendConfirmation(ctx context.Context, email, name string, ticketID uuid.UUID, eventDate string, seatLabels []string, calendarLink string) error
	SendCancellation(ctx context.Context, email, name string, ticketID uuid.UUID, eventDate string, seatLabels []string) error

	Start(ctx context.Context) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

// MailService routes reservation mail through the Kafka pipeline when a
// producer is available and falls back to inline delivery otherwise.
type MailService struct {
	producer     MailProducer
	consumer     MailConsumer
	emailService EmailService
	numWorkers   int

	isRunning bool
	mu        sync.RWMutex
}

// NewMailService wires the mail pipeline from application configuration.
// Kafka being unreachable is not fatal: mail is then sent inline, which
// keeps a single-node deployment working.
func NewMailService(cfg *config.Config) (Mailer, error) {
	var emailService EmailService
	smtpConfig := NewSMTPConfig(cfg.Email)
	if smtpConfig.IsConfigured() {
		svc, err := NewSMTPEmailService(smtpConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create SMTP email service: %w", err)
		}
		emailService = svc
	} else {
		log.Println("📧 SMTP not configured, using mock email service")
		emailService = NewMockEmailService()
	}

	service := &MailService{
		emailService: emailService,
		numWorkers:   3,
	}

	producerConfig := DefaultKafkaProducerConfig()
	producerConfig.Brokers = cfg.Kafka.Brokers
	producerConfig.MailTopic = cfg.Kafka.MailTopic
	producerConfig.DeadLetterTopic = cfg.Kafka.DeadLetter

	producer, err := NewKafkaMailProducer(producerConfig)
	if err != nil {
		log.Printf("📤 Kafka unavailable (%v), mail will be delivered inline", err)
		return service, nil
	}
	service.producer = producer

	dlqConfig := *producerConfig
	dlqConfig.MailTopic = cfg.Kafka.DeadLetter
	deadLetter, err := NewKafkaMailProducer(&dlqConfig)
	if err != nil {
		deadLetter = nil
	}

	consumerConfig := DefaultConsumerConfig()
	consumerConfig.Brokers = cfg.Kafka.Brokers
	consumerConfig.Topics = []string{cfg.Kafka.MailTopic}
	consumerConfig.DeadLetterTopic = cfg.Kafka.DeadLetter

	consumer, err := NewKafkaMailConsumer(consumerConfig, emailService, deadLetter)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail consumer: %w", err)
	}
	service.consumer = consumer

	return service, nil
}

// Start launches the consumer workers when the Kafka pipeline is in use.
func (s *MailService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.consumer != nil {
		if err := s.consumer.StartConsumers(ctx, s.numWorkers); err != nil {
			return fmt.Errorf("failed to start mail consumers: %w", err)
		}
	}
	s.isRunning = true
	return nil
}

// Stop shuts the pipeline down.
func (s *MailService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	var firstErr error
	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			firstErr = err
		}
	}
	if s.producer != nil {
		if err := s.producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *MailService) HealthCheck(ctx context.Context) error {
	if s.emailService == nil {
		return fmt.Errorf("email service not configured")
	}
	if s.producer != nil {
		return s.producer.HealthCheck(ctx)
	}
	return nil
}

// SendVerificationCode mails a passcode for a pending reservation.
func (s *MailService) SendVerificationCode(ctx context.Context, email, name, tempID, code string, ttl time.Duration) error {
	mail := NewMail(MailTypeVerificationCode, email, name,
		"Your verification code",
		map[string]interface{}{
			"code":            code,
			"expires_minutes": int(ttl.Minutes()),
		})
	mail.TempID = tempID

	return s.dispatch(ctx, mail)
}

// SendConfirmation mails the confirmed reservation summary.
func (s *MailService) SendConfirmation(ctx context.Context, email, name string, ticketID uuid.UUID, eventDate string, seatLabels []string, calendarLink string) error {
	mail := NewMail(MailTypeReservationConfirmed, email, name,
		fmt.Sprintf("✅ Reservation confirmed for %s", eventDate),
		map[string]interface{}{
			"ticket_id":     ticketID.String(),
			"event_date":    eventDate,
			"seat_labels":   strings.Join(seatLabels, ", "),
			"calendar_link": calendarLink,
		})
	mail.TicketID = &ticketID

	return s.dispatch(ctx, mail)
}

// SendCancellation mails the cancellation notice.
func (s *MailService) SendCancellation(ctx context.Context, email, name string, ticketID uuid.UUID, eventDate string, seatLabels []string) error {
	mail := NewMail(MailTypeReservationCancelled, email, name,
		fmt.Sprintf("Reservation cancelled for %s", eventDate),
		map[string]interface{}{
			"ticket_id":   ticketID.String(),
			"event_date":  eventDate,
			"seat_labels": strings.Join(seatLabels, ", "),
		})
	mail.TicketID = &ticketID

	return s.dispatch(ctx, mail)
}

func (s *MailService) dispatch(ctx context.Context, mail *ReservationMail) error {
	if s.producer != nil {
		return s.producer.Publish(ctx, mail)
	}
	return s.emailService.SendMail(ctx, mail)
}
