package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MailType string

const (
	MailTypeVerificationCode     MailType = "VERIFICATION_CODE"
	MailTypeReservationConfirmed MailType = "RESERVATION_CONFIRMED"
	MailTypeReservationCancelled MailType = "RESERVATION_CANCELLED"
)

type MailStatus string

const (
	MailStatusPending  MailStatus = "PENDING"
	MailStatusQueued   MailStatus = "QUEUED"
	MailStatusSending  MailStatus = "SENDING"
	MailStatusSent     MailStatus = "SENT"
	MailStatusFailed   MailStatus = "FAILED"
	MailStatusRetrying MailStatus = "RETRYING"
)

// ReservationMail is the message that flows through the mail topic. One
// struct for every mail type; TemplateData carries the type-specific fields.
type ReservationMail struct {
	ID   uuid.UUID `json:"id"`
	Type MailType  `json:"type"`

	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`

	Subject      string                 `json:"subject"`
	TemplateData map[string]interface{} `json:"template_data"`

	// Context
	TicketID *uuid.UUID `json:"ticket_id,omitempty"`
	TempID   string     `json:"temp_id,omitempty"`

	// Status tracking
	Status     MailStatus `json:"status"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
	LastError  *string    `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}

// NewMail creates a pending mail with defaults filled in.
func NewMail(mailType MailType, email, name, subject string, data map[string]interface{}) *ReservationMail {
	if data == nil {
		data = make(map[string]interface{})
	}
	now := time.Now()
	return &ReservationMail{
		ID:             uuid.New(),
		Type:           mailType,
		RecipientEmail: email,
		RecipientName:  name,
		Subject:        subject,
		TemplateData:   data,
		Status:         MailStatusPending,
		MaxRetries:     3,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// GetPartitionKey keeps all mail for one recipient on one partition so
// delivery order per recipient is preserved.
func (m *ReservationMail) GetPartitionKey() string {
	return m.RecipientEmail
}

func (m *ReservationMail) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ReservationMail) MarkSent() {
	now := time.Now()
	m.Status = MailStatusSent
	m.SentAt = &now
	m.UpdatedAt = now
}

func (m *ReservationMail) MarkFailed(err error) {
	m.Status = MailStatusFailed
	m.UpdatedAt = time.Now()

	errorStr := err.Error()
	m.LastError = &errorStr
}

func (m *ReservationMail) ShouldRetry() bool {
	return m.RetryCount < m.MaxRetries && m.Status == MailStatusFailed
}
