package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strconv"
	"time"

	"reservely/internal/shared/config"
)

// EmailService interface for sending reservation mail
type EmailService interface {
	SendMail(ctx context.Context, mail *ReservationMail) error
	SendHTML(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	FromEmail    string
	FromName     string
	SupportEmail string
	UseTLS       bool
	Timeout      time.Duration
}

// NewSMTPConfig builds the SMTP config from application configuration
func NewSMTPConfig(cfg config.EmailConfig) *SMTPConfig {
	return &SMTPConfig{
		Host:         cfg.SMTPHost,
		Port:         cfg.SMTPPort,
		Username:     cfg.SMTPUsername,
		Password:     cfg.SMTPPassword,
		FromEmail:    cfg.FromEmail,
		FromName:     cfg.FromName,
		SupportEmail: cfg.SupportEmail,
		UseTLS:       true,
		Timeout:      30 * time.Second,
	}
}

// IsConfigured reports whether the SMTP transport has enough to dial out.
func (c *SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.Username != "" && c.Password != "" && c.FromEmail != ""
}

// SMTPEmailService is a real SMTP implementation of the EmailService interface
type SMTPEmailService struct {
	config    *SMTPConfig
	templates map[MailType]*template.Template
}

// NewSMTPEmailService creates a new SMTP email service
func NewSMTPEmailService(config *SMTPConfig) (*SMTPEmailService, error) {
	if err := validateSMTPConfig(config); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}

	service := &SMTPEmailService{
		config:    config,
		templates: make(map[MailType]*template.Template),
	}

	if err := service.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	return service, nil
}

func validateSMTPConfig(config *SMTPConfig) error {
	if config == nil {
		return fmt.Errorf("SMTP config is nil")
	}
	if config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("SMTP port must be between 1 and 65535")
	}
	if config.Username == "" {
		return fmt.Errorf("SMTP username is required")
	}
	if config.Password == "" {
		return fmt.Errorf("SMTP password is required")
	}
	if config.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	return nil
}

// SendMail renders and delivers a reservation mail
func (s *SMTPEmailService) SendMail(ctx context.Context, mail *ReservationMail) error {
	log.Printf("📧 [SMTP] Sending %s mail to %s (%s)",
		mail.Type,
		mail.RecipientEmail,
		mail.RecipientName,
	)

	htmlBody, textBody, err := s.generateContent(mail)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}

	return s.SendHTML(ctx, mail.RecipientEmail, mail.Subject, htmlBody, textBody)
}

// SendHTML sends an HTML email
func (s *SMTPEmailService) SendHTML(ctx context.Context, to, subject, htmlBody, textBody string) error {
	message := s.buildMessage(to, subject, htmlBody, textBody)

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var err error
	if s.config.UseTLS {
		err = s.sendWithSTARTTLS(addr, auth, to, message)
	} else {
		err = smtp.SendMail(addr, auth, s.config.FromEmail, []string{to}, message)
	}

	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("📧 [SMTP] Email sent successfully to %s", to)
	return nil
}

// sendWithSTARTTLS sends email with STARTTLS encryption
func (s *SMTPEmailService) sendWithSTARTTLS(addr string, auth smtp.Auth, to string, message []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	tlsconfig := &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         s.config.Host,
	}

	if err = client.StartTLS(tlsconfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return w.Close()
}

// buildMessage creates the email message with proper headers
func (s *SMTPEmailService) buildMessage(to, subject, htmlBody, textBody string) []byte {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Date"] = time.Now().Format(time.RFC1123Z)

	boundary := "boundary_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	headers["Content-Type"] = fmt.Sprintf("multipart/alternative; boundary=%s", boundary)

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n"

	if textBody != "" {
		message += fmt.Sprintf("--%s\r\n", boundary)
		message += "Content-Type: text/plain; charset=UTF-8\r\n"
		message += "\r\n"
		message += textBody + "\r\n"
	}

	if htmlBody != "" {
		message += fmt.Sprintf("--%s\r\n", boundary)
		message += "Content-Type: text/html; charset=UTF-8\r\n"
		message += "\r\n"
		message += htmlBody + "\r\n"
	}

	message += fmt.Sprintf("--%s--\r\n", boundary)

	return []byte(message)
}

// generateContent renders the template for the mail type
func (s *SMTPEmailService) generateContent(mail *ReservationMail) (string, string, error) {
	tmpl, exists := s.templates[mail.Type]
	if !exists {
		return "", "", fmt.Errorf("no template for mail type %s", mail.Type)
	}

	data := map[string]interface{}{
		"Name":         mail.RecipientName,
		"SupportEmail": s.config.SupportEmail,
		"FromName":     s.config.FromName,
	}
	for k, v := range mail.TemplateData {
		data[k] = v
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&htmlBuf, "html", data); err != nil {
		return "", "", err
	}
	if err := tmpl.ExecuteTemplate(&textBuf, "text", data); err != nil {
		textBuf.Reset()
		textBuf.WriteString("Please view this email in HTML format.")
	}

	return htmlBuf.String(), textBuf.String(), nil
}

func (s *SMTPEmailService) loadTemplates() error {
	sources := map[MailType]string{
		MailTypeVerificationCode: `
{{define "html"}}
<h2>Your verification code</h2>
<p>Hi {{.Name}},</p>
<p>Use this code to confirm your seat reservation:</p>
<p style="font-size:28px;letter-spacing:6px;"><strong>{{.code}}</strong></p>
<p>The code expires in {{.expires_minutes}} minutes. If you did not request it, ignore this email.</p>
<p>Best regards,<br>{{.FromName}} Team</p>
{{end}}
{{define "text"}}Hi {{.Name}},

Your verification code is {{.code}}. It expires in {{.expires_minutes}} minutes.

If you did not request it, ignore this email.

Best regards,
{{.FromName}} Team{{end}}`,

		MailTypeReservationConfirmed: `
{{define "html"}}
<h2>✅ Reservation confirmed</h2>
<p>Hi {{.Name}},</p>
<p>Your seats for <strong>{{.event_date}}</strong> are confirmed.</p>
<p>Ticket: <strong>{{.ticket_id}}</strong></p>
<p>Seats: <strong>{{.seat_labels}}</strong></p>
{{if .calendar_link}}<p><a href="{{.calendar_link}}">Add to your calendar</a></p>{{end}}
<p>Keep the ticket reference; you need it to cancel. Questions? Write to {{.SupportEmail}}.</p>
<p>Best regards,<br>{{.FromName}} Team</p>
{{end}}
{{define "text"}}Hi {{.Name}},

Your seats for {{.event_date}} are confirmed.
Ticket: {{.ticket_id}}
Seats: {{.seat_labels}}

Keep the ticket reference; you need it to cancel.

Best regards,
{{.FromName}} Team{{end}}`,

		MailTypeReservationCancelled: `
{{define "html"}}
<h2>❌ Reservation cancelled</h2>
<p>Hi {{.Name}},</p>
<p>Your reservation <strong>{{.ticket_id}}</strong> for {{.event_date}} has been cancelled.</p>
<p>Seats {{.seat_labels}} are released. You can book again any time.</p>
<p>Best regards,<br>{{.FromName}} Team</p>
{{end}}
{{define "text"}}Hi {{.Name}},

Your reservation {{.ticket_id}} for {{.event_date}} has been cancelled.
Seats {{.seat_labels}} are released.

Best regards,
{{.FromName}} Team{{end}}`,
	}

	for mailType, source := range sources {
		tmpl, err := template.New(string(mailType)).Parse(source)
		if err != nil {
			return fmt.Errorf("template %s: %w", mailType, err)
		}
		s.templates[mailType] = tmpl
	}

	log.Println("📧 Mail templates loaded")
	return nil
}

// MockEmailService logs instead of dialing out. Used when SMTP is not
// configured, which keeps local development working without credentials.
type MockEmailService struct{}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (s *MockEmailService) SendMail(ctx context.Context, mail *ReservationMail) error {
	log.Printf("📧 [MOCK] Sending %s mail to %s (%s), data: %v",
		mail.Type,
		mail.RecipientEmail,
		mail.RecipientName,
		mail.TemplateData,
	)
	return nil
}

func (s *MockEmailService) SendHTML(ctx context.Context, to, subject, htmlBody, textBody string) error {
	log.Printf("📧 [MOCK] To: %s, Subject: %s", to, subject)
	return nil
}
