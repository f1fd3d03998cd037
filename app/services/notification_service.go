// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// NotificationDispatcher delivers the double opt-in activation message.
// The payload carries the assembled template tokens (email, link, channel
// titles, sender identity); the provider decides how to render them.
type NotificationDispatcher interface {
	Send(ctx context.Context, templateID string, payload map[string]string) error
}

// NotificationDispatcherImpl implements NotificationDispatcher
type NotificationDispatcherImpl struct {
	emailProvider EmailProvider
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(email, subject, message string) error
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(emailProvider EmailProvider) NotificationDispatcher {
	return &NotificationDispatcherImpl{
		emailProvider: emailProvider,
	}
}

// Send renders the activation payload into an email and hands it to the provider
func (s *NotificationDispatcherImpl) Send(ctx context.Context, templateID string, payload map[string]string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}

	email := payload["email"]
	if len(email) == 0 || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid recipient address: %s", email)
	}

	subject := payload["subject"]
	message := renderActivationMessage(templateID, payload)

	return s.emailProvider.SendEmail(email, subject, message)
}

// renderActivationMessage builds the plain-text email body from the payload.
// A real template engine could be plugged in here keyed by templateID; the
// default rendering covers the standard activation message.
func renderActivationMessage(templateID string, payload map[string]string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("You requested a subscription to the following channels on %s:\n\n", payload["domain"]))
	b.WriteString(payload["channels"])
	b.WriteString("\n\nClick the link below to confirm your subscription:\n\n")
	b.WriteString(payload["link"])
	b.WriteString("\n\nIf you did not request this subscription you can ignore this message.\n")

	if name := payload["admin_name"]; name != "" {
		b.WriteString(fmt.Sprintf("\n%s", name))
		if adminEmail := payload["admin_email"]; adminEmail != "" {
			b.WriteString(fmt.Sprintf(" <%s>", adminEmail))
		}
		b.WriteString("\n")
	}

	return b.String()
}

type MockEmailProvider struct{}

func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(email, subject, message string) error {
	log.Printf("Email sent to %s [%s]: %s", email, subject, message)
	return nil
}

type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail string) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
	}
}

func (p *SMTPEmailProvider) SendEmail(email, subject, message string) error {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		p.fromEmail, email, subject, message)

	if err := smtp.SendMail(addr, auth, p.fromEmail, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email, err)
	}

	return nil
}
