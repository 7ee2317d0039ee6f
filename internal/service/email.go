package service

import (
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// EmailService sends owner notifications through Resend. In development it
// logs instead of sending, so the destructive flows stay testable without
// an API key. Notification failures are logged and swallowed: email is
// fire-and-forget and never blocks a kill.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	appName   string
	isDev     bool
}

func NewEmailService(apiKey, fromEmail, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		appName:   appName,
		isDev:     isDev,
	}
}

func (s *EmailService) SendKillNotification(to, fileName string, sessionsRevoked int64) {
	subject := fmt.Sprintf("[%s] Kill switch fired for %q", s.appName, fileName)
	body := fmt.Sprintf(
		"The kill switch for %q has completed.\n\nThe encryption key shards were destroyed and %d active viewing session(s) were revoked. The file can no longer be decrypted by anyone, including you.\n",
		fileName, sessionsRevoked)

	s.send("kill_switch", to, subject, body)
}

func (s *EmailService) SendChainKillNotification(to string, filesDestroyed int) {
	subject := fmt.Sprintf("[%s] Chain kill completed", s.appName)
	body := fmt.Sprintf(
		"Your chain kill request has completed.\n\n%d file(s) were permanently destroyed and all their viewing sessions revoked. This cannot be undone.\n",
		filesDestroyed)

	s.send("chain_kill", to, subject, body)
}

func (s *EmailService) SendAccessRequestNotification(to, fileName, requesterEmail string) {
	subject := fmt.Sprintf("[%s] Access request for %q", s.appName, fileName)
	body := fmt.Sprintf(
		"%s has requested access to %q.\n\nApprove or deny the request from your files dashboard.\n",
		requesterEmail, fileName)

	s.send("access_request", to, subject, body)
}

func (s *EmailService) send(kind, to, subject, body string) {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return
	}

	if s.client == nil {
		slog.Warn("email service not configured, dropping notification", "type", kind, "to", to)
		return
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.Send(params)
	if err != nil {
		slog.Error("failed to send email", "type", kind, "to", to, "error", err)
	}
}
