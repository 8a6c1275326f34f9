package email

import (
	"context"
	"fmt"
	"net/smtp"

	"flashsale-backend/pkg/logger"
)

type VerificationEmailData struct {
	Email             string
	UserName          string
	VerificationToken string
	VerificationURL   string
	ExpiresAt         string
}

type ResetPasswordData struct {
	Email      string
	UserName   string
	ResetToken string
	ResetURL   string
	ExpiresAt  string
}

type PasswordChangedData struct {
	Email     string
	UserName  string
	ChangedAt string
}

type AccountApprovalData struct {
	Email      string
	UserName   string
	LoginURL   string
	ApprovedAt string
}

// EmailService delivers transactional account mail. All sends happen from
// queue handlers; nothing in the request path blocks on SMTP.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, data VerificationEmailData) error
	SendResetPasswordEmail(ctx context.Context, data ResetPasswordData) error
	SendPasswordChangedEmail(ctx context.Context, data PasswordChangedData) error
	SendAccountApprovalEmail(ctx context.Context, data AccountApprovalData) error
}

type smtpEmailService struct {
	smtpAddr string
	smtpFrom string
	auth     smtp.Auth
}

// NewSMTPEmailService builds the production sender. Empty username skips
// authentication for local relays like mailhog.
func NewSMTPEmailService(host, port, username, password, from string) EmailService {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &smtpEmailService{
		smtpAddr: host + ":" + port,
		smtpFrom: from,
		auth:     auth,
	}
}

func (s *smtpEmailService) SendVerificationEmail(ctx context.Context, data VerificationEmailData) error {
	subject := "Verify your account"
	link := data.VerificationURL
	if link == "" {
		link = data.VerificationToken
	}
	body := fmt.Sprintf(`Hello %s,

Please use the link below to verify your account:
%s

The link is valid until %s.

If you did not create this account, you can ignore this email.`, data.UserName, link, data.ExpiresAt)

	return s.send(data.Email, subject, body)
}

func (s *smtpEmailService) SendResetPasswordEmail(ctx context.Context, data ResetPasswordData) error {
	subject := "Reset your password"
	body := fmt.Sprintf(`Hello %s,

Use the following token to reset your password:
%s

The token is valid until %s.

If you did not request a password reset, you can ignore this email.`, data.UserName, data.ResetToken, data.ExpiresAt)
	if data.ResetURL != "" {
		body += fmt.Sprintf("\n\nOr reset it directly here: %s", data.ResetURL)
	}

	return s.send(data.Email, subject, body)
}

func (s *smtpEmailService) SendPasswordChangedEmail(ctx context.Context, data PasswordChangedData) error {
	subject := "Your password was changed"
	body := fmt.Sprintf(`Hello %s,

The password for your account was changed at %s.

If this was not you, contact support immediately.`, data.UserName, data.ChangedAt)

	return s.send(data.Email, subject, body)
}

func (s *smtpEmailService) SendAccountApprovalEmail(ctx context.Context, data AccountApprovalData) error {
	subject := "Your account was approved"
	body := fmt.Sprintf(`Hello %s,

Your account was approved on %s. You can now sign in and place reservations.`, data.UserName, data.ApprovedAt)
	if data.LoginURL != "" {
		body += fmt.Sprintf("\n\nSign in: %s", data.LoginURL)
	}

	return s.send(data.Email, subject, body)
}

func (s *smtpEmailService) send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.smtpFrom, to, subject, body))

	if err := smtp.SendMail(s.smtpAddr, s.auth, s.smtpFrom, []string{to}, msg); err != nil {
		logger.Warn("failed to send email", map[string]interface{}{
			"error":     err.Error(),
			"to":        to,
			"smtp_addr": s.smtpAddr,
		})
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
