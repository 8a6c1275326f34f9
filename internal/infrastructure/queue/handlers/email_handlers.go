package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"flashsale-backend/internal/infrastructure/email"
	"flashsale-backend/internal/shared"
	"flashsale-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

// DeadLetterer parks undeliverable messages. Implemented by queue.Publisher.
type DeadLetterer interface {
	PublishDeadLetter(ctx context.Context, original []byte, cause error) error
}

type verificationPayload struct {
	UserName          string `json:"user_name"`
	VerificationToken string `json:"verification_token"`
	ExpiresAt         string `json:"expires_at"`
	VerificationURL   string `json:"verification_url"`
}

type resetPasswordPayload struct {
	UserName   string `json:"user_name"`
	ResetToken string `json:"reset_token"`
	ExpiresAt  string `json:"expires_at"`
	ResetURL   string `json:"reset_url"`
}

type passwordChangedPayload struct {
	UserName  string `json:"user_name"`
	ChangedAt string `json:"changed_at"`
}

type accountApprovalPayload struct {
	UserName   string `json:"user_name"`
	LoginURL   string `json:"login_url"`
	ApprovedAt string `json:"approved_at"`
}

// decodeEnvelope parses and validates the common envelope fields. A message
// failing here is malformed: it goes straight to the dead letter queue and
// is never retried.
func decodeEnvelope(ctx context.Context, t *asynq.Task, dlq DeadLetterer) (*shared.EventEnvelope, error) {
	var env shared.EventEnvelope
	if err := json.Unmarshal(t.Payload(), &env); err != nil {
		deadLetter(ctx, dlq, t, fmt.Errorf("invalid envelope: %w", err))
		return nil, asynq.SkipRetry
	}
	if env.To == "" {
		deadLetter(ctx, dlq, t, errors.New("envelope missing recipient"))
		return nil, asynq.SkipRetry
	}
	return &env, nil
}

func decodeData(ctx context.Context, t *asynq.Task, env *shared.EventEnvelope, dest any, dlq DeadLetterer) error {
	if err := json.Unmarshal(env.Data, dest); err != nil {
		deadLetter(ctx, dlq, t, fmt.Errorf("invalid %s data: %w", env.Type, err))
		return asynq.SkipRetry
	}
	return nil
}

// requireField dead-letters the message when a required payload field is
// empty. Missing fields are a producer bug, never worth a retry.
func requireField(ctx context.Context, t *asynq.Task, dlq DeadLetterer, name, value string) error {
	if value == "" {
		deadLetter(ctx, dlq, t, fmt.Errorf("%s data missing %s", t.Type(), name))
		return asynq.SkipRetry
	}
	return nil
}

func deadLetter(ctx context.Context, dlq DeadLetterer, t *asynq.Task, cause error) {
	if err := dlq.PublishDeadLetter(ctx, t.Payload(), cause); err != nil {
		logger.ErrorFields("failed to dead letter message", err, map[string]interface{}{
			"type": t.Type(),
		})
	}
}

// sendOrRetry returns the send error for asynq to retry. Once the retry
// budget is exhausted the message is parked in the dead letter queue
// instead of the archive.
func sendOrRetry(ctx context.Context, t *asynq.Task, dlq DeadLetterer, err error) error {
	if err == nil {
		return nil
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried >= maxRetry {
		deadLetter(ctx, dlq, t, fmt.Errorf("retries exhausted: %w", err))
		return fmt.Errorf("delivery failed after %d retries: %w", retried, asynq.SkipRetry)
	}

	return err
}

func EmailVerificationHandler(emailSvc email.EmailService, dlq DeadLetterer) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		env, err := decodeEnvelope(ctx, t, dlq)
		if err != nil {
			return err
		}

		var p verificationPayload
		if err := decodeData(ctx, t, env, &p, dlq); err != nil {
			return err
		}
		if err := requireField(ctx, t, dlq, "user_name", p.UserName); err != nil {
			return err
		}
		if err := requireField(ctx, t, dlq, "verification_token", p.VerificationToken); err != nil {
			return err
		}

		return sendOrRetry(ctx, t, dlq, emailSvc.SendVerificationEmail(ctx, email.VerificationEmailData{
			Email:             env.To,
			UserName:          p.UserName,
			VerificationToken: p.VerificationToken,
			VerificationURL:   p.VerificationURL,
			ExpiresAt:         p.ExpiresAt,
		}))
	}
}

func EmailResetPasswordHandler(emailSvc email.EmailService, dlq DeadLetterer) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		env, err := decodeEnvelope(ctx, t, dlq)
		if err != nil {
			return err
		}

		var p resetPasswordPayload
		if err := decodeData(ctx, t, env, &p, dlq); err != nil {
			return err
		}
		if err := requireField(ctx, t, dlq, "user_name", p.UserName); err != nil {
			return err
		}
		if err := requireField(ctx, t, dlq, "reset_token", p.ResetToken); err != nil {
			return err
		}

		return sendOrRetry(ctx, t, dlq, emailSvc.SendResetPasswordEmail(ctx, email.ResetPasswordData{
			Email:      env.To,
			UserName:   p.UserName,
			ResetToken: p.ResetToken,
			ResetURL:   p.ResetURL,
			ExpiresAt:  p.ExpiresAt,
		}))
	}
}

func EmailPasswordChangedHandler(emailSvc email.EmailService, dlq DeadLetterer) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		env, err := decodeEnvelope(ctx, t, dlq)
		if err != nil {
			return err
		}

		var p passwordChangedPayload
		if err := decodeData(ctx, t, env, &p, dlq); err != nil {
			return err
		}
		if err := requireField(ctx, t, dlq, "user_name", p.UserName); err != nil {
			return err
		}
		if err := requireField(ctx, t, dlq, "changed_at", p.ChangedAt); err != nil {
			return err
		}

		return sendOrRetry(ctx, t, dlq, emailSvc.SendPasswordChangedEmail(ctx, email.PasswordChangedData{
			Email:     env.To,
			UserName:  p.UserName,
			ChangedAt: p.ChangedAt,
		}))
	}
}

func EmailAccountApprovalHandler(emailSvc email.EmailService, dlq DeadLetterer) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		env, err := decodeEnvelope(ctx, t, dlq)
		if err != nil {
			return err
		}

		var p accountApprovalPayload
		if err := decodeData(ctx, t, env, &p, dlq); err != nil {
			return err
		}
		if err := requireField(ctx, t, dlq, "user_name", p.UserName); err != nil {
			return err
		}
		if err := requireField(ctx, t, dlq, "approved_at", p.ApprovedAt); err != nil {
			return err
		}

		return sendOrRetry(ctx, t, dlq, emailSvc.SendAccountApprovalEmail(ctx, email.AccountApprovalData{
			Email:      env.To,
			UserName:   p.UserName,
			LoginURL:   p.LoginURL,
			ApprovedAt: p.ApprovedAt,
		}))
	}
}
