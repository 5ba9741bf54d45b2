package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeSessionPurge removes expired session rows.
	TaskTypeSessionPurge = "sessions:purge"
	// TaskTypePermissionDigest mails a summary of recent permission changes.
	TaskTypePermissionDigest = "authz:digest"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewSessionPurgeTask constructs the periodic session purge task.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionPurge, nil)
}

// NewPermissionDigestTask constructs the periodic permission digest task.
func NewPermissionDigestTask() *asynq.Task {
	return asynq.NewTask(TaskTypePermissionDigest, nil)
}

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	Addr string
	From string
}

// Send delivers the message via the configured relay.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg.String()))
}

// NewSendEmailHandler returns the handler for TaskTypeSendEmail tasks.
func NewSendEmailHandler(mailer Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.To == "" {
			return asynq.SkipRetry
		}
		return mailer.Send(ctx, payload.To, payload.Subject, payload.Body)
	}
}
