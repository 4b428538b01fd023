package jobqueue

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/loglens/loglens/internal/pkg/mail"
)

// sendMailFunc is swapped out by tests.
var sendMailFunc = mail.SendMail

// processSendEmailJob delivers an outbound email via SMTP
func (q *Queue) processSendEmailJob(job *Job) error {
	payload, err := SendEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}

	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("email payload missing recipient")
	}

	if err := sendMailFunc(payload.To, payload.Subject, payload.Body); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", payload.To, err)
	}

	log.Infof("[JobQueue] Sent email %q to %s", payload.Subject, payload.To)
	return nil
}
