package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"loan_pipeline_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSenderFromConfig builds a sender from the email settings, or a
// NoopSender when delivery is not configured.
func NewSMTPSenderFromConfig(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendTaskDueEmail(ctx context.Context, toEmail string, notice TaskDueNotice) error {
	content, err := renderEmailTemplate("task_due.html", taskDueEmailData{
		baseEmailData: baseEmailData{
			Title:   "Application follow-up due",
			Heading: "Application follow-up due",
		},
		BorrowerName: notice.BorrowerName,
		DueDate:      notice.DueDate,
		LeadID:       notice.LeadID,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectTaskDueFmt, notice.BorrowerName), content)
}

func (s *SMTPSender) SendConditionStatusEmail(ctx context.Context, toEmail string, notice ConditionStatusNotice) error {
	content, err := renderEmailTemplate("condition_status.html", conditionStatusEmailData{
		baseEmailData: baseEmailData{
			Title:      "Condition status changed",
			Heading:    "Condition status changed",
			Subheading: notice.Title,
		},
		ConditionTitle: notice.Title,
		OldStatus:      notice.OldStatus,
		NewStatus:      notice.NewStatus,
		LeadID:         notice.LeadID,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectConditionStatusFmt, notice.NewStatus, notice.Title), content)
}
