package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"resultfetcher/internal/batch"
	"resultfetcher/internal/components/assert"
	"resultfetcher/internal/components/telemetry"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("resultfetcher/notify")

const (
	report_notify_send_ranks = "notify.send-ranks"
	report_notify_sent       = "notify.sent"
	report_notify_check      = "notify.check"
)

const (
	RankSubject  = "Your Academic Rank Notification"
	CheckSubject = "Result Fetcher - Test Email"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Sender delivers a composed e-mail.
//
// note: fault injection point
type Sender interface {
	Send(ctx context.Context, mail *email.Email) error
}

// SmtpSender sends through an SMTP server with PLAIN auth, falling back to
// no auth for servers that do not support it.
type SmtpSender struct {
	config SmtpConfig
}

func NewSmtpSender(config SmtpConfig) SmtpSender {
	assert.NotEmptyStr(config.Server)
	return SmtpSender{config: config}
}

func (s SmtpSender) Send(ctx context.Context, mail *email.Email) error {
	_, span := tracer.Start(ctx, "SmtpSender:Send")
	defer span.End()

	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

type Options struct {
	// From is the sender address, optionally with a display name.
	From string
	// Domain is used for students without an e-mail: <index>@<domain>.
	Domain string
	// Pacing is the minimum interval between two mails.
	Pacing time.Duration
	// Institution is named in the subject and body, it may be empty.
	Institution string
}

type Notifier struct {
	sender  Sender
	options Options
	limiter *rate.Limiter
	tel     telemetry.API
}

func NewNotifier(sender Sender, options Options, tel telemetry.API) Notifier {
	assert.NotNil(sender)
	assert.NotNil(tel)

	limit := rate.Inf
	if options.Pacing > 0 {
		limit = rate.Every(options.Pacing)
	}
	return Notifier{
		sender:  sender,
		options: options,
		limiter: rate.NewLimiter(limit, 1),
		tel:     telemetry.NewScopedAPI("notify", tel),
	}
}

func (n Notifier) subject() string {
	if n.options.Institution == "" {
		return RankSubject
	}
	return fmt.Sprintf("Your %s Academic Rank Notification", n.options.Institution)
}

// RankMessage composes the rank notification body for one student.
func RankMessage(r batch.Ranked, institution string) string {
	system := "Result Fetcher"
	if institution != "" {
		system = institution + " Result Fetcher"
	}
	return fmt.Sprintf(`Dear %s,

This is an automated notification from the %s system.

Based on the latest batch processing of academic results, your current rank is:

Rank: %d

This ranking is calculated based on your GPA (%.2f) among all processed students.
Please note that this is for informational purposes only and may not reflect the official university standings.

This is an auto-generated email. Please do not reply to this message.

Best regards,
%s System
`, r.Name, system, r.Rank, r.Gpa.Gpa, system)
}

// SendRanks mails every ranked student their rank. A failed mail is reported
// and skipped, only a cancelled context stops the remaining mails.
func (n Notifier) SendRanks(ctx context.Context, ranked []batch.Ranked) (int, error) {
	ctx, span := tracer.Start(ctx, "Notifier:SendRanks")
	defer span.End()

	sent := 0
	for _, r := range ranked {
		err := n.limiter.Wait(ctx)
		if err != nil {
			return sent, err
		}

		to := r.Student.Address(n.options.Domain)
		if r.Student.Email == "" {
			n.tel.ReportWarning(report_notify_send_ranks, "no email address, using fallback", r.Student.Index, to)
		}

		mail := email.NewEmail()
		mail.From = n.options.From
		mail.To = []string{to}
		mail.Subject = n.subject()
		mail.Text = []byte(RankMessage(r, n.options.Institution))

		err = n.sender.Send(ctx, mail)
		if err != nil {
			n.tel.ReportBroken(report_notify_send_ranks, err, r.Student.Index, to)
			continue
		}
		n.tel.ReportDebug("rank email sent", r.Student.Index, r.Rank)
		sent++
	}

	n.tel.ReportCount(report_notify_sent, int64(sent))
	span.SetAttributes(attribute.Int("sent", sent))
	return sent, nil
}

// CheckMessage is the body of a settings check mail, it names the server and
// sender but never the password.
func CheckMessage(config SmtpConfig, institution string) string {
	system := "Result Fetcher"
	if institution != "" {
		system = institution + " Result Fetcher"
	}
	return fmt.Sprintf(`Hello,

This is a test email from the %s application.
If you received this email, your SMTP settings are configured correctly.

SMTP Server: %s
SMTP Port: %d
From Email: %s

This is an automated message. Please do not reply.

Best regards,
%s
`, system, config.Server, config.Port, config.EmailAddress, system)
}

// SendCheck mails a settings check to `to`.
func (n Notifier) SendCheck(ctx context.Context, to string, config SmtpConfig) error {
	ctx, span := tracer.Start(ctx, "Notifier:SendCheck")
	defer span.End()

	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("no address to send the test email to")
	}

	subject := CheckSubject
	if n.options.Institution != "" {
		subject = n.options.Institution + " " + CheckSubject
	}
	mail := email.NewEmail()
	mail.From = n.options.From
	mail.To = []string{to}
	mail.Subject = subject
	mail.Text = []byte(CheckMessage(config, n.options.Institution))

	err := n.sender.Send(ctx, mail)
	if err != nil {
		n.tel.ReportBroken(report_notify_check, err, to)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send test email")
		return err
	}
	n.tel.ReportDebug("test email sent", to)
	return nil
}
