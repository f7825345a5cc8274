package notify

import (
	"context"
	"errors"
	"resultfetcher/internal/batch"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/gpa"
	"resultfetcher/internal/portal"
	"resultfetcher/internal/roster"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*email.Email
	fail map[string]bool
}

func (f *fakeSender) Send(ctx context.Context, mail *email.Email) error {
	if f.fail[mail.To[0]] {
		return errors.New("550 mailbox unavailable")
	}
	f.sent = append(f.sent, mail)
	return nil
}

func ranked(rank int, index, mail, name string, value float64) batch.Ranked {
	return batch.Ranked{
		Rank: rank,
		Outcome: batch.Outcome{
			Student: roster.Student{Credentials: portal.Credentials{Index: index}, Email: mail},
			Name:    name,
			Gpa:     gpa.Result{Gpa: value},
		},
	}
}

func TestSendRanks(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"bob@example.com": true}}
	rec := &telemetry.Recorder{}
	notifier := NewNotifier(sender, Options{
		From:        "Result Fetcher <fetcher@example.com>",
		Domain:      "stu.example.com",
		Institution: "UCSC",
	}, rec)

	sent, err := notifier.SendRanks(context.Background(), []batch.Ranked{
		ranked(1, "1001", "alice@example.com", "Alice", 3.856),
		ranked(2, "1002", "bob@example.com", "Bob", 3.5),
		ranked(3, "1003", "", "Student 1003", 3.1),
	})
	require.NoError(t, err)
	require.Equal(t, 2, sent)

	require.Len(t, sender.sent, 2)
	require.Equal(t, []string{"alice@example.com"}, sender.sent[0].To)
	require.Equal(t, "Your UCSC Academic Rank Notification", sender.sent[0].Subject)
	require.Equal(t, "Result Fetcher <fetcher@example.com>", sender.sent[0].From)
	require.Contains(t, string(sender.sent[0].Text), "Dear Alice,")
	require.Contains(t, string(sender.sent[0].Text), "Rank: 1")
	require.Contains(t, string(sender.sent[0].Text), "GPA (3.86)")

	require.Equal(t, []string{"1003@stu.example.com"}, sender.sent[1].To)

	require.Len(t, rec.Broken("notify.send-ranks"), 1)
	require.Len(t, rec.Warnings("notify.send-ranks"), 1)
}

func TestSendRanksCancelled(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewNotifier(sender, Options{Domain: "stu.example.com"}, &telemetry.Recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent, err := notifier.SendRanks(ctx, []batch.Ranked{ranked(1, "1001", "", "A", 4)})
	require.Error(t, err)
	require.Equal(t, 0, sent)
	require.Empty(t, sender.sent)
}

func TestRankSubjectWithoutInstitution(t *testing.T) {
	notifier := NewNotifier(&fakeSender{}, Options{}, &telemetry.Recorder{})
	require.Equal(t, RankSubject, notifier.subject())
	require.Contains(t, RankMessage(ranked(4, "1", "", "Dana", 2), ""), "Result Fetcher System")
}

func TestSendCheck(t *testing.T) {
	smtpConfig := SmtpConfig{Server: "smtp.example.com", Port: 587, EmailAddress: "fetcher@example.com", Password: "hunter2"}

	sender := &fakeSender{}
	rec := &telemetry.Recorder{}
	notifier := NewNotifier(sender, Options{From: "fetcher@example.com", Institution: "UCSC"}, rec)

	err := notifier.SendCheck(context.Background(), "admin@example.com", smtpConfig)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Equal(t, []string{"admin@example.com"}, sender.sent[0].To)
	require.Equal(t, "UCSC Result Fetcher - Test Email", sender.sent[0].Subject)

	body := string(sender.sent[0].Text)
	require.Contains(t, body, "SMTP Server: smtp.example.com")
	require.Contains(t, body, "SMTP Port: 587")
	require.Contains(t, body, "From Email: fetcher@example.com")
	require.NotContains(t, body, "hunter2")

	err = notifier.SendCheck(context.Background(), " ", smtpConfig)
	require.Error(t, err)
	require.Len(t, sender.sent, 1)

	failing := &fakeSender{fail: map[string]bool{"admin@example.com": true}}
	notifier = NewNotifier(failing, Options{}, rec)
	err = notifier.SendCheck(context.Background(), "admin@example.com", smtpConfig)
	require.Error(t, err)
	require.Len(t, rec.Broken("notify.check"), 1)
}
