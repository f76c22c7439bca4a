package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/email/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeSender struct {
	failures int
	calls    int
	sent     []*mail.Msg
}

func (f *fakeSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func newTestService(t *testing.T, sender *fakeSender) *EmailService {
	t.Helper()
	s, err := NewEmailService(&types.EmailConfig{
		SMTPHost:      "smtp.example.com",
		SMTPPort:      587,
		FromAddr:      "catalog@example.com",
		FromName:      "Doc Catalog",
		MaxRetries:    3,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	s.dial = func() (Sender, error) { return sender, nil }
	return s
}

func TestNewEmailService_Validation(t *testing.T) {
	_, err := NewEmailService(nil)
	assert.Error(t, err)

	_, err = NewEmailService(&types.EmailConfig{FromAddr: "a@b.c"})
	assert.Error(t, err)

	_, err = NewEmailService(&types.EmailConfig{SMTPHost: "smtp"})
	assert.Error(t, err)

	cfg := &types.EmailConfig{SMTPHost: "smtp", FromAddr: "a@b.c"}
	_, err = NewEmailService(cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.SendTimeout)
}

func TestSendEmail_RetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failures: 2}
	s := newTestService(t, sender)

	status, err := s.SendEmail(context.Background(), &types.Email{
		To:      []string{"ops@example.com"},
		Subject: "File uploaded",
		Body:    "Q3 report.pdf",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, status.Attempts)
	assert.NotEmpty(t, status.MessageID)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"File uploaded"}, sender.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestSendEmail_GivesUp(t *testing.T) {
	sender := &fakeSender{failures: 10}
	s := newTestService(t, sender)

	_, err := s.SendEmail(context.Background(), &types.Email{
		To:      []string{"ops@example.com"},
		Subject: "x",
		Body:    "y",
	})
	assert.Error(t, err)
	assert.Equal(t, 3, sender.calls)
}

func TestSendEmail_InvalidEmail(t *testing.T) {
	s := newTestService(t, &fakeSender{})

	tests := []struct {
		name  string
		email *types.Email
	}{
		{"nil", nil},
		{"no recipients", &types.Email{Subject: "s", Body: "b"}},
		{"no subject", &types.Email{To: []string{"a@b.c"}, Body: "b"}},
		{"no body", &types.Email{To: []string{"a@b.c"}, Subject: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SendEmail(context.Background(), tt.email)
			assert.Error(t, err)
		})
	}
}
