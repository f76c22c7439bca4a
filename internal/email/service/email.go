package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/lk2023060901/doc-catalog-backend/internal/email/types"
	"github.com/wneessen/go-mail"
)

// Sender 发送一封已构建的邮件；生产实现为 *mail.Client
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailService SMTP 邮件服务
type EmailService struct {
	config *types.EmailConfig
	dial   func() (Sender, error)
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *types.EmailConfig) (*EmailService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("email config is required")
	}
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.FromAddr == "" {
		return nil, fmt.Errorf("from address is required")
	}

	// 设置默认值
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	s := &EmailService{config: cfg}
	s.dial = s.createClient
	return s, nil
}

// SendEmail 发送邮件，失败按配置重试
func (s *EmailService) SendEmail(ctx context.Context, email *types.Email) (*types.EmailStatus, error) {
	if email == nil {
		return nil, fmt.Errorf("email is required")
	}
	if err := s.validateEmail(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}

	msg, err := s.buildMessage(email)
	if err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}

	client, err := s.dial()
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}

	var attempts uint
	err = retry.Do(
		func() error {
			attempts++
			sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
			defer cancel()
			return client.DialAndSendWithContext(sendCtx, msg)
		},
		retry.Context(ctx),
		retry.Attempts(s.config.MaxRetries),
		retry.Delay(s.config.RetryInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send email after %d attempts: %w", attempts, err)
	}

	status := &types.EmailStatus{SentAt: time.Now(), Attempts: attempts}
	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		status.MessageID = ids[0]
	}
	return status, nil
}

// createClient 创建 SMTP 客户端；配置了用户名时使用 PLAIN 认证
func (s *EmailService) createClient() (Sender, error) {
	opts := []mail.Option{
		mail.WithPort(s.config.SMTPPort),
		mail.WithTimeout(s.config.ConnectTimeout),
	}

	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}

	if s.config.UseTLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	return mail.NewClient(s.config.SMTPHost, opts...)
}

// buildMessage 构建邮件消息
func (s *EmailService) buildMessage(email *types.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(s.formatAddress(s.config.FromAddr, s.config.FromName)); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	if len(email.Cc) > 0 {
		if err := msg.Cc(email.Cc...); err != nil {
			return nil, fmt.Errorf("set cc: %w", err)
		}
	}

	msg.Subject(email.Subject)
	if email.IsHTML {
		msg.SetBodyString(mail.TypeTextHTML, email.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, email.Body)
	}

	for key, value := range email.Headers {
		msg.SetGenHeader(mail.Header(key), value)
	}

	msg.SetGenHeader(mail.HeaderXMailer, "Doc-Catalog-Backend")
	msg.SetDate()
	msg.SetMessageID()

	return msg, nil
}

// validateEmail 验证邮件
func (s *EmailService) validateEmail(email *types.Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	if email.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if email.Body == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

// formatAddress 格式化邮件地址
func (s *EmailService) formatAddress(addr, name string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
