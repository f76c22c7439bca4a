package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/doc-catalog-backend/internal/catalog/biz"
	"github.com/lk2023060901/doc-catalog-backend/internal/email/types"
	"github.com/lk2023060901/doc-catalog-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// mailer 由 email/service.EmailService 实现
type mailer interface {
	SendEmail(ctx context.Context, email *types.Email) (*types.EmailStatus, error)
}

// EmailNotifier 把文件事件以邮件形式发给固定收件人
type EmailNotifier struct {
	mailer     mailer
	recipients []string
	logger     *logger.Logger
}

// NewEmailNotifier 创建邮件通知
func NewEmailNotifier(m mailer, recipients []string, log *logger.Logger) *EmailNotifier {
	return &EmailNotifier{mailer: m, recipients: recipients, logger: log.Named("notifier")}
}

var eventSubjects = map[biz.EventType]string{
	biz.EventUploaded:        "File uploaded",
	biz.EventCategoryChanged: "File category changed",
	biz.EventStatusChanged:   "File status changed",
	biz.EventDeleted:         "File deleted",
}

// Notify 发送一封事件邮件；没有收件人时跳过
func (n *EmailNotifier) Notify(ctx context.Context, event biz.Event) error {
	if len(n.recipients) == 0 || event.File == nil {
		return nil
	}

	subject, ok := eventSubjects[event.Type]
	if !ok {
		subject = "File " + string(event.Type)
	}

	status, err := n.mailer.SendEmail(ctx, &types.Email{
		To:      n.recipients,
		Subject: fmt.Sprintf("[Doc Catalog] %s: %s", subject, event.File.OriginalName),
		Body:    renderEvent(event),
		Headers: map[string]string{"X-Catalog-Event": string(event.Type)},
	})
	if err != nil {
		return fmt.Errorf("failed to send %s notification: %w", event.Type, err)
	}

	n.logger.Debug("notification sent",
		zap.String("event", string(event.Type)),
		zap.String("file_id", event.File.ID),
		zap.String("message_id", status.MessageID))
	return nil
}

func renderEvent(e biz.Event) string {
	f := e.File
	var b strings.Builder
	fmt.Fprintf(&b, "File:        %s\n", f.OriginalName)
	fmt.Fprintf(&b, "ID:          %s\n", f.ID)
	fmt.Fprintf(&b, "Category:    %s\n", categoryPath(f))
	fmt.Fprintf(&b, "Period:      %s\n", period(f))
	fmt.Fprintf(&b, "Status:      %s\n", f.Status)
	fmt.Fprintf(&b, "Size:        %s\n", biz.FormatSize(f.Size))

	switch e.Type {
	case biz.EventCategoryChanged:
		fmt.Fprintf(&b, "Previous category: %s\n", e.Previous)
	case biz.EventStatusChanged:
		fmt.Fprintf(&b, "Previous status:   %s\n", e.Previous)
	}
	if e.Actor != "" {
		fmt.Fprintf(&b, "By:          %s\n", e.Actor)
	}
	fmt.Fprintf(&b, "At:          %s\n", e.At.UTC().Format(time.RFC3339))
	return b.String()
}

func categoryPath(f *biz.FileRecord) string {
	if f.SubCategory == "" {
		return f.Category
	}
	return f.Category + " / " + f.SubCategory
}

func period(f *biz.FileRecord) string {
	if f.Month == 0 {
		return fmt.Sprintf("%d", f.Year)
	}
	return fmt.Sprintf("%d-%02d", f.Year, f.Month)
}
