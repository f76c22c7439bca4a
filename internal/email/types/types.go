package types

import "time"

// EmailConfig SMTP 配置
type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host" json:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" json:"smtp_port"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"-"`
	FromAddr string `mapstructure:"from_addr" json:"from_addr"` // 发件人地址
	FromName string `mapstructure:"from_name" json:"from_name"` // 发件人名称
	UseTLS   bool   `mapstructure:"use_tls" json:"use_tls"`

	// 重试配置
	MaxRetries    uint          `mapstructure:"max_retries" json:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval" json:"retry_interval"`

	// 超时配置
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
	SendTimeout    time.Duration `mapstructure:"send_timeout" json:"send_timeout"`
}

// Email 邮件结构
type Email struct {
	To      []string          // 收件人
	Cc      []string          // 抄送
	Subject string            // 主题
	Body    string            // 正文（纯文本或 HTML）
	IsHTML  bool              // 是否为 HTML 正文
	Headers map[string]string // 自定义邮件头
}

// EmailStatus 邮件发送状态
type EmailStatus struct {
	MessageID string    // 邮件 ID
	SentAt    time.Time // 发送时间
	Attempts  uint      // 实际尝试次数
}
