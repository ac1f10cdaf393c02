// Package mail 邮件投递
//
// 封装 SMTP 发信：验证码邮件和密码重置邮件。
// 邮件服务视为外部协作方，投递失败由调用方决定回滚策略。
package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender 邮件发送接口
type Sender interface {
	// SendOTP 发送验证码邮件，purpose 决定邮件文案
	SendOTP(to, code, purpose string) error
	// SendResetLink 发送密码重置链接邮件
	SendResetLink(to, resetURL string) error
}

// SMTPConfig SMTP 配置
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"-"` // 从 SMTP_USERNAME 环境变量读取
	Password string `yaml:"-"` // 从 SMTP_PASSWORD 环境变量读取
	From     string `yaml:"from"`
}

// SMTPSender 基于 gomail 的 SMTP 发送实现
type SMTPSender struct {
	cfg SMTPConfig
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender 创建 SMTP 发送器
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// SendOTP 发送验证码邮件
func (s *SMTPSender) SendOTP(to, code, purpose string) error {
	var subject, body string
	switch purpose {
	case "password-reset":
		subject = "Password Reset Code"
		body = fmt.Sprintf("Your password reset code is: %s\n\nThis code will expire in 10 minutes.", code)
	default:
		subject = "Email Verification Code"
		body = fmt.Sprintf("Your email verification code is: %s\n\nThis code will expire in 10 minutes.", code)
	}
	return s.send(to, subject, body)
}

// SendResetLink 发送密码重置链接邮件
func (s *SMTPSender) SendResetLink(to, resetURL string) error {
	body := fmt.Sprintf("Click the following link to reset your password:\n\n%s\n\n"+
		"This link will expire in 10 minutes.\n\n"+
		"If you did not request this reset, please ignore this email.", resetURL)
	return s.send(to, "Password Reset Link", body)
}

func (s *SMTPSender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
