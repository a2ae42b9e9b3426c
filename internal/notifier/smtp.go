package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPNotifier sends notification email through an external SMTP relay
// using STARTTLS with plain authentication.
type SMTPNotifier struct {
	host        string
	port        string
	username    string
	password    string
	fromName    string
	frontendURL string
}

// Config holds SMTPNotifier settings
type Config struct {
	Host        string
	Port        string
	Username    string
	Password    string
	FromName    string
	FrontendURL string
}

// NewSMTPNotifier creates a new SMTPNotifier instance
func NewSMTPNotifier(cfg Config) *SMTPNotifier {
	return &SMTPNotifier{
		host:        cfg.Host,
		port:        cfg.Port,
		username:    cfg.Username,
		password:    cfg.Password,
		fromName:    cfg.FromName,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

// SendResetLink delivers a password-reset link to the account owner
func (n *SMTPNotifier) SendResetLink(ctx context.Context, email, rawToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", n.frontendURL, rawToken)
	body := fmt.Sprintf(`<p>Hello,</p>
<p>We received a request to reset your password. Click the link below to continue:</p>
<a href=%q>Reset Password</a>
<p>The link expires in one hour. If you did not request this change, you can ignore this email.</p>
<p>The %s team</p>`, resetURL, n.fromName)

	return n.send(ctx, email, fmt.Sprintf("Password Recovery - %s", n.fromName), body)
}

// SendLockoutAlert notifies the administrator that an account was locked
func (n *SMTPNotifier) SendLockoutAlert(ctx context.Context, adminEmail, accountEmail, unlockToken string) error {
	unlockURL := fmt.Sprintf("%s/unlock-account?token=%s", n.frontendURL, unlockToken)
	body := fmt.Sprintf(`<p>Hello,</p>
<p>The account <b>%s</b> has been locked after too many failed login attempts.</p>
<p>If this looks legitimate, you can unlock the account here:</p>
<a href=%q>Unlock Account</a>
<p>The %s team</p>`, accountEmail, unlockURL, n.fromName)

	return n.send(ctx, adminEmail, fmt.Sprintf("Account Locked - %s", n.fromName), body)
}

// send assembles and delivers a single HTML message. The smtp dial is not
// context-aware, so cancellation is honored only between steps.
func (n *SMTPNotifier) send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + n.fromName + " <" + n.username + ">",
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	addr := n.host + ":" + n.port
	auth := smtp.PlainAuth("", n.username, n.password, n.host)

	return smtp.SendMail(addr, auth, n.username, []string{to}, []byte(msg))
}
