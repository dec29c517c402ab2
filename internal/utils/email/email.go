package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/dberezin/bank-core/internal/config"
	"github.com/dberezin/bank-core/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendMovementNotification sends a notification email for a deposit or
// withdrawal on the given account.
func (s *Sender) SendMovementNotification(to, name, accountNumber, kind string, amount, balance decimal.Decimal) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}

	masked := accountNumber
	if len(masked) > 4 {
		masked = "****" + masked[len(masked)-4:]
	}

	body := fmt.Sprintf("Dear %s,\n\n", name)
	switch kind {
	case models.TransactionTypeDeposit:
		e.Subject = "Deposit Notification"
		body += fmt.Sprintf(
			"Your account %s has been credited with $%s.\n"+
				"Transaction time: %s\n"+
				"Current balance: $%s\n",
			masked, amount.StringFixed(2), time.Now().Format("2006-01-02 15:04:05"), balance.StringFixed(2),
		)
	case models.TransactionTypeWithdrawal:
		e.Subject = "Withdrawal Notification"
		body += fmt.Sprintf(
			"An amount of $%s has been withdrawn from your account %s.\n"+
				"Transaction time: %s\n"+
				"Current balance: $%s\n",
			amount.StringFixed(2), masked, time.Now().Format("2006-01-02 15:04:05"), balance.StringFixed(2),
		)
	default:
		return fmt.Errorf("unknown movement kind: %s", kind)
	}
	body += "\nBest regards,\nBank Core"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
