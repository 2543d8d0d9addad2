package notify

import (
	"fmt"
	"net/smtp"

	"github.com/bassline/ledger-service/internal/config"
	"github.com/bassline/ledger-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles payment-reminder emails via SMTP
type Sender struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// SendPaymentReminder emails a user that a loan payment has fallen due
func (s *Sender) SendPaymentReminder(user *models.User, loan *models.Loan) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}
	e.Subject = "Upcoming Loan Payment Reminder"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your loan payment of %.2f is due on %s.\n"+
			"Remaining payments: %d of %d.\n"+
			"Please ensure sufficient funds are available.\n"+
			"\nBest regards,\nBassline Ledger",
		user.Name, loan.MonthlyPayment, loan.NextPaymentDate.Format("2006-01-02"),
		loan.TermRemaining, loan.Term,
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.log.Errorf("Failed to send reminder to %s: %v", user.Email, err)
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	s.log.Infof("Reminder sent to %s for loan %s", user.Email, loan.ID)
	return nil
}
