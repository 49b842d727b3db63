package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/debt-insights/internal/config"
	"github.com/Dan9191/debt-insights/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendTrainingReport mails the telemetry of a finished training run to the
// operators' address
func (s *Sender) SendTrainingReport(runID string, statuses []models.ModelStatus) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.ReportEmail}
	e.Subject = "Debt Insights Model Training Report"
	if trainedOnSyntheticData(statuses) {
		e.Subject += " (synthetic data)"
	}
	e.Text = []byte(trainingReportBody(runID, statuses))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send training report to %s: %v", s.cfg.ReportEmail, err)
		return fmt.Errorf("failed to send training report: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.ReportEmail, e.Subject)
	return nil
}

func trainedOnSyntheticData(statuses []models.ModelStatus) bool {
	for _, st := range statuses {
		if st.SyntheticData {
			return true
		}
	}
	return false
}

func trainingReportBody(runID string, statuses []models.ModelStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Models were retrained (run %s).\n\n", runID)
	for _, st := range statuses {
		fmt.Fprintf(&b, "%s\n", st.ModelName)
		if st.LastTrained != nil {
			fmt.Fprintf(&b, "  Trained at:      %s\n", st.LastTrained.Format("2006-01-02 15:04:05 MST"))
		}
		fmt.Fprintf(&b, "  Sample size:     %d\n", st.SampleSize)
		if st.AccuracyScore != nil {
			fmt.Fprintf(&b, "  Accuracy:        %.3f\n", *st.AccuracyScore)
		}
		if st.MeanSquaredError != nil {
			fmt.Fprintf(&b, "  Mean sq. error:  %.4f\n", *st.MeanSquaredError)
		}
		if st.SyntheticData {
			b.WriteString("  Trained on synthetic data: the ledger had too few rows.\n")
		}
		if st.LabelsForced {
			b.WriteString("  Risk labels were uniform; one label was altered to allow training.\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Best regards,\nDebt Insights")
	return b.String()
}
