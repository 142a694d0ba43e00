package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"fines-service/internal/config"
)

// Notice carries the fine details rendered into a notification email.
type Notice struct {
	TicketID        string
	LicencePlate    string
	IssueDate       string
	ReferenceNumber string
	Price           string
	Authority       string
	PaymentURL      string
	ImageURL        string
}

var driverTemplate = template.Must(template.New("driver").Parse(`<html><body>
<h3>Parking Ticket Notice</h3>
<p>Your vehicle <strong>{{.LicencePlate}}</strong> has received a parking fine.</p>
<p><strong>Issue Date:</strong> {{.IssueDate}}<br>
   <strong>Reference:</strong> {{.ReferenceNumber}}<br>
   <strong>Price:</strong> {{.Price}}<br>
   <strong>Authority:</strong> {{.Authority}}</p>
<p>Please <a href="{{.PaymentURL}}">upload proof of payment</a>.</p>
<p><a href="{{.ImageURL}}">Click here to view the original ticket</a></p>
</body></html>`))

var adminTemplate = template.Must(template.New("admin").Parse(`<html><body>
<h3>Ticket Processing Failed</h3>
<p>No driver found for licence plate <strong>{{.LicencePlate}}</strong>.</p>
<p>Ticket ID: {{.TicketID}}<br>
   Issue Date: {{.IssueDate}}<br>
   Reference: {{.ReferenceNumber}}<br>
   Price: {{.Price}}</p>
<p><a href="{{.ImageURL}}">View the uploaded ticket</a></p>
</body></html>`))

// SMTPMailer sends the notification emails over SMTP. The dialer is a
// process-lifetime singleton; each send opens its own connection.
type SMTPMailer struct {
	dialer       *gomail.Dialer
	fromAddress  string
	adminAddress string
	log          zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer:       gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password),
		fromAddress:  cfg.Email.FromAddress,
		adminAddress: cfg.Email.AdminAddress,
		log:          log,
	}
}

// SendDriverNotice emails the resolved driver a payment request for the fine.
func (m *SMTPMailer) SendDriverNotice(to string, notice Notice) error {
	body, err := renderDriverBody(notice)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Ticket for Vehicle %s", notice.LicencePlate)
	if err := m.send(to, subject, body); err != nil {
		return fmt.Errorf("send driver notice: %w", err)
	}

	m.log.Info().
		Str("ticket_id", notice.TicketID).
		Str("to", to).
		Msg("driver notice sent")

	return nil
}

// SendAdminNotice emails the fallback notification to the fixed
// administrator address when no driver could be resolved.
func (m *SMTPMailer) SendAdminNotice(notice Notice) error {
	body, err := renderAdminBody(notice)
	if err != nil {
		return err
	}

	if err := m.send(m.adminAddress, "Ticket Processing Failed - No Driver Found", body); err != nil {
		return fmt.Errorf("send admin notice: %w", err)
	}

	m.log.Info().
		Str("ticket_id", notice.TicketID).
		Str("to", m.adminAddress).
		Msg("admin fallback notice sent")

	return nil
}

func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.fromAddress)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

func renderDriverBody(notice Notice) (string, error) {
	var buf bytes.Buffer
	if err := driverTemplate.Execute(&buf, notice); err != nil {
		return "", fmt.Errorf("render driver template: %w", err)
	}
	return buf.String(), nil
}

func renderAdminBody(notice Notice) (string, error) {
	var buf bytes.Buffer
	if err := adminTemplate.Execute(&buf, notice); err != nil {
		return "", fmt.Errorf("render admin template: %w", err)
	}
	return buf.String(), nil
}
