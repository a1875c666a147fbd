// Package notify delivers matched-fare alerts over email and SMS.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/jtomic/farewatch/internal/config"
	"github.com/jtomic/farewatch/pkg/logger"
)

const twilioBaseURL = "https://api.twilio.com"

// Deal carries everything needed to compose an alert message for the
// single cheapest matching itinerary.
type Deal struct {
	Route         string
	Airline       string
	Price         float64
	TargetPrice   float64
	Currency      string
	DurationMin   int
	Layovers      int
	LayoverInfo   string
	DepartureTime string
	ArrivalTime   string
	BookingLink   string
	SearchLink    string
}

// Outcome reports per-channel delivery results. Failures are returned
// as values, never escalated: a failed notification must not abort the
// caller's loop.
type Outcome struct {
	EmailSent bool
	SMSSent   bool
	Errors    []error
}

// Failed reports whether any enabled channel failed to deliver.
func (o Outcome) Failed() bool { return len(o.Errors) > 0 }

// Notifier dispatches alerts over the channels that are both enabled
// and fully configured. A channel missing credentials is silently
// inactive rather than an error.
type Notifier struct {
	email      config.EmailConfig
	sms        config.SMSConfig
	smsBaseURL string
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a new notifier
func New(email config.EmailConfig, sms config.SMSConfig, logger *logger.Logger) *Notifier {
	return &Notifier{
		email:      email,
		sms:        sms,
		smsBaseURL: twilioBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("notify"),
	}
}

// EmailEnabled reports whether the email channel is active.
func (n *Notifier) EmailEnabled() bool {
	return n.email.Enabled && n.email.SMTPHost != "" && n.email.Sender != "" && n.email.Password != ""
}

// SMSEnabled reports whether the SMS channel is active.
func (n *Notifier) SMSEnabled() bool {
	return n.sms.Enabled && n.sms.AccountSID != "" && n.sms.AuthToken != "" && n.sms.FromNumber != ""
}

// Send delivers the deal over every active channel that has a
// recipient. All delivery errors are logged and collected in the
// outcome.
func (n *Notifier) Send(ctx context.Context, deal Deal, emailTo, phoneTo string) Outcome {
	var out Outcome

	if n.EmailEnabled() && emailTo != "" {
		if err := n.sendEmail(emailTo, deal); err != nil {
			n.logger.Error("Failed to send email alert",
				logger.String("to", emailTo),
				logger.Error(err),
			)
			out.Errors = append(out.Errors, fmt.Errorf("email to %s: %w", emailTo, err))
		} else {
			n.logger.Info("Sent email alert", logger.String("to", emailTo))
			out.EmailSent = true
		}
	}

	if n.SMSEnabled() && phoneTo != "" {
		if err := n.sendSMS(ctx, phoneTo, deal); err != nil {
			n.logger.Error("Failed to send SMS alert",
				logger.String("to", phoneTo),
				logger.Error(err),
			)
			out.Errors = append(out.Errors, fmt.Errorf("sms to %s: %w", phoneTo, err))
		} else {
			n.logger.Info("Sent SMS alert", logger.String("to", phoneTo))
			out.SMSSent = true
		}
	}

	return out
}

func (n *Notifier) sendEmail(to string, deal Deal) error {
	addr := fmt.Sprintf("%s:%d", n.email.SMTPHost, n.email.SMTPPort)
	auth := smtp.PlainAuth("", n.email.Sender, n.email.Password, n.email.SMTPHost)
	msg := strings.Join([]string{
		"From: " + n.email.Sender,
		"To: " + to,
		"Subject: " + EmailSubject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		ComposeEmailBody(deal),
	}, "\r\n")
	return smtp.SendMail(addr, auth, n.email.Sender, []string{to}, []byte(msg))
}

func (n *Notifier) sendSMS(ctx context.Context, to string, deal Deal) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.smsBaseURL, n.sms.AccountSID)
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", n.sms.FromNumber)
	form.Set("Body", ComposeSMSBody(deal))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(n.sms.AccountSID, n.sms.AuthToken)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
