package notify

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tickethub/internal/domain/events"
	"tickethub/internal/domain/registrations"
	"tickethub/internal/infra/arkesel"
	"tickethub/internal/infra/brevo"
	"tickethub/internal/metrics"
)

// BulkConcurrency bounds parallel sends in a bulk or attendee fan-out.
const BulkConcurrency = 10

var (
	ErrEmailNotConfigured = errors.New("email service is not configured")
	ErrSMSNotConfigured   = errors.New("sms service is not configured")
	ErrNoRecipients       = errors.New("no recipients")
	ErrMissingFields      = errors.New("missing required fields")
	ErrDelivery           = errors.New("delivery failed")
)

type Mailer interface {
	Configured() bool
	Send(ctx context.Context, email brevo.Email) (string, error)
}

type SMSSender interface {
	Configured() bool
	Send(ctx context.Context, recipients []string, message string) error
}

type Options struct {
	AppName string
	AppURL  string
	Logger  *zap.Logger
}

type Service struct {
	mail      Mailer
	sms       SMSSender
	attendees AttendeeStore
	appName   string
	appURL    string
	policy    *bluemonday.Policy
	log       *zap.Logger
	now       func() time.Time
}

func NewService(mail Mailer, sms SMSSender, attendees AttendeeStore, opts Options) *Service {
	s := &Service{
		mail:      mail,
		sms:       sms,
		attendees: attendees,
		appName:   opts.AppName,
		appURL:    strings.TrimRight(opts.AppURL, "/"),
		policy:    bluemonday.UGCPolicy(),
		log:       opts.Logger,
		now:       time.Now,
	}
	if s.appName == "" {
		s.appName = "TicketHub"
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *Service) mailReady() bool { return s.mail != nil && s.mail.Configured() }
func (s *Service) smsReady() bool  { return s.sms != nil && s.sms.Configured() }

type base struct {
	AppName string
}

func (s *Service) send(ctx context.Context, kind string, to brevo.Address, subject, tmpl string, data interface{}) error {
	if !s.mailReady() {
		return ErrEmailNotConfigured
	}
	to.Email = strings.TrimSpace(to.Email)
	if to.Email == "" {
		return ErrNoRecipients
	}
	html, err := render(tmpl, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	if _, err := s.mail.Send(ctx, brevo.Email{
		To:          []brevo.Address{to},
		Subject:     subject,
		HTMLContent: html,
		Tags:        []string{kind},
	}); err != nil {
		metrics.EmailsSent.WithLabelValues(kind, "failed").Inc()
		s.log.Warn("email send failed", zap.String("kind", kind), zap.String("to", to.Email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	metrics.EmailsSent.WithLabelValues(kind, "sent").Inc()
	return nil
}

type Invite struct {
	To          string
	OrgName     string
	InviterName string
	Role        string
	Token       string
	ExpiresAt   time.Time
}

func (s *Service) SendInvite(ctx context.Context, in Invite) error {
	if in.To == "" || in.OrgName == "" || in.Token == "" {
		return ErrMissingFields
	}
	data := struct {
		base
		Invite
		AcceptURL string
	}{base{s.appName}, in, s.appURL + "/invitations/accept?token=" + url.QueryEscape(in.Token)}
	subject := fmt.Sprintf("You're invited to join %s on %s", in.OrgName, s.appName)
	return s.send(ctx, "invite", brevo.Address{Email: in.To}, subject, "invite", data)
}

func (s *Service) SendWelcome(ctx context.Context, to, name string) error {
	data := struct {
		base
		Name         string
		DashboardURL string
	}{base{s.appName}, name, s.appURL + "/dashboard"}
	return s.send(ctx, "welcome", brevo.Address{Email: to, Name: name}, "Welcome to "+s.appName, "welcome", data)
}

func (s *Service) SendVerification(ctx context.Context, to, token string) error {
	data := struct {
		base
		Link string
	}{base{s.appName}, s.appURL + "/verify?token=" + url.QueryEscape(token)}
	return s.send(ctx, "verification", brevo.Address{Email: to}, "Verify your account", "verify", data)
}

func (s *Service) SendPasswordReset(ctx context.Context, to, token string) error {
	data := struct {
		base
		Link string
	}{base{s.appName}, s.appURL + "/reset-password?token=" + url.QueryEscape(token)}
	return s.send(ctx, "password_reset", brevo.Address{Email: to}, "Reset your password", "reset", data)
}

type Ticket struct {
	To        string
	Name      string
	Event     events.Event
	TicketID  string
	QRPayload string
}

// QRImageURL renders a payload through a public QR image service so mail
// clients can show it without attachments.
func QRImageURL(payload string) string {
	return "https://api.qrserver.com/v1/create-qr-code/?size=240x240&data=" + url.QueryEscape(payload)
}

func (s *Service) SendTicket(ctx context.Context, in Ticket) error {
	if in.To == "" || in.TicketID == "" {
		return ErrMissingFields
	}
	data := struct {
		base
		Name       string
		EventTitle string
		StartsAt   time.Time
		Venue      string
		TicketID   string
		QRImageURL string
	}{base{s.appName}, in.Name, in.Event.Title, in.Event.StartsAt, in.Event.Venue, in.TicketID, QRImageURL(in.QRPayload)}
	return s.send(ctx, "ticket", brevo.Address{Email: in.To, Name: in.Name}, "Your ticket: "+in.Event.Title, "ticket", data)
}

type BulkEmail struct {
	Recipients []brevo.Address
	Subject    string
	HTML       string
}

type BulkResult struct {
	Total        int      `json:"total"`
	EmailsSent   int64    `json:"emailsSent"`
	EmailsFailed int64    `json:"emailsFailed"`
	Failed       []string `json:"failed,omitempty"`
}

// SendBulk mails every recipient with at most BulkConcurrency sends in
// flight. Individual failures are counted and never stop the batch, so
// EmailsSent+EmailsFailed always equals Total.
func (s *Service) SendBulk(ctx context.Context, in BulkEmail) (BulkResult, error) {
	if !s.mailReady() {
		return BulkResult{}, ErrEmailNotConfigured
	}
	if len(in.Recipients) == 0 {
		return BulkResult{}, ErrNoRecipients
	}
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.HTML) == "" {
		return BulkResult{}, ErrMissingFields
	}

	data := struct {
		base
		Body template.HTML
	}{base{s.appName}, template.HTML(s.policy.Sanitize(in.HTML))}
	html, err := render("bulk", data)
	if err != nil {
		return BulkResult{}, err
	}

	res := s.fanOut(ctx, "bulk", in.Recipients, func(ctx context.Context, to brevo.Address) error {
		_, err := s.mail.Send(ctx, brevo.Email{
			To:          []brevo.Address{to},
			Subject:     in.Subject,
			HTMLContent: html,
			Tags:        []string{"bulk"},
		})
		return err
	})
	s.log.Info("bulk email finished",
		zap.Int("total", res.Total),
		zap.Int64("sent", res.EmailsSent),
		zap.Int64("failed", res.EmailsFailed))
	return res, nil
}

func (s *Service) fanOut(ctx context.Context, kind string, to []brevo.Address, send func(context.Context, brevo.Address) error) BulkResult {
	var (
		sent, failed atomic.Int64
		mu           sync.Mutex
		failedTo     []string
		g            errgroup.Group
	)
	g.SetLimit(BulkConcurrency)

	for _, addr := range to {
		addr := addr
		g.Go(func() error {
			if err := send(ctx, addr); err != nil {
				failed.Add(1)
				metrics.EmailsSent.WithLabelValues(kind, "failed").Inc()
				mu.Lock()
				failedTo = append(failedTo, addr.Email)
				mu.Unlock()
				s.log.Warn("email send failed", zap.String("kind", kind), zap.String("to", addr.Email), zap.Error(err))
				return nil
			}
			sent.Add(1)
			metrics.EmailsSent.WithLabelValues(kind, "sent").Inc()
			return nil
		})
	}
	_ = g.Wait()

	return BulkResult{
		Total:        len(to),
		EmailsSent:   sent.Load(),
		EmailsFailed: failed.Load(),
		Failed:       failedTo,
	}
}

type EventNotice struct {
	Event   events.Event
	Message string
	// SMS also texts attendees that left a phone number.
	SMS bool
}

type NoticeResult struct {
	Recipients int        `json:"recipients"`
	Email      BulkResult `json:"email"`
	SMSSent    int        `json:"smsSent"`
	SMSError   string     `json:"smsError,omitempty"`
}

func (s *Service) NotifyEventUpdate(ctx context.Context, in EventNotice) (NoticeResult, error) {
	return s.notifyAttendees(ctx, "event_update", "Update: "+in.Event.Title, in,
		fmt.Sprintf("%s update: %s. Check your email for details.", in.Event.Title, smsDate(in.Event.StartsAt)))
}

func (s *Service) NotifyEventCancelled(ctx context.Context, in EventNotice) (NoticeResult, error) {
	return s.notifyAttendees(ctx, "event_cancelled", "Cancelled: "+in.Event.Title, in,
		fmt.Sprintf("%s has been cancelled. Check your email for details.", in.Event.Title))
}

func smsDate(t time.Time) string {
	if t.IsZero() {
		return "new details"
	}
	return "now on " + t.Format("2 Jan 15:04")
}

// notifyAttendees emails every confirmed attendee of the event once, across
// web bookings and mobile rsvps.
func (s *Service) notifyAttendees(ctx context.Context, kind, subject string, in EventNotice, smsText string) (NoticeResult, error) {
	if !s.mailReady() {
		return NoticeResult{}, ErrEmailNotConfigured
	}
	all, err := s.attendees.ConfirmedAttendees(ctx, in.Event.ID)
	if err != nil {
		return NoticeResult{}, err
	}
	list := registrations.DedupeByEmail(all)
	out := NoticeResult{Recipients: len(list)}
	if len(list) == 0 {
		return out, nil
	}

	msg := template.HTML(s.policy.Sanitize(in.Message))
	to := make([]brevo.Address, 0, len(list))
	names := make(map[string]string, len(list))
	for _, a := range list {
		to = append(to, brevo.Address{Email: a.Email, Name: a.Name})
		names[a.Email] = a.Name
	}

	out.Email = s.fanOut(ctx, kind, to, func(ctx context.Context, addr brevo.Address) error {
		data := struct {
			base
			Name       string
			EventTitle string
			StartsAt   time.Time
			Venue      string
			Message    template.HTML
		}{base{s.appName}, firstName(names[addr.Email]), in.Event.Title, in.Event.StartsAt, in.Event.Venue, msg}
		html, err := render(kind, data)
		if err != nil {
			return err
		}
		_, err = s.mail.Send(ctx, brevo.Email{To: []brevo.Address{addr}, Subject: subject, HTMLContent: html, Tags: []string{kind}})
		return err
	})

	if in.SMS {
		phones := phonesOf(list)
		switch {
		case len(phones) == 0:
		case !s.smsReady():
			out.SMSError = ErrSMSNotConfigured.Error()
		default:
			if err := s.sms.Send(ctx, phones, smsText); err != nil {
				metrics.SMSSent.WithLabelValues(kind, "failed").Add(float64(len(phones)))
				out.SMSError = err.Error()
				s.log.Warn("sms send failed", zap.String("kind", kind), zap.String("event_id", in.Event.ID), zap.Error(err))
			} else {
				metrics.SMSSent.WithLabelValues(kind, "sent").Add(float64(len(phones)))
				out.SMSSent = len(phones)
			}
		}
	}

	s.log.Info("attendees notified",
		zap.String("kind", kind),
		zap.String("event_id", in.Event.ID),
		zap.Int("recipients", out.Recipients),
		zap.Int64("failed", out.Email.EmailsFailed))
	return out, nil
}

func phonesOf(list []registrations.Attendee) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, a := range list {
		p := arkesel.NormalizeGhanaNumber(a.Phone)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "there"
}

func (s *Service) SendTestEmail(ctx context.Context, to string) error {
	data := struct {
		base
		SentAt time.Time
	}{base{s.appName}, s.now()}
	return s.send(ctx, "test", brevo.Address{Email: to}, s.appName+" test email", "test", data)
}

func (s *Service) SendTestSMS(ctx context.Context, phone string) error {
	if !s.smsReady() {
		return ErrSMSNotConfigured
	}
	p := arkesel.NormalizeGhanaNumber(phone)
	if p == "" {
		return ErrNoRecipients
	}
	if err := s.sms.Send(ctx, []string{p}, s.appName+" test message. SMS delivery is working."); err != nil {
		metrics.SMSSent.WithLabelValues("test", "failed").Inc()
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	metrics.SMSSent.WithLabelValues("test", "sent").Inc()
	return nil
}
