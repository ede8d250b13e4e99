package ticketing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"tickethub/internal/domain/registrations"
	"tickethub/internal/metrics"
)

// Reasons a ticket is rejected.
const (
	ReasonInvalidPayload   = "invalid_payload"
	ReasonEventMismatch    = "event_mismatch"
	ReasonEventNotFound    = "event_not_found"
	ReasonTicketNotFound   = "ticket_not_found"
	ReasonBookingCancelled = "booking_cancelled"
	ReasonEventCancelled   = "event_cancelled"
	ReasonAlreadyCheckedIn = "already_checked_in"
)

var reasonMessages = map[string]string{
	ReasonInvalidPayload:   "QR code is not a valid ticket",
	ReasonEventMismatch:    "Ticket is for a different event",
	ReasonEventNotFound:    "Event not found",
	ReasonTicketNotFound:   "Ticket not found",
	ReasonBookingCancelled: "Booking has been cancelled",
	ReasonEventCancelled:   "Event has been cancelled",
	ReasonAlreadyCheckedIn: "Ticket has already been checked in",
}

type Ticket struct {
	TicketID    string     `json:"ticketId"`
	BookingID   string     `json:"bookingId"`
	EventID     string     `json:"eventId"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	Source      string     `json:"source"`
	CheckedInAt *time.Time `json:"checkedInAt,omitempty"`
	CheckedInBy string     `json:"checkedInBy,omitempty"`
}

type Result struct {
	Valid     bool    `json:"valid"`
	Reason    string  `json:"reason,omitempty"`
	Message   string  `json:"message,omitempty"`
	CheckedIn bool    `json:"checkedIn"`
	Ticket    *Ticket `json:"ticket,omitempty"`
}

func reject(reason string, t *Ticket) Result {
	return Result{Valid: false, Reason: reason, Message: reasonMessages[reason], Ticket: t}
}

// Reject is the result a scanner gets for reason when no ticket was read.
func Reject(reason string) Result {
	return reject(reason, nil)
}

type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log, now: time.Now}
}

// Validate checks a scanned QR payload against the event being scanned at.
// Store failures are returned as errors; every other outcome is a Result.
func (s *Service) Validate(ctx context.Context, eventID, raw string) (Result, error) {
	res, _, err := s.validate(ctx, eventID, raw)
	metrics.TicketScans.WithLabelValues("validate", resultLabel(res, err)).Inc()
	return res, err
}

// CheckIn validates the payload and records attendance. Only one of two
// concurrent scans of the same ticket succeeds.
func (s *Service) CheckIn(ctx context.Context, eventID, raw, operator string) (Result, error) {
	res, src, err := s.validate(ctx, eventID, raw)
	if err != nil || !res.Valid {
		metrics.TicketScans.WithLabelValues("check_in", resultLabel(res, err)).Inc()
		return res, err
	}

	at := s.now().UTC()
	won, err := s.store.MarkCheckedIn(ctx, src, res.Ticket.BookingID, at, operator)
	if err != nil {
		metrics.TicketScans.WithLabelValues("check_in", "error").Inc()
		return Result{}, err
	}
	if !won {
		// Lost to a concurrent scan; report the stored state.
		res, _, err = s.validate(ctx, eventID, raw)
		if err == nil && res.Valid {
			res = reject(ReasonAlreadyCheckedIn, res.Ticket)
		}
		metrics.TicketScans.WithLabelValues("check_in", resultLabel(res, err)).Inc()
		return res, err
	}

	res.CheckedIn = true
	res.Ticket.CheckedInAt = &at
	res.Ticket.CheckedInBy = operator
	s.log.Info("ticket checked in",
		zap.String("event_id", eventID),
		zap.String("ticket_id", res.Ticket.TicketID),
		zap.String("operator", operator))
	metrics.TicketScans.WithLabelValues("check_in", "ok").Inc()
	return res, nil
}

func (s *Service) validate(ctx context.Context, eventID, raw string) (Result, registrations.Source, error) {
	eventID = strings.TrimSpace(eventID)

	p, err := ParsePayload(raw)
	if err != nil {
		return reject(ReasonInvalidPayload, nil), "", nil
	}
	if p.EventID != eventID {
		return reject(ReasonEventMismatch, nil), "", nil
	}

	reg, src, err := s.store.FindByTicketID(ctx, p.TicketID)
	if errors.Is(err, ErrNotFound) {
		return reject(ReasonTicketNotFound, nil), "", nil
	}
	if err != nil {
		return Result{}, "", err
	}
	// A ticket id quoted under the wrong booking is treated as unknown.
	if p.BookingID != "" && p.BookingID != reg.ID {
		return reject(ReasonTicketNotFound, nil), "", nil
	}

	t := &Ticket{
		TicketID:    reg.TicketID,
		BookingID:   reg.ID,
		EventID:     reg.EventID,
		Name:        reg.Name,
		Email:       reg.Email,
		Status:      reg.Status,
		Source:      string(src),
		CheckedInAt: reg.CheckedInAt,
		CheckedInBy: reg.CheckedInBy,
	}
	if reg.EventID != eventID {
		return reject(ReasonEventMismatch, nil), "", nil
	}
	if reg.Status == registrations.StatusCancelled {
		return reject(ReasonBookingCancelled, t), src, nil
	}

	ev, err := s.store.FindEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		return reject(ReasonEventNotFound, nil), "", nil
	}
	if err != nil {
		return Result{}, "", err
	}
	if ev.IsCancelled() {
		return reject(ReasonEventCancelled, t), src, nil
	}
	if reg.CheckedInAt != nil {
		return reject(ReasonAlreadyCheckedIn, t), src, nil
	}
	return Result{Valid: true, Ticket: t}, src, nil
}

func resultLabel(res Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.Valid:
		return "ok"
	default:
		return res.Reason
	}
}
