package ticketing

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidPayload = errors.New("invalid ticket payload")

// Payload is what the QR code on a ticket encodes.
type Payload struct {
	BookingID string `json:"bookingId"`
	EventID   string `json:"eventId"`
	TicketID  string `json:"ticketId"`
}

// GenerateTicketID returns "TKT-" followed by 12 uppercase hex characters.
func GenerateTicketID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TKT-" + strings.ToUpper(id[:12])
}

func EncodePayload(bookingID, eventID, ticketID string) (string, error) {
	buf, err := json.Marshal(Payload{BookingID: bookingID, EventID: eventID, TicketID: ticketID})
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ParsePayload decodes a scanned QR string. A payload without a ticket id
// is rejected.
func ParsePayload(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return Payload{}, ErrInvalidPayload
	}
	p.BookingID = strings.TrimSpace(p.BookingID)
	p.EventID = strings.TrimSpace(p.EventID)
	p.TicketID = strings.TrimSpace(p.TicketID)
	if p.TicketID == "" {
		return Payload{}, ErrInvalidPayload
	}
	return p, nil
}
