package events

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

type exportRow struct {
	TicketID     string `csv:"ticket_id"`
	Name         string `csv:"name"`
	Email        string `csv:"email"`
	Phone        string `csv:"phone"`
	Source       string `csv:"source"`
	Status       string `csv:"status"`
	CheckedInAt  string `csv:"checked_in_at"`
	CheckedInBy  string `csv:"checked_in_by"`
	RegisteredAt string `csv:"registered_at"`
}

func exportRows(list []attendee) []*exportRow {
	rows := make([]*exportRow, 0, len(list))
	for _, a := range list {
		row := &exportRow{
			TicketID:     a.TicketID,
			Name:         a.Name,
			Email:        a.Email,
			Phone:        a.Phone,
			Source:       string(a.Source),
			Status:       a.Status,
			CheckedInBy:  a.CheckedInBy,
			RegisteredAt: a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if a.CheckedInAt != nil {
			row.CheckedInAt = a.CheckedInAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

// GET /events/:id/attendees/export
func (h *Handler) ExportAttendees(c *gin.Context) {
	ev, ok := h.load(c)
	if !ok {
		return
	}
	list, err := h.attendees(c.Request.Context(), ev.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendees"})
		return
	}
	out, err := gocsv.MarshalBytes(exportRows(list))
	if err != nil {
		h.Log.Error("attendee export failed", zap.String("event_id", ev.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export attendees"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendees-%s.csv"`, ev.ID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}
