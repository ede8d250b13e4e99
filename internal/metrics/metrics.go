package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tickethub_webhook_events_total",
	Help: "Paystack webhook deliveries by event type and outcome",
}, []string{"type", "outcome"})

var WebhookUnresolved = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tickethub_webhook_unresolved_total",
	Help: "Webhook deliveries whose organization could not be resolved",
})

var EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tickethub_emails_total",
	Help: "Transactional emails by kind and status",
}, []string{"kind", "status"})

var SMSSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tickethub_sms_total",
	Help: "SMS messages by kind and status",
}, []string{"kind", "status"})

var TicketScans = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tickethub_ticket_scans_total",
	Help: "Ticket validations and check-ins by result",
}, []string{"action", "result"})

var BillingOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tickethub_billing_operations_total",
	Help: "Billing initialize/verify/cancel calls by outcome",
}, []string{"operation", "outcome"})

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
