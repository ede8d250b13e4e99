package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	adminapi "tickethub/internal/api/admin"
	aiapi "tickethub/internal/api/ai"
	authapi "tickethub/internal/api/auth"
	billingapi "tickethub/internal/api/billing"
	bookingsapi "tickethub/internal/api/bookings"
	eventsapi "tickethub/internal/api/events"
	messagingapi "tickethub/internal/api/messaging"
	orgsapi "tickethub/internal/api/organizations"
	"tickethub/internal/api/paystackwebhook"
	plansapi "tickethub/internal/api/plans"
	ticketsapi "tickethub/internal/api/tickets"
	usersapi "tickethub/internal/api/users"
	"tickethub/internal/app/http/middleware"
	"tickethub/internal/domain/plans"
	"tickethub/internal/infra/identity"
)

// Deps carries everything the routes need. main builds it once.
type Deps struct {
	DB        *gorm.DB
	JWTSecret string
	Firebase  *identity.FirebaseVerifier
	Catalog   plans.Catalog

	Auth          *authapi.Handler
	Users         *usersapi.Handler
	Organizations *orgsapi.Handler
	Events        *eventsapi.Handler
	Bookings      *bookingsapi.Handler
	Tickets       *ticketsapi.Handler
	Billing       *billingapi.Handler
	Webhook       *paystackwebhook.Handler
	Messaging     *messagingapi.Handler
	AI            *aiapi.Handler
	Plans         *plansapi.Handler
	Admin         *adminapi.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Signature check needs the raw body, so no sanitizer here.
	r.POST("/webhooks/paystack", d.Webhook.Receive)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", d.Auth.Register)
	public.POST("/login", d.Auth.Login)
	public.GET("/verify", d.Auth.VerifyEmail)
	public.POST("/resend-verification", d.Auth.ResendVerification)
	public.POST("/request-password-reset", d.Auth.RequestPasswordReset)
	public.POST("/reset-password", d.Auth.ResetPassword)

	public.GET("/auth/google", d.Auth.GoogleStart)
	public.GET("/auth/google/callback", d.Auth.GoogleCallback)

	public.GET("/plans", d.Plans.ListPlans)
	public.GET("/public/events/:id", d.Events.GetPublic)
	public.GET("/events/:id/og-image", d.Events.OGImage)
	public.POST("/events/:id/bookings", d.Bookings.Book)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.DB, d.JWTSecret, d.Firebase))
	auth.GET("/me", d.Users.GetCurrentUser)
	auth.PUT("/me", d.Users.UpdateCurrentUser)
	auth.GET("/me/tickets", d.Bookings.MyTickets)
	auth.POST("/change-password", d.Auth.ChangePassword)
	auth.POST("/organizations", d.Organizations.Create)
	auth.POST("/invitations/accept", d.Organizations.AcceptInvite)
	auth.POST("/events/:id/rsvps", d.Bookings.RSVP)
	auth.POST("/bookings/:id/cancel", d.Bookings.Cancel)

	// Organization members
	org := auth.Group("/")
	org.Use(middleware.RequireOrganization())

	org.GET("/organizations/current", d.Organizations.Get)
	org.PUT("/organizations/current", d.Organizations.Update)
	org.GET("/organizations/current/members", d.Organizations.Members)
	org.POST("/organizations/current/invitations", d.Organizations.Invite)
	org.POST("/organizations/current/invitations/:id/resend", d.Organizations.ResendInvite)

	org.POST("/billing/initialize", d.Billing.Initialize)
	org.POST("/billing/verify", d.Billing.Verify)
	org.GET("/billing/verify", d.Billing.Verify)
	org.GET("/billing/manage", d.Billing.Manage)
	org.POST("/billing/manage/cancel", d.Billing.Cancel)
	org.GET("/billing/payments", d.Billing.Payments)

	org.GET("/events", d.Events.List)
	org.POST("/events", d.Events.Create)
	org.GET("/events/:id", d.Events.Get)
	org.PUT("/events/:id", d.Events.Update)
	org.DELETE("/events/:id", d.Events.Delete)
	org.POST("/events/:id/cancel", d.Events.Cancel)
	org.GET("/events/:id/attendees", d.Events.Attendees)
	org.GET("/events/:id/attendees/export",
		middleware.RequireFeature(d.DB, d.Catalog, plans.FeatureCheckInExport), d.Events.ExportAttendees)
	org.POST("/events/:id/image",
		middleware.RequireFeature(d.DB, d.Catalog, plans.FeatureCustomBanner), d.Events.UploadImage)
	org.POST("/events/:id/tickets/validate", d.Tickets.Validate)

	org.POST("/messaging/welcome", d.Messaging.Welcome)
	org.POST("/messaging/ticket", d.Messaging.Ticket)
	org.POST("/messaging/bulk",
		middleware.RequireFeature(d.DB, d.Catalog, plans.FeatureBulkEmail), d.Messaging.Bulk)

	notices := org.Group("/events/:id/notify")
	notices.Use(middleware.LoadPolicy(d.DB, d.Catalog))
	notices.POST("/update", d.Messaging.EventUpdate)
	notices.POST("/cancellation", d.Messaging.EventCancelled)

	ai := org.Group("/ai")
	ai.Use(middleware.RequireFeature(d.DB, d.Catalog, plans.FeatureAIContent))
	ai.POST("/event-description", d.AI.EventDescription)
	ai.POST("/announcement", d.AI.Announcement)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.DB, d.JWTSecret, d.Firebase), middleware.RequireRole("admin"))
	admin.GET("/dashboard", d.Admin.GetAdminStats)
	admin.GET("/users", d.Admin.ListAllUsers)
	admin.GET("/user/:id", d.Admin.GetUserDetails)
	admin.GET("/organizations", d.Admin.ListOrganizations)
	admin.GET("/organizations/:id", d.Admin.GetOrganizationDetails)
	admin.GET("/payments", d.Admin.ListAllPayments)
	admin.POST("/plans/check", d.Plans.CheckPlans)
	admin.POST("/messaging/test-email", d.Messaging.TestEmail)
	admin.POST("/messaging/test-sms", d.Messaging.TestSMS)
}
