package main

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tickethub/config"
	"tickethub/database"
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
	routes "tickethub/internal/app/http"
	"tickethub/internal/billing"
	"tickethub/internal/domain/plans"
	"tickethub/internal/infra/ai"
	"tickethub/internal/infra/arkesel"
	"tickethub/internal/infra/brevo"
	"tickethub/internal/infra/identity"
	"tickethub/internal/infra/lock"
	"tickethub/internal/infra/objectstore"
	"tickethub/internal/infra/paystack"
	"tickethub/internal/logging"
	"tickethub/internal/notify"
	"tickethub/internal/ticketing"
)

func main() {
	config.LoadEnv()
	log := logging.Must(config.APP_ENV)
	defer func() { _ = log.Sync() }()

	if config.APP_ENV != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.InitDB(config.DB_URL, log)
	ctx := context.Background()

	catalog := plans.NewCatalog(config.PAYSTACK_PLAN_PRO, config.PAYSTACK_PLAN_BUSINESS)
	gateway := paystack.NewClient(config.PAYSTACK_SECRET_KEY, config.PAYSTACK_BASE_URL)
	if !gateway.Configured() {
		log.Warn("PAYSTACK_SECRET_KEY not set; billing and webhooks are disabled")
	}

	var locker lock.Locker = lock.Noop{}
	if config.REDIS_ADDR != "" {
		rl := lock.NewRedis(config.REDIS_ADDR, config.REDIS_PASSWORD)
		if err := rl.Ping(ctx); err != nil {
			log.Warn("redis unavailable; billing locks are process-local", zap.Error(err))
		} else {
			locker = rl
			defer rl.Close()
		}
	}

	var store eventsapi.ObjectStore
	s3cfg := objectstore.Config{
		Bucket:    config.S3_BUCKET,
		Region:    config.S3_REGION,
		Endpoint:  config.S3_ENDPOINT,
		AccessKey: config.S3_ACCESS_KEY,
		SecretKey: config.S3_SECRET_KEY,
		PublicURL: config.S3_PUBLIC_URL,
	}
	if s3cfg.Enabled() {
		s, err := objectstore.New(ctx, s3cfg)
		if err != nil {
			log.Fatal("object storage", zap.Error(err))
		}
		store = s
	}

	notifier := notify.NewService(
		brevo.NewClient(config.BREVO_API_KEY, config.BREVO_SENDER_EMAIL, config.BREVO_SENDER_NAME),
		arkesel.NewClient(config.ARKESEL_API_KEY, config.ARKESEL_SENDER_ID),
		notify.NewAttendeeStore(db),
		notify.Options{AppURL: config.APP_URL, Logger: log.Named("notify")},
	)

	billingSvc := billing.NewService(billing.NewRepository(db), gateway, billing.Options{
		Catalog:       catalog,
		CallbackURL:   strings.TrimRight(config.APP_URL, "/") + "/billing/callback",
		WebhookSecret: config.PAYSTACK_SECRET_KEY,
		Locker:        locker,
		Logger:        log.Named("billing"),
	})

	ticketStore := ticketing.NewStore(db)
	scanner := ticketing.NewService(ticketStore, log.Named("tickets"))

	// A nil generator answers every call with ai.ErrNotConfigured.
	writer := ai.NewGenerator(config.ANTHROPIC_API_KEY, config.ANTHROPIC_BASE_URL, config.ANTHROPIC_MODEL)

	authHandler := authapi.NewHandler(db, notifier, log.Named("auth"))
	authHandler.Google = authapi.NewGoogleSignIn(
		config.GOOGLE_CLIENT_ID,
		config.GOOGLE_CLIENT_SECRET,
		config.GOOGLE_REDIRECT_URL,
		config.GOOGLE_FRONTEND_REDIRECT,
		config.APP_ENV != "dev",
	)

	deps := routes.Deps{
		DB:        db,
		JWTSecret: config.JWT_SECRET,
		Firebase:  identity.NewFirebaseVerifier(config.FIREBASE_PROJECT_ID),
		Catalog:   catalog,

		Auth:          authHandler,
		Users:         usersapi.NewHandler(db, catalog),
		Organizations: orgsapi.NewHandler(db, notifier, catalog, log.Named("organizations")),
		Events:        eventsapi.NewHandler(db, store, notifier, catalog, log.Named("events")),
		Bookings:      bookingsapi.NewHandler(db, notifier, catalog, log.Named("bookings")),
		Tickets:       ticketsapi.NewHandler(scanner, ticketStore, log.Named("tickets")),
		Billing:       billingapi.NewHandler(billingSvc, log.Named("billing")),
		Webhook:       paystackwebhook.NewHandler(billingSvc, log.Named("webhook")),
		Messaging:     messagingapi.NewHandler(notifier, messagingapi.NewDirectory(db), log.Named("messaging")),
		AI:            aiapi.NewHandler(writer, log.Named("ai")),
		Plans:         plansapi.NewHandler(catalog, gateway, log.Named("plans")),
		Admin:         adminapi.NewHandler(db),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     splitOrigins(config.CORS_ORIGIN),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, deps)

	log.Info("listening", zap.String("port", config.PORT))
	if err := r.Run(":" + config.PORT); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
