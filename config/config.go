package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT        string
	APP_ENV     string
	APP_URL     string
	CORS_ORIGIN string
	DB_URL      string
	JWT_SECRET  string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string

	FIREBASE_PROJECT_ID string

	PAYSTACK_SECRET_KEY    string
	PAYSTACK_BASE_URL      string
	PAYSTACK_PLAN_PRO      string
	PAYSTACK_PLAN_BUSINESS string

	BREVO_API_KEY      string
	BREVO_SENDER_EMAIL string
	BREVO_SENDER_NAME  string

	ARKESEL_API_KEY   string
	ARKESEL_SENDER_ID string

	ANTHROPIC_API_KEY  string
	ANTHROPIC_BASE_URL string
	ANTHROPIC_MODEL    string

	REDIS_ADDR     string
	REDIS_PASSWORD string

	S3_BUCKET     string
	S3_REGION     string
	S3_ENDPOINT   string
	S3_ACCESS_KEY string
	S3_SECRET_KEY string
	S3_PUBLIC_URL string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	APP_ENV = getEnv("APP_ENV", "dev")
	APP_URL = getEnv("APP_URL", "http://localhost:5173")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", APP_URL)
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	// Google sign-in is optional; /auth/google answers 500 without it.
	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")

	FIREBASE_PROJECT_ID = getEnv("FIREBASE_PROJECT_ID", "")

	PAYSTACK_SECRET_KEY = getEnv("PAYSTACK_SECRET_KEY", "")
	PAYSTACK_BASE_URL = getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co")
	PAYSTACK_PLAN_PRO = getEnv("PAYSTACK_PLAN_PRO", "")
	PAYSTACK_PLAN_BUSINESS = getEnv("PAYSTACK_PLAN_BUSINESS", "")

	BREVO_API_KEY = getEnv("BREVO_API_KEY", "")
	BREVO_SENDER_EMAIL = getEnv("BREVO_SENDER_EMAIL", "")
	BREVO_SENDER_NAME = getEnv("BREVO_SENDER_NAME", "TicketHub")

	ARKESEL_API_KEY = getEnv("ARKESEL_API_KEY", "")
	ARKESEL_SENDER_ID = getEnv("ARKESEL_SENDER_ID", "TicketHub")

	ANTHROPIC_API_KEY = getEnv("ANTHROPIC_API_KEY", "")
	ANTHROPIC_BASE_URL = getEnv("ANTHROPIC_BASE_URL", "")
	ANTHROPIC_MODEL = getEnv("ANTHROPIC_MODEL", "")

	REDIS_ADDR = getEnv("REDIS_ADDR", "")
	REDIS_PASSWORD = getEnv("REDIS_PASSWORD", "")

	S3_BUCKET = getEnv("S3_BUCKET", "")
	S3_REGION = getEnv("S3_REGION", "auto")
	S3_ENDPOINT = getEnv("S3_ENDPOINT", "")
	S3_ACCESS_KEY = getEnv("S3_ACCESS_KEY", "")
	S3_SECRET_KEY = getEnv("S3_SECRET_KEY", "")
	S3_PUBLIC_URL = getEnv("S3_PUBLIC_URL", "")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
