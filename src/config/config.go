package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// const dsn = "host=localhost user=postgres password=password dbname=hbsdb port=5432 sslmode=disable TimeZone=Asia/Kathmandu"

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

// DatabaseDriver selects the record store backend. Anything other than
// "memory" means postgres.
func DatabaseDriver() string {
	return getEnv("DATABASE_DRIVER", "postgres")
}

func JWTSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

const (
	DEFAULT_FONEPAY_API_URL = "https://fonepay.com/api/merchantRequest"
	DEFAULT_CURRENCY        = "NPR"
)

// FonePay holds the gateway credentials. It is read once at startup and
// passed by value; rotating a secret requires a restart.
type FonePay struct {
	MerchantID string
	SecretKey  string
	APIURL     string
	SuccessURL string
	FailureURL string
	CancelURL  string
	Timeout    time.Duration
}

func LoadFonePay() FonePay {
	frontend := strings.TrimRight(os.Getenv("FRONTEND_URL"), "/")
	return FonePay{
		MerchantID: os.Getenv("FONEPAY_MERCHANT_ID"),
		SecretKey:  os.Getenv("FONEPAY_SECRET_KEY"),
		APIURL:     strings.TrimRight(getEnv("FONEPAY_API_URL", DEFAULT_FONEPAY_API_URL), "/"),
		SuccessURL: frontend + "/payment-success",
		FailureURL: frontend + "/payment-failure",
		CancelURL:  frontend + "/payment-canceled",
		Timeout:    getDuration("FONEPAY_TIMEOUT", 15*time.Second),
	}
}

// AutoConfirmMethods lists the payment methods whose successful verification
// also confirms the booking. PAYMENT_AUTO_CONFIRM is a comma separated list.
func AutoConfirmMethods() []string {
	raw := getEnv("PAYMENT_AUTO_CONFIRM", "fonepay")
	methods := []string{}
	for _, m := range strings.Split(raw, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			methods = append(methods, m)
		}
	}
	return methods
}

type Reconcile struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

func LoadReconcile() Reconcile {
	return Reconcile{
		Interval:   getDuration("RECONCILE_INTERVAL", 15*time.Minute),
		StaleAfter: getDuration("RECONCILE_STALE_AFTER", time.Hour),
		BatchSize:  100,
	}
}

func PaymentUpdatesQueue() string {
	return getEnv("PAYMENT_UPDATES_QUEUE", "PaymentTransactionUpdates")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"
