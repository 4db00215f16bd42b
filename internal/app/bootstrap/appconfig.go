package bootstrap

import "time"

// AppConfig holds service-specific configuration for BOIR Hub.
//
// These values come from environment variables (BOIRHUB_*), configuration
// files, or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig
// covers ports, TLS, logging and CORS; everything specific to filing lives
// here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session and bearer token configuration
	SessionKey    string        // secret for signing session cookies
	SessionName   string        // cookie name
	SessionDomain string        // cookie domain (blank means current host)
	SessionTTL    time.Duration // cookie lifetime
	JWTSecret     string        // bearer tokens are disabled when empty
	JWTTTL        time.Duration

	// Document image storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string

	// Email/SMTP configuration. An empty host logs mail instead of sending it.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailSMTPTLS  bool
	MailFrom     string
	MailFromName string

	// Payment provider
	PaymentAPIURL   string
	PaymentKey      string // payments answer 503 when empty
	PaymentAmount   int64  // smallest currency unit
	PaymentCurrency string

	// FinCEN BOIR API. Filing answers 503 when the client id is empty.
	FinCENClientID     string
	FinCENClientSecret string
	FinCENBaseURL      string
	FinCENTokenURL     string
	FinCENScope        string

	// Bulk import
	ImportConcurrency int

	// Handler timeouts; zero keeps the default.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
	TimeoutBatch  time.Duration

	// Background work
	OTPCleanupInterval time.Duration

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogAuth    string
	AuditLogCompany string
	AuditLogFiling  string

	// AdminEmail is promoted to (or created as) an admin on startup.
	AdminEmail string
}
