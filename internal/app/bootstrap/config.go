package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for BOIR Hub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: BOIRHUB_MONGO_URI, BOIRHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "boirhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "boirhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "24h", Desc: "Session cookie lifetime"},
	{Name: "jwt_secret", Default: "", Desc: "Bearer token signing secret, at least 32 characters (blank disables tokens)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token lifetime"},

	// Document image storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads/documents", Desc: "Local storage path for document images"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "documents/", Desc: "S3 key prefix"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs mail instead of sending)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_smtp_tls", Default: false, Desc: "Require STARTTLS"},
	{Name: "mail_from", Default: "noreply@boirhub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "BOIR Hub", Desc: "From display name"},

	// Payments
	{Name: "payment_api_url", Default: "", Desc: "Payment API base URL (blank uses Stripe)"},
	{Name: "payment_key", Default: "", Desc: "Payment API secret key"},
	{Name: "payment_amount", Default: 9900, Desc: "Filing price in the smallest currency unit"},
	{Name: "payment_currency", Default: "usd", Desc: "Filing price currency"},

	// FinCEN API
	{Name: "fincen_client_id", Default: "", Desc: "FinCEN API client id"},
	{Name: "fincen_client_secret", Default: "", Desc: "FinCEN API client secret"},
	{Name: "fincen_base_url", Default: "", Desc: "FinCEN API base URL (blank uses the sandbox)"},
	{Name: "fincen_token_url", Default: "", Desc: "FinCEN OAuth2 token URL (blank uses the sandbox)"},
	{Name: "fincen_scope", Default: "", Desc: "FinCEN OAuth2 scope (blank uses the sandbox)"},

	{Name: "import_concurrency", Default: 8, Desc: "CSV rows reconciled at once"},

	// Timeouts
	{Name: "timeout_short", Default: "", Desc: "Single-document timeout (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "List and single-write timeout (e.g., 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Multi-collection write timeout (e.g., 30s)"},
	{Name: "timeout_batch", Default: "", Desc: "Import and filing timeout (e.g., 2m)"},

	{Name: "otp_cleanup_interval", Default: "15m", Desc: "How often expired sign-in codes are cleared"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_company", Default: "all", Desc: "Company event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_filing", Default: "all", Desc: "Filing event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "admin_email", Default: "", Desc: "Email of the admin user (promotes/creates on startup)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, BOIRHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "BOIRHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionTTL:    appValues.Duration("session_ttl", 24*time.Hour),
		JWTSecret:     appValues.String("jwt_secret"),
		JWTTTL:        appValues.Duration("jwt_ttl", 24*time.Hour),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailSMTPTLS:  appValues.Bool("mail_smtp_tls"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		PaymentAPIURL:   appValues.String("payment_api_url"),
		PaymentKey:      appValues.String("payment_key"),
		PaymentAmount:   int64(appValues.Int("payment_amount")),
		PaymentCurrency: strings.ToLower(appValues.String("payment_currency")),

		FinCENClientID:     appValues.String("fincen_client_id"),
		FinCENClientSecret: appValues.String("fincen_client_secret"),
		FinCENBaseURL:      appValues.String("fincen_base_url"),
		FinCENTokenURL:     appValues.String("fincen_token_url"),
		FinCENScope:        appValues.String("fincen_scope"),

		ImportConcurrency: appValues.Int("import_concurrency"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
		TimeoutBatch:  appValues.Duration("timeout_batch", 0),

		OTPCleanupInterval: appValues.Duration("otp_cleanup_interval", 15*time.Minute),

		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogCompany: appValues.String("audit_log_company"),
		AuditLogFiling:  appValues.String("audit_log_filing"),

		AdminEmail: appValues.String("admin_email"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// BOIR Hub validates the MongoDB URI format and the settings each optional
// backend needs, before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(appCfg)
}

func validateApp(c AppConfig) error {
	switch strings.ToLower(c.StorageType) {
	case "", "local":
		if c.StorageLocalPath == "" {
			return fmt.Errorf("storage_local_path is required for local storage")
		}
	case "s3":
		if c.StorageS3Bucket == "" || c.StorageS3Region == "" {
			return fmt.Errorf("s3 storage requires storage_s3_region and storage_s3_bucket")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", c.StorageType)
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters")
	}
	if (c.FinCENClientID == "") != (c.FinCENClientSecret == "") {
		return fmt.Errorf("fincen_client_id and fincen_client_secret must be set together")
	}
	if c.PaymentAmount <= 0 {
		return fmt.Errorf("payment_amount must be positive")
	}
	if c.ImportConcurrency < 0 {
		return fmt.Errorf("import_concurrency must not be negative")
	}

	for _, v := range []struct{ key, val string }{
		{"audit_log_auth", c.AuditLogAuth},
		{"audit_log_company", c.AuditLogCompany},
		{"audit_log_filing", c.AuditLogFiling},
	} {
		switch v.val {
		case "", "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be 'all', 'db', 'log' or 'off', got %q", v.key, v.val)
		}
	}
	return nil
}
