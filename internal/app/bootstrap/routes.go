package bootstrap

import (
	"errors"
	"net/http"

	companiesfeature "github.com/dalemusser/boirhub/internal/app/features/companies"
	errorsfeature "github.com/dalemusser/boirhub/internal/app/features/errors"
	filingfeature "github.com/dalemusser/boirhub/internal/app/features/filing"
	healthfeature "github.com/dalemusser/boirhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/boirhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/boirhub/internal/app/features/logout"
	participantsfeature "github.com/dalemusser/boirhub/internal/app/features/participants"
	paymentsfeature "github.com/dalemusser/boirhub/internal/app/features/payments"
	uploadcsvfeature "github.com/dalemusser/boirhub/internal/app/features/uploadcsv"
	"github.com/dalemusser/boirhub/internal/app/store/audit"
	companystore "github.com/dalemusser/boirhub/internal/app/store/companies"
	formstore "github.com/dalemusser/boirhub/internal/app/store/companyforms"
	participantstore "github.com/dalemusser/boirhub/internal/app/store/participants"
	txstore "github.com/dalemusser/boirhub/internal/app/store/transactions"
	userstore "github.com/dalemusser/boirhub/internal/app/store/users"
	"github.com/dalemusser/boirhub/internal/app/system/auditlog"
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/app/system/fincen"
	"github.com/dalemusser/boirhub/internal/app/system/mailer"
	"github.com/dalemusser/boirhub/internal/app/system/payment"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for BOIR Hub.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. It builds the shared services once and mounts the
// JSON API under /api, with /health and /metrics at the root.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	rt := deps.Runtime

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Reload the user on each request so role changes and deleted accounts
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))
	if appCfg.JWTSecret != "" {
		tokens, err := auth.NewTokens(appCfg.JWTSecret, "boirhub", appCfg.JWTTTL)
		if err != nil {
			logger.Error("token issuer init failed", zap.Error(err))
			return nil, err
		}
		sessionMgr.SetTokens(tokens)
	}

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Company: appCfg.AuditLogCompany,
		Filing:  appCfg.AuditLogFiling,
	})

	mail, err := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
		TLS:      appCfg.MailSMTPTLS,
	}, logger)
	if err != nil {
		logger.Error("mailer init failed", zap.Error(err))
		return nil, err
	}

	users := userstore.New(db)
	companies := companystore.New(db)
	svc := reconcile.New(reconcile.Deps{
		Companies:   companies,
		Forms:       formstore.New(db),
		Owners:      participantstore.New(db, models.KindOwner),
		Applicants:  participantstore.New(db, models.KindApplicant),
		Users:       users,
		Blobs:       deps.Blobs,
		Mail:        mail,
		Audit:       auditLog,
		Metrics:     rt.Metrics,
		Log:         logger,
		ImportLimit: appCfg.ImportConcurrency,
	})

	// A nil client answers ErrNotConfigured, which filing reports as 503.
	fincenClient, err := fincen.New(fincen.Config{
		ClientID:     appCfg.FinCENClientID,
		ClientSecret: appCfg.FinCENClientSecret,
		BaseURL:      appCfg.FinCENBaseURL,
		TokenURL:     appCfg.FinCENTokenURL,
		Scope:        appCfg.FinCENScope,
	})
	if err != nil && !errors.Is(err, fincen.ErrNotConfigured) {
		logger.Error("FinCEN client init failed", zap.Error(err))
		return nil, err
	}
	if fincenClient == nil {
		logger.Warn("FinCEN credentials not configured; filing is disabled")
	}

	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Blobs.Backend(), fincenClient != nil, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", rt.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		// Loads the SessionUser from a bearer token or the session cookie.
		api.Use(sessionMgr.LoadSessionUser)
		api.NotFound(errorsHandler.NotFound)
		api.MethodNotAllowed(errorsHandler.MethodNotAllowed)

		// Authentication
		loginHandler := loginfeature.NewHandler(users, mail, sessionMgr, rt.Limiter, auditLog, logger)
		logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
		api.Route("/auth", func(ar chi.Router) {
			ar.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))
			ar.Mount("/", loginfeature.Routes(loginHandler))
		})

		// Companies, their forms and filings
		companiesHandler := companiesfeature.NewHandler(svc, logger)
		uploadHandler := uploadcsvfeature.NewHandler(svc, logger)
		paymentsHandler := paymentsfeature.NewHandler(svc, txstore.New(db), companies,
			payment.New(appCfg.PaymentAPIURL, appCfg.PaymentKey),
			paymentsfeature.Price{Amount: appCfg.PaymentAmount, Currency: appCfg.PaymentCurrency},
			auditLog, logger)
		filingHandler := filingfeature.NewHandler(svc, fincenClient, deps.Blobs, rt.Metrics, auditLog, logger)

		api.Route("/companies", func(cr chi.Router) {
			cr.Mount("/upload", uploadcsvfeature.Routes(uploadHandler, sessionMgr))
			cr.Mount("/{id}/payments", paymentsfeature.CompanyRoutes(paymentsHandler, sessionMgr))
			cr.Mount("/{id}/filing", filingfeature.Routes(filingHandler, sessionMgr))
			cr.Mount("/", companiesfeature.Routes(companiesHandler, sessionMgr))
		})
		api.Mount("/transactions", paymentsfeature.TransactionRoutes(paymentsHandler, sessionMgr))

		// Beneficial owners and company applicants
		ownersHandler := participantsfeature.NewHandler(svc, models.KindOwner, logger)
		api.Mount("/owners", participantsfeature.Routes(ownersHandler, sessionMgr))
		applicantsHandler := participantsfeature.NewHandler(svc, models.KindApplicant, logger)
		api.Mount("/applicants", participantsfeature.Routes(applicantsHandler, sessionMgr))
	})

	return r, nil
}
