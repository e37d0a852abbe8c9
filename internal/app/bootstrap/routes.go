// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatfeature "github.com/evanshaw/homebasket/internal/app/features/chat"
	groupsfeature "github.com/evanshaw/homebasket/internal/app/features/groups"
	healthfeature "github.com/evanshaw/homebasket/internal/app/features/health"
	invitationsfeature "github.com/evanshaw/homebasket/internal/app/features/invitations"
	listsfeature "github.com/evanshaw/homebasket/internal/app/features/lists"
	loginfeature "github.com/evanshaw/homebasket/internal/app/features/login"
	onboardingfeature "github.com/evanshaw/homebasket/internal/app/features/onboarding"
	"github.com/evanshaw/homebasket/internal/app/system/auth"
	"github.com/evanshaw/homebasket/internal/app/system/icons"
	"github.com/evanshaw/homebasket/internal/app/system/metrics"
	"github.com/evanshaw/homebasket/internal/app/system/notify"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. It creates the session manager, applies the
// session and metrics middleware, and mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies in production mode only.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	var sender notify.Sender = notify.NopSender{}
	if appCfg.NotifyWebhookURL != "" {
		sender = notify.NewWebhookSender(appCfg.NotifyWebhookURL)
	} else {
		logger.Warn("notify_webhook_url not configured; invitation delivery disabled")
	}

	iconGen := icons.NewLocalGenerator(appCfg.IconLocalPath, appCfg.IconLocalURL)

	db := deps.MongoDatabase

	r := chi.NewRouter()

	// Global middleware: request metrics, then the session user loader so
	// auth.CurrentUser works in every handler.
	r.Use(metrics.Middleware)
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus scrape endpoint.
	r.Handle("/metrics", metrics.Handler())

	// Generated group icons.
	r.Handle(appCfg.IconLocalURL+"/*", fileserver.Handler(appCfg.IconLocalURL, appCfg.IconLocalPath))

	// Account creation and sign-in.
	onboardingHandler := onboardingfeature.NewHandler(db, logger, sessionMgr)
	r.Mount("/", onboardingfeature.Routes(onboardingHandler))

	loginHandler := loginfeature.NewHandler(db, logger, sessionMgr)
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	// Groups and everything scoped under them.
	invitationsHandler := invitationsfeature.NewHandler(db, logger, sender, appCfg.BaseURL)
	listsHandler := listsfeature.NewHandler(db, logger)
	groupsHandler := groupsfeature.NewHandler(db, logger, iconGen)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr,
		invitationsfeature.GroupRoutes(invitationsHandler, sessionMgr),
		listsfeature.Routes(listsHandler, sessionMgr)))

	// Invitee-facing invitation surface.
	r.Mount("/invitations", invitationsfeature.Routes(invitationsHandler, sessionMgr))

	// Conversational agent surface.
	chatHandler := chatfeature.NewHandler(db, logger, appCfg.AgentAPIKey)
	r.Mount("/chat", chatfeature.Routes(chatHandler))

	return r, nil
}
