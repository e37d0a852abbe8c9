// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for HomeBasket.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: HOMEBASKET_MONGO_URI, HOMEBASKET_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "homebasket", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "homebasket-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Base URL for invitation accept links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for invitation links"},

	// Invitation lifecycle
	{Name: "invite_cleanup_interval", Default: "1h", Desc: "How often expired invitations are swept (e.g., 1h, 30m)"},

	// Invitation delivery webhook (SMS gateway); blank disables delivery
	{Name: "notify_webhook_url", Default: "", Desc: "Webhook URL invitation messages are POSTed to"},

	// Conversational agent access; blank keeps /chat closed
	{Name: "agent_api_key", Default: "", Desc: "Shared key the agent presents on /chat requests"},

	// Group icon storage
	{Name: "icon_local_path", Default: "./uploads/icons", Desc: "Directory generated group icons are written to"},
	{Name: "icon_local_url", Default: "/files/icons", Desc: "URL prefix generated icons are served from"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, HOMEBASKET_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HOMEBASKET", appConfigKeys)
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

		BaseURL: appValues.String("base_url"),

		InviteCleanupInterval: appValues.Duration("invite_cleanup_interval", time.Hour),

		NotifyWebhookURL: appValues.String("notify_webhook_url"),
		AgentAPIKey:      appValues.String("agent_api_key"),

		IconLocalPath: appValues.String("icon_local_path"),
		IconLocalURL:  appValues.String("icon_local_url"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked up front to catch configuration errors
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.InviteCleanupInterval < time.Minute {
		return fmt.Errorf("invite_cleanup_interval must be at least 1m, got %s", appCfg.InviteCleanupInterval)
	}
	if coreCfg.Env == "prod" && appCfg.SessionKey == "dev-only-change-me-please-0123456789ABCDEF" {
		return fmt.Errorf("session_key must be changed from the development default in production")
	}
	return nil
}
