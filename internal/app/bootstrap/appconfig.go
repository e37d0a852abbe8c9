// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig handles
// framework-level settings (ports, TLS, logging, CORS); AppConfig is
// everything specific to this application.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions
	SessionDomain string // Cookie domain (blank means current host)

	// Base URL used to build invitation accept links
	BaseURL string

	// Invitation lifecycle
	InviteCleanupInterval time.Duration // How often the expiry sweep runs

	// Outbound notification webhook; blank disables delivery entirely
	NotifyWebhookURL string

	// Shared key the conversational agent presents on /chat requests;
	// blank keeps that surface closed
	AgentAPIKey string

	// Group icon storage
	IconLocalPath string // Directory generated icons are written to
	IconLocalURL  string // URL prefix the icons are served from
}
