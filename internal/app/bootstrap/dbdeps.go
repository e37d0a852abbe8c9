// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/evanshaw/homebasket/internal/app/system/workers"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// InviteCleanup is started in Startup and stopped in Shutdown.
	InviteCleanup *workers.InviteCleanup
}
