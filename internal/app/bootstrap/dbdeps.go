// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Mongo and Redis are optional and nil when not configured.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Redis *redis.Client

	// Firebase Admin auth client; mints and verifies session cookies.
	FirebaseAuth *fbauth.Client
}
