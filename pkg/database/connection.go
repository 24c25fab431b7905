package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

var DB *sql.DB

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
	connectAttempts = 5
)

// Initialize opens the connection pool and verifies it is reachable,
// retrying briefly so the server survives a database that comes up a few
// seconds after it does.
func Initialize(databaseURL string) error {
	var err error
	DB, err = sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(maxOpenConns)
	DB.SetMaxIdleConns(maxIdleConns)
	DB.SetConnMaxLifetime(connMaxLifetime)

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = DB.PingContext(ctx)
		cancel()
		if err == nil {
			log.Info().Msg("database connection established")
			return nil
		}
		if attempt < connectAttempts {
			log.Warn().Err(err).
				Int("attempt", attempt).
				Msg("database not reachable yet, retrying")
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return fmt.Errorf("failed to ping database: %w", err)
}

// Close closes the database connection.
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// IsHealthy reports whether the database answers a ping within a short
// deadline. Used by the health endpoint.
func IsHealthy() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return DB.PingContext(ctx)
}
