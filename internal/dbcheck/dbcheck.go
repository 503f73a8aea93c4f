// Package dbcheck tests PostgreSQL reachability. It is the fallback used
// when pg_isready is not available in the container and shares no logic with
// the DNS pre-flight check.
package dbcheck

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// init initializes the package logger.
func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize zap logger: %v", err))
	}
	logger = l.With(zap.String("package", "dbcheck"))
}

// connectTimeout bounds the whole connection attempt.
const connectTimeout = 2 * time.Second

// Params identifies the database to reach. Password arrives separately from
// argv (via PGPASSWORD) so it never shows up in process listings.
type Params struct {
	Host     string
	Port     string
	DBName   string
	User     string
	Password string
}

// Validate reports the first missing required parameter.
func (p Params) Validate() error {
	switch {
	case p.Host == "":
		return fmt.Errorf("dbcheck: host is required")
	case p.Port == "":
		return fmt.Errorf("dbcheck: port is required")
	case p.DBName == "":
		return fmt.Errorf("dbcheck: dbname is required")
	case p.User == "":
		return fmt.Errorf("dbcheck: user is required")
	case p.Password == "":
		return fmt.Errorf("dbcheck: PGPASSWORD environment variable not set")
	default:
		return nil
	}
}

// connString builds a lib/pq keyword/value DSN.
func (p Params) connString() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable connect_timeout=2",
		p.Host, p.Port, p.DBName, p.User, p.Password,
	)
}

// Check opens a connection to the database described by p and pings it. A nil
// return means the database accepted the connection.
func Check(ctx context.Context, p Params) error {
	db, err := sql.Open("postgres", p.connString())
	if err != nil {
		return fmt.Errorf("dbcheck: open connection: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("failed to ping PostgreSQL database",
			zap.Error(err),
			zap.String("host", p.Host),
			zap.String("port", p.Port),
			zap.String("dbname", p.DBName))
		return fmt.Errorf("dbcheck: connect to %s:%s/%s: %w", p.Host, p.Port, p.DBName, err)
	}

	logger.Info("successfully connected to PostgreSQL database",
		zap.String("host", p.Host),
		zap.String("port", p.Port),
		zap.String("dbname", p.DBName))
	return nil
}
