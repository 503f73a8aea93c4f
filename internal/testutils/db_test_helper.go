package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Credentials of the throwaway test database.
const (
	TestDBName     = "testdb"
	TestDBUser     = "testuser"
	TestDBPassword = "testpass"
)

// SetupTestDB starts a new PostgreSQL container for testing. It returns the
// mapped host and port of the database and a cleanup function that should be
// deferred by the caller to terminate the container.
func SetupTestDB(t *testing.T) (string, string, func()) {
	t.Helper()

	ctx := context.Background()
	dbPort := "5432/tcp"

	waitStrategy := wait.ForAll(
		wait.ForLog("database system is ready to accept connections").
			WithOccurrence(1).
			WithStartupTimeout(1*time.Minute),
		wait.ForListeningPort(nat.Port(dbPort)).
			WithStartupTimeout(1*time.Minute),
	).WithDeadline(2 * time.Minute)

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase(TestDBName),
		postgres.WithUsername(TestDBUser),
		postgres.WithPassword(TestDBPassword),
		testcontainers.WithWaitStrategy(waitStrategy),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %s", err)
	}

	cleanup := func() {
		terminateCtx, terminateCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer terminateCancel()
		if err := postgresContainer.Terminate(terminateCtx); err != nil {
			t.Logf("WARN: Failed to terminate postgres container: %s", err)
		}
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		cleanup()
		t.Fatalf("Failed to get container host: %s", err)
	}
	mappedPort, err := postgresContainer.MappedPort(ctx, nat.Port(dbPort))
	if err != nil {
		cleanup()
		t.Fatalf("Failed to get mapped port: %s", err)
	}

	return host, mappedPort.Port(), cleanup
}
