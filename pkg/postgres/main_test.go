package postgres

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Shared PostgreSQL container for the integration tests in this package.
// Nil when running with -short, which skips everything that needs Docker.
var sharedContainer *dbContainer

type dbContainer struct {
	container testcontainers.Container
	host      string
	port      int
}

// TestMain starts one shared PostgreSQL container for all integration
// tests. Unit tests keep working without Docker via -short.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "gantry_test",
			"POSTGRES_USER":     "gantry_test",
			"POSTGRES_PASSWORD": "gantry_test",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	sharedContainer = &dbContainer{
		container: container,
		host:      host,
		port:      port.Int(),
	}

	exitCode := m.Run()

	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
	}

	os.Exit(exitCode)
}

// testConfig returns a pool config pointing at the shared container, or
// skips the calling test when Docker is unavailable.
func testConfig(t *testing.T) Config {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	if sharedContainer == nil {
		t.Fatal("shared test container not initialized - TestMain() not run?")
	}

	return Config{
		Enabled:  true,
		Host:     sharedContainer.host,
		Port:     sharedContainer.port,
		Database: "gantry_test",
		User:     "gantry_test",
		Password: "gantry_test",
		SSLMode:  "disable",
	}
}
