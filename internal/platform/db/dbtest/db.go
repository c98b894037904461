// Package dbtest starts a disposable PostgreSQL for repository tests.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/odyssey-erp/assettrack/internal/platform/db"
)

// DSNEnv points the helper at an existing database instead of a container.
const DSNEnv = "ASSETTRACK_TEST_PG_DSN"

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// Pool returns a pool connected to a migrated database. The test is skipped
// when running with -short or when no database can be started.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("dbtest: skipping database test in short mode")
	}

	once.Do(func() {
		sharedDSN, initErr = prepare()
	})
	if initErr != nil {
		t.Skipf("dbtest: database unavailable: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, sharedDSN)
	if err != nil {
		t.Fatalf("dbtest: create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	truncate(t, pool)
	return pool
}

func prepare() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		var err error
		dsn, err = startContainer(ctx)
		if err != nil {
			return "", err
		}
	}
	migrator, err := db.NewMigrator(ctx, dsn)
	if err != nil {
		return "", err
	}
	defer migrator.Close()
	if _, err := migrator.Up(ctx); err != nil {
		return "", err
	}
	return dsn, nil
}

func startContainer(ctx context.Context) (dsn string, err error) {
	// testcontainers panics when no docker host can be resolved.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start container: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "assettrack",
			"POSTGRES_PASSWORD": "assettrack",
			"POSTGRES_DB":       "assettrack",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}
	return fmt.Sprintf("postgres://assettrack:assettrack@%s:%s/assettrack?sslmode=disable", host, port.Port()), nil
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := pool.Exec(ctx, `TRUNCATE reports, requests, assets, suppliers, categories, locations, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("dbtest: truncate: %v", err)
	}
}
