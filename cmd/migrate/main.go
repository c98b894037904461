package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/odyssey-erp/assettrack/internal/platform/db"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	dsn := flag.String("dsn", os.Getenv("PG_DSN"), "PostgreSQL DSN")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	if *dsn == "" {
		logger.Error("missing DSN: provide via -dsn or PG_DSN")
		os.Exit(2)
	}
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *dsn, cmd, logger); err != nil {
		logger.Error("migrate failed", slog.String("command", cmd), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, dsn, cmd string, logger *slog.Logger) error {
	m, err := db.NewMigrator(ctx, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd {
	case "up":
		applied, err := m.Up(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", slog.Any("versions", applied))
	case "down":
		v, err := m.Down(ctx)
		if err != nil {
			return err
		}
		logger.Info("migration rolled back", slog.Int64("version", v))
	case "status", "version":
		v, err := m.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(v)
	default:
		return fmt.Errorf("unknown command %q (want up, down or status)", cmd)
	}
	return nil
}
