package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/docbook-ai/internal/config"
	appmigrations "github.com/wolfman30/docbook-ai/migrations"
)

// usage: migrate [up|down <steps>|force <version>|version]
func main() {
	cfg := config.Load()
	databaseURL := strings.TrimSpace(cfg.DatabaseURL)
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "docbook_schema_migrations"})
	if err != nil {
		log.Fatalf("db driver: %v", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		log.Fatalf("source driver: %v", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}
	if err := run(m, cmd, os.Args[2:]); err != nil {
		log.Fatalf("migrate %s: %v", cmd, err)
	}
}

func run(m *migrate.Migrate, cmd string, args []string) error {
	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		fmt.Println("migrations complete")
	case "down":
		steps, err := intArg(args, 1)
		if err != nil {
			return err
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		fmt.Printf("rolled back %d migration(s)\n", steps)
	case "force":
		version, err := intArg(args, -1)
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return err
		}
		fmt.Printf("forced version to %d\n", version)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty=%t)\n", version, dirty)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// intArg parses the first argument, returning def when it is absent. A
// negative def means the argument is required.
func intArg(args []string, def int) (int, error) {
	if len(args) == 0 {
		if def < 0 {
			return 0, errors.New("missing numeric argument")
		}
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", args[0], err)
	}
	return n, nil
}
