package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"notevault/internal/config"
	"notevault/internal/repository/postgres"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
)

const usage = `usage: migrate <command>

commands:
  up            apply all pending migrations
  down          roll back the most recent migration
  version       print the current schema version
  force <n>     set the version without running migrations (repair a dirty state)`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	m, err := postgres.NewMigrator(cfg.DatabaseURL, cfg.TablePrefix)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	defer m.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = m.Up()
	case "down":
		if cfg.Environment == "prod" {
			log.Fatal("BLOCKED: refusing to roll back migrations in production")
		}
		err = m.Steps(-1)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return
		}
		if verr != nil {
			log.Fatalf("Failed to read version: %v", verr)
		}
		fmt.Printf("version %d (dirty: %t, prefix: %q)\n", version, dirty, cfg.TablePrefix)
		return
	case "force":
		if flag.NArg() < 2 {
			flag.Usage()
			os.Exit(2)
		}
		v, perr := strconv.Atoi(flag.Arg(1))
		if perr != nil {
			log.Fatalf("Invalid version %q: %v", flag.Arg(1), perr)
		}
		err = m.Force(v)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration %s failed: %v", flag.Arg(0), err)
	}
	log.Printf("Migration %s complete (prefix: %s)", flag.Arg(0), cfg.TablePrefix)
}
