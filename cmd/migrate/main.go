package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"ledgerlens/internal/config"
)

const usage = "usage: migrate [-dir path] up|down|steps N|version"

func main() {
	dir := flag.String("dir", "db/migrations", "directory holding migration files")
	flag.Parse()

	if err := run(*dir, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(dir string, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	m, err := migrate.New("file://"+dir, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("opening migrations in %s: %w", dir, err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrating up: %w", err)
		}
		log.Println("database schema is up to date")
		return nil

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrating down: %w", err)
		}
		log.Println("all migrations reverted")
		return nil

	case "steps":
		if len(args) < 2 {
			return errors.New("steps requires a count, e.g. steps -1")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("parsing step count %q: %w", args[1], err)
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("stepping %d: %w", n, err)
		}
		log.Printf("stepped %d migration(s)", n)
		return nil

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		fmt.Printf("version %d (dirty: %v)\n", version, dirty)
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
