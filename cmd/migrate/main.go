package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"campus-events/internal/config"
	"campus-events/internal/database/migrations"
	"campus-events/internal/logger"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

const usage = `usage: migrate [-dir ./migrations] <command>

commands:
  up           apply every pending migration
  down         roll back every migration
  to <n>       migrate up or down to version n
  force <n>    record version n without running anything
  version      print the current version
`

func main() {
	cfg := config.Load()
	dir := flag.String("dir", cfg.Database.MigrationsDir, "migrations directory")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr)
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	cfg.Database.MigrationsDir = *dir
	runner := migrations.NewRunner(bunDB, cfg.Database, log)
	defer runner.Close()

	if err := run(runner, flag.Args()); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
}

func run(runner *migrations.Runner, args []string) error {
	switch args[0] {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	case "to", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s needs a version", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if args[0] == "force" {
			return runner.Force(n)
		}
		return runner.To(uint(n))
	case "version":
		v, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d dirty=%t\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
