package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.SourceDir, "migration source directory (create, validate)")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	// File-only commands need neither config nor a database.
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name, time.Now())
		if err != nil {
			exitf("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exitf("validate: %v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		exitf("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		exitf("connect database: %v", err)
	}
	defer dbClient.Close()

	if dbClient.Driver() == config.DriverSQLite {
		if *cmd != "up" {
			exitf("-cmd=%s needs postgres; sqlite only supports up", *cmd)
		}
		if err := dbClient.AutoMigrate(ctx); err != nil {
			exitf("sqlite auto-migrate: %v", err)
		}
		logg.Info(ctx, "sqlite schema up to date")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		exitf("sql handle: %v", err)
	}
	runner, err := migrate.NewRunner(sqlDB)
	if err != nil {
		exitf("%v", err)
	}

	switch *cmd {
	case "up":
		steps, err := runner.Up(ctx)
		if err != nil {
			exitf("%v", err)
		}
		printSteps("applied", steps)
	case "down":
		step, err := runner.Down(ctx)
		if err != nil {
			exitf("%v", err)
		}
		if step != nil {
			printSteps("rolled back", []migrate.Step{*step})
		}
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			exitf("%v", err)
		}
		printStatus(statuses)
	case "version":
		target, err := migrate.ParseVersion(*version)
		if err != nil {
			exitf("%v", err)
		}
		steps, err := runner.MigrateTo(ctx, target)
		if err != nil {
			exitf("%v", err)
		}
		printSteps("migrated", steps)
	default:
		exitf("unknown -cmd value %q", *cmd)
	}
}

func printSteps(verb string, steps []migrate.Step) {
	if len(steps) == 0 {
		fmt.Println("nothing to do")
		return
	}
	for _, s := range steps {
		fmt.Printf("%s %d %s (%s)\n", verb, s.Version, s.Source, s.Duration.Round(time.Millisecond))
	}
}

func printStatus(statuses []migrate.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
	for _, s := range statuses {
		state, at := "pending", "-"
		if s.Applied {
			state, at = "applied", s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, state, at, s.Source)
	}
	_ = w.Flush()
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
