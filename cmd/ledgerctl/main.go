package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/cmd/ledgerctl/cli"
	"github.com/odyssey-erp/ledger/internal/accounting"
	"github.com/odyssey-erp/ledger/internal/app"
	"github.com/odyssey-erp/ledger/internal/platform/db"
	"github.com/odyssey-erp/ledger/jobs"
	"github.com/odyssey-erp/ledger/migrations"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  migrate       apply pending database migrations
  check         run the ledger integrity check now
  import-chart  create accounts from a YAML chart of accounts
  trigger       enqueue the integrity job on the worker queue
  queue         show default queue statistics
`

func main() {
	if len(os.Args) < 2 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		applied, err := db.Migrate(ctx, pool, migrations.Files)
		pool.Close()
		for _, name := range applied {
			_, _ = fmt.Fprintf(os.Stdout, "applied %s\n", name)
		}
		if err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		if len(applied) == 0 {
			_, _ = fmt.Fprintln(os.Stdout, "schema up to date")
		}
	case "check":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		asOf := fs.String("as-of", "", "date to check as of (YYYY-MM-DD), defaults to today")
		asJSON := fs.Bool("json", false, "print a JSON summary")
		_ = fs.Parse(args)
		engine, closeFn := openEngine(ctx, cfg, logger)
		job := jobs.NewLedgerIntegrityJob(engine.Reports, engine.Reconcile, logger, nil)
		code := cli.IntegrityCommand(ctx, job, cli.IntegrityOptions{AsOf: *asOf, JSONOutput: *asJSON})
		closeFn()
		os.Exit(code)
	case "import-chart":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		path := fs.String("file", "", "path to the chart of accounts YAML file")
		asJSON := fs.Bool("json", false, "print a JSON summary")
		_ = fs.Parse(args)
		engine, closeFn := openEngine(ctx, cfg, logger)
		code := cli.ImportChartCommand(ctx, engine.Accounts, cli.ImportChartOptions{Path: *path, JSONOutput: *asJSON})
		closeFn()
		os.Exit(code)
	case "trigger", "queue":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		asOf := fs.String("as-of", "", "date passed to the integrity job (YYYY-MM-DD)")
		_ = fs.Parse(args)
		code := runQueueCommand(ctx, cfg.RedisAddr, cmd, *asOf, os.Stdout)
		stop()
		os.Exit(code)
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func openEngine(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*accounting.Engine, func()) {
	var pool *pgxpool.Pool
	if cfg.LedgerStore == app.StorePostgres {
		var err error
		pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
	}
	cfg.LedgerLockBackend = app.LockLocal
	engine, err := app.NewLedgerEngine(cfg, app.LedgerDeps{Pool: pool, Logger: logger})
	if err != nil {
		logger.Error("build ledger engine", slog.Any("error", err))
		os.Exit(1)
	}
	return engine, func() {
		if pool != nil {
			pool.Close()
		}
	}
}

func runQueueCommand(ctx context.Context, redisAddr, cmd, asOf string, out io.Writer) int {
	c, err := cli.NewJobsCLI(redisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return 1
	}
	defer func() { _ = c.Close() }()

	if cmd == "queue" {
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "queue: %v\n", err)
			return 1
		}
		_ = json.NewEncoder(out).Encode(stats)
		return 0
	}

	var date time.Time
	if asOf != "" {
		date, err = time.Parse("2006-01-02", asOf)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "trigger: invalid as-of %q\n", asOf)
			return 1
		}
	}
	info, err := c.Trigger(ctx, jobs.TaskLedgerIntegrity, date)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "trigger: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	return 0
}
