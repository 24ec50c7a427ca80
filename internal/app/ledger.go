package app

import (
	"errors"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/ledger/internal/accounting"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/ledger/internal/observability"
)

// LedgerDeps carries the infrastructure the ledger engine runs on. Pool is
// required for the postgres store and Redis for the redis lock backend.
type LedgerDeps struct {
	Pool    *pgxpool.Pool
	Redis   redis.UniversalClient
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewLedgerEngine assembles the accounting engine selected by cfg.
func NewLedgerEngine(cfg *Config, deps LedgerDeps) (*accounting.Engine, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var stores accounting.Stores
	switch cfg.LedgerStore {
	case StoreMemory:
		logger.Warn("ledger running on the in-memory store; data is lost on restart")
		stores = accounting.MemoryStores(memstore.New())
	default:
		if deps.Pool == nil {
			return nil, errors.New("app: postgres store requires a connection pool")
		}
		stores = accounting.PostgresStores(deps.Pool)
	}

	var locker ledger.AccountLocker
	switch cfg.LedgerLockBackend {
	case LockRedis:
		if deps.Redis == nil {
			return nil, errors.New("app: redis lock backend requires a redis client")
		}
		opts := ledger.DefaultRedisLockOptions()
		opts.Expiry = cfg.LedgerLockExpiry
		locker = ledger.NewRedisLocker(deps.Redis, opts, logger.With(slog.String("component", "locker")))
	default:
		locker = ledger.NewLocalLocker()
	}

	var metrics *ledger.Metrics
	if deps.Metrics != nil {
		metrics = ledger.NewMetrics(deps.Metrics.Registerer())
	}

	return accounting.NewEngine(stores, accounting.Options{
		Locker:       locker,
		Metrics:      metrics,
		SuspenseCode: cfg.LedgerSuspense,
		Logger:       logger,
	}), nil
}
