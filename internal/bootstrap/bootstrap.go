// Package bootstrap assembles the collaborators both bots share from the
// loaded settings.
package bootstrap

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-autotrader/internal/backtest/progress"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/lock"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/storage"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/live"
	"go.uber.org/zap"
)

// Bot names the process: it selects the journal file, SQL table, parquet
// file and log directory.
type Bot string

const (
	BotBacktest Bot = "backtest"
	BotRealtime Bot = "realtime"
)

// Logger opens the dated file logger of bot.
func Logger(cfg config.Settings, bot Bot) (*logger.Logger, error) {
	dir := cfg.Paths.LogsBacktest
	if bot == BotRealtime {
		dir = cfg.Paths.LogsRealtime
	}

	return logger.NewFileLogger(dir, string(bot)+"_bot")
}

// Redis connects when redis.addr is set. It returns a nil client when Redis
// is disabled.
func Redis(ctx context.Context, cfg config.Settings) (redis.UniversalClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	rdb, err := storage.NewRedis(ctx, storage.RedisConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   10,
		MaxRetries: 3,
		TLSEnabled: cfg.Redis.TLS,
	})
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

// ProgressStore is Redis backed when rdb is set and file backed otherwise.
func ProgressStore(cfg config.Settings, rdb redis.UniversalClient) progress.Store {
	if rdb != nil {
		return progress.NewRedisStore(rdb)
	}

	return progress.NewFileStore(cfg.Paths.BacktestState)
}

// Tracker builds the progress tracker over store starting at the configured
// backtest start date.
func Tracker(cfg config.Settings, store progress.Store, logger *logger.Logger) (*progress.Tracker, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	start, err := cfg.BacktestStart(loc)
	if err != nil {
		return nil, err
	}

	return progress.NewTracker(store, start, logger), nil
}

// Locker shares pair locks through Redis when rdb is set.
func Locker(rdb redis.UniversalClient) lock.Locker {
	if rdb != nil {
		return lock.NewRedis(rdb)
	}

	return lock.NewLocal()
}

// PriceCache publishes live prices through Redis when rdb is set.
func PriceCache(rdb redis.UniversalClient) live.PriceCache {
	if rdb != nil {
		return live.NewRedisCache(rdb)
	}

	return live.NewMemoryCache()
}

// Journal opens the CSV journal of bot and fans out to the SQL and parquet
// journals when they are configured. Reads are served by the CSV journal.
func Journal(ctx context.Context, cfg config.Settings, bot Bot, logger *logger.Logger) (journal.Journal, error) {
	path := cfg.Paths.TradesBacktest
	if bot == BotRealtime {
		path = cfg.Paths.TradesRealtime
	}

	primary, err := journal.NewCSVJournal(path)
	if err != nil {
		return nil, err
	}

	others := make([]journal.Journal, 0, 2)

	if cfg.Journal.SQLDriver != "" {
		j, err := journal.OpenSQL(ctx, cfg.Journal.SQLDriver, cfg.Journal.SQLDSN, string(bot)+"_trades", logger)
		if err != nil {
			closeAll(logger, primary)

			return nil, err
		}

		others = append(others, j)
	}

	if cfg.Journal.ParquetPath != "" {
		j, err := journal.NewParquetJournal(ctx, ParquetPath(cfg.Journal.ParquetPath, bot), logger)
		if err != nil {
			closeAll(logger, append(others, primary)...)

			return nil, err
		}

		others = append(others, j)
	}

	if len(others) == 0 {
		return primary, nil
	}

	return journal.NewMulti(primary, others...), nil
}

// ParquetPath suffixes the configured parquet file with the bot name, so
// both bots can share one setting.
func ParquetPath(path string, bot Bot) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".parquet"
	}

	return strings.TrimSuffix(path, filepath.Ext(path)) + "_" + string(bot) + ext
}

func closeAll(logger *logger.Logger, journals ...journal.Journal) {
	for _, j := range journals {
		if err := j.Close(); err != nil {
			logger.Warn("Failed to close journal", zap.Error(err))
		}
	}
}
