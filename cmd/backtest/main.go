package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-autotrader/internal/backtest/progress"
	"github.com/rxtech-lab/argo-autotrader/internal/backtest/replay"
	"github.com/rxtech-lab/argo-autotrader/internal/bootstrap"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/datasource"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/schedule"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// pollInterval is how often the daemon checks the backtest window.
const pollInterval = time.Minute

// app holds what every subcommand needs.
type app struct {
	settings *config.Store
	logger   *logger.Logger
	redis    redis.UniversalClient
	tracker  *progress.Tracker
}

func openApp(ctx context.Context, cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return nil, err
	}

	lg, err := bootstrap.Logger(cfg, bootstrap.BotBacktest)
	if err != nil {
		return nil, err
	}

	rdb, err := bootstrap.Redis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tracker, err := bootstrap.Tracker(cfg, bootstrap.ProgressStore(cfg, rdb), lg)
	if err != nil {
		return nil, err
	}

	return &app{
		settings: config.NewStore(cfg, cmd.String("config"), lg),
		logger:   lg,
		redis:    rdb,
		tracker:  tracker,
	}, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}

	_ = a.logger.Sync()
}

// driver wires a replay driver. The returned journal and source must be
// closed by the caller.
func (a *app) driver(ctx context.Context) (*replay.Driver, journal.Journal, *datasource.DuckDBSource, error) {
	cfg := a.settings.Get()

	source, err := datasource.NewDuckDBSource(cfg.Paths.Historical, a.logger)
	if err != nil {
		return nil, nil, nil, err
	}

	j, err := bootstrap.Journal(ctx, cfg, bootstrap.BotBacktest, a.logger)
	if err != nil {
		_ = source.Close()

		return nil, nil, nil, err
	}

	engine := replay.NewEngine(source, a.tracker, j, bootstrap.Locker(a.redis), strategy.DefaultRegistry(), a.logger)

	return replay.NewDriver(engine, a.settings, a.logger), j, source, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	driver, j, source, err := a.driver(ctx)
	if err != nil {
		return err
	}
	defer source.Close()
	defer j.Close()

	bar := progressbar.Default(int64(driver.Pairs()), "backtesting")

	report, err := driver.RunDaily(ctx, cmd.Bool("force"), func(result replay.SessionResult, _ error) {
		bar.Describe(result.Symbol + "/" + result.Strategy)
		_ = bar.Add(1)
	})
	_ = bar.Finish()

	if err != nil {
		return err
	}

	printReport(report)

	return nil
}

func daemonAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	driver, j, source, err := a.driver(ctx)
	if err != nil {
		return err
	}
	defer source.Close()
	defer j.Close()

	a.logger.Info("Starting backtest bot")

	var lastRun string

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		a.settings.ApplyPending()
		cfg := a.settings.Get()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		window, err := schedule.NewWindow(cfg.Backtest.Schedule.Start, cfg.Backtest.Schedule.End, cfg.Backtest.Schedule.WeekdaysOnly, loc)
		if err != nil {
			return err
		}

		now := time.Now().In(loc)
		today := now.Format(time.DateOnly)

		if today != lastRun && window.Contains(now) {
			if _, err := driver.RunDaily(ctx, false, nil); err != nil {
				a.logger.Error("Daily backtest failed", zap.Error(err))
			}

			lastRun = today
		}

		select {
		case <-ctx.Done():
			a.logger.Info("Stopping backtest bot")

			return nil
		case <-ticker.C:
		}
	}
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.settings.Get()

	fmt.Printf("%-14s %-22s %-12s %-9s %s\n", "SYMBOL", "STRATEGY", "LAST END", "SESSIONS", "NEXT")

	for _, info := range cfg.ActiveSymbols() {
		for _, name := range cfg.ActiveStrategies {
			status, err := a.tracker.Status(ctx, info.Symbol, name, cfg.Backtest.SessionDurationMonths)
			if err != nil {
				return err
			}

			last := "-"
			if status.LastEndDate != nil {
				last = status.LastEndDate.Format(time.DateOnly)
			}

			next := status.Next.Start.Format(time.DateOnly) + " .. " + status.Next.End.Format(time.DateOnly)
			if status.Next.Exhausted {
				next = "exhausted"
			}

			fmt.Printf("%-14s %-22s %-12s %-9d %s\n", info.Symbol, name, last, status.Sessions, next)
		}
	}

	return nil
}

func resetAction(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.settings.Get()

	symbols := []string{cmd.String("symbol")}
	if cmd.String("symbol") == "" {
		symbols = symbols[:0]
		for _, info := range cfg.ActiveSymbols() {
			symbols = append(symbols, info.Symbol)
		}
	}

	strategies := []string{cmd.String("strategy")}
	if cmd.String("strategy") == "" {
		strategies = cfg.ActiveStrategies
	}

	for _, symbol := range symbols {
		for _, name := range strategies {
			if err := a.tracker.Reset(ctx, symbol, name); err != nil {
				return err
			}

			fmt.Printf("reset %s/%s\n", symbol, name)
		}
	}

	return nil
}

func statsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), cmd.String("env"))
	if err != nil {
		return err
	}

	j, err := journal.NewCSVJournal(cfg.Paths.TradesBacktest)
	if err != nil {
		return err
	}
	defer j.Close()

	stats, err := j.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Trades:   %d\n", stats.TotalTrades)
	fmt.Printf("P&L:      %s\n", types.FormatPnL(stats.TotalPnL))
	fmt.Printf("Win rate: %s%%\n", stats.WinRate.StringFixed(2))
	fmt.Printf("Won/Lost: %d/%d\n", stats.WinningTrades, stats.LosingTrades)

	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func strategiesAction(_ context.Context, _ *cli.Command) error {
	registry := strategy.DefaultRegistry()

	for _, name := range registry.List() {
		s, err := registry.New(name)
		if err != nil {
			return err
		}

		schema, err := strategy.ParameterSchema(s)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n  %s\n", name, schema)
	}

	return nil
}

func printReport(report replay.DailyReport) {
	if report.OutsideWindow {
		fmt.Println("Outside backtest hours; use --force to run anyway")

		return
	}

	for _, s := range report.Sessions {
		fmt.Printf("%-14s %-22s %s .. %s  trades=%d  pnl=%s\n",
			s.Symbol, s.Strategy,
			s.Range.Start.Format(time.DateOnly), s.Range.End.Format(time.DateOnly),
			s.Stats.Trades, types.FormatPnL(s.Stats.PnL))
	}

	fmt.Printf("run=%d exhausted=%d no_data=%d failed=%d\n",
		report.Run, report.Exhausted, report.NoData, len(report.Failed))

	for _, f := range report.Failed {
		fmt.Printf("  failed %s/%s: %s\n", f.Symbol, f.Strategy, f.Error)
	}
}

func main() {
	configFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the settings file (.yaml or .toml)",
			Value:   config.DefaultPath,
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "Path to a .env file with overrides",
		},
	}

	cmd := &cli.Command{
		Name:    "backtest",
		Version: version.GetVersion(),
		Usage:   "Resumable daily backtests over symbols x strategies",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one session for every active pair",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Run outside the backtest window",
					},
				}, configFlags...),
				Action: runAction,
			},
			{
				Name:   "daemon",
				Usage:  "Run the daily backtest once per day inside the backtest window",
				Flags:  configFlags,
				Action: daemonAction,
			},
			{
				Name:   "status",
				Usage:  "Show the progress of every active pair",
				Flags:  configFlags,
				Action: statusAction,
			},
			{
				Name:  "reset",
				Usage: "Forget progress so pairs replay from the start date",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "symbol", Usage: "Only this symbol"},
					&cli.StringFlag{Name: "strategy", Usage: "Only this strategy"},
				}, configFlags...),
				Action: resetAction,
			},
			{
				Name:   "stats",
				Usage:  "Summarize the backtest trade journal",
				Flags:  configFlags,
				Action: statsAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the settings file",
				Action: schemaAction,
			},
			{
				Name:   "strategies",
				Usage:  "List strategies and their parameter schemas",
				Action: strategiesAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
