package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-autotrader/internal/bootstrap"
	"github.com/rxtech-lab/argo-autotrader/internal/broker"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/control"
	"github.com/rxtech-lab/argo-autotrader/internal/datasource"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/live"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	cfg, err := config.Load(path, cmd.String("env"))
	if err != nil {
		return err
	}

	if cfg.Mode == types.ModeLive {
		return errors.New(errors.ErrCodeBrokerUnavailable, "no live broker is configured; set mode to paper")
	}

	lg, err := bootstrap.Logger(cfg, bootstrap.BotRealtime)
	if err != nil {
		return err
	}
	defer lg.Sync()

	rdb, err := bootstrap.Redis(ctx, cfg)
	if err != nil {
		return err
	}

	if rdb != nil {
		defer rdb.Close()
	}

	source, err := datasource.NewDuckDBSource(cfg.Paths.Historical, lg)
	if err != nil {
		return err
	}
	defer source.Close()

	j, err := bootstrap.Journal(ctx, cfg, bootstrap.BotRealtime, lg)
	if err != nil {
		return err
	}
	defer j.Close()

	tracker, err := bootstrap.Tracker(cfg, bootstrap.ProgressStore(cfg, rdb), lg)
	if err != nil {
		return err
	}

	store := config.NewStore(cfg, path, lg)
	paper := broker.NewPaper(source, cfg.Segment, lg)
	cycle := live.NewCycle(paper, strategy.DefaultRegistry(), bootstrap.PriceCache(rdb), j, store, lg)
	runner := live.NewRunner(cycle, store, lg)

	server := control.NewServer(control.Dependencies{
		Settings: store,
		Trader:   runner,
		Progress: tracker,
	}, lg)

	lg.Info("Starting realtime bot",
		zap.String("mode", string(cfg.Mode)),
		zap.Int("symbols", len(cfg.ActiveSymbols())),
		zap.Strings("strategies", cfg.ActiveStrategies))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runner.Run(gctx)
	})

	addr := cmd.String("listen")
	if addr == "" {
		addr = cfg.Control.Addr
	}

	if addr != "" {
		g.Go(func() error {
			return server.ListenAndServe(gctx, addr)
		})
	}

	return g.Wait()
}

func main() {
	cmd := &cli.Command{
		Name:    "realtime",
		Version: version.GetVersion(),
		Usage:   "Paper-trade the active strategies during market hours",
		Flags: []cli.Flag{
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
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address of the control API; empty uses control.addr from the settings",
			},
		},
		Action: runAction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
