package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/api"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/config"
)

var Version = "dev"

func main() {
	app := cli.NewApp()
	app.Name = "swapservice"
	app.Version = Version
	app.Usage = "best fee-tier USDC -> USDT swaps on Uniswap V3"
	app.Flags = []cli.Flag{configFlag}
	app.Commands = append(app.Commands, &serveCommand, &quoteCommand, &simulateCommand)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var serveCommand = cli.Command{
	Name:   "serve",
	Usage:  "run the HTTP API",
	Action: serveAction,
}

var quoteCommand = cli.Command{
	Name:   "quote",
	Usage:  "print the best quote for an input amount without sending anything",
	Flags:  []cli.Flag{amountFlag},
	Action: quoteAction,
}

var simulateCommand = cli.Command{
	Name:   "simulate",
	Usage:  "quote, build and eth_call the swap transaction without signing or sending it",
	Flags:  []cli.Flag{amountFlag},
	Action: simulateAction,
}

func serveAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer svc.Close()

	if !cfg.Swap.SkipDecimalsCheck {
		checkDecimals(ctx, svc.chain, cfg, logger)
	}

	server := api.NewServer(cfg, logger, svc.executor)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		svc.auto.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Start(gctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("api stopped", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func quoteAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	svc, err := newService(c.Context, cfg, logger, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	q, err := svc.executor.Quote(c.Context, c.String(amountFlagName))
	if err != nil {
		return err
	}
	return printJSON(q)
}

func simulateAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	svc, err := newService(c.Context, cfg, logger, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	req, err := svc.executor.Plan(c.Context, c.String(amountFlagName))
	if err != nil {
		return err
	}
	router := common.HexToAddress(cfg.Contracts.SwapRouter)
	sim, err := svc.chain.SimulateSwap(c.Context, router, req.Params(), cfg.Swap.GasLimit)
	if err != nil {
		return err
	}
	if err := printJSON(sim); err != nil {
		return err
	}
	if sim.Reverted {
		return fmt.Errorf("simulation reverted: %s", sim.Error)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String(configFlagName))
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return nil, nil, fmt.Errorf("config: log_level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}
