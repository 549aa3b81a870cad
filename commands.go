package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mc.backtest/config"
	c "mc.backtest/core"
	"mc.backtest/logger"
	"mc.backtest/report"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcbacktest",
		Short: "Monte Carlo backtesting of a portfolio against a benchmark",
		Long: `mcbacktest loads daily price tables for a portfolio and a benchmark, plus an
optional treasury rate table, and reports volatility, a Monte Carlo Sharpe
ratio distribution, beta and alpha.`,
		SilenceUsage: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newRunCmd(), newServeCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single backtest and print the report to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sc, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateForRun(); err != nil {
				return err
			}

			req := c.BacktestRequest{
				Portfolio: c.FileSource(cfg.Portfolio),
				Benchmark: c.FileSource(cfg.Benchmark),
				Settings:  cfg.BacktestSettings(),
			}
			if cfg.RiskFree != "" {
				req.RiskFree = c.FileSource(cfg.RiskFree)
			}

			rep, err := sc.RunBacktest(req)
			if err != nil {
				return err
			}

			return report.Write(cmd.OutOrStdout(), rep, cfg.Format)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sc, err := setup(cmd)
			if err != nil {
				return err
			}

			// get http server, makes all of the endpoints and routes
			s := c.GetHttpServer(*sc, cfg.Addr)

			// start http server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				sc.Logger.Info().Str("addr", s.Addr).Msg("Starting backtest server")
				if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			// wait here until the context is closed (ie, ctrl+C) or the server fails to start
			select {
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-sc.Context.Done():
			}
			sc.Logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

			// this gives the server time to finish in flight backtests
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()

			if err := s.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown error: %w", err)
			}

			sc.Logger.Info().Msg("Server stopped successfully")
			return nil
		},
	}
}

// setup loads configuration and builds the service context shared by every command
func setup(cmd *cobra.Command) (*config.Config, *c.ServiceContext, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	sc := &c.ServiceContext{
		Context: cmd.Context(),
		Logger:  log,
	}

	return cfg, sc, nil
}
