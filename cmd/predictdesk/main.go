package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gregtusar/predictdesk/api"
	"github.com/gregtusar/predictdesk/internal/config"
	"github.com/gregtusar/predictdesk/pkg/caesar"
	"github.com/gregtusar/predictdesk/pkg/research"
	"github.com/gregtusar/predictdesk/pkg/store"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "predictdesk",
		Short: "Prediction market dashboard backend",
		Long:  `Serves Polymarket and Kalshi market data, Kelly position sizing and AI research jobs over a JSON API`,
		RunE:  runServer,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE:  runServer,
	})
	rootCmd.AddCommand(newCalcCmd())

	return rootCmd
}

func runServer(cmd *cobra.Command, args []string) error {
	bootLogger := logrus.New()
	bootLogger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		bootLogger.WithError(err).Error("Failed to load configuration")
		return err
	}

	logger, closeLog, err := config.NewLogger(cfg.Logging)
	if err != nil {
		bootLogger.WithError(err).Error("Failed to set up logging")
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(store.WithLogger(logger))
	if err := st.LoadSeed(cfg.Data.SeedFile); err != nil {
		logger.WithError(err).Error("Failed to load market data")
		return err
	}

	var provider research.Provider
	if cfg.Caesar.Configured() {
		client, err := caesar.NewClient(cfg.Caesar.ClientConfig(), logger)
		if err != nil {
			logger.WithError(err).Error("Failed to create Caesar client")
			return err
		}
		provider = client
		logger.WithField("base_url", cfg.Caesar.BaseURL).Info("Caesar research enabled")
	} else {
		logger.Warn("CAESAR_API_KEY not set, research jobs will be simulated")
	}

	researchSvc := research.NewService(st, provider, cfg.Research.ServiceConfig(), logger)

	server := api.NewServer(st, researchSvc, logger, api.Options{
		Port:         cfg.Server.Port,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("predictdesk is running. Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("API server failed")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down API server cleanly")
	}
	researchSvc.Wait()

	logger.Info("predictdesk stopped")
	return nil
}
