package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/warren-scheduler/pkg/api"
	"github.com/cuemby/warren-scheduler/pkg/config"
	"github.com/cuemby/warren-scheduler/pkg/events"
	"github.com/cuemby/warren-scheduler/pkg/eventserver"
	"github.com/cuemby/warren-scheduler/pkg/log"
	"github.com/cuemby/warren-scheduler/pkg/metrics"
	"github.com/cuemby/warren-scheduler/pkg/scheduler"
	"github.com/cuemby/warren-scheduler/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "warren-scheduler",
	Short:   "Cluster workload scheduler",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"warren-scheduler version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(passCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon: REST API, gRPC event ingress, and the ticking reconciliation loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, repo, err := bootstrap()
		if err != nil {
			return err
		}
		defer repo.Close()

		sched := scheduler.New(repo, time.Duration(cfg.PassInterval))
		sched.Start()
		defer sched.Stop()

		collector := metrics.NewCollector(repo)
		collector.Start()
		defer collector.Stop()

		metrics.SetVersion(Version)
		metrics.RegisterComponent(metrics.ComponentStorage, true, "open")
		metrics.RegisterComponent(metrics.ComponentScheduler, true, "running")

		ingress := events.NewIngress(repo)
		grpcServer := eventserver.NewServer(ingress)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				log.Logger.Error().Err(err).Msg("event server stopped")
			}
		}()
		defer grpcServer.Stop()

		httpServer := api.NewServer(repo)
		httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpServer.Router()}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Logger.Error().Err(err).Msg("http server stopped")
			}
		}()
		defer httpSrv.Close()

		log.Logger.Info().
			Str("http_addr", cfg.HTTPAddr).
			Str("grpc_addr", cfg.GRPCAddr).
			Str("pass_interval", time.Duration(cfg.PassInterval).String()).
			Msg("warren-scheduler started")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Logger.Info().Msg("shutting down")
		return nil
	},
}

var passCmd = &cobra.Command{
	Use:   "pass",
	Short: "Run a single reconciliation pass against the configured data directory and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, repo, err := bootstrap()
		if err != nil {
			return err
		}
		defer repo.Close()

		sched := scheduler.New(repo, time.Hour)
		if err := sched.RunPass(); err != nil {
			return fmt.Errorf("pass failed: %w", err)
		}
		fmt.Println("pass completed")
		return nil
	},
}

func bootstrap() (config.Config, *storage.BoltStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return config.Config{}, nil, fmt.Errorf("create data dir: %w", err)
	}
	repo, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("open storage: %w", err)
	}
	return cfg, repo, nil
}
