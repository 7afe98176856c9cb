package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/config"
	"github.com/smsline/smsline/internal/db"
	"github.com/smsline/smsline/internal/export"
	"github.com/smsline/smsline/internal/handler"
	"github.com/smsline/smsline/internal/job"
	"github.com/smsline/smsline/internal/provider"
	"github.com/smsline/smsline/internal/ratelimit"
	"github.com/smsline/smsline/internal/repo"
	"github.com/smsline/smsline/internal/schedule"
	"github.com/smsline/smsline/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "smsline",
		Short: "verification line rental engine",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the smsline server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer conn.Close()
	if err := db.ApplyMigrations(conn); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	gate := ratelimit.NewGate(time.Duration(cfg.Provider.RateIntervalMillis) * time.Millisecond)
	rawClient, err := provider.New(provider.Config{
		APIKey:      cfg.Provider.APIKey,
		BaseURL:     cfg.Provider.BaseURL,
		HTTPTimeout: time.Duration(cfg.Provider.HTTPTimeoutSeconds) * time.Second,
	}, gate)
	if err != nil {
		return fmt.Errorf("init provider client: %w", err)
	}
	client := provider.WrapBalanceCache(rawClient, time.Duration(cfg.Provider.BalanceCacheTTL)*time.Second)

	// Startup probe: a failed balance read is logged, not fatal, so a
	// provider outage does not block restarts.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if balance, err := client.CheckBalance(probeCtx); err != nil {
		logutil.GetLogger(probeCtx).Warn("provider connection test failed", zap.Error(err))
	} else {
		logutil.GetLogger(probeCtx).Info("provider connected", zap.Float64("balance", balance))
	}
	probeCancel()

	eventRepo := repo.NewEventRepo(conn)
	recorder := service.NewEventRecorder(eventRepo)
	coordinator := service.NewCoordinator(client, recorder, service.Options{
		ServiceCode:         cfg.Provider.ServiceCode,
		MaxPrice:            cfg.Provider.MaxPrice,
		Country:             cfg.Provider.Country,
		PollInterval:        time.Duration(cfg.Provider.PollIntervalMillis) * time.Millisecond,
		VerificationTimeout: time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
		MaxAttempts:         cfg.Provider.MaxAttempts,
	})
	defer coordinator.Shutdown()

	store, err := export.New(cfg.Export)
	if err != nil {
		return fmt.Errorf("init export store: %w", err)
	}
	exporter := service.NewExportService(coordinator, eventRepo, store)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewCleanupJob(coordinator, time.Duration(cfg.Retention.TerminalKeepMinutes)*time.Minute), "* * * * *"); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewEventPruneJob(eventRepo, cfg.Retention.EventKeepDays), "0 4 * * *"); err != nil {
		return err
	}
	if cfg.Export.Cron != "" {
		if err := scheduler.AddJob(job.NewExportJob(exporter), cfg.Export.Cron); err != nil {
			return err
		}
	}

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(cfg.Auth.AccessKeyHash, []byte(cfg.Auth.JWTSecret), time.Hour*time.Duration(cfg.Auth.JWTTTLHours)),
		Verifications: handler.NewVerificationHandler(coordinator),
		Account:       handler.NewAccountHandler(coordinator),
		Events:        handler.NewEventHandler(eventRepo),
		Export:        handler.NewExportHandler(exporter),
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.Int("port", cfg.Port))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
