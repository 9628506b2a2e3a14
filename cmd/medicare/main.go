package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"medicare/internal/auth"
	"medicare/internal/config"
	"medicare/internal/db"
	httpx "medicare/internal/http"
	"medicare/internal/jobs"
	"medicare/internal/notify"
	"medicare/internal/scheduler"
	"medicare/internal/storage"
)

func main() {
	cfg, _ := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	sender := &notify.SMTPSender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	}

	evidence, err := storage.NewEvidenceStore(context.Background(), cfg.EvidenceBucket, cfg.EvidencePublicURL)
	if err != nil {
		logger.Fatal("evidence store init failed", zap.Error(err))
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	sweeper := &notify.Sweeper{DB: gdb, Sender: sender, Log: logger}
	r := httpx.NewRouter(cfg, gdb, jwtSvc, sweeper, evidence)

	// alert email dispatch
	jobsRepo := &jobs.Repo{DB: gdb}
	worker := &jobs.Worker{ID: "worker-1", Repo: jobsRepo, Sender: sender, Log: logger}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	// periodic missed-dose sweep; the manual trigger races it harmlessly
	sched := scheduler.New()
	if _, err := sched.ScheduleInterval(cfg.SweepInterval, func() {
		sweeper.SweepAll(context.Background())
	}); err != nil {
		logger.Fatal("sweep schedule failed", zap.Error(err))
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
