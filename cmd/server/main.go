package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/gainboard/internal/config"
	"github.com/mamadbah2/gainboard/internal/realtime"
	"github.com/mamadbah2/gainboard/internal/scheduler"
	"github.com/mamadbah2/gainboard/internal/server/handlers"
	"github.com/mamadbah2/gainboard/internal/server/router"
	portfoliosvc "github.com/mamadbah2/gainboard/internal/service/portfolio"
	"github.com/mamadbah2/gainboard/internal/service/quotes"
	"github.com/mamadbah2/gainboard/pkg/clients/stooq"
	"github.com/mamadbah2/gainboard/pkg/clients/yahoo"
	"github.com/mamadbah2/gainboard/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	quoteClient := yahoo.NewClient(cfg.Quotes)
	csvClient := stooq.NewClient(cfg.Quotes)
	resolver := quotes.NewResolver(quoteClient, csvClient, baseLogger.Named("svc.quotes"))

	boardSvc := portfoliosvc.NewService(resolver, baseLogger.Named("svc.portfolio"))
	hub := realtime.NewHub(baseLogger.Named("realtime"))

	portfolioHandler := handlers.NewPortfolioHandler(boardSvc, hub, baseLogger.Named("handlers.portfolio"))
	engine := router.New(portfolioHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Refresh, boardSvc, hub, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
