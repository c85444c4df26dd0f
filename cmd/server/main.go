package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/escala365/arena-backend/internal/bank"
	"github.com/escala365/arena-backend/internal/bus"
	"github.com/escala365/arena-backend/internal/config"
	"github.com/escala365/arena-backend/internal/feed"
	"github.com/escala365/arena-backend/internal/httpapi"
	"github.com/escala365/arena-backend/internal/ledger"
	"github.com/escala365/arena-backend/internal/moderator"
	"github.com/escala365/arena-backend/internal/roster"
	"github.com/escala365/arena-backend/internal/store"
	"github.com/escala365/arena-backend/internal/ws"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	// A missing .env is fine in deployed environments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}

	sessions := store.NewGorm(db)
	questions := bank.New(db)
	teams := roster.New(db)
	if err := sessions.Migrate(ctx); err != nil {
		return err
	}
	if err := questions.Migrate(ctx); err != nil {
		return err
	}
	if err := teams.Migrate(ctx); err != nil {
		return err
	}

	changeFeed := feed.New(ctx, sessions, log)
	broadcasts := bus.New(ctx)
	controller := moderator.New(ctx, sessions, questions, ledger.NewGorm(db), changeFeed, broadcasts, log)

	handlers := &httpapi.Handlers{
		Store:  sessions,
		Bank:   questions,
		Roster: teams,
		Log:    log,
	}
	router := httpapi.SetupRoutes(handlers, ws.Deps{
		Controller: controller,
		Feed:       changeFeed,
		Bus:        broadcasts,
		Store:      sessions,
		Roster:     teams,
		Log:        log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
