package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zyenak/library-management/internal/config"
	"github.com/zyenak/library-management/internal/eventbus"
	"github.com/zyenak/library-management/internal/logger"
	"github.com/zyenak/library-management/internal/repository"
	"github.com/zyenak/library-management/internal/server"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

		<-c
		cancel()
	}()
	cfg := config.ReadConfig()
	zlog := logger.SetupLogger(cfg.DebugFlag)
	zlog.Info().Msg("Start server")
	zlog.Debug().Any("config", cfg).Msg("Check cfg value")

	var storage server.Storage
	if cfg.DBAddr == "mem" {
		zlog.Info().Msg("Running with in-memory store")
		storage = repository.NewInMem()
	} else {
		err := repository.Migrations(cfg.DBAddr, cfg.MPath, zlog)
		if err != nil {
			zlog.Fatal().Err(err).Msg("Init migrations failed")
		}
		pool, err := initDB(ctx, cfg.DBAddr)
		if err != nil {
			zlog.Fatal().Err(err).Msg("Connections db failed")
		}
		db := repository.NewDB(pool)
		if err = db.CheckDBConnect(ctx); err != nil {
			zlog.Fatal().Err(err).Msg("Check db connection failed")
		}
		defer db.Close()
		storage = db
	}

	bus := eventbus.New(zlog)
	srv := server.New(storage, bus, cfg.JWTSecret, zlog)
	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Router(),
	}

	group, gCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		zlog.Debug().Str("addr", cfg.Addr).Msg("Server started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Fatal().Err(err).Msg("Server stopped with error")
	}
	zlog.Info().Msg("Server stopped")
}

func initDB(ctx context.Context, addr string) (*pgxpool.Pool, error) {
	for i := 0; i < 7; i++ {
		time.Sleep(time.Second + time.Second)
		pool, err := pgxpool.New(ctx, addr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
	}
	pool, err := pgxpool.New(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("database initialization error: %w", err)
	}
	return pool, nil
}
