package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shinyyama/loops-backend/internal/config"
	"github.com/shinyyama/loops-backend/internal/db"
	"github.com/shinyyama/loops-backend/internal/metrics"
	appmw "github.com/shinyyama/loops-backend/internal/middleware"
	"github.com/shinyyama/loops-backend/internal/profile"
	"github.com/shinyyama/loops-backend/internal/realtime"
	"github.com/shinyyama/loops-backend/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authMw, err := appmw.NewAuthMiddleware(ctx, cfg.FirebaseProjectID, cfg.DevAuth)
	if err != nil {
		log.Fatalf("failed to init firebase auth: %v", err)
	}
	var profiles profile.Provider
	if authMw.Client() != nil {
		profiles = profile.NewFirebaseProvider(authMw.Client())
	}

	rdb, err := realtime.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	srv := server.New(nil, cfg, server.Deps{
		Auth:     authMw,
		Profiles: profiles,
		Redis:    rdb,
		Metrics:  metrics.New(),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	go func() {
		if err := srv.RunBroker(ctx); err != nil {
			log.Printf("redis broker stopped: %v", err)
		}
	}()

	// the server answers health checks while the database comes up
	go func() {
		dbCfg, err := config.LoadDB()
		if err != nil {
			log.Printf("db config load error: %v", err)
			return
		}
		conn, err := db.Connect(dbCfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		if err := db.Migrate(conn); err != nil {
			log.Printf("auto migrate error: %v", err)
			return
		}
		srv.SetDB(conn)
		log.Printf("database ready")
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
