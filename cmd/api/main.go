package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/agri-marketplace/internal/config"
	"github.com/shinyyama/agri-marketplace/internal/db"
	"github.com/shinyyama/agri-marketplace/internal/identity"
	appmw "github.com/shinyyama/agri-marketplace/internal/middleware"
	"github.com/shinyyama/agri-marketplace/internal/server"
)

func main() {
	_ = godotenv.Load()

	scfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	opts := server.Options{
		CORSAllowedSuffix: scfg.CORSAllowedSuffix,
		GitSHA:            scfg.GitSHA,
		BuildTime:         scfg.BuildTime,
	}
	switch scfg.AuthMode {
	case config.AuthModeHeader:
		log.Printf("auth mode %q: identity is read from request headers, do not expose this instance", scfg.AuthMode)
		opts.Auth = appmw.NewAuthMiddleware(nil)
		opts.Users = identity.StaticDirectory{}
	default:
		client, err := identity.NewAuthClient(context.Background(), scfg.FirebaseProjectID)
		if err != nil {
			log.Fatalf("failed to init firebase auth: %v", err)
		}
		opts.Auth = appmw.NewAuthMiddleware(client)
		opts.Users = identity.NewFirebaseDirectory(client)
	}

	srv := server.New(nil, opts)
	addr := ":" + scfg.Port

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	// The listener comes up before the database so health checks pass while
	// Cloud SQL is still connecting.
	go func() {
		cfg, err := config.Load()
		if err != nil {
			log.Printf("config load error: %v", err)
			return
		}
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(conn); err != nil {
				log.Printf("auto migrate error: %v", err)
				return
			}
		}
		srv.SetDB(conn)
		log.Printf("database ready")
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}
