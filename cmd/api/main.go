package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"herdbook.org/internal/auth"
	"herdbook.org/internal/httpapi"
	"herdbook.org/internal/obs"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("HERDBOOK_COMMIT"))

	var (
		db    *sql.DB
		store auth.Store
	)
	if dsn := os.Getenv("HERDBOOK_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store = auth.NewPGStore(db)
	} else {
		log.Println("HERDBOOK_PG_DSN not set; using in-memory store (development only)")
		store = auth.NewInMemory()
	}

	var opts []auth.ServiceOption
	if raw := os.Getenv("HERDBOOK_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("parse HERDBOOK_SESSION_TTL: %v", err)
		}
		opts = append(opts, auth.WithSessionTTL(ttl))
	}
	svc := auth.NewService(store, opts...)

	if err := bootstrapAdmin(svc); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, svc)

	addr := os.Getenv("HERDBOOK_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Expired sessions stay invalid without this; the sweep only reclaims
	// storage.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepLoop(sweepCtx, svc)

	log.Printf("Starting herdbook-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// bootstrapAdmin creates the initial admin account from the environment on
// first start. An existing account with the same email is left untouched.
func bootstrapAdmin(svc *auth.Service) error {
	email := os.Getenv("HERDBOOK_BOOTSTRAP_ADMIN_EMAIL")
	password := os.Getenv("HERDBOOK_BOOTSTRAP_ADMIN_PASSWORD")
	if email == "" && password == "" {
		return nil
	}
	if email == "" || password == "" {
		return errors.New("HERDBOOK_BOOTSTRAP_ADMIN_EMAIL and HERDBOOK_BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := svc.CreateAccount(ctx, email, password, "Administrator", auth.RoleAdmin)
	if errors.Is(err, auth.ErrAlreadyExists) {
		return nil
	}
	return err
}

func sweepLoop(ctx context.Context, svc *auth.Service) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := svc.Sweep(ctx)
			if err != nil {
				log.Printf("session sweep: %v", err)
				continue
			}
			obs.ObserveSessionsSwept(swept)
		}
	}
}
