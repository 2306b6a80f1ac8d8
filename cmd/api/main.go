package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sigflow/internal/accounts"
	"sigflow/internal/auth"
	"sigflow/internal/broker"
	"sigflow/internal/config"
	"sigflow/internal/db"
	"sigflow/internal/engine"
	"sigflow/internal/events"
	"sigflow/internal/health"
	"sigflow/internal/httpserver"
	"sigflow/internal/marketdata"
	"sigflow/internal/orders"
	"sigflow/internal/queue"
	sig "sigflow/internal/signal"
	"sigflow/internal/signals"
	"sigflow/internal/webhook"

	"github.com/jackc/pgx/v5/pgxpool"
)

// orderStorage is what both the engine and the read API need from a store.
type orderStorage interface {
	engine.Store
	orders.Reader
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	var (
		pool       *pgxpool.Pool
		q          queue.Queue
		orderStore orderStorage
		sigStore   webhook.SignalStore
		acctSource accounts.AccountSource
	)
	if cfg.DBDSN != "" {
		pool, err = db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal(err)
		}
		q = queue.NewPostgres(pool, cfg.QueueVisibility)
		orderStore = orders.NewStore(pool)
		sigStore = signals.NewStore(pool)
		acctSource = accounts.NewStore(pool)
		log.Printf("storage: postgres")
	} else {
		q = queue.NewMemory(cfg.QueueVisibility)
		orderStore = orders.NewMemStore()
		sigStore = signals.NewMemStore()
		acctSource = accounts.NewStaticStore(cfg.StaticKeyID, cfg.StaticSecretHash)
		log.Printf("storage: in-memory (DB_DSN not set)")
	}

	sim := marketdata.NewSimulator(time.Now().UnixNano())
	mock := broker.NewMock(sim, time.Now().UnixNano())
	bus := events.NewBus()

	tradable := cfg.Instruments
	if len(tradable) == 0 {
		tradable = marketdata.Instruments()
	}
	instruments := make(map[string]bool, len(tradable))
	for _, inst := range tradable {
		instruments[inst] = true
	}

	eng := engine.New(orderStore, q, mock, bus, sigStore, engine.Config{
		Workers:       cfg.Workers,
		CloseInterval: cfg.CloseInterval,
		Quote:         sim.Quote,
	})
	eng.Start(ctx)

	acctSvc := accounts.NewService(acctSource)
	authSvc := auth.NewService(cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	webhookHandler := webhook.NewHandler(q, bus, sigStore, sig.ValidatorConfig{
		Instruments: instruments,
		MaxDistance: cfg.MaxSLTPDistance,
		Quote:       sim.Quote,
	})
	router := httpserver.NewRouter(httpserver.RouterDeps{
		WebhookHandler: webhookHandler,
		OrderHandler:   orders.NewHandler(orderStore, eng),
		AuthHandler:    auth.NewHandler(authSvc),
		HealthHandler:  health.NewHandler(pool, time.Now(), cfg.InternalToken),
		AccountService: acctSvc,
		OrdersWS:       httpserver.NewTopicWS(bus, events.TopicOrders, authSvc, cfg.WebSocketOrigin),
		InvalidWS:      httpserver.NewTopicWS(bus, events.TopicInvalidSignals, authSvc, cfg.WebSocketOrigin),
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Printf("server listening on %s", cfg.HTTPAddr)
	log.Printf("health endpoint: http://localhost%s/health", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	eng.Stop(cfg.ShutdownTimeout)
	log.Printf("server stopped")
}
