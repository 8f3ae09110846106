package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/resale_shop/internal/checkout"
	"github.com/Skotchmaster/resale_shop/internal/config"
	"github.com/Skotchmaster/resale_shop/internal/events"
	"github.com/Skotchmaster/resale_shop/internal/handlers"
	"github.com/Skotchmaster/resale_shop/internal/logging"
	"github.com/Skotchmaster/resale_shop/internal/middleware/auth"
	"github.com/Skotchmaster/resale_shop/internal/payment"
	"github.com/Skotchmaster/resale_shop/internal/repo"
	authsvc "github.com/Skotchmaster/resale_shop/internal/service/auth"
	cartsvc "github.com/Skotchmaster/resale_shop/internal/service/cart"
	catalogsvc "github.com/Skotchmaster/resale_shop/internal/service/catalog"
	ordersvc "github.com/Skotchmaster/resale_shop/internal/service/order"
	"github.com/Skotchmaster/resale_shop/internal/session"
	httpserver "github.com/Skotchmaster/resale_shop/internal/transport/http"
)

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventBroker {
	case config.BrokerKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers)
	case config.BrokerAMQP:
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return events.Nop{}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := config.OpenDB(context.Background(), cfg)
	if err != nil {
		logger.Error("init db", "error", err)
		os.Exit(1)
	}

	pub, err := newPublisher(cfg)
	if err != nil {
		logger.Error("init event publisher", "broker", cfg.EventBroker, "error", err)
		os.Exit(1)
	}

	prod := cfg.IsProduction()
	r := repo.New(db)
	sessions := session.NewManager(db, cfg.SessionSecret, cfg.SessionTTL)
	gateway := payment.NewClient(cfg.GatewayURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)
	hashKey, blockKey := checkout.DeriveKeys(cfg.SessionSecret)
	store := checkout.NewStore(hashKey, blockKey, int(cfg.SessionTTL.Seconds()), prod)

	deps := httpserver.Deps{
		DB: db,
		Auth: &handlers.AuthHTTP{
			Svc:      &authsvc.AuthService{Repo: r, Sessions: sessions},
			Checkout: store,
			Secure:   prod,
		},
		Product: &handlers.ProductHTTP{Svc: &catalogsvc.CatalogService{Repo: r}},
		Cart:    &handlers.CartHTTP{Svc: &cartsvc.CartService{Repo: r, Events: pub}},
		Order: &handlers.OrderHTTP{
			Svc: &ordersvc.OrderService{
				Repo:      r,
				Gateway:   gateway,
				Events:    pub,
				KeyID:     cfg.GatewayKeyID,
				KeySecret: cfg.GatewayKeySecret,
				Currency:  cfg.Currency,

				StaleAfter: cfg.GatewayTimeout + 30*time.Second,
			},
			Checkout: store,
		},
		Checkout: &handlers.CheckoutHTTP{Store: store},
		AuthMW:   &auth.Middleware{Sessions: sessions, Secure: prod},
	}

	e := httpserver.New(&deps, httpserver.Options{
		Logger:         logger,
		FrontendOrigin: cfg.FrontendOrigin,
		Production:     prod,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server started", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db() error", "error", err)
	}

	if err := pub.Close(); err != nil {
		logger.Error("event publisher close error", "error", err)
	}

	logger.Info("shutdown complete")
}
