package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tdminh/marketplace/internal/config"
	"github.com/tdminh/marketplace/internal/es"
	"github.com/tdminh/marketplace/internal/handlers"
	"github.com/tdminh/marketplace/internal/logging"
	"github.com/tdminh/marketplace/internal/middleware/csrf"
	"github.com/tdminh/marketplace/internal/middleware/loggingmw"
	"github.com/tdminh/marketplace/internal/mykafka"
	"github.com/tdminh/marketplace/internal/payment"
	"github.com/tdminh/marketplace/internal/repo"
	cartsvc "github.com/tdminh/marketplace/internal/service/cart"
	ordersvc "github.com/tdminh/marketplace/internal/service/order"
	"github.com/tdminh/marketplace/internal/service/token"
	httpserver "github.com/tdminh/marketplace/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	provider := payment.NewPayPalClient(
		configuration.PAYPAL_API_URL,
		configuration.PAYPAL_CLIENT_ID,
		configuration.PAYPAL_SECRET,
	)

	catalogRepo := &repo.CatalogRepo{DB: db}
	cartRepo := &repo.CartRepo{DB: db}
	orderRepo := &repo.OrderRepo{DB: db}

	cartService := &cartsvc.Service{Carts: cartRepo, Catalog: catalogRepo}
	orderService := &ordersvc.Service{
		DB:          db,
		Catalog:     catalogRepo,
		Orders:      orderRepo,
		Carts:       cartRepo,
		Provider:    provider,
		ShippingFee: configuration.ShippingFee,
		LockTimeout: configuration.LockTimeout,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(csrf.Middleware(csrf.Config{
		SkipPaths: []string{"/api/v1/register", "/api/v1/login"},
	}))

	deps := httpserver.Deps{
		DB:              db,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod, ES: esClient, Index: "products"},
		CategoryHandler: &handlers.CategoryHandler{DB: db},
		CartHandler:     &handlers.CartHandler{Svc: cartService, Producer: prod},
		OrderHandler:    &handlers.OrderHandler{Svc: orderService, CartSvc: cartService, Provider: provider, Producer: prod, Currency: "USD"},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "products"},
		TokenService:    &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
