package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	app "orders/internal/app/orders"
	"orders/internal/config"
	amqp_handler "orders/internal/handler/amqp"
	http_orders "orders/internal/handler/http/orders"
	"orders/internal/infrastructure/database"
	"orders/internal/infrastructure/rabbitmq"
	postgres_order_repo "orders/internal/repository/order_repo/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Order Service starting...")

	appLogger.Info("Waiting for database to be available...")
	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(cfg.DBConnectionString())
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	appLogger.Info("Running database migrations...")
	m, err := migrate.New(cfg.MigrationsPath, cfg.DBMigrationConnectionString())
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		appLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := amqpConn.Close(); err != nil {
			appLogger.Error("Error closing RabbitMQ connection", zap.Error(err))
		} else {
			appLogger.Info("RabbitMQ connection closed.")
		}
	}()

	publisher, err := rabbitmq.NewPublisher(amqpConn, cfg.OrdersExchange, appLogger.With(zap.String("component", "Publisher")))
	if err != nil {
		appLogger.Fatal("Failed to create RabbitMQ publisher", zap.Error(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing RabbitMQ publisher", zap.Error(err))
		}
	}()

	orderRepository := postgres_order_repo.NewOrderRepository(db, appLogger.With(zap.String("component", "OrderRepository")))
	orderService := app.NewOrderService(orderRepository, publisher, appLogger.With(zap.String("component", "OrderService")))

	paymentCompletedConsumer := amqp_handler.NewPaymentCompletedConsumer(orderService, appLogger.With(zap.String("component", "PaymentCompletedConsumer")))
	if err := rabbitmq.StartConsumer(amqpConn, cfg.PaymentCompletedQueue, paymentCompletedConsumer.HandleDelivery, appLogger.With(zap.String("component", "Consumer"))); err != nil {
		appLogger.Fatal("Failed to start payment completed consumer", zap.Error(err))
	}
	appLogger.Info("Payment completed consumer started!")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	http_orders.RegisterRoutes(r, orderService, appLogger)

	serverAddr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("Order Service started", zap.String("address", serverAddr))

	<-sigChan

	appLogger.Info("Shutting down Order Service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Order Service graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Order Service stopped.")
}
