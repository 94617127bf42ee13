/**
 * @description
 * This is the main entry point for the credit-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, the Xactus API client, message brokers, repositories, the core
 * application service, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * The encryption key is validated here, before anything else is wired: a missing
 * or malformed key aborts startup. Generating a key at runtime would strand every
 * previously encrypted report, so there is no fallback.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/encryption, internal/store: Internal packages.
 * - pkg/xactusclient, pkg/rabbitmq: Clients for the Xactus API and RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/harborlend/credit-service/internal/api"
	"github.com/harborlend/credit-service/internal/app"
	"github.com/harborlend/credit-service/internal/config"
	"github.com/harborlend/credit-service/internal/encryption"
	"github.com/harborlend/credit-service/internal/store"
	hlrabbit "github.com/harborlend/credit-service/pkg/rabbitmq"
	"github.com/harborlend/credit-service/pkg/xactusclient"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	// The encryption key is a hard requirement; refusing to boot beats silently
	// encrypting under an ephemeral key nobody can ever decrypt with again.
	encryptionKey, err := encryption.ParseKey(cfg.CreditEncryptionKey)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"credit encryption key must be configured\" env=CREDIT_ENCRYPTION_KEY err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting credit-service\" port=%s retention_days=%d", cfg.ServerPort, cfg.RetentionPeriodDays)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 10
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer for officer notifications. Notification
	// delivery is best-effort, so a missing broker degrades rather than aborts.
	var eventProducer hlrabbit.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; notifications disabled\" env=RABBITMQ_URL")
		eventProducer = &hlrabbit.EventProducerFallback{}
	} else if producer, err := hlrabbit.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventProducer = &hlrabbit.EventProducerFallback{}
	} else {
		defer producer.Close()
		eventProducer = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the Xactus credit aggregator API.
	xactusClient := xactusclient.NewClient(cfg.XactusAPIBaseURL, cfg.XactusAPIKey, time.Duration(cfg.XactusTimeoutSeconds)*time.Second)

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	creditService := app.NewService(repository, xactusClient, eventProducer, encryptionKey, cfg.RetentionPeriodDays)

	// Optional Redis-backed pull throttle.
	if cfg.PullRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; pull rate limiting disabled\" env=REDIS_URL")
		} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; pull rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; pull rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				creditService.SetPullRateLimiter(
					app.NewRedisPullRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
					cfg.PullRateLimitPerMinute,
				)
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the API handlers.
	creditHandlers := api.NewCreditHandlers(creditService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/credit", api.CreditRoutes(creditHandlers, cfg.AuthJWKSURL))

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
