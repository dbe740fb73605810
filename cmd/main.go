package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-order-service/internal/api"
	"food-order-service/internal/config"
	"food-order-service/internal/database"
	"food-order-service/internal/notify"
	"food-order-service/internal/pricing"
	"food-order-service/internal/realtime"
	"food-order-service/internal/repository"
	"food-order-service/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "main").Logger()

const publishTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
}

// run owns every resource it opens, so deferred cleanup happens before main
// exits on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing database")
		}
	}()

	if cfg.DB.Migrate {
		if err := database.RunMigrations(ctx, db, dialect); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	orderRepo := repository.NewOrderRepository(db, dialect)
	hub := realtime.NewHub()

	publisher, relay, closers, err := buildPublisher(cfg.Notify, hub)
	if err != nil {
		return fmt.Errorf("set up notifications: %w", err)
	}
	dispatcher := notify.NewAsync(publisher, cfg.Notify.Buffer, cfg.Notify.Workers, publishTimeout)

	engine := pricing.NewEngine(cfg.Workflow.TaxRate)
	orderService := service.NewOrderService(orderRepo, engine, dispatcher, service.Options{
		PrepBuffer:      cfg.Workflow.PrepBuffer,
		DefaultPageSize: cfg.Workflow.DefaultPageSize,
		MaxPageSize:     cfg.Workflow.MaxPageSize,
	})
	cartService := service.NewCartService(orderRepo)

	e := api.NewEcho(cfg.Debug)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())

	api.RegisterRoutes(e, []byte(cfg.JWTSecret), api.Handlers{
		Orders: api.NewOrderHandler(orderService, cfg.Debug),
		Cart:   api.NewCartHandler(cartService, cfg.Debug),
		Live:   api.NewLiveHandler(hub, orderRepo, cfg.Debug),
		Health: api.NewHealthHandler(orderRepo),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Strs("notify", cfg.Notify.Backends).
			Str("tax_rate", engine.TaxRate().String()).
			Msg("Starting HTTP server")
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP shutdown")
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Pending notifications dropped")
		}
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("Closing notification backend")
			}
		}
		return nil
	})

	return g.Wait()
}

// buildPublisher assembles the enabled backends. Without Redis the hub is fed
// in-process; with it every instance's relay feeds its own hub.
func buildPublisher(cfg config.NotifyConfig, hub *realtime.Hub) (notify.Publisher, *realtime.Relay, []io.Closer, error) {
	var (
		pubs    notify.Multi
		closers []io.Closer
		relay   *realtime.Relay
	)

	if cfg.Enabled("redis") {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pubs = append(pubs, notify.NewRedisPublisher(client))
		relay = realtime.NewRelay(client, hub)
		closers = append(closers, client)
	} else {
		pubs = append(pubs, hub)
	}

	if cfg.Enabled("kafka") {
		kp := notify.NewKafkaPublisher(cfg.NewKafkaWriter())
		pubs = append(pubs, kp)
		closers = append(closers, kp)
	}

	if cfg.Enabled("amqp") {
		ap, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, nil, err
		}
		pubs = append(pubs, ap)
		closers = append(closers, ap)
	}

	return pubs, relay, closers, nil
}

func requestLogger() echo.MiddlewareFunc {
	access := zerolog.New(os.Stdout).With().Timestamp().Str("component", "http").Logger()
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := access.Info()
			if v.Error != nil {
				ev = access.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
