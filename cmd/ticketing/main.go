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

	"github.com/IBM/sarama"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Eursukkul/booking-microservice/ticketing-service/config"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/authz"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/command"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/consumer"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/handler"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/identity"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/notify"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/qrtoken"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/service"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/clock"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/database"
	pkgKafka "github.com/Eursukkul/booking-microservice/ticketing-service/pkg/kafka"
	pkgLog "github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/rabbitmq"
	pkgRedis "github.com/Eursukkul/booking-microservice/ticketing-service/pkg/redis"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			l.Warnf(ctx, "Failed to flush traces: %v", err)
		}
	}()

	// The codec refuses an empty secret; never start without one.
	codec, err := qrtoken.New(cfg.Ticket.SigningSecret)
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize ticket codec: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize database: %v", err)
	}

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	ticketTypeRepo := repository.NewTicketTypeRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	staffRepo := repository.NewStaffRepository(db)

	if cfg.Authz.CacheEnabled {
		redisCli, err := pkgRedis.Connect(ctx, pkgRedis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
		}
		defer redisCli.Close()
		staffRepo = authz.NewCachedStaffRepository(staffRepo, redisCli, cfg.Authz.CacheTTL, l)
	}

	notifier, closeNotifier, err := newNotifier(cfg, l)
	if err != nil {
		l.Fatalf(ctx, "Failed to initialize notifier: %v", err)
	}
	defer closeNotifier()
	dispatcher := notify.NewDispatcher(notifier, notify.DefaultSendTimeout, l)

	// Services
	deps := service.Deps{
		Events:        eventRepo,
		TicketTypes:   ticketTypeRepo,
		Registrations: registrationRepo,
		Authorizer:    authz.New(eventRepo, staffRepo),
		Codec:         codec,
		Notifier:      dispatcher,
		Clock:         clock.Real(),
		Logger:        l,
	}
	cmds := command.New(
		service.NewIssuanceService(deps),
		service.NewCheckInService(deps),
		service.NewCancellationService(deps),
		service.NewRegistrationService(deps),
		l,
	)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(middleware.RequestLogger(l))
	e.Use(echoMw.Recover())

	auth := identity.Middleware(identity.NewJWTProvider(cfg.JWT.Secret), middleware.Unauthenticated)
	handler.NewTicketingHandler(cmds).RegisterRoutes(e, auth)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Catalog.SyncEnabled {
		mqConsumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
			URL:      cfg.RabbitURL,
			Exchange: consumer.Exchange,
			Queue:    consumer.Queue,
			Bindings: consumer.Bindings,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to RabbitMQ: %v", err)
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			l.Fatalf(ctx, "Failed to start consuming: %v", err)
		}

		catalog := consumer.NewCatalogConsumer(eventRepo, ticketTypeRepo, l)
		g.Go(func() error {
			return catalog.Run(gctx, msgs)
		})
	}

	g.Go(func() error {
		l.Infof(ctx, "Ticketing service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info(ctx, "Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		l.Errorf(ctx, "Server stopped with error: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := dispatcher.Flush(flushCtx); err != nil {
		l.Warnf(ctx, "Pending notifications dropped: %v", err)
	}
	l.Info(ctx, "Server exited")
}

func newNotifier(cfg *config.Config, l pkgLog.Logger) (notify.Notifier, func(), error) {
	switch cfg.Notify.Driver {
	case "kafka":
		prod, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			return nil, nil, err
		}
		return notify.NewKafkaNotifier(prod, cfg.Kafka.Topic), closeProducer(prod), nil
	case "rabbitmq":
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, notify.Exchange)
		if err != nil {
			return nil, nil, err
		}
		return notify.NewRabbitMQNotifier(pub), pub.Close, nil
	default:
		return notify.NewLogNotifier(l), func() {}, nil
	}
}

func closeProducer(prod sarama.SyncProducer) func() {
	return func() { _ = prod.Close() }
}
