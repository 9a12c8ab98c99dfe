package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/edupay/upiverify/db"
	"github.com/edupay/upiverify/db/migrations"
	"github.com/edupay/upiverify/docs"
	"github.com/edupay/upiverify/grpcserver"
	"github.com/edupay/upiverify/kafka"
	"github.com/edupay/upiverify/lib"
	"github.com/edupay/upiverify/lib/evidence"
	"github.com/edupay/upiverify/lib/idempotency"
	"github.com/edupay/upiverify/lib/service"
	"github.com/edupay/upiverify/lib/tokens"
	"github.com/edupay/upiverify/lib/transport"
	"github.com/edupay/upiverify/rabbitmq"
	"github.com/edupay/upiverify/rail"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	echoSwagger "github.com/swaggo/echo-swagger"
	ddEcho "gopkg.in/DataDog/dd-trace-go.v1/contrib/labstack/echo.v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// @title        UPI Verify
// @version      0.1.0
// @description  Creates UPI payment requests and verifies submitted payment proofs against the payment rail.

// @contact.name   EduPay
// @contact.email  dev@edupay.example

// @BasePath  /

// @securitydefinitions.apikey  OAuth2Password
// @in                          header
// @name                        Authorization
// @schemes                     https http
func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}
	if err = c.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := lib.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	// Migrate the DB
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelStartup()
	group, err := migrations.Apply(startupCtx, dbConn)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}
	if !group.IsZero() {
		logger.Infof("Database migrated to %s", group)
	}
	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	// Init the payment rail client
	railCfg, err := rail.LoadConfig()
	if err != nil {
		logger.Fatalf("Error loading rail config: %v", err)
	}
	railClient, err := rail.InitRailClient(railCfg, logger)
	if err != nil {
		logger.Fatalf("Error initializing the %s rail client: %v", railCfg.RailClientType, err)
	}

	svc := service.NewPaymentService(c, db.NewPaymentStore(dbConn), railClient, logger)
	svc.Metrics, err = service.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatalf("Error registering metrics: %v", err)
	}

	// Terminal payment notifications
	if c.WebhookUrl != "" {
		svc.Notifiers = append(svc.Notifiers, service.NewWebhookNotifier(c.WebhookUrl))
	}
	if len(c.KafkaBrokers) > 0 {
		kafkaNotifier := kafka.NewNotifier(c.KafkaBrokers, c.KafkaTopic)
		defer kafkaNotifier.Close()
		svc.Notifiers = append(svc.Notifiers, kafkaNotifier)
		logger.Infof("Publishing payment events to kafka topic %s", c.KafkaTopic)
	}
	// Without EVIDENCE_BUCKET only attachment references are accepted
	if c.EvidenceBucket != "" {
		evidenceStore, err := evidence.NewS3Store(startupCtx, c.EvidenceBucket, c.EvidencePrefix, c.MaxEvidenceSize)
		if err != nil {
			logger.Fatalf("Error initializing evidence store: %v", err)
		}
		svc.Evidence = evidenceStore
	}
	// Without REDIS_URL idempotency relies on the unique database column only
	if c.RedisUrl != "" {
		idempotencyStore, redisClient, err := idempotency.NewRedisStore(startupCtx, c.RedisUrl)
		if err != nil {
			logger.Fatalf("Error connecting to redis: %v", err)
		}
		defer redisClient.Close()
		svc.IdempotencyKeys = idempotencyStore
	}

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// No rabbitmq features will be available in this case.
	var rabbitmqClient rabbitmq.Client
	if c.RabbitMQUri != "" {
		amqpClient, err := rabbitmq.DialAMQP(c.RabbitMQUri, rabbitmq.WithAmqpLogger(logger))
		if err != nil {
			logger.Fatal(err)
		}

		rabbitmqClient, err = rabbitmq.NewClient(amqpClient,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithRailStatusExchange(c.RabbitMQRailExchange),
			rabbitmq.WithRailStatusConsumerQueueName(c.RabbitMQRailQueueName),
			rabbitmq.WithRailStatusQueueOptions(rabbitmq.QueueOptions{
				Durable:       c.RabbitMQRailQueueDurable,
				Exclusive:     c.RabbitMQRailQueueExclusive,
				DeliveryLimit: c.RabbitMQRailDeliveryLimit,
			}),
			rabbitmq.WithPaymentExchange(c.RabbitMQPaymentExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}

		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
	}

	//init echo server
	e := transport.InitEcho(c, logger)
	//if Datadog is configured, add datadog middleware
	if c.DatadogAgentUrl != "" {
		tracer.Start(tracer.WithAgentAddr(c.DatadogAgentUrl))
		defer tracer.Stop()
		e.Use(ddEcho.Middleware(ddEcho.WithServiceName("upiverify")))
	}

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for creating requests and submitting proofs
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(c.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(c.JWTSecret), strictRateLimitMiddleware, logMw)

	transport.RegisterV2Endpoints(svc, e, secured, securedWithStrictRateLimit, tokens.AdminTokenMiddleware(c.AdminToken), logMw)

	//Swagger API spec
	docs.SwaggerInfo.Host = c.Host
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	var backgroundWg sync.WaitGroup
	backGroundCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Resume polling of requests left in Verifying by a previous process
	err = svc.StartPendingVerificationRoutine(backGroundCtx)
	if err != nil {
		sentry.CaptureException(err)
		//in case of an error here no restart is necessary
		svc.Logger.Error(err)
	}

	// Expire overdue requests nobody submitted a proof for
	backgroundWg.Add(1)
	go func() {
		err := svc.StartExpirySweepRoutine(backGroundCtx)
		if err != nil && err != context.Canceled {
			sentry.CaptureException(err)
			svc.Logger.Error(err)
		}
		svc.Logger.Info("Expiry sweep routine done")
		backgroundWg.Done()
	}()

	if rabbitmqClient != nil {
		// Consume authoritative status callbacks of the rail
		backgroundWg.Add(1)
		go func() {
			err := rabbitmqClient.SubscribeToRailStatusUpdates(backGroundCtx, svc.ProcessRailStatusUpdate)
			if err != nil && err != context.Canceled {
				// losing the consumer means losing rail callbacks, restart
				sentry.CaptureException(err)
				svc.Logger.Fatal(err)
			}
			svc.Logger.Info("Rail status consumer done")
			backgroundWg.Done()
		}()

		//Start rabbit publisher
		backgroundWg.Add(1)
		go func() {
			err := rabbitmqClient.StartPublishPayments(backGroundCtx,
				svc.SubscribePaymentEvents,
				service.EncodePaymentEvent,
			)
			if err != nil && err != context.Canceled {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}

			svc.Logger.Info("Rabbit payment publisher done")
			backgroundWg.Done()
		}()
	}

	if c.EnableGRPC {
		backgroundWg.Add(1)
		go func() {
			err := grpcserver.StartGrpcServer(backGroundCtx, c.GRPCPort, dbConn.PingContext, logger)
			if err != nil {
				svc.Logger.Fatal(err)
			}
			svc.Logger.Info("gRPC server done")
			backgroundWg.Done()
		}()
	}

	//Start Prometheus server if necessary
	var echoPrometheus *echo.Echo
	if c.EnablePrometheus {
		echoPrometheus = transport.StartPrometheusEcho(logger, c, e)
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	if echoPrometheus != nil {
		if err := echoPrometheus.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}
	}
	// Requests being polled stay in Verifying and are resumed on the next start
	svc.Shutdown()
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("upiverify exiting gracefully. Goodbye.")
}
