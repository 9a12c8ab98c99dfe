package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/edupay/upiverify/db"
	"github.com/edupay/upiverify/lib"
	"github.com/edupay/upiverify/lib/service"
	"github.com/edupay/upiverify/rail"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// script to settle payment requests stuck in Verifying, e.g. after a verification timeout.
// It asks the rail once per request and finalizes every authoritative answer.
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

	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn: c.SentryDSN,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}
	defer dbConn.Close()

	railCfg, err := rail.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load rail config %v", err)
	}
	railClient, err := rail.InitRailClient(railCfg, logger)
	if err != nil {
		logger.Fatalf("Error initializing the %s rail client: %v", railCfg.RailClientType, err)
	}

	svc := service.NewPaymentService(c, db.NewPaymentStore(dbConn), railClient, logger)
	if c.WebhookUrl != "" {
		svc.Notifiers = append(svc.Notifiers, service.NewWebhookNotifier(c.WebhookUrl))
	}
	defer svc.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	//for this job, we only look at requests older than RECONCILE_OLDER_THAN to avoid ones still being polled
	report, err := svc.ReconcileVerifying(ctx, c.ReconcileOlderThan)
	if err != nil {
		sentry.CaptureException(err)
		logrus.WithError(err).Fatal("payment reconciliation failed")
	}
	logrus.WithFields(logrus.Fields{
		"checked":  report.Checked,
		"verified": report.Verified,
		"rejected": report.Rejected,
		"pending":  report.Pending,
		"failed":   report.Failed,
	}).Info("payment reconciliation done")
}
