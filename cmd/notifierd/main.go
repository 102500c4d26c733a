package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coursedesk/internal/audit"
	"coursedesk/internal/config"
	"coursedesk/internal/database"
	"coursedesk/internal/events"
	"coursedesk/internal/jobs"
	"coursedesk/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logr, err := logger.InitLogger()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logr.Sync()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logr.Fatal("failed to load config", zap.Error(err))
	}

	db, err := database.Connect()
	if err != nil {
		logr.Fatal("failed to initialize database", zap.Error(err))
	}

	mailer, err := config.BuildMailer(cfg)
	if err != nil {
		logr.Fatal("failed to init mailer", zap.Error(err))
	}
	smsSender, err := config.BuildSMSSender(cfg)
	if err != nil {
		logr.Fatal("failed to init sms sender", zap.Error(err))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		publisher = events.NewKafkaPublisher(strings.Split(broker, ","), "coursedesk.notifications")
		logr.Info("Kafka publisher initialized", zap.String("broker", broker))
	}

	jobs.InitMetrics()

	scanner := jobs.NewDocumentScanner(db, logr, cfg.Jobs.Scan.WindowDays, cfg.Jobs.Scan.LeadDays, cfg.SMS.Enabled)
	dispatcher := jobs.NewDispatchEngine(db, logr, mailer, smsSender, cfg.Jobs.Dispatch.BatchSize)
	evaluator := jobs.NewLicenseEvaluator(db, logr, mailer, smsSender, publisher, cfg.License.ThresholdDays, cfg.SMS.Enabled)
	digest := jobs.NewSummaryDigest(db, logr, mailer, audit.NewLogger(db), publisher, cfg.Digest.Recipients)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type job struct {
		name     string
		interval time.Duration
		run      func(context.Context) error
	}
	scheduled := []job{
		{"document_scan", time.Duration(cfg.Jobs.Scan.IntervalHours) * time.Hour, func(ctx context.Context) error {
			summary, err := scanner.RunOnce(ctx)
			logr.Info("document scan finished",
				zap.Int("tenants", summary.Tenants),
				zap.Int("created", summary.Created),
				zap.Int("failures", summary.Failures),
			)
			return err
		}},
		{"reminder_dispatch", time.Duration(cfg.Jobs.Dispatch.IntervalMinutes) * time.Minute, func(ctx context.Context) error {
			summary, err := dispatcher.RunOnce(ctx)
			if summary.Claimed > 0 {
				logr.Info("reminder dispatch finished",
					zap.Int("claimed", summary.Claimed),
					zap.Int("sent", summary.Sent),
					zap.Int("failed", summary.Failed),
				)
			}
			return err
		}},
		{"license_check", time.Duration(cfg.License.IntervalHours) * time.Hour, func(ctx context.Context) error {
			summary, err := evaluator.RunOnce(ctx)
			logr.Info("license check finished",
				zap.Int("tenants", summary.Tenants),
				zap.Int("sent", summary.Sent),
				zap.Int("failed", summary.Failed),
				zap.Int("skipped", summary.Skipped),
			)
			return err
		}},
		{"summary_digest", time.Duration(cfg.Digest.IntervalHours) * time.Hour, func(ctx context.Context) error {
			summary, err := digest.RunOnce(ctx)
			logr.Info("summary digest finished",
				zap.Int("recipients", summary.Recipients),
				zap.Int("failures", summary.Failures),
			)
			return err
		}},
	}

	runByName := make(map[string]func(context.Context) error, len(scheduled))
	for _, j := range scheduled {
		runByName[j.name] = j.run
		go runOnTicker(ctx, logr, j.name, j.interval, j.run)
	}

	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1"})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/jobs/:name/run", func(c *gin.Context) {
		run, ok := runByName[c.Param("name")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
			return
		}
		if err := run(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "done"})
	})

	go handleShutdown(cancel, publisher, logr)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}
	logr.Info("notifier started", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logr.Fatal("ops server failed", zap.Error(err))
	}
}

func runOnTicker(ctx context.Context, logr *zap.Logger, name string, interval time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := run(ctx); err != nil {
				logr.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			}
		}
	}
}

func handleShutdown(cancel context.CancelFunc, publisher events.Publisher, logr *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logr.Info("Shutdown signal received", zap.String("signal", sig.String()))
	cancel()

	if err := publisher.Close(); err != nil {
		logr.Error("Error closing event publisher", zap.Error(err))
	}
	os.Exit(0)
}
