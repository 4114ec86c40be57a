package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"research-notify/internal/config"
	"research-notify/internal/domain/entity"
	"research-notify/internal/infra/adapter/persistence/memory"
	pgRepo "research-notify/internal/infra/adapter/persistence/postgres"
	"research-notify/internal/infra/db"
	"research-notify/internal/infra/notifier"
	workerPkg "research-notify/internal/infra/worker"
	"research-notify/internal/observability/logging"
	"research-notify/internal/observability/metrics"
	"research-notify/internal/observability/tracing"
	"research-notify/internal/repository"
	"research-notify/internal/resilience/circuitbreaker"
	"research-notify/internal/usecase/notify"
	"research-notify/internal/usecase/recipient"
	envcfg "research-notify/pkg/config"
)

const serviceName = "research-notify-worker"

// stores is the persistence the engine and the recipient registry run on.
type stores struct {
	notifications repository.NotificationRepository
	recipients    recipient.Repositories
	close         func()
}

func main() {
	// .env is optional; deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Install(tracing.NewProvider(serviceName, envcfg.GetEnvFloat("TRACE_SAMPLE_RATIO", 1.0)))
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush tracer provider", slog.Any("error", err))
		}
	}()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("audit_schedule", workerConfig.AuditSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("max_retries", workerConfig.MaxRetries),
		slog.Duration("retry_base_delay", workerConfig.RetryBaseDelay),
		slog.Duration("fire_timeout", workerConfig.FireTimeout),
		slog.Int("bulk_max_concurrent", workerConfig.BulkMaxConcurrent),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.String("store", workerConfig.Store))

	st, err := initStores(ctx, logger, workerConfig)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.close()

	engine, err := setupEngine(logger, workerConfig, st)
	if err != nil {
		logger.Error("failed to initialize notification engine", slog.Any("error", err))
		os.Exit(1)
	}

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger, engine)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	recovered, err := engine.Recover(ctx)
	if err != nil {
		// Recovery is retried on the next restart; the audit job reports what stays unarmed.
		logger.Error("failed to recover pending notifications", slog.Any("error", err))
	} else {
		logger.Info("pending notifications recovered", slog.Int("count", recovered))
	}

	c, err := startAuditCron(logger, engine, workerConfig, workerMetrics)
	if err != nil {
		logger.Error("failed to add audit job", slog.Any("error", err))
		os.Exit(1)
	}

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("audit_schedule", workerConfig.AuditSchedule),
		slog.Int("active_jobs", engine.ActiveJobs()))

	<-ctx.Done()
	logger.Info("shutdown signal received")
	healthServer.SetReady(false)

	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), workerConfig.ShutdownTimeout)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Error("engine shutdown incomplete", slog.Any("error", err))
		return
	}
	logger.Info("worker stopped")
}

// initStores opens PostgreSQL, applies the schema and guards every query with
// the database circuit breaker. NOTIFY_STORE=memory runs on an empty
// in-process directory instead, for local development.
func initStores(ctx context.Context, logger *slog.Logger, cfg *workerPkg.WorkerConfig) (*stores, error) {
	if cfg.Store == workerPkg.StoreMemory {
		logger.Warn("using in-memory store, notifications do not survive restarts")
		dir := memory.NewDirectory()
		return &stores{
			notifications: memory.NewNotificationRepo(dir.StudentStatuses()),
			recipients: recipient.Repositories{
				Users:       dir.Users(),
				Students:    dir.Students(),
				Examiners:   dir.Examiners(),
				Supervisors: dir.Supervisors(),
				Panelists:   dir.Panelists(),
			},
			close: func() {},
		}, nil
	}

	database, err := db.Open(ctx)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(database); err != nil {
		closeDB(logger, database)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	go metrics.CollectDBStats(ctx, database, 15*time.Second)

	guarded := circuitbreaker.NewDBCircuitBreaker(database)
	return &stores{
		notifications: pgRepo.NewNotificationRepo(guarded),
		recipients: recipient.Repositories{
			Users:       pgRepo.NewUserRepo(guarded),
			Students:    pgRepo.NewStudentRepo(guarded),
			Examiners:   pgRepo.NewExaminerRepo(guarded),
			Supervisors: pgRepo.NewSupervisorRepo(guarded),
			Panelists:   pgRepo.NewPanelistRepo(guarded),
		},
		close: func() { closeDB(logger, database) },
	}, nil
}

func closeDB(logger *slog.Logger, database *sql.DB) {
	if err := database.Close(); err != nil {
		logger.Error("failed to close database", slog.Any("error", err))
	}
}

// setupEngine builds the delivery channels and the engine that drives them.
func setupEngine(logger *slog.Logger, cfg *workerPkg.WorkerConfig, st *stores) (*notify.Engine, error) {
	branding := config.DefaultBranding()
	if path := os.Getenv("TEMPLATE_CONFIG_PATH"); path != "" {
		loaded, err := config.LoadBranding(path)
		if err != nil {
			logger.Warn("failed to load template branding, using defaults",
				slog.String("path", path),
				slog.Any("error", err))
		} else {
			branding = loaded
		}
	}
	renderer, err := notify.NewHTMLRenderer(branding)
	if err != nil {
		return nil, fmt.Errorf("template renderer: %w", err)
	}

	smtpConfig := loadSMTPConfig(logger)
	var mailer notifier.Mailer = notifier.NewNoOpMailer()
	if smtpConfig.Enabled {
		mailer = notifier.NewSMTPMailer(smtpConfig)
		logger.Info("SMTP mailer initialized",
			slog.String("host", smtpConfig.Host),
			slog.Int("port", smtpConfig.Port))
	} else {
		logger.Info("SMTP disabled, email and reminder channels will reject deliveries")
	}

	inbox := notifier.NewInboxSink(envcfg.GetEnvInt("INBOX_CAPACITY", 100), logger)
	channels := map[entity.NotificationType]notify.Channel{
		entity.TypeEmail:    notify.NewEmailChannel(mailer, smtpConfig.Enabled),
		entity.TypeReminder: notify.NewReminderChannel(mailer, smtpConfig.Enabled),
		entity.TypeSystem:   notify.NewSystemChannel(inbox),
	}

	opts := notify.Options{
		Retry:           notify.DefaultRetryPolicy().WithBaseDelay(cfg.RetryBaseDelay),
		FireTimeout:     cfg.FireTimeout,
		BulkConcurrency: cfg.BulkMaxConcurrent,
		Logger:          logger,
	}
	opts.Retry.MaxRetries = cfg.MaxRetries

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		opts.Alerter = notifier.NewSlackAlerter(slackConfig)
		logger.Info("Slack failure alerts enabled")
	}

	engine := notify.NewEngine(notify.Dependencies{
		Store:    st.notifications,
		Resolver: recipient.NewRegistry(st.recipients),
		Renderer: renderer,
		Channels: channels,
	}, opts)

	logger.Info("notification engine initialized",
		slog.Int("channels", len(channels)),
		slog.Int("max_retries", opts.Retry.MaxRetries))
	return engine, nil
}

// loadSMTPConfig loads the relay settings from environment variables.
//
// Environment variables:
//   - SMTP_ENABLED: Boolean flag to enable email delivery (default: false)
//   - SMTP_HOST, SMTP_PORT (default 587), SMTP_USERNAME, SMTP_PASSWORD
//   - SMTP_FROM: sender address (required if enabled), SMTP_FROM_NAME
//   - SMTP_SSL: implicit TLS instead of STARTTLS (default: false)
//   - SMTP_INSECURE_SKIP_VERIFY: skip certificate checks (default: false)
//   - SMTP_TIMEOUT (default 30s), SMTP_RATE_LIMIT (default 5/s), SMTP_BURST (default 10)
func loadSMTPConfig(logger *slog.Logger) notifier.SMTPConfig {
	if !envcfg.GetEnvBool("SMTP_ENABLED", false) {
		return notifier.SMTPConfig{Enabled: false}
	}

	host := os.Getenv("SMTP_HOST")
	from := os.Getenv("SMTP_FROM")
	if host == "" || from == "" {
		logger.Warn("SMTP_HOST and SMTP_FROM are required, disabling email delivery")
		return notifier.SMTPConfig{Enabled: false}
	}

	return notifier.SMTPConfig{
		Enabled:            true,
		Host:               host,
		Port:               envcfg.GetEnvInt("SMTP_PORT", 587),
		Username:           os.Getenv("SMTP_USERNAME"),
		Password:           os.Getenv("SMTP_PASSWORD"),
		From:               from,
		FromName:           envcfg.GetEnvString("SMTP_FROM_NAME", "Research Office"),
		SSL:                envcfg.GetEnvBool("SMTP_SSL", false),
		InsecureSkipVerify: envcfg.GetEnvBool("SMTP_INSECURE_SKIP_VERIFY", false),
		Timeout:            envcfg.GetEnvDuration("SMTP_TIMEOUT", 30*time.Second),
		RateLimit:          envcfg.GetEnvFloat("SMTP_RATE_LIMIT", 5),
		Burst:              envcfg.GetEnvInt("SMTP_BURST", 10),
	}
}

// loadSlackConfig loads Slack configuration from environment variables.
//
// Environment variables:
//   - SLACK_ENABLED: Boolean flag to enable failure alerts (default: false)
//   - SLACK_WEBHOOK_URL: Slack webhook URL (required if enabled)
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}

	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling alerts")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Slack webhook URL format, disabling alerts", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Scheme != "https" {
		logger.Warn("Slack webhook URL must use HTTPS, disabling alerts")
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Host != "hooks.slack.com" {
		logger.Warn("Invalid Slack webhook host, disabling alerts", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook path, disabling alerts", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// startAuditCron runs the stale-PENDING audit on the configured schedule.
func startAuditCron(logger *slog.Logger, engine notify.Service, cfg *workerPkg.WorkerConfig, wm *workerPkg.WorkerMetrics) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := c.AddFunc(cfg.AuditSchedule, func() {
		runAuditJob(logger, engine, wm)
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// runAuditJob executes a single audit with timeout and error handling.
func runAuditJob(logger *slog.Logger, engine notify.Service, wm *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	wm.RecordAuditRun("started")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stale, err := engine.AuditStalePending(ctx)
	wm.RecordAuditDuration(time.Since(startTime).Seconds())
	if err != nil {
		logger.Error("stale notification audit failed", slog.Any("error", err))
		wm.RecordAuditRun("failure")
		return
	}

	wm.RecordAuditRun("success")
	wm.RecordStaleFound(stale)
	wm.RecordLastSuccess()
	logger.Info("stale notification audit completed",
		slog.Int("stale", stale),
		slog.Duration("duration", time.Since(startTime)))
}
