package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"research-notify/internal/domain/entity"
	"research-notify/internal/observability/logging"
	"research-notify/internal/observability/tracing"
	"research-notify/internal/repository"
	"research-notify/internal/resilience/retry"
	"research-notify/internal/usecase/recipient"
)

const (
	// StaleStatusMessage is persisted when a status-linked notification is
	// cancelled at fire time.
	StaleStatusMessage = "Student status is no longer current"

	defaultFireTimeout     = 30 * time.Second
	defaultBulkConcurrency = 10

	// persistTimeout bounds the outcome write, which must still happen when
	// the attempt itself used up its timeout.
	persistTimeout = 10 * time.Second
	alertTimeout   = 30 * time.Second
)

// Service schedules notifications and drives their delivery.
type Service interface {
	// ScheduleNotification resolves the recipient, persists a PENDING record
	// and arms its timer. Resolution and validation failures are returned
	// unchanged and nothing is persisted.
	ScheduleNotification(ctx context.Context, req Request) (*entity.Notification, error)

	// ScheduleBulkNotifications schedules every request independently and
	// returns one result per request, in request order.
	ScheduleBulkNotifications(ctx context.Context, reqs []Request) []BulkResult

	// ScheduleVivaNotifications notifies the student, the examiners and any
	// external participants of a viva.
	ScheduleVivaNotifications(ctx context.Context, v Viva) []BulkResult

	// CancelNotification stops the timer if one is armed, then marks the
	// record CANCELLED whatever its current status.
	CancelNotification(ctx context.Context, id string) error

	// Recover re-arms every PENDING notification scheduled at or after now.
	// Past-due records are left alone.
	Recover(ctx context.Context) (int, error)

	// AuditStalePending counts PENDING notifications whose schedule elapsed
	// without an armed timer.
	AuditStalePending(ctx context.Context) (int, error)

	// ActiveJobs returns the number of armed timers.
	ActiveJobs() int

	// ChannelHealth returns the state of every registered channel.
	ChannelHealth() []ChannelHealthStatus

	// Shutdown stops all timers and waits for in-flight deliveries until ctx is done.
	Shutdown(ctx context.Context) error
}

// FailureAlerter is told about notifications that exhausted their retries.
type FailureAlerter interface {
	AlertFailed(ctx context.Context, n *entity.Notification) error
}

// Request is the input of ScheduleNotification.
type Request struct {
	Type    entity.NotificationType
	Title   string
	Message string

	RecipientCategory entity.RecipientCategory
	// RecipientID addresses a stored recipient. Unused for EXTERNAL.
	RecipientID string
	// RecipientEmail and RecipientName are required for EXTERNAL and ignored otherwise.
	RecipientEmail string
	RecipientName  string

	// StatusLinkID ties the notification to a student status. It is cancelled
	// at fire time if that status is no longer current.
	StatusLinkID string

	// ScheduledFor defaults to now.
	ScheduledFor time.Time
	Metadata     map[string]any
}

func (r Request) validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidRequest,
			&entity.ValidationError{Field: "type", Message: fmt.Sprintf("unknown notification type %q", r.Type)})
	}
	if r.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRequest,
			&entity.ValidationError{Field: "title", Message: "is required"})
	}
	return nil
}

// Dependencies are the collaborators of an Engine.
type Dependencies struct {
	Store    repository.NotificationRepository
	Resolver recipient.Resolver
	Renderer Renderer
	Channels map[entity.NotificationType]Channel
}

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	Retry RetryPolicy
	// FireTimeout bounds one delivery attempt.
	FireTimeout time.Duration
	// BulkConcurrency caps concurrent ScheduleNotification calls in bulk scheduling.
	BulkConcurrency int
	// Alerter is notified when a notification becomes FAILED. Optional.
	Alerter FailureAlerter
	Logger  *slog.Logger
	Now     func() time.Time
}

// Engine is the delivery engine. It owns its scheduler; timers do not outlive
// Shutdown.
type Engine struct {
	store     repository.NotificationRepository
	resolver  recipient.Resolver
	renderer  Renderer
	channels  map[entity.NotificationType]Channel
	scheduler *Scheduler

	retry           RetryPolicy
	fireTimeout     time.Duration
	bulkConcurrency int
	alerter         FailureAlerter
	logger          *slog.Logger
	now             func() time.Time

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

var _ Service = (*Engine)(nil)

// NewEngine creates an engine. Call Recover once before serving requests
// to re-arm notifications persisted by a previous process.
func NewEngine(deps Dependencies, opts Options) *Engine {
	if opts.Retry.MaxRetries <= 0 {
		base := opts.Retry.Backoff.InitialDelay
		opts.Retry = DefaultRetryPolicy()
		if base > 0 {
			opts.Retry = opts.Retry.WithBaseDelay(base)
		}
	}
	if opts.FireTimeout <= 0 {
		opts.FireTimeout = defaultFireTimeout
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = defaultBulkConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	e := &Engine{
		store:           deps.Store,
		resolver:        deps.Resolver,
		renderer:        deps.Renderer,
		channels:        deps.Channels,
		scheduler:       newScheduler(opts.Now),
		retry:           opts.Retry,
		fireTimeout:     opts.FireTimeout,
		bulkConcurrency: opts.BulkConcurrency,
		alerter:         opts.Alerter,
		logger:          opts.Logger,
		now:             opts.Now,
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
	}

	enabled := 0
	for _, ch := range e.channels {
		if ch.IsEnabled() {
			enabled++
		}
	}
	SetChannelsEnabled(enabled)

	return e
}

// ScheduleNotification implements Service.ScheduleNotification.
func (e *Engine) ScheduleNotification(ctx context.Context, req Request) (*entity.Notification, error) {
	if e.scheduler.Stopped() {
		return nil, ErrSchedulerStopped
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	rcpt, err := e.resolver.Resolve(ctx, recipient.Target{
		Category: req.RecipientCategory,
		ID:       req.RecipientID,
		Email:    req.RecipientEmail,
		Name:     req.RecipientName,
	})
	if err != nil {
		return nil, err
	}

	scheduledFor := req.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = e.now()
	}

	n := &entity.Notification{
		Type:              req.Type,
		Status:            entity.StatusPending,
		Title:             req.Title,
		Message:           req.Message,
		RecipientCategory: req.RecipientCategory,
		RecipientEmail:    rcpt.Email,
		RecipientName:     rcpt.Name,
		StatusLinkID:      req.StatusLinkID,
		ScheduledFor:      scheduledFor,
		Metadata:          req.Metadata,
	}
	if req.RecipientCategory.Owned() {
		n.Owner = &entity.RecipientRef{Category: req.RecipientCategory, ID: rcpt.ID}
	}

	if err := e.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	logger := logging.WithNotification(e.logger, n)
	if _, err := e.scheduler.Arm(n.ID, n.ScheduledFor, e.fire); err != nil {
		// The record is durable; the next process start re-arms it.
		logger.Warn("notification persisted but not armed", slog.Any("error", err))
	} else {
		SetActiveJobs(e.scheduler.Len())
	}
	RecordScheduled(string(n.Type))

	logger.Info("notification scheduled",
		slog.Time("scheduled_for", n.ScheduledFor),
		slog.Bool("status_linked", n.HasStatusLink()))
	return n, nil
}

// CancelNotification implements Service.CancelNotification.
func (e *Engine) CancelNotification(ctx context.Context, id string) error {
	if e.scheduler.Cancel(id) {
		SetActiveJobs(e.scheduler.Len())
	}

	current, err := e.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel notification %s: %w", id, err)
	}
	if current == nil {
		return &entity.NotFoundError{Kind: "notification", ID: id}
	}
	if current.Status == entity.StatusSent {
		// Accepted race with an in-flight fire; the record is re-marked anyway.
		logging.WithNotification(e.logger, current).Warn("cancelling a notification that was already sent",
			slog.Any("sent_at", current.SentAt))
	}

	if !current.CanTransition(entity.StatusCancelled) {
		return fmt.Errorf("cancel notification %s from %s: %w", id, current.Status, ErrInvalidTransition)
	}

	if err := e.store.Update(ctx, id, entity.NotificationUpdate{Status: entity.Ptr(entity.StatusCancelled)}); err != nil {
		return fmt.Errorf("cancel notification %s: %w", id, err)
	}

	logging.WithNotification(e.logger, current).Info("notification cancelled",
		slog.String("previous_status", string(current.Status)))
	return nil
}

// Recover implements Service.Recover.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	from := e.now()

	var pending []*entity.Notification
	err := retry.WithBackoff(ctx, retry.DBConfig(), func() error {
		var listErr error
		pending, listErr = e.store.List(ctx, entity.NotificationFilter{
			Status:        entity.StatusPending,
			ScheduledFrom: from,
		})
		return listErr
	})
	if err != nil {
		return 0, fmt.Errorf("recover pending notifications: %w", err)
	}

	armed := 0
	for _, n := range pending {
		if _, err := e.scheduler.Arm(n.ID, n.ScheduledFor, e.fire); err != nil {
			return armed, fmt.Errorf("recover %s: %w", n.ID, err)
		}
		armed++
	}
	SetActiveJobs(e.scheduler.Len())
	RecordRecovered(armed)

	e.logger.Info("pending notifications recovered",
		slog.Int("armed", armed),
		slog.Time("scheduled_from", from))
	return armed, nil
}

// fire is the scheduler callback for one delivery attempt.
func (e *Engine) fire(h JobHandle) {
	id := h.ID()

	ctx, cancel := context.WithTimeout(e.shutdownCtx, e.fireTimeout)
	defer cancel()
	ctx = logging.ContextWithRequestID(ctx, uuid.NewString())

	ctx, span := tracing.GetTracer().Start(ctx, "notify.fire",
		trace.WithAttributes(attribute.String("notification.id", id)))
	defer span.End()

	logger := logging.WithRequestID(ctx, e.logger).With(slog.String("notification_id", id))

	var n *entity.Notification
	err := retry.WithBackoff(ctx, retry.DBConfig(), func() error {
		var getErr error
		n, getErr = e.store.GetWithStatusLink(ctx, id)
		return getErr
	})
	if err != nil {
		// Nothing was attempted, so no retry is consumed. The audit reports
		// the record once its schedule has elapsed.
		logger.Error("failed to load notification at fire time", slog.Any("error", err))
		tracing.RecordError(span, err)
		e.release(h)
		return
	}
	if n == nil || n.Status != entity.StatusPending {
		e.release(h)
		return
	}

	logger = logging.WithNotification(logger, n)
	span.SetAttributes(
		attribute.String("notification.type", string(n.Type)),
		attribute.Int("notification.retry_count", n.RetryCount),
	)

	if !n.StatusLinkCurrent() {
		e.persistOutcome(ctx, logger, n, entity.NotificationUpdate{
			Status: entity.Ptr(entity.StatusCancelled),
			Error:  entity.Ptr(StaleStatusMessage),
		})
		e.release(h)
		RecordOutcome(outcomeCancelled)
		span.SetAttributes(attribute.String("notification.outcome", outcomeCancelled))
		logger.Info("notification cancelled: student status is no longer current",
			slog.String("student_status_id", n.StatusLinkID))
		return
	}

	if err := e.deliver(ctx, logger, n); err != nil {
		tracing.RecordError(span, err)
		e.handleFailure(ctx, logger, h, n, err)
		return
	}

	sentAt := e.now()
	e.persistOutcome(ctx, logger, n, entity.NotificationUpdate{
		Status: entity.Ptr(entity.StatusSent),
		SentAt: &sentAt,
	})
	e.release(h)
	RecordOutcome(outcomeSent)
	span.SetAttributes(attribute.String("notification.outcome", outcomeSent))
	logger.Info("notification sent", slog.Int("retry_count", n.RetryCount))
}

// deliver renders and dispatches n. Panics in the renderer or the channel
// are converted into a DeliveryError.
func (e *Engine) deliver(ctx context.Context, logger *slog.Logger, n *entity.Notification) (err error) {
	channelName := string(n.Type)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during notification delivery",
				slog.String("channel", channelName),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = &DeliveryError{Channel: channelName, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ch, ok := e.channels[n.Type]
	if !ok || ch == nil {
		return &DeliveryError{Channel: channelName, Err: ErrNoChannel}
	}
	channelName = ch.Name()
	if !ch.IsEnabled() {
		return &DeliveryError{Channel: channelName, Err: ErrChannelDisabled}
	}

	payload, err := e.renderer.Render(n)
	if err != nil {
		return &DeliveryError{Channel: channelName, Err: err}
	}

	start := time.Now()
	RecordDispatch(channelName)
	if err := ch.Send(ctx, n, payload); err != nil {
		RecordFailure(channelName, time.Since(start))
		return &DeliveryError{Channel: channelName, Err: err}
	}
	RecordSuccess(channelName, time.Since(start))
	return nil
}

// handleFailure applies the retry policy to a failed attempt. The new state is
// persisted before the timer is re-armed so attempts for one id never overlap.
func (e *Engine) handleFailure(ctx context.Context, logger *slog.Logger, h JobHandle, n *entity.Notification, cause error) {
	msg := failureMessage(cause)

	next, delay, ok := e.retry.Next(n.RetryCount)
	if !ok {
		e.persistOutcome(ctx, logger, n, entity.NotificationUpdate{
			Status: entity.Ptr(entity.StatusFailed),
			Error:  &msg,
		})
		e.release(h)
		RecordOutcome(outcomeFailed)
		logger.Error("notification failed permanently",
			slog.Int("retry_count", n.RetryCount),
			slog.String("error", cause.Error()))

		n.Status = entity.StatusFailed
		n.Error = msg
		e.alert(ctx, logger, n)
		return
	}

	fireAt := e.now().Add(delay)
	if !e.persistOutcome(ctx, logger, n, entity.NotificationUpdate{
		RetryCount:   &next,
		ScheduledFor: &fireAt,
		Error:        &msg,
	}) {
		// Without the new retry count the next attempt could exceed the limit.
		e.release(h)
		return
	}

	if _, rearmed, err := e.scheduler.Rearm(h, fireAt, e.fire); err != nil || !rearmed {
		logger.Info("retry not armed: job cancelled or engine stopping",
			slog.Int("retry_count", next),
			slog.Any("error", err))
		return
	}
	RecordOutcome(outcomeRetried)
	logger.Warn("notification delivery failed, retry scheduled",
		slog.Int("retry_count", next),
		slog.Duration("delay", delay),
		slog.Time("scheduled_for", fireAt),
		slog.String("error", cause.Error()))
}

// failureMessage is the text stored in a record's error field: the cause
// reported by the channel, without the channel prefix.
func failureMessage(err error) string {
	var de *DeliveryError
	if errors.As(err, &de) && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}

// persistOutcome writes u with a timeout of its own, detached from the
// attempt's deadline. A status change not allowed from n's current status is
// refused. It reports whether the write succeeded.
func (e *Engine) persistOutcome(ctx context.Context, logger *slog.Logger, n *entity.Notification, u entity.NotificationUpdate) bool {
	if u.Status != nil && !n.CanTransition(*u.Status) {
		logger.Error("refusing notification status change",
			slog.String("from", string(n.Status)),
			slog.String("to", string(*u.Status)),
			slog.Any("error", ErrInvalidTransition))
		return false
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	err := retry.WithBackoff(writeCtx, retry.DBConfig(), func() error {
		return e.store.Update(writeCtx, n.ID, u)
	})
	if err != nil {
		logger.Error("failed to persist notification outcome", slog.Any("error", err))
		return false
	}
	return true
}

func (e *Engine) alert(ctx context.Context, logger *slog.Logger, n *entity.Notification) {
	if e.alerter == nil {
		return
	}
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()
	if err := e.alerter.AlertFailed(alertCtx, n); err != nil {
		logger.Warn("failure alert not delivered", slog.Any("error", err))
	}
}

func (e *Engine) release(h JobHandle) {
	if e.scheduler.Release(h) {
		SetActiveJobs(e.scheduler.Len())
	}
}

// ActiveJobs implements Service.ActiveJobs.
func (e *Engine) ActiveJobs() int {
	return e.scheduler.Len()
}

// IsScheduled reports whether id has an armed timer.
func (e *Engine) IsScheduled(id string) bool {
	return e.scheduler.Active(id)
}

// ChannelHealth implements Service.ChannelHealth. Channels are listed in
// EMAIL, SYSTEM, REMINDER order.
func (e *Engine) ChannelHealth() []ChannelHealthStatus {
	statuses := make([]ChannelHealthStatus, 0, len(e.channels))
	for _, t := range []entity.NotificationType{entity.TypeEmail, entity.TypeSystem, entity.TypeReminder} {
		ch, ok := e.channels[t]
		if !ok || ch == nil {
			continue
		}
		status := ChannelHealthStatus{
			Type:    t,
			Name:    ch.Name(),
			Enabled: ch.IsEnabled(),
		}
		if hr, ok := ch.(HealthReporter); ok {
			status.CircuitBreakerOpen = hr.CircuitOpen()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Shutdown implements Service.Shutdown.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.logger.Info("Shutting down notification engine", slog.Int("active_jobs", e.scheduler.Len()))

	e.scheduler.Stop()
	SetActiveJobs(0)

	if err := e.scheduler.Wait(ctx); err != nil {
		// Abort what is still running; its outcome write is detached and may still land.
		e.shutdownCancel()
		e.logger.Warn("Notification engine shutdown timeout")
		return err
	}
	e.shutdownCancel()
	e.logger.Info("Notification engine shutdown complete")
	return nil
}
