package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// NotificationWorker owns the background queue that feeds the notifier.
type NotificationWorker struct {
	dispatcher *events.AsyncDispatcher
	logger     *zap.Logger
}

// StartNotificationWorker registers notification handlers on the dispatcher
// the notifier was built with. The dispatcher's workers are already running.
func StartNotificationWorker(notifier *service.NotificationService, dispatcher *events.AsyncDispatcher, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier != nil {
		notifier.RegisterHandlers()
	}
	logger.Info("notification worker started")
	return &NotificationWorker{dispatcher: dispatcher, logger: logger}
}

// Stop drains queued events until ctx expires.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	if w == nil || w.dispatcher == nil {
		return nil
	}
	w.logger.Info("draining notification queue", zap.Int("pending", w.dispatcher.Pending()))
	if err := w.dispatcher.Close(ctx); err != nil {
		w.logger.Warn("notification queue not fully drained", zap.Error(err))
		return err
	}
	return nil
}
