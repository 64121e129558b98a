package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/model"
)

type Repository interface {
	ListPending(ctx context.Context, limit int) ([]model.Notification, error)
	MarkPublished(ctx context.Context, notificationID uuid.UUID, publishedAt time.Time) error
	MarkFailed(ctx context.Context, notificationID uuid.UUID) error
}

// Relay drains pending notification rows to kafka so external consumers
// (email bridge, mobile push) receive them at least once.
type Relay struct {
	repo         Repository
	writer       *kafka.Writer
	dlqWriter    *kafka.Writer
	logger       *zap.Logger
	pollInterval time.Duration
	batchSize    int
}

type Message struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	CallID         string    `json:"call_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

type DLQMessage struct {
	Notification Message   `json:"notification"`
	Error        string    `json:"error"`
	FailedAt     time.Time `json:"failed_at"`
}

func NewRelay(repo Repository, writer, dlqWriter *kafka.Writer, logger *zap.Logger, pollInterval time.Duration, batchSize int) *Relay {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		repo:         repo,
		writer:       writer,
		dlqWriter:    dlqWriter,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("notification relay starting",
		zap.Duration("poll_interval", r.pollInterval),
		zap.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.processPending(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("notification relay shutting down")
			return ctx.Err()
		case <-ticker.C:
			r.processPending(ctx)
		}
	}
}

func (r *Relay) processPending(ctx context.Context) {
	pending, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		r.logger.Warn("failed to list pending notifications", zap.Error(err))
		return
	}

	if len(pending) == 0 {
		return
	}

	for _, notification := range pending {
		if err := r.publishNotification(ctx, notification); err != nil {
			r.logger.Warn("failed to publish notification", zap.Error(err), zap.String("notification_id", notification.ID.String()))
		}
	}
}

func (r *Relay) publishNotification(ctx context.Context, notification model.Notification) error {
	message := Message{
		NotificationID: notification.ID.String(),
		UserID:         notification.UserID.String(),
		CallID:         notification.CallID.String(),
		Body:           notification.Message,
		CreatedAt:      notification.CreatedAt,
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	kafkaMessage := kafka.Message{
		Key:   []byte(notification.UserID.String()),
		Value: payload,
		Time:  time.Now(),
	}

	if err := r.writer.WriteMessages(ctx, kafkaMessage); err != nil {
		r.logger.Warn("failed to publish to kafka, sending to DLQ", zap.Error(err), zap.String("notification_id", notification.ID.String()))
		return r.publishDLQ(ctx, message, err, notification.ID)
	}

	if err := r.repo.MarkPublished(ctx, notification.ID, time.Now()); err != nil {
		r.logger.Warn("failed to mark notification published", zap.Error(err), zap.String("notification_id", notification.ID.String()))
		return err
	}

	return nil
}

func (r *Relay) publishDLQ(ctx context.Context, message Message, publishErr error, notificationID uuid.UUID) error {
	dlq := DLQMessage{
		Notification: message,
		Error:        publishErr.Error(),
		FailedAt:     time.Now(),
	}

	payload, err := json.Marshal(dlq)
	if err != nil {
		return err
	}

	kafkaMessage := kafka.Message{
		Key:   []byte(message.NotificationID),
		Value: payload,
		Time:  time.Now(),
	}

	if err := r.dlqWriter.WriteMessages(ctx, kafkaMessage); err != nil {
		return err
	}

	if err := r.repo.MarkFailed(ctx, notificationID); err != nil {
		r.logger.Warn("failed to mark notification failed", zap.Error(err), zap.String("notification_id", notificationID.String()))
		return err
	}

	return nil
}
