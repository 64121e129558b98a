package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/eventbus"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
	redisclient "github.com/pcmindustrial/pcm/pkg/store/redis"
)

type NotificationHandler struct {
	db     *postgres.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

func NewNotificationHandler(db *postgres.Store, redis *redisclient.Client, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{db: db, redis: redis, logger: logger}
}

type notificationResponse struct {
	ID        string `json:"id"`
	CallID    string `json:"call_id"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	notifications, err := postgres.NewNotificationRepository(h.db.DB()).ListByUser(c.Request.Context(), actor.ID)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	response := make([]notificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		response = append(response, mapNotification(notification))
	}

	c.JSON(http.StatusOK, response)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := postgres.NewNotificationRepository(h.db.DB()).MarkRead(c.Request.Context(), notificationID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		h.logger.Error("failed to mark notification read", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notification read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// Stream pushes the actor's notifications over SSE as they are published.
// Requires redis; installations without it fall back to polling List.
func (h *NotificationHandler) Stream(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if h.redis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "streaming is not available"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	bus := eventbus.NewBus(h.redis.Client())
	events := bus.Subscribe(c.Request.Context(), eventbus.NotificationChannel(actor.ID.String()))

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			c.SSEvent("notification", event)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func mapNotification(notification model.Notification) notificationResponse {
	return notificationResponse{
		ID:        notification.ID.String(),
		CallID:    notification.CallID.String(),
		Message:   notification.Message,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt.UTC().Format(timeRFC3339Nano),
	}
}
