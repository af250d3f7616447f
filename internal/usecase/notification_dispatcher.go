package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/entity"
	"github.com/lapublica/leadflow/internal/infra/queue"
)

// NotificationRetention is how long read notifications are kept.
const NotificationRetention = 30 * 24 * time.Hour

// NotificationPayload describes one notification before it is addressed.
type NotificationPayload struct {
	Type      entity.WorkflowNotification
	Title     string
	Message   string
	Link      string
	Metadata  map[string]any
	LeadID    *string
	CompanyID *string
}

// NotificationDispatcher stores notifications and tracks their read state.
// It performs no de-duplication; reminder callers check HasRecentNotification.
type NotificationDispatcher struct {
	Repo   entity.NotificationRepositoryInterface
	Queue  QueueProducerInterface
	Logger *zap.Logger
	Now    func() time.Time
}

func NewNotificationDispatcher(repo entity.NotificationRepositoryInterface, producer QueueProducerInterface, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{
		Repo:   repo,
		Queue:  producer,
		Logger: logger,
		Now:    time.Now,
	}
}

func (d *NotificationDispatcher) build(userID string, payload NotificationPayload) (*entity.Notification, error) {
	persisted, err := payload.Type.PersistedType()
	if err != nil {
		return nil, &DomainError{Code: CodeUnmappedNotification, Message: err.Error()}
	}
	n := entity.NewNotification(userID, persisted, payload.Title, payload.Message, payload.Link,
		payload.Metadata, payload.LeadID, payload.CompanyID)
	n.CreatedAt = d.Now()
	return n, nil
}

func (d *NotificationDispatcher) CreateNotification(ctx context.Context, userID string, payload NotificationPayload) (*entity.Notification, error) {
	if userID == "" {
		return nil, &DomainError{Code: CodeValidation, Message: "recipient is required"}
	}
	n, err := d.build(userID, payload)
	if err != nil {
		return nil, err
	}
	if err := d.Repo.Create(ctx, n); err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to store notification", Err: err}
	}
	d.publish(ctx, n)
	return n, nil
}

// CreateBulkNotifications stores one row per distinct non-empty recipient.
func (d *NotificationDispatcher) CreateBulkNotifications(ctx context.Context, userIDs []string, payload NotificationPayload) ([]*entity.Notification, error) {
	seen := make(map[string]bool, len(userIDs))
	ns := make([]*entity.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		n, err := d.build(id, payload)
		if err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	if len(ns) == 0 {
		return nil, nil
	}

	if err := d.Repo.CreateMany(ctx, ns); err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to store notifications", Err: err}
	}
	for _, n := range ns {
		d.publish(ctx, n)
	}
	return ns, nil
}

// publish hands the notification to the delivery queue; the stored row is
// what counts, so failures are only logged.
func (d *NotificationDispatcher) publish(ctx context.Context, n *entity.Notification) {
	if d.Queue == nil {
		return
	}
	payload := queue.NotificationPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           string(n.Type),
		Title:          n.Title,
		Message:        n.Message,
		Link:           n.Link,
	}
	if n.LeadID != nil {
		payload.LeadID = *n.LeadID
	}
	if err := d.Queue.PublishNotification(ctx, payload); err != nil {
		d.Logger.Warn("⚠️ notification stored but not queued for delivery",
			zap.String("notification_id", n.ID),
			zap.Error(err))
	}
}

func (d *NotificationDispatcher) MarkAsRead(ctx context.Context, notificationID string) error {
	err := d.Repo.MarkAsRead(ctx, notificationID, d.Now())
	if errors.Is(err, entity.ErrNotificationNotFound) {
		return &DomainError{Code: CodeNotificationNotFound, Message: "notification not found"}
	}
	if err != nil {
		return &TechnicalError{Code: CodeDatabase, Message: "failed to mark notification as read", Err: err}
	}
	return nil
}

func (d *NotificationDispatcher) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	n, err := d.Repo.MarkAllAsRead(ctx, userID, d.Now())
	if err != nil {
		return 0, &TechnicalError{Code: CodeDatabase, Message: "failed to mark notifications as read", Err: err}
	}
	return n, nil
}

// CleanOldNotifications deletes read notifications older than the retention
// window. Unread ones are kept whatever their age.
func (d *NotificationDispatcher) CleanOldNotifications(ctx context.Context) (int64, error) {
	cutoff := d.Now().Add(-NotificationRetention)
	deleted, err := d.Repo.DeleteOlderThan(ctx, cutoff, true)
	if err != nil {
		return 0, &TechnicalError{Code: CodeDatabase, Message: "failed to clean notifications", Err: err}
	}
	if deleted > 0 {
		d.Logger.Info("🧹 old notifications removed", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func (d *NotificationDispatcher) HasRecentNotification(ctx context.Context, filter entity.NotificationFilter) (bool, error) {
	count, err := d.Repo.Count(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("count notifications: %w", err)
	}
	return count > 0, nil
}

func (d *NotificationDispatcher) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	ns, err := d.Repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to list notifications", Err: err}
	}
	return ns, nil
}

func (d *NotificationDispatcher) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := d.Repo.Count(ctx, entity.NotificationFilter{UserID: userID, UnreadOnly: true})
	if err != nil {
		return 0, &TechnicalError{Code: CodeDatabase, Message: "failed to count notifications", Err: err}
	}
	return count, nil
}
